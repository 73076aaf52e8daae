package metadata

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makePng builds a minimal PNG buffer with the given tEXt chunks, in order.
// CRCs are zeroed; the scanner skips them.
func makePng(chunks ...[2]string) []byte {
	buf := append([]byte{}, pngSignature...)
	for _, chunk := range chunks {
		data := append([]byte(chunk[0]), 0)
		data = append(data, []byte(chunk[1])...)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
		buf = append(buf, []byte("tEXt")...)
		buf = append(buf, data...)
		buf = append(buf, 0, 0, 0, 0) // crc
	}
	buf = binary.BigEndian.AppendUint32(buf, 0)
	buf = append(buf, []byte("IEND")...)
	buf = append(buf, 0, 0, 0, 0)
	return buf
}

func TestDecodePngText(t *testing.T) {
	buf := makePng(
		[2]string{"parameters", "a cat"},
		[2]string{"comment", "unrelated"},
		[2]string{"workflow", `{}`},
	)
	blobs := DecodeContainer(buf, "test.png")
	require.NotNil(t, blobs)
	assert.Equal(t, "a cat", blobs["parameters"])
	assert.Equal(t, `{}`, blobs["workflow"])
	assert.NotContains(t, blobs, "comment")
}

func TestDecodePngTextEmptyValueSkipped(t *testing.T) {
	blobs := DecodeContainer(makePng([2]string{"parameters", ""}), "test.png")
	assert.Nil(t, blobs)
}

func TestDecodePngStopsAtIend(t *testing.T) {
	buf := makePng([2]string{"parameters", "before"})
	// Append a chunk after IEND; it must not be scanned.
	extra := makePng([2]string{"workflow", `{}`})
	buf = append(buf, extra[8:]...)
	blobs := DecodeContainer(buf, "test.png")
	require.NotNil(t, blobs)
	assert.NotContains(t, blobs, "workflow")
}

func TestDecodePngTruncatedChunk(t *testing.T) {
	buf := makePng([2]string{"parameters", "a cat"})
	// Declared length runs past the end of the buffer.
	tail := append([]byte{}, buf[:len(buf)-12]...)
	tail = binary.BigEndian.AppendUint32(tail, 1<<20)
	tail = append(tail, []byte("tEXt")...)
	tail = append(tail, 'x')
	blobs := DecodeContainer(tail, "test.png")
	require.NotNil(t, blobs)
	assert.Equal(t, "a cat", blobs["parameters"])
}

func TestDecodeContainerUnsupported(t *testing.T) {
	assert.Nil(t, DecodeContainer(nil, "empty"))
	assert.Nil(t, DecodeContainer([]byte("GIF89a..."), "a.gif"))
	assert.Nil(t, DecodeContainer([]byte{0x89, 'P'}, "short.png"))
	// JPEG signature but no EXIF
	assert.Nil(t, DecodeContainer([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0}, "bare.jpg"))
}

func TestDecodeContainerRandomNoise(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		buf := make([]byte, rng.Intn(4096))
		rng.Read(buf)
		assert.NotPanics(t, func() {
			DecodeContainer(buf, "noise")
		})
	}
}

func TestDecodeUserComment(t *testing.T) {
	assert.Equal(t, "hello", decodeUserComment(append([]byte("ASCII\x00\x00\x00"), []byte("hello")...)))
	assert.Equal(t, "hi", decodeUserComment(append(make([]byte, 8), []byte("hi")...)))
	assert.Equal(t, "plain", decodeUserComment([]byte("plain")))
	unicodePayload := append([]byte("UNICODE\x00"), 0xFF, 0xFE, 'o', 0, 'k', 0)
	assert.Equal(t, "ok", decodeUserComment(unicodePayload))
}

func TestDecodeUTF16LE(t *testing.T) {
	assert.Equal(t, "ab", decodeUTF16LE([]byte{'a', 0, 'b', 0}))
	assert.Equal(t, "", decodeUTF16LE(nil))
	assert.Equal(t, "a", decodeUTF16LE([]byte{'a', 0, 'x'})) // odd trailing byte dropped
}
