package metadata

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"

	dexif "github.com/dsoprea/go-exif/v3"
	exifundefined "github.com/dsoprea/go-exif/v3/undefined"
	rexif "github.com/rwcarlsen/goexif/exif"
	log "github.com/sirupsen/logrus"
)

var pngSignature = []byte{137, 80, 78, 71, 13, 10, 26, 10}

var jpegSignature = []byte{0xFF, 0xD8}

// PNG tEXt chunk keywords carrying generator metadata. Everything else is skipped.
var recognizedKeywords = []string{"invokeai_metadata", "parameters", "workflow", "prompt"}

// JPEG EXIF text fields probed for generator metadata, in priority order.
// The first populated field wins.
var jpegExifFields = []string{"UserComment", "ImageDescription", "Description", "XPComment", "XPTitle"}

// DecodeContainer scans a raw image byte buffer and returns the named raw text
// blobs relevant to generator metadata: PNG tEXt chunks with a recognized
// keyword, or the first populated EXIF text field for JPEG. filename is used
// for diagnostics only. Returns nil when the buffer is not a recognized
// container or carries no relevant metadata; it never fails.
func DecodeContainer(buf []byte, filename string) RawBlobSet {
	switch {
	case bytes.HasPrefix(buf, pngSignature):
		return decodePngText(buf)
	case bytes.HasPrefix(buf, jpegSignature):
		return decodeJpegText(buf, filename)
	}
	return nil
}

// decodePngText iterates PNG chunks from offset 8 and collects recognized
// tEXt keyword/text pairs. Chunk lengths come from an untrusted header, so
// every read is bounds-checked against the remaining buffer; a chunk running
// past the end truncates the scan instead of failing it.
func decodePngText(buf []byte) RawBlobSet {
	blobs := RawBlobSet{}
	pos := len(pngSignature)
	for pos+8 <= len(buf) {
		length := int(binary.BigEndian.Uint32(buf[pos : pos+4]))
		chunkType := string(buf[pos+4 : pos+8])
		if chunkType == "IEND" {
			break
		}
		dataStart := pos + 8
		dataEnd := dataStart + length
		if length < 0 || dataEnd > len(buf) {
			break
		}
		if chunkType == "tEXt" {
			// keyword NUL text; the CRC after the data is not verified
			if keyword, text, found := bytes.Cut(buf[dataStart:dataEnd], []byte{0}); found {
				key := string(keyword)
				if len(text) > 0 && isRecognizedKeyword(key) {
					blobs[key] = string(text)
				}
			}
		}
		pos = dataEnd + 4
	}
	if len(blobs) == 0 {
		return nil
	}
	return blobs
}

func isRecognizedKeyword(key string) bool {
	for _, k := range recognizedKeywords {
		if k == key {
			return true
		}
	}
	return false
}

// decodeJpegText reads structured EXIF data and returns the first populated
// field of jpegExifFields as a single "parameters"-agnostic blob keyed by the
// EXIF field name. Corrupt EXIF yields nil rather than an error.
func decodeJpegText(buf []byte, filename string) RawBlobSet {
	text, field := extractExifText(buf)
	if text == "" {
		text, field = extractExifTextFallback(buf, filename)
	}
	if text == "" {
		return nil
	}
	return RawBlobSet{field: text}
}

// extractExifText is the primary EXIF path (dsoprea/go-exif flat scan).
func extractExifText(buf []byte) (text string, field string) {
	defer func() {
		// go-exif parses untrusted offsets and is known to panic on crafted input
		if r := recover(); r != nil {
			text, field = "", ""
		}
	}()
	rawExif, err := dexif.SearchAndExtractExif(buf)
	if err != nil {
		return "", ""
	}
	entries, _, err := dexif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return "", ""
	}
	values := map[string]string{}
	for _, entry := range entries {
		if s := exifTagText(entry); s != "" {
			if _, ok := values[entry.TagName]; !ok {
				values[entry.TagName] = s
			}
		}
	}
	for _, name := range jpegExifFields {
		if s, ok := values[name]; ok {
			return s, name
		}
	}
	return "", ""
}

// exifTagText decodes a single EXIF tag value to text, tolerating the various
// physical encodings the relevant tags use (ASCII strings, undefined-type
// user comments with an 8-byte charset prefix, UTF-16LE XP* byte arrays).
func exifTagText(entry dexif.ExifTag) string {
	switch v := entry.Value.(type) {
	case string:
		return trimTextValue(v)
	case exifundefined.Tag9286UserComment:
		return trimTextValue(decodeUserComment(v.EncodingBytes))
	case []byte:
		if len(entry.TagName) > 2 && entry.TagName[:2] == "XP" {
			return trimTextValue(decodeUTF16LE(v))
		}
		return trimTextValue(string(v))
	}
	return ""
}

// extractExifTextFallback decodes with rwcarlsen/goexif when the primary
// scanner rejects the EXIF block.
func extractExifTextFallback(buf []byte, filename string) (text string, field string) {
	x, err := rexif.Decode(bytes.NewReader(buf))
	if err != nil {
		log.Debugf("%s: no decodable EXIF: %v", filename, err)
		return "", ""
	}
	for _, name := range jpegExifFields {
		tag, err := x.Get(rexif.FieldName(name))
		if err != nil || tag == nil {
			continue
		}
		var s string
		if sv, err := tag.StringVal(); err == nil {
			s = sv
		} else if len(name) > 2 && name[:2] == "XP" {
			s = decodeUTF16LE(tag.Val)
		} else {
			s = decodeUserComment(tag.Val)
		}
		if s = trimTextValue(s); s != "" {
			return s, name
		}
	}
	return "", ""
}

// decodeUserComment strips the standard 8-byte character code prefix
// ("ASCII\0\0\0", "UNICODE\0", ...) when present and decodes accordingly.
func decodeUserComment(raw []byte) string {
	if len(raw) >= 8 {
		prefix := raw[:8]
		switch {
		case bytes.HasPrefix(prefix, []byte("ASCII")):
			return string(raw[8:])
		case bytes.HasPrefix(prefix, []byte("UNICODE")):
			return decodeUTF16BOM(raw[8:])
		case bytes.Equal(prefix, make([]byte, 8)): // undefined charset
			return string(raw[8:])
		}
	}
	return string(raw)
}

func decodeUTF16BOM(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFF && raw[1] == 0xFE {
		return decodeUTF16LE(raw[2:])
	}
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		return decodeUTF16BE(raw[2:])
	}
	// XP-style tags are UTF-16LE without BOM
	return decodeUTF16LE(raw)
}

func decodeUTF16LE(raw []byte) string {
	u16 := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		u16 = append(u16, uint16(raw[i])|uint16(raw[i+1])<<8)
	}
	return string(utf16.Decode(u16))
}

func decodeUTF16BE(raw []byte) string {
	u16 := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		u16 = append(u16, uint16(raw[i])<<8|uint16(raw[i+1]))
	}
	return string(utf16.Decode(u16))
}

// trimTextValue trims spaces and NUL padding that EXIF writers commonly append.
func trimTextValue(s string) string {
	return string(bytes.Trim([]byte(s), " \t\r\n\x00"))
}
