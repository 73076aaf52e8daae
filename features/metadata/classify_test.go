package metadata

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTotality(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		buf := make([]byte, rng.Intn(2048))
		rng.Read(buf)
		assert.NotPanics(t, func() {
			Parse(buf, "fuzz")
		})
	}
	assert.Nil(t, Parse(nil, "empty"))
	assert.Nil(t, Parse([]byte{}, "empty"))
}

func TestParseNoRecognizedChunks(t *testing.T) {
	buf := makePng([2]string{"comment", "hello"}, [2]string{"software", "gimp"})
	assert.Nil(t, Parse(buf, "plain.png"))
}

func TestClassifyWorkflowTakesPrecedence(t *testing.T) {
	buf := makePng(
		[2]string{"invokeai_metadata", `{"positive_prompt":"x"}`},
		[2]string{"workflow", `{"1":{"class_type":"KSampler","inputs":{"steps":12}}}`},
		[2]string{"parameters", "y\nSteps: 5"},
	)
	m := Parse(buf, "both.png")
	require.NotNil(t, m)
	assert.Equal(t, FormatComfyUI, m.Format)
	// The auxiliary parameters blob stays reachable on the ComfyUI record.
	assert.NotEmpty(t, m.Parameters)
}

func TestClassifyInvokeAI(t *testing.T) {
	buf := makePng([2]string{"invokeai_metadata", `{"positive_prompt":"a bird","steps":25}`})
	m := Parse(buf, "invoke.png")
	require.NotNil(t, m)
	assert.Equal(t, FormatInvokeAI, m.Format)
	assert.Equal(t, "a bird", m.ExtractPrompt())
	assert.Equal(t, 25, m.ExtractSteps())
}

func TestClassifyMalformedInvokeAIFallsThrough(t *testing.T) {
	buf := makePng(
		[2]string{"invokeai_metadata", `{not valid json`},
		[2]string{"parameters", sampleParameters},
	)
	m := Parse(buf, "broken.png")
	require.NotNil(t, m)
	assert.Equal(t, FormatA1111, m.Format)
	assert.Equal(t, "a cat", m.ExtractPrompt())
}

func TestClassifyMalformedInvokeAIAlone(t *testing.T) {
	buf := makePng([2]string{"invokeai_metadata", `{not valid json`})
	assert.Nil(t, Parse(buf, "broken.png"))
}

func TestClassifyPromptOnly(t *testing.T) {
	buf := makePng([2]string{"prompt", `{"1":{"class_type":"CLIPTextEncode","inputs":{"text":"a fox"}}}`})
	m := Parse(buf, "prompt.png")
	require.NotNil(t, m)
	assert.Equal(t, FormatComfyUI, m.Format)
	assert.Equal(t, "a fox", m.ExtractPrompt())
}

func TestClassifyParameters(t *testing.T) {
	buf := makePng([2]string{"parameters", sampleParameters})
	m := Parse(buf, "a1111.png")
	require.NotNil(t, m)
	assert.Equal(t, FormatA1111, m.Format)
}
