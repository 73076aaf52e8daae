package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleParameters = "a cat\nNegative prompt: blurry\n" +
	"Steps: 20, Sampler: Euler a, CFG scale: 7.5, Seed: 42, Size: 512x768, Model: foo.safetensors"

func TestParseA1111Full(t *testing.T) {
	p := ParseA1111(sampleParameters)
	assert.Equal(t, "a cat", p.Prompt)
	assert.Equal(t, "blurry", p.NegativePrompt)
	assert.Equal(t, 20, p.Steps)
	assert.Equal(t, "Euler a", p.Sampler)
	assert.Equal(t, 7.5, p.CfgScale)
	assert.Equal(t, int64(42), p.Seed)
	assert.True(t, p.HasSeed())
	assert.Equal(t, 512, p.Width)
	assert.Equal(t, 768, p.Height)
	assert.Equal(t, "foo.safetensors", p.Model)
	assert.True(t, p.Matched())
}

func TestParseA1111NoNegativePrompt(t *testing.T) {
	p := ParseA1111("a sunset over mountains\nSteps: 30, CFG scale: 7")
	assert.Equal(t, "a sunset over mountains", p.Prompt)
	assert.Empty(t, p.NegativePrompt)
	assert.Equal(t, 30, p.Steps)
	assert.Equal(t, 7.0, p.CfgScale)
	assert.False(t, p.HasSeed())
}

func TestParseA1111MultilinePromptCutAtParamLine(t *testing.T) {
	p := ParseA1111("first line\nsecond line\nSteps: 10")
	assert.Equal(t, "first line\nsecond line", p.Prompt)
	assert.Equal(t, 10, p.Steps)
}

func TestParseA1111PlainText(t *testing.T) {
	p := ParseA1111("just a prompt with no parameters")
	assert.Equal(t, "just a prompt with no parameters", p.Prompt)
	assert.False(t, p.Matched())
	assert.Zero(t, p.Steps)
	assert.Zero(t, p.Width)
}

func TestParseA1111SeedZero(t *testing.T) {
	p := ParseA1111("x\nSeed: 0")
	assert.Equal(t, int64(0), p.Seed)
	assert.True(t, p.HasSeed())
}

func TestParseA1111ModelVsModelHash(t *testing.T) {
	p := ParseA1111("x\nModel hash: deadbeef, Model: my model v2")
	assert.Equal(t, "my model v2", p.Model)
	assert.Equal(t, "deadbeef", p.ModelHash)
}

func TestParseA1111NegativePromptOnlyLine(t *testing.T) {
	p := ParseA1111("warm colors\nNegative prompt: ugly, worst quality")
	assert.Equal(t, "warm colors", p.Prompt)
	assert.Equal(t, "ugly, worst quality", p.NegativePrompt)
	assert.True(t, p.Matched())
}
