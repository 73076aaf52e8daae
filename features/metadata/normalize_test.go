package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsScenarioA1111(t *testing.T) {
	m := Parse(makePng([2]string{"parameters", sampleParameters}), "cat.png")
	require.NotNil(t, m)

	fields := m.Fields(nil)
	assert.Equal(t, "a cat", fields.Prompt)
	assert.Equal(t, "blurry", fields.NegativePrompt)
	assert.Equal(t, 20, fields.Steps)
	assert.Equal(t, 7.5, fields.CfgScale)
	require.NotNil(t, fields.Seed)
	assert.Equal(t, int64(42), *fields.Seed)
	assert.Equal(t, "512x768", fields.Dimensions())
	assert.Equal(t, []string{"foo.safetensors"}, fields.Models)
	assert.Equal(t, "Euler a", fields.Scheduler)
}

func TestFieldsIdempotent(t *testing.T) {
	buffers := [][]byte{
		makePng([2]string{"parameters", sampleParameters}),
		makePng([2]string{"invokeai_metadata", `{"positive_prompt":"a bird","loras":[{"lora":"foo"}],"board_id":"b1"}`}),
		makePng([2]string{"workflow", `{"1":{"class_type":"KSampler","inputs":{"steps":9,"cfg":3}}}`}),
	}
	for _, buf := range buffers {
		m := Parse(buf, "img.png")
		require.NotNil(t, m)
		first := m.Fields(nil)
		second := m.Fields(nil)
		assert.Equal(t, first, second)
	}
}

func TestFieldsCacheShortCircuit(t *testing.T) {
	m := &ImageMetadata{
		Format:     FormatA1111,
		Parameters: sampleParameters,
		Normalized: &NormalizedMetadata{
			Prompt:    "cached prompt",
			Scheduler: "cached scheduler",
			Steps:     99,
			Seed:      SeedUnset,
		},
	}
	fields := m.Fields(nil)
	// Populated cache fields win over the parameters grammar...
	assert.Equal(t, "cached prompt", fields.Prompt)
	assert.Equal(t, "cached scheduler", fields.Scheduler)
	assert.Equal(t, 99, fields.Steps)
	// ...while unpopulated ones still fall back.
	assert.Equal(t, "blurry", fields.NegativePrompt)
	assert.Equal(t, 7.5, fields.CfgScale)
}

func TestFieldsDefaults(t *testing.T) {
	m := &ImageMetadata{Format: FormatUnknown, Raw: map[string]any{}}
	fields := m.Fields(nil)
	assert.Empty(t, fields.Prompt)
	assert.Equal(t, DefaultScheduler, fields.Scheduler)
	assert.Equal(t, DefaultBoard, fields.Board)
	assert.NotNil(t, fields.Models)
	assert.Empty(t, fields.Models)
	assert.NotNil(t, fields.Loras)
	assert.Nil(t, fields.Seed)
	assert.Zero(t, fields.CfgScale)
	assert.Empty(t, fields.Dimensions())
}

func TestFieldsGenericFallback(t *testing.T) {
	m := &ImageMetadata{Format: FormatUnknown, Raw: map[string]any{
		"prompt":       "generic prompt",
		"sampler_name": "euler_a",
		"ckpt_name":    "generic.ckpt",
		"steps":        float64(12),
		"cfg":          4.5,
		"seed":         float64(0),
	}}
	fields := m.Fields(nil)
	assert.Equal(t, "generic prompt", fields.Prompt)
	assert.Equal(t, "euler_a", fields.Scheduler)
	assert.Equal(t, []string{"generic.ckpt"}, fields.Models)
	assert.Equal(t, 12, fields.Steps)
	assert.Equal(t, 4.5, fields.CfgScale)
	require.NotNil(t, fields.Seed)
	assert.Equal(t, int64(0), *fields.Seed)
}

func TestFieldsGenericWorkflowCheckpointScan(t *testing.T) {
	m := &ImageMetadata{Format: FormatUnknown, Raw: map[string]any{
		"workflow": map[string]any{
			"nodes": []any{
				map[string]any{
					"class_type": "CheckpointLoaderSimple",
					"inputs":     map[string]any{"ckpt_name": "nested.safetensors"},
				},
			},
		},
	}}
	assert.Equal(t, []string{"nested.safetensors"}, m.ExtractModels())
}

func TestModelsNeverDuplicated(t *testing.T) {
	m := &ImageMetadata{Format: FormatUnknown, Raw: map[string]any{
		"model":      "same.safetensors",
		"model_name": "same.safetensors",
		"ckpt_name":  "same.safetensors",
	}}
	assert.Equal(t, []string{"same.safetensors"}, m.ExtractModels())
}

func TestObjectSentinelRejected(t *testing.T) {
	m := &ImageMetadata{Format: FormatUnknown, Raw: map[string]any{
		"model":     "[object Object]",
		"ckpt_name": "real.safetensors",
	}}
	assert.Equal(t, []string{"real.safetensors"}, m.ExtractModels())
}

func TestNilMetadataFieldsAreTotal(t *testing.T) {
	var m *ImageMetadata
	assert.Empty(t, m.ExtractPrompt())
	assert.Equal(t, DefaultScheduler, m.ExtractScheduler())
	assert.Equal(t, DefaultBoard, m.ResolveBoard(nil))
	assert.Equal(t, SeedUnset, m.ExtractSeed())
	assert.Nil(t, m.ExtractModels())
}
