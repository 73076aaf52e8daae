package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComfyExecutionGraph(t *testing.T) {
	graph := `{
		"3": {"class_type": "CLIPTextEncode", "inputs": {"text": "a dog"}},
		"4": {"class_type": "KSampler", "inputs": {"steps": 30, "cfg": 6, "seed": 7, "sampler_name": "dpmpp_2m"}}
	}`
	m := Parse(makePng([2]string{"workflow", graph}), "comfy.png")
	require.NotNil(t, m)
	require.Equal(t, FormatComfyUI, m.Format)

	fields := m.Fields(nil)
	assert.Equal(t, "a dog", fields.Prompt)
	assert.Equal(t, 30, fields.Steps)
	assert.Equal(t, 6.0, fields.CfgScale)
	require.NotNil(t, fields.Seed)
	assert.Equal(t, int64(7), *fields.Seed)
	assert.Equal(t, "dpmpp_2m", fields.Scheduler)
	assert.Equal(t, DefaultBoard, fields.Board)
}

func TestComfyPromptGraphPreferredOverWorkflow(t *testing.T) {
	workflow := `{"nodes": [{"type": "CLIPTextEncode", "widgets_values": ["ui default"]}]}`
	prompt := `{"1": {"class_type": "CLIPTextEncode", "inputs": {"text": "resolved runtime"}}}`
	m := parseComfyUI(workflow, prompt, "")
	assert.Equal(t, "resolved runtime", m.ExtractPrompt())
}

func TestComfyNegativePromptDenylist(t *testing.T) {
	graph := `{
		"1": {"class_type": "CLIPTextEncode", "inputs": {"text": "a castle at dawn"}},
		"2": {"class_type": "CLIPTextEncode", "inputs": {"text": "blurry, ugly, worst quality"}}
	}`
	m := parseComfyUI("", graph, "")
	assert.Equal(t, "a castle at dawn", m.ExtractPrompt())
	assert.Equal(t, "blurry, ugly, worst quality", m.ExtractNegativePrompt())
}

func TestComfyFirstPolarityWins(t *testing.T) {
	graph := `{
		"1": {"class_type": "CLIPTextEncode", "inputs": {"text": "first positive"}},
		"2": {"class_type": "CLIPTextEncode", "inputs": {"text": "second positive"}}
	}`
	m := parseComfyUI("", graph, "")
	assert.Equal(t, "first positive", m.ExtractPrompt())
}

func TestComfyModelsAndLoras(t *testing.T) {
	graph := `{
		"1": {"class_type": "CheckpointLoaderSimple", "inputs": {"ckpt_name": "sd_xl_base.safetensors"}},
		"2": {"class_type": "LoraLoader", "inputs": {"lora_name": "detail_tweaker.safetensors"}},
		"3": {"class_type": "LoraLoader", "inputs": {"lora_name": "detail_tweaker.safetensors"}}
	}`
	m := parseComfyUI("", graph, "")
	fields := m.Fields(nil)
	assert.Equal(t, []string{"sd_xl_base.safetensors"}, fields.Models)
	// Duplicates collapse.
	assert.Equal(t, []string{"detail_tweaker.safetensors"}, fields.Loras)
}

func TestComfySeedNodeRefSkipped(t *testing.T) {
	graph := `{
		"1": {"class_type": "KSampler", "inputs": {"seed": ["2", 0], "steps": 15}},
		"2": {"class_type": "Seed Generator", "inputs": {"seed": 99}}
	}`
	m := parseComfyUI("", graph, "")
	assert.Equal(t, 15, m.ExtractSteps())
	// The [nodeId, slot] reference is skipped without resolution; the
	// dedicated seed node supplies the value instead.
	assert.Equal(t, int64(99), m.ExtractSeed())
}

func TestComfyStringNumericInputs(t *testing.T) {
	graph := `{"1": {"class_type": "KSampler", "inputs": {"steps": "28", "cfg": "7.5"}}}`
	m := parseComfyUI("", graph, "")
	assert.Equal(t, 28, m.ExtractSteps())
	assert.Equal(t, 7.5, m.ExtractCfgScale())
}

func TestComfySizeNodes(t *testing.T) {
	graph := `{
		"1": {"class_type": "EmptyLatentImage", "inputs": {"width": 1024, "height": 768}},
		"2": {"class_type": "EmptyLatentImage", "inputs": {"width": 512, "height": 512}}
	}`
	m := parseComfyUI("", graph, "")
	fields := m.Fields(nil)
	assert.Equal(t, 1024, fields.Width)
	assert.Equal(t, 768, fields.Height)
	assert.Equal(t, "1024x768", fields.Dimensions())
}

func TestComfyFallbackPassBounds(t *testing.T) {
	// No sampler-role node: values only reachable via the broad fallback
	// pass, which bounds-checks them.
	graph := `{
		"1": {"class_type": "CustomNode", "inputs": {"n_steps": 250, "guidance_strength": 80}},
		"2": {"class_type": "OtherNode", "inputs": {"n_steps": 24, "guidance_strength": 5.5, "noise_seed": 123}}
	}`
	m := parseComfyUI("", graph, "")
	assert.Equal(t, 24, m.ExtractSteps())
	assert.Equal(t, 5.5, m.ExtractCfgScale())
	assert.Equal(t, int64(123), m.ExtractSeed())
}

func TestComfySamplerPassUnbounded(t *testing.T) {
	// The targeted sampler-node pass accepts values without bound checks.
	graph := `{"1": {"class_type": "KSampler", "inputs": {"steps": 500, "cfg": 90}}}`
	m := parseComfyUI("", graph, "")
	assert.Equal(t, 500, m.ExtractSteps())
	assert.Equal(t, 90.0, m.ExtractCfgScale())
}

func TestComfyUIWorkflowWidgets(t *testing.T) {
	workflow := `{"nodes": [
		{"type": "CheckpointLoaderSimple", "widgets_values": ["dreamshaper_8.safetensors"]},
		{"type": "CLIPTextEncode", "widgets_values": ["an island in the sky"]},
		{"type": "KSampler", "widgets_values": [42, "randomize", 20, 8.0, "euler", "normal", 1.0]},
		{"type": "EmptyLatentImage", "widgets_values": [640, 480, 1]}
	]}`
	m := parseComfyUI(workflow, "", "")
	fields := m.Fields(nil)
	assert.Equal(t, []string{"dreamshaper_8.safetensors"}, fields.Models)
	assert.Equal(t, "an island in the sky", fields.Prompt)
	require.NotNil(t, fields.Seed)
	assert.Equal(t, int64(42), *fields.Seed)
	assert.Equal(t, 20, fields.Steps)
	assert.Equal(t, 8.0, fields.CfgScale)
	assert.Equal(t, "euler", fields.Scheduler)
	assert.Equal(t, 640, fields.Width)
	assert.Equal(t, 480, fields.Height)
}

func TestComfyUndecodableGraphKeptAsString(t *testing.T) {
	m := parseComfyUI("{broken json", "", "")
	require.NotNil(t, m)
	assert.Equal(t, "{broken json", m.Workflow)
	fields := m.Fields(nil)
	assert.Empty(t, fields.Prompt)
	assert.Equal(t, DefaultScheduler, fields.Scheduler)
}

func TestComfyEmbeddedParametersFallback(t *testing.T) {
	// A ComfyUI record whose graph yields nothing falls back to the
	// auxiliary Automatic1111 parameters string.
	m := parseComfyUI(`{"nodes": []}`, "", "a boat\nSteps: 18, Sampler: DDIM")
	assert.Equal(t, "a boat", m.ExtractPrompt())
	assert.Equal(t, 18, m.ExtractSteps())
	assert.Equal(t, "DDIM", m.ExtractScheduler())
}
