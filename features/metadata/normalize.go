package metadata

import (
	"strings"
)

// Field normalizer: one pure function per output field. Every function
// follows the same resolution order:
//
//  1. normalized cache field populated -> returned verbatim;
//  2. a raw "parameters" string (even on a ComfyUI record) -> Automatic1111
//     grammar result when non-empty;
//  3. format-specific extractor;
//  4. generic candidate-field-name scan over the raw object;
//  5. type-appropriate default.
//
// Calling an extractor never mutates the record; results are idempotent.

// Generic candidate field names per semantic field, in probe order.
var (
	genericPromptKeys    = []string{"prompt", "positive_prompt", "text"}
	genericNegativeKeys  = []string{"negative_prompt", "negativePrompt", "negative"}
	genericModelKeys     = []string{"model", "model_name", "ckpt_name", "checkpoint", "model_hash"}
	genericLoraKeys      = []string{"loras", "lora"}
	genericSchedulerKeys = []string{"scheduler", "sampler", "sampler_name", "sampling_method"}
	genericStepsKeys     = []string{"steps", "num_steps", "n_steps"}
	genericCfgKeys       = []string{"cfg_scale", "cfg", "guidance_scale", "guidance"}
	genericSeedKeys      = []string{"seed", "noise_seed"}
)

// Fields runs every field extractor and assembles the uniform output record,
// with type-appropriate defaults filled in. boards may be nil, in which case
// unresolved board ids degrade to the default board label.
func (m *ImageMetadata) Fields(boards *BoardResolver) GenerationFields {
	f := GenerationFields{
		Prompt:         m.ExtractPrompt(),
		NegativePrompt: m.ExtractNegativePrompt(),
		Models:         m.ExtractModels(),
		Loras:          m.ExtractLoras(),
		Scheduler:      m.ExtractScheduler(),
		Board:          m.ResolveBoard(boards),
		CfgScale:       m.ExtractCfgScale(),
		Steps:          m.ExtractSteps(),
		Width:          m.ExtractWidth(),
		Height:         m.ExtractHeight(),
	}
	if seed := m.ExtractSeed(); seed != SeedUnset {
		f.Seed = &seed
	}
	if f.Models == nil {
		f.Models = []string{}
	}
	if f.Loras == nil {
		f.Loras = []string{}
	}
	return f
}

func (m *ImageMetadata) a1111() *A1111Params {
	if m.Parameters == "" {
		return nil
	}
	return ParseA1111(m.Parameters)
}

func (m *ImageMetadata) ExtractPrompt() string {
	if m == nil {
		return ""
	}
	if m.Normalized != nil && m.Normalized.Prompt != "" {
		return m.Normalized.Prompt
	}
	if p := m.a1111(); p != nil && p.Prompt != "" {
		return p.Prompt
	}
	if m.Format == FormatInvokeAI || m.Format == FormatUnknown {
		if s := invokePromptText(m.Raw["positive_prompt"]); s != "" {
			return s
		}
		if s := invokePromptText(m.Raw["prompt"]); s != "" {
			return s
		}
	}
	return mapString(m.Raw, genericPromptKeys...)
}

func (m *ImageMetadata) ExtractNegativePrompt() string {
	if m == nil {
		return ""
	}
	if m.Normalized != nil && m.Normalized.NegativePrompt != "" {
		return m.Normalized.NegativePrompt
	}
	if p := m.a1111(); p != nil && p.NegativePrompt != "" {
		return p.NegativePrompt
	}
	if m.Format == FormatInvokeAI || m.Format == FormatUnknown {
		if s := invokePromptText(m.Raw["negative_prompt"]); s != "" {
			return s
		}
	}
	return mapString(m.Raw, genericNegativeKeys...)
}

func (m *ImageMetadata) ExtractModels() []string {
	if m == nil {
		return nil
	}
	if m.Normalized != nil && len(m.Normalized.Models) > 0 {
		return m.Normalized.Models
	}
	if p := m.a1111(); p != nil && p.Model != "" {
		return []string{p.Model}
	}
	var models []string
	if m.Format == FormatInvokeAI {
		models = invokeAIModels(m.Raw)
	}
	if len(models) == 0 && m.Raw != nil {
		for _, key := range genericModelKeys {
			models = appendName(models, readableModelName(m.Raw[key]))
		}
		models = appendWorkflowCheckpoints(models, m.Raw["workflow"])
	}
	return models
}

// appendWorkflowCheckpoints scans a ComfyUI-shaped nested workflow object
// (workflow.nodes[].class_type == "CheckpointLoaderSimple") inside a raw
// record of another format.
func appendWorkflowCheckpoints(models []string, workflow any) []string {
	graph := asMap(workflow)
	if graph == nil {
		return models
	}
	for _, node := range asSlice(graph["nodes"]) {
		nm := asMap(node)
		if nm == nil {
			continue
		}
		if mapString(nm, "class_type", "type") != "CheckpointLoaderSimple" {
			continue
		}
		if inputs := asMap(nm["inputs"]); inputs != nil {
			models = appendName(models, mapString(inputs, "ckpt_name", "checkpoint", "model_name"))
		}
		if widgets := asSlice(nm["widgets_values"]); len(widgets) > 0 {
			models = appendName(models, asString(widgets[0]))
		}
	}
	return models
}

func (m *ImageMetadata) ExtractLoras() []string {
	if m == nil {
		return nil
	}
	if m.Normalized != nil && len(m.Normalized.Loras) > 0 {
		return m.Normalized.Loras
	}
	var loras []string
	if p := m.a1111(); p != nil {
		for _, match := range loraTagRe.FindAllStringSubmatch(p.Prompt, -1) {
			loras = appendName(loras, strings.TrimSpace(match[1]))
		}
		if len(loras) > 0 {
			return loras
		}
	}
	if m.Format == FormatInvokeAI || m.Format == FormatUnknown {
		loras = invokeAILoras(m.Raw, "")
	}
	if len(loras) == 0 && m.Raw != nil {
		for _, key := range genericLoraKeys {
			for _, entry := range asSlice(m.Raw[key]) {
				loras = appendName(loras, readableModelName(entry))
			}
			loras = appendName(loras, asString(m.Raw[key]))
		}
	}
	return loras
}

func (m *ImageMetadata) ExtractScheduler() string {
	if m == nil {
		return DefaultScheduler
	}
	if m.Normalized != nil && m.Normalized.Scheduler != "" {
		return m.Normalized.Scheduler
	}
	if p := m.a1111(); p != nil && p.Sampler != "" {
		return p.Sampler
	}
	if s := mapString(m.Raw, genericSchedulerKeys...); s != "" {
		return s
	}
	return DefaultScheduler
}

// BoardRef extracts the unresolved board reference of the record, without
// assigning any label. Boards are an InvokeAI-only concept; other formats
// always yield the zero reference.
func (m *ImageMetadata) BoardRef() BoardRef {
	if m == nil || m.Format != FormatInvokeAI {
		return BoardRef{}
	}
	if m.Normalized != nil && m.Normalized.Board != "" {
		return BoardRef{Name: m.Normalized.Board}
	}
	return invokeAIBoardRef(m.Raw)
}

// ResolveBoard returns the final board label, passing opaque ids through the
// resolver. A nil resolver (or a zero reference) yields the default label.
func (m *ImageMetadata) ResolveBoard(boards *BoardResolver) string {
	ref := m.BoardRef()
	switch {
	case ref.Name != "":
		return ref.Name
	case ref.ID != "" && boards != nil:
		return boards.Resolve(ref.ID)
	}
	return DefaultBoard
}

func (m *ImageMetadata) ExtractCfgScale() float64 {
	if m == nil {
		return 0
	}
	if m.Normalized != nil && m.Normalized.CfgScale != 0 {
		return m.Normalized.CfgScale
	}
	if p := m.a1111(); p != nil && p.CfgScale != 0 {
		return p.CfgScale
	}
	if v, ok := mapFloat(m.Raw, genericCfgKeys...); ok && v > 0 && v < 50 {
		return v
	}
	return 0
}

func (m *ImageMetadata) ExtractSteps() int {
	if m == nil {
		return 0
	}
	if m.Normalized != nil && m.Normalized.Steps != 0 {
		return m.Normalized.Steps
	}
	if p := m.a1111(); p != nil && p.Steps != 0 {
		return p.Steps
	}
	if v, ok := mapFloat(m.Raw, genericStepsKeys...); ok && v > 0 && v < 200 {
		return int(v)
	}
	return 0
}

func (m *ImageMetadata) ExtractSeed() int64 {
	if m == nil {
		return SeedUnset
	}
	if m.Normalized != nil && m.Normalized.Seed != SeedUnset {
		return m.Normalized.Seed
	}
	if p := m.a1111(); p != nil && p.HasSeed() {
		return p.Seed
	}
	for _, key := range genericSeedKeys {
		if v, ok := m.Raw[key]; ok && !isNodeRef(v) {
			if f, ok := asFloat(v); ok && f >= 0 {
				return int64(f)
			}
		}
	}
	return SeedUnset
}

func (m *ImageMetadata) ExtractWidth() int {
	return m.extractDimension("width", func(n *NormalizedMetadata) int { return n.Width },
		func(p *A1111Params) int { return p.Width })
}

func (m *ImageMetadata) ExtractHeight() int {
	return m.extractDimension("height", func(n *NormalizedMetadata) int { return n.Height },
		func(p *A1111Params) int { return p.Height })
}

func (m *ImageMetadata) extractDimension(key string, fromNorm func(*NormalizedMetadata) int,
	fromParams func(*A1111Params) int) int {
	if m == nil {
		return 0
	}
	if m.Normalized != nil {
		if v := fromNorm(m.Normalized); v > 0 {
			return v
		}
	}
	if p := m.a1111(); p != nil {
		if v := fromParams(p); v > 0 {
			return v
		}
	}
	if v, ok := mapFloat(m.Raw, key); ok && v > 0 {
		return int(v)
	}
	return 0
}
