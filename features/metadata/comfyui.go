package metadata

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// parseComfyUI wraps the workflow (UI graph) and/or prompt (execution graph)
// blobs and eagerly computes the normalized cache by walking the node graph.
// Either blob may be a JSON-encoded string or already-structured JSON; each is
// speculatively decoded, keeping the raw string on failure.
func parseComfyUI(workflowBlob, promptBlob, parameters string) *ImageMetadata {
	m := &ImageMetadata{Format: FormatComfyUI, Parameters: parameters}
	if workflowBlob != "" {
		m.Workflow = decodeGraphBlob(workflowBlob)
	}
	if promptBlob != "" {
		m.Prompt = decodeGraphBlob(promptBlob)
	}
	// The execution graph holds resolved runtime values; the UI graph only
	// holds authoring-time defaults. Prefer the former.
	nodes := collectGraphNodes(m.Prompt)
	if len(nodes) == 0 {
		nodes = collectGraphNodes(m.Workflow)
	}
	m.Normalized = normalizeComfyGraph(nodes)
	return m
}

func decodeGraphBlob(blob string) any {
	if decoded, err := decodeJSONValue(blob); err == nil {
		return decoded
	}
	return blob
}

func decodeJSONValue(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// graphNode is the uniform node view over both graph encodings:
// execution graph entries ({class_type, inputs}) and UI graph entries
// ({type, inputs, widgets_values}).
type graphNode struct {
	class   string
	inputs  map[string]any
	widgets []any
}

// collectGraphNodes flattens a decoded graph into nodes. Execution graphs are
// walked in numeric node-id order so that repeated runs yield identical
// results; UI graphs keep their array order.
func collectGraphNodes(graph any) []graphNode {
	root := asMap(graph)
	if root == nil {
		return nil
	}
	if nodeList := asSlice(root["nodes"]); nodeList != nil {
		// UI graph
		var nodes []graphNode
		for _, entry := range nodeList {
			nm := asMap(entry)
			if nm == nil {
				continue
			}
			node := graphNode{
				class:   mapString(nm, "type", "class_type"),
				inputs:  asMap(nm["inputs"]),
				widgets: asSlice(nm["widgets_values"]),
			}
			if node.class != "" {
				nodes = append(nodes, node)
			}
		}
		return nodes
	}
	// Execution graph: node id -> {class_type, inputs}
	ids := make([]string, 0, len(root))
	for id := range root {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})
	var nodes []graphNode
	for _, id := range ids {
		nm := asMap(root[id])
		if nm == nil {
			continue
		}
		node := graphNode{
			class:  mapString(nm, "class_type", "type"),
			inputs: asMap(nm["inputs"]),
		}
		if node.class != "" {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// Node role classification is a data-driven table of keyword -> role mappings
// (case-insensitive substring match on the node class), extensible without
// touching the walk logic.
type nodeRole int

const (
	roleCheckpoint nodeRole = iota
	roleLora
	roleTextEncode
	roleSampler
	roleSize
	roleSeed
)

var roleKeywords = map[nodeRole][]string{
	roleCheckpoint: {"checkpoint", "ckpt", "unetloader"},
	roleLora:       {"lora", "lyco"},
	roleSampler:    {"ksampler", "sampler", "sample"},
	roleSize:       {"latent", "image", "size", "dimension"},
	roleSeed:       {"seed"},
}

// Sampler node classes without a "sampler" substring.
var knownSamplerClasses = []string{
	"tsc_ksampler", "sdturboscheduler", "basicscheduler", "samplingconfig",
}

// Text-encode widget values that are graph control strings, never prompts.
var uiControlValues = []string{"fixed", "increment", "decrement", "randomize"}

// Denylist heuristic classifying encode-node text as a negative prompt.
// Inherently lossy: a positive prompt containing one of these words is
// misclassified. Kept as-is.
var negativeKeywords = []string{"blur", "deform", "ugly", "worst", "low quality", "bad", "negative"}

func (n *graphNode) hasRole(role nodeRole) bool {
	lc := strings.ToLower(n.class)
	if role == roleTextEncode {
		return strings.Contains(lc, "clip") && strings.Contains(lc, "text") && strings.Contains(lc, "encode")
	}
	for _, keyword := range roleKeywords[role] {
		if strings.Contains(lc, keyword) {
			return true
		}
	}
	if role == roleSampler {
		for _, known := range knownSamplerClasses {
			if lc == known {
				return true
			}
		}
	}
	return false
}

// inputString returns the first non-empty string input of keys,
// falling back to UI widget values when the node has no named inputs.
func (n *graphNode) inputString(keys ...string) string {
	for _, key := range keys {
		if s := asString(n.inputs[key]); s != "" {
			return s
		}
	}
	return ""
}

// inputNumber returns the first numeric input of keys. String-typed numerics
// are parsed; node-reference arrays are recognized and skipped.
func (n *graphNode) inputNumber(keys ...string) (float64, bool) {
	for _, key := range keys {
		v, ok := n.inputs[key]
		if !ok || isNodeRef(v) {
			continue
		}
		if f, ok := asFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

// widgetStrings returns the node's UI widget string values, skipping graph
// control values like "randomize".
func (n *graphNode) widgetStrings() []string {
	var out []string
	for _, w := range n.widgets {
		s := asString(w)
		if s == "" {
			continue
		}
		control := false
		for _, c := range uiControlValues {
			if strings.EqualFold(s, c) {
				control = true
				break
			}
		}
		if !control {
			out = append(out, s)
		}
	}
	return out
}

func (n *graphNode) widgetNumbers() []float64 {
	var out []float64
	for _, w := range n.widgets {
		switch w.(type) {
		case float64, int, int64:
			f, _ := asFloat(w)
			out = append(out, f)
		}
	}
	return out
}

func isNegativePromptText(text string) bool {
	lc := strings.ToLower(text)
	for _, keyword := range negativeKeywords {
		if strings.Contains(lc, keyword) {
			return true
		}
	}
	return false
}

// normalizeComfyGraph walks the chosen graph once per role. Every field is
// first-match-wins: once set by a targeted pass it is never overwritten, and
// the broad fallback passes only run for fields still unset.
func normalizeComfyGraph(nodes []graphNode) *NormalizedMetadata {
	norm := &NormalizedMetadata{Seed: SeedUnset}

	for i := range nodes {
		n := &nodes[i]
		if n.hasRole(roleCheckpoint) {
			name := n.inputString("ckpt_name", "checkpoint", "model_name")
			if name == "" {
				if ws := n.widgetStrings(); len(ws) > 0 {
					name = ws[0]
				}
			}
			norm.Models = appendName(norm.Models, name)
		}
		if n.hasRole(roleLora) {
			name := n.inputString("lora_name", "lora", "name")
			if name == "" {
				if ws := n.widgetStrings(); len(ws) > 0 {
					name = ws[0]
				}
			}
			norm.Loras = appendName(norm.Loras, name)
		}
	}
	if len(norm.Models) > 0 {
		norm.Model = norm.Models[0]
	}

	// Text-encode nodes: first match of each polarity wins.
	for i := range nodes {
		n := &nodes[i]
		if !n.hasRole(roleTextEncode) {
			continue
		}
		text := n.inputString("text", "prompt", "string")
		if text == "" {
			if ws := n.widgetStrings(); len(ws) > 0 {
				text = ws[0]
			}
		}
		if text == "" {
			continue
		}
		if isNegativePromptText(text) {
			if norm.NegativePrompt == "" {
				norm.NegativePrompt = text
			}
		} else if norm.Prompt == "" {
			norm.Prompt = text
		}
	}

	for i := range nodes {
		n := &nodes[i]
		if !n.hasRole(roleSampler) {
			continue
		}
		if norm.Steps == 0 {
			if v, ok := n.inputNumber("steps"); ok {
				norm.Steps = int(v)
			}
		}
		if norm.CfgScale == 0 {
			if v, ok := n.inputNumber("cfg", "cfg_scale", "guidance_scale", "scale", "guidance", "cfg_value"); ok {
				norm.CfgScale = v
			}
		}
		if norm.Seed == SeedUnset {
			if v, ok := n.inputNumber("seed", "noise_seed", "seed_value"); ok {
				norm.Seed = int64(v)
			}
		}
		if norm.Scheduler == "" {
			if s := n.inputString("sampler_name", "sampler", "sampling_method", "method"); s != "" {
				norm.Scheduler = s
			} else if s := n.inputString("scheduler"); s != "" {
				norm.Scheduler = s
			}
		}
		// UI KSampler widget layout: numbers [seed, steps, cfg, denoise...],
		// strings [sampler_name, scheduler] after dropping control values.
		if wn := n.widgetNumbers(); len(wn) >= 3 {
			if norm.Seed == SeedUnset && wn[0] >= 0 {
				norm.Seed = int64(wn[0])
			}
			if norm.Steps == 0 {
				norm.Steps = int(wn[1])
			}
			if norm.CfgScale == 0 {
				norm.CfgScale = wn[2]
			}
		}
		if ws := n.widgetStrings(); len(ws) > 0 && norm.Scheduler == "" {
			norm.Scheduler = ws[0]
		}
	}

	for i := range nodes {
		n := &nodes[i]
		if !n.hasRole(roleSize) {
			continue
		}
		if norm.Width == 0 {
			if v, ok := n.inputNumber("width", "image_width", "size_width", "w", "x"); ok && v > 0 {
				norm.Width = int(v)
			}
		}
		if norm.Height == 0 {
			if v, ok := n.inputNumber("height", "image_height", "size_height", "h", "y"); ok && v > 0 {
				norm.Height = int(v)
			}
		}
		if (norm.Width == 0 || norm.Height == 0) && strings.EqualFold(n.class, "EmptyLatentImage") {
			if wn := n.widgetNumbers(); len(wn) >= 2 {
				if norm.Width == 0 && wn[0] > 0 {
					norm.Width = int(wn[0])
				}
				if norm.Height == 0 && wn[1] > 0 {
					norm.Height = int(wn[1])
				}
			}
		}
	}

	// Seed-only nodes (e.g. shared seed providers).
	if norm.Seed == SeedUnset {
		for i := range nodes {
			n := &nodes[i]
			if !n.hasRole(roleSeed) {
				continue
			}
			if v, ok := n.inputNumber("seed", "noise_seed", "seed_value", "value"); ok {
				norm.Seed = int64(v)
				break
			}
		}
	}

	comfyFallbackPass(nodes, norm)
	return norm
}

// comfyFallbackPass is the best-effort widening search over every node's
// inputs, applied only for fields still unset. Values are bounds-checked here
// (unlike the targeted sampler pass): steps in (0,200), cfg in (0,50),
// seed >= 0. It is not a second source of truth: set fields stay untouched.
func comfyFallbackPass(nodes []graphNode, norm *NormalizedMetadata) {
	for i := range nodes {
		n := &nodes[i]
		for key, v := range n.inputs {
			if isNodeRef(v) {
				continue
			}
			lc := strings.ToLower(key)
			if norm.Steps == 0 && containsAny(lc, "step") {
				if f, ok := asFloat(v); ok && f > 0 && f < 200 {
					norm.Steps = int(f)
				}
			}
			if norm.CfgScale == 0 && containsAny(lc, "cfg", "guidance", "scale", "strength") {
				if f, ok := asFloat(v); ok && f > 0 && f < 50 {
					norm.CfgScale = f
				}
			}
			if norm.Seed == SeedUnset && containsAny(lc, "seed") {
				if f, ok := asFloat(v); ok && f >= 0 {
					norm.Seed = int64(f)
				}
			}
		}
	}
	if norm.Prompt == "" && norm.NegativePrompt == "" {
		for i := range nodes {
			text := asString(nodes[i].inputs["text"])
			if text == "" {
				continue
			}
			if isNegativePromptText(text) {
				if norm.NegativePrompt == "" {
					norm.NegativePrompt = text
				}
			} else if norm.Prompt == "" {
				norm.Prompt = text
			}
		}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
