package metadata

import (
	"regexp"
	"strings"
)

// parseInvokeAI wraps a decoded invokeai_metadata JSON object and eagerly
// computes the normalized cache by field-by-field projection.
func parseInvokeAI(raw map[string]any) *ImageMetadata {
	m := &ImageMetadata{Format: FormatInvokeAI, Raw: raw}
	norm := &NormalizedMetadata{Seed: SeedUnset}

	norm.Prompt = invokePromptText(raw["positive_prompt"])
	if norm.Prompt == "" {
		norm.Prompt = invokePromptText(raw["prompt"])
	}
	norm.NegativePrompt = invokePromptText(raw["negative_prompt"])

	norm.Model = mapString(raw, "model_name")
	if norm.Model == "" {
		norm.Model = readableModelName(raw["model"])
	}
	norm.Models = invokeAIModels(raw)
	norm.Loras = invokeAILoras(raw, norm.Prompt)
	norm.Scheduler = mapString(raw, "scheduler")

	if v, ok := mapFloat(raw, "width"); ok {
		norm.Width = int(v)
	}
	if v, ok := mapFloat(raw, "height"); ok {
		norm.Height = int(v)
	}
	if v, ok := mapFloat(raw, "steps"); ok {
		norm.Steps = int(v)
	}
	if v, ok := mapFloat(raw, "cfg_scale"); ok {
		norm.CfgScale = v
	}
	if v, ok := mapFloat(raw, "seed"); ok {
		norm.Seed = int64(v)
	}
	// Board is intentionally left unpopulated: opaque board ids only become
	// stable labels through a BoardResolver at normalization time.

	m.Normalized = norm
	return m
}

// invokePromptText accepts the prompt shapes InvokeAI has used over time:
// a plain string, a segment list of strings, or a segment list of
// {prompt: "..."} objects.
func invokePromptText(v any) string {
	if s := asString(v); s != "" {
		return s
	}
	segments := asSlice(v)
	if segments == nil {
		return ""
	}
	var parts []string
	for _, seg := range segments {
		if s := asString(seg); s != "" {
			parts = append(parts, s)
		} else if m := asMap(seg); m != nil {
			if s := mapString(m, "prompt", "text"); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// invokeAIModels collects model names from the structured model fields.
func invokeAIModels(raw map[string]any) []string {
	var models []string
	for _, key := range []string{"model", "model_name", "base_model"} {
		if v, ok := raw[key]; ok {
			models = appendName(models, readableModelName(v))
		}
	}
	return models
}

// Prompt-embedded lora tags: <lora:name:weight> / <lyco:name:weight>.
var loraTagRe = regexp.MustCompile(`<(?:lora|lyco):([^:>]+)(?::[^>]*)?>`)

// invokeAILoras collects lora names from the structured loras array plus a
// prompt tag scan. Both sources feed one deduplicated list.
func invokeAILoras(raw map[string]any, prompt string) []string {
	var loras []string
	for _, entry := range asSlice(raw["loras"]) {
		if s := asString(entry); s != "" {
			loras = appendName(loras, s)
			continue
		}
		if m := asMap(entry); m != nil {
			if name := mapString(m, "lora", "model", "name", "model_name"); name != "" {
				loras = appendName(loras, name)
			} else if nested := asMap(m["lora"]); nested != nil {
				loras = appendName(loras, readableModelName(nested))
			} else {
				loras = appendName(loras, readableModelName(m))
			}
		}
	}
	for _, source := range []string{prompt, asString(raw["positive_prompt"]), asString(raw["prompt"])} {
		for _, match := range loraTagRe.FindAllStringSubmatch(source, -1) {
			loras = appendName(loras, strings.TrimSpace(match[1]))
		}
	}
	return loras
}

// invokeAIBoardRef walks the board field cascade of an InvokeAI record and
// returns either a ready name or an opaque board id for the resolver.
// Examined in order: board_name, board_id, boardName, boardId, "Board Name",
// board (object or string), canvas_v2_metadata.board_id (direct or nested),
// a workflow graph scan for save-to-gallery nodes, then any other top-level
// key containing "board".
func invokeAIBoardRef(raw map[string]any) BoardRef {
	if raw == nil {
		return BoardRef{}
	}
	if name := mapString(raw, "board_name"); name != "" {
		return BoardRef{Name: name}
	}
	if id := mapString(raw, "board_id"); id != "" {
		return BoardRef{ID: id}
	}
	if name := mapString(raw, "boardName"); name != "" {
		return BoardRef{Name: name}
	}
	if id := mapString(raw, "boardId"); id != "" {
		return BoardRef{ID: id}
	}
	if name := mapString(raw, "Board Name"); name != "" {
		return BoardRef{Name: name}
	}
	switch board := raw["board"].(type) {
	case string:
		if board != "" {
			return BoardRef{Name: board}
		}
	case map[string]any:
		if name := mapString(board, "name", "board_name"); name != "" {
			return BoardRef{Name: name}
		}
		if id := mapString(board, "id", "board_id"); id != "" {
			return BoardRef{ID: id}
		}
	}
	if canvas := asMap(raw["canvas_v2_metadata"]); canvas != nil {
		if id := asString(canvas["board_id"]); id != "" {
			return BoardRef{ID: id}
		}
		if nested := asMap(canvas["board"]); nested != nil {
			if id := mapString(nested, "board_id", "id"); id != "" {
				return BoardRef{ID: id}
			}
		}
	}
	if ref := workflowBoardRef(raw["workflow"]); !ref.IsZero() {
		return ref
	}
	for key, v := range raw {
		if !strings.Contains(strings.ToLower(key), "board") {
			continue
		}
		if s := asString(v); s != "" {
			if strings.Contains(strings.ToLower(key), "id") {
				return BoardRef{ID: s}
			}
			return BoardRef{Name: s}
		}
	}
	return BoardRef{}
}

// workflowBoardRef scans an InvokeAI workflow graph for l2i / canvas_output
// nodes carrying a board.value.board_id input.
func workflowBoardRef(workflow any) BoardRef {
	graph := asMap(workflow)
	if graph == nil {
		if s := asString(workflow); s != "" {
			if decoded, err := decodeJSONValue(s); err == nil {
				graph = asMap(decoded)
			}
		}
		if graph == nil {
			return BoardRef{}
		}
	}
	for _, node := range asSlice(graph["nodes"]) {
		nm := asMap(node)
		if nm == nil {
			continue
		}
		data := nm
		if d := asMap(nm["data"]); d != nil {
			data = d
		}
		nodeType := strings.ToLower(mapString(data, "type", "class_type"))
		if nodeType != "l2i" && nodeType != "canvas_output" && !strings.HasSuffix(nodeType, "l2i") {
			continue
		}
		inputs := asMap(data["inputs"])
		if inputs == nil {
			continue
		}
		board := asMap(inputs["board"])
		if board == nil {
			continue
		}
		value := asMap(board["value"])
		if value == nil {
			value = board
		}
		if id := asString(value["board_id"]); id != "" {
			return BoardRef{ID: id}
		}
	}
	return BoardRef{}
}
