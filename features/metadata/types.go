// Package metadata extracts and normalizes AI image generation parameters
// embedded in PNG / JPEG files by InvokeAI, Automatic1111 (stable-diffusion-webui)
// and ComfyUI. Each tool uses an incompatible embedding convention; this package
// presents one uniform, always-available view of the common parameters
// (prompt, model, LoRAs, sampler, cfg scale, steps, seed, dimensions, board).
package metadata

import "strconv"

// Format identifies the generator tool whose schema a parsed metadata record follows.
// It is set once by Parse and all downstream code dispatches on it.
type Format string

const (
	FormatInvokeAI Format = "invokeai"
	FormatA1111    Format = "a1111" // Automatic1111 / stable-diffusion-webui
	FormatComfyUI  Format = "comfyui"
	FormatUnknown  Format = "unknown"
)

// Default values of normalized fields that have non-empty "absent" labels.
const (
	DefaultScheduler = "Unknown"
	DefaultBoard     = "Uncategorized"
)

// SeedUnset is the sentinel for an absent seed (0 is a valid seed value).
const SeedUnset int64 = -1

// RawBlobSet maps a recognized PNG tEXt chunk keyword (or JPEG EXIF text field)
// to its decoded text. Produced once per file by DecodeContainer and discarded
// after classification.
type RawBlobSet map[string]string

// NormalizedMetadata is the per-record normalization cache. When a field is
// populated here it is authoritative: field extractors return it verbatim and
// never re-derive it from the raw variant. Empty strings and numeric zeros
// mean "not populated" (Seed uses SeedUnset since 0 is a valid seed), in
// which case extractors fall back to heuristics.
type NormalizedMetadata struct {
	Prompt         string   `json:"prompt,omitempty"`
	NegativePrompt string   `json:"negativePrompt,omitempty"`
	Model          string   `json:"model,omitempty"`
	Models         []string `json:"models,omitempty"`
	Loras          []string `json:"loras,omitempty"`
	Scheduler      string   `json:"scheduler,omitempty"`
	Board          string   `json:"board,omitempty"`
	CfgScale       float64  `json:"cfgScale,omitempty"`
	Steps          int      `json:"steps,omitempty"`
	Seed           int64    `json:"seed,omitempty"`
	Width          int      `json:"width,omitempty"`
	Height         int      `json:"height,omitempty"`
}

// ImageMetadata is the tagged union produced by Parse, one variant per generator.
// Only the fields matching Format are meaningful:
//   - FormatInvokeAI / FormatUnknown: Raw holds the decoded JSON object.
//   - FormatA1111: Parameters holds the multi-line parameters string.
//   - FormatComfyUI: Workflow (UI graph) and/or Prompt (execution graph); each
//     is a decoded map[string]any, or the original string if JSON decode failed.
//
// Parameters is additionally set whenever the container carried a "parameters"
// blob, even for ComfyUI records (ComfyUI commonly embeds an Automatic1111
// style string as auxiliary data).
type ImageMetadata struct {
	Format     Format              `json:"format"`
	Raw        map[string]any      `json:"raw,omitempty"`
	Parameters string              `json:"parameters,omitempty"`
	Workflow   any                 `json:"workflow,omitempty"`
	Prompt     any                 `json:"prompt,omitempty"`
	Normalized *NormalizedMetadata `json:"normalized,omitempty"`
}

// GenerationFields is the uniform output schema of the field normalizer.
// Every field is total: absent values hold the documented defaults.
type GenerationFields struct {
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negativePrompt,omitempty"`
	Models         []string `json:"models"`
	Loras          []string `json:"loras"`
	Scheduler      string   `json:"scheduler"`
	Board          string   `json:"board"`
	CfgScale       float64  `json:"cfgScale,omitempty"`
	Steps          int      `json:"steps,omitempty"`
	// Seed is a pointer because 0 is a valid seed; nil means unset.
	Seed   *int64 `json:"seed,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Dimensions returns "WxH" when both dimensions are known, else "".
func (f *GenerationFields) Dimensions() string {
	if f.Width > 0 && f.Height > 0 {
		return strconv.Itoa(f.Width) + "x" + strconv.Itoa(f.Height)
	}
	return ""
}

// BoardRef is an unresolved board reference extracted from an InvokeAI record:
// either a human-readable name, or an opaque board id that still needs a
// BoardResolver to become a stable label. At most one of the fields is set.
type BoardRef struct {
	Name string
	ID   string
}

// IsZero reports whether the reference is empty (no board information found).
func (r BoardRef) IsZero() bool {
	return r.Name == "" && r.ID == ""
}
