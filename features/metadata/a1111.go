package metadata

import (
	"regexp"
	"strconv"
	"strings"
)

// A1111Params is the result of applying the Automatic1111 "parameters" string
// grammar. Every field is independently optional: zero values mean "absent".
type A1111Params struct {
	Prompt         string
	NegativePrompt string
	Model          string
	ModelHash      string
	Sampler        string
	Steps          int
	CfgScale       float64
	Seed           int64
	Width          int
	Height         int

	// matched reports whether the text actually looked like an Automatic1111
	// parameters block (a negative prompt marker or at least one recognized
	// "Key: value" pair), as opposed to arbitrary text swallowed whole as prompt.
	matched bool
	// seedMatched distinguishes an explicit "Seed: 0" from an absent seed.
	seedMatched bool
}

const negativePromptMarker = "\nNegative prompt:"

// A line starting a "Key: value" parameter block, e.g. "Steps: 20, ...".
var paramKeyLineRe = regexp.MustCompile(`\n[A-Z][A-Za-z0-9 ]*:`)

// Single-pattern matches per recognized key. Values run until the next comma
// or end of line. Case-insensitive, first match wins.
var (
	a1111ModelRe     = regexp.MustCompile(`(?i)\bModel: ([^,\n]+)`)
	a1111ModelHashRe = regexp.MustCompile(`(?i)\bModel hash: ([^,\n]+)`)
	a1111StepsRe     = regexp.MustCompile(`(?i)\bSteps: (\d+)`)
	a1111SamplerRe   = regexp.MustCompile(`(?i)\bSampler: ([^,\n]+)`)
	a1111CfgScaleRe  = regexp.MustCompile(`(?i)\bCFG scale: (\d+(?:\.\d+)?)`)
	a1111SeedRe      = regexp.MustCompile(`(?i)\bSeed: (\d+)`)
	a1111SizeRe      = regexp.MustCompile(`(?i)\bSize: (\d+)x(\d+)`)
)

// ParseA1111 applies the Automatic1111 parameters grammar to text:
//
//	<prompt>\nNegative prompt: <text>\n<Key>: <value>, <Key>: <value>, ...
//
// This is an ordered pattern search, not a formal grammar; it always produces
// a result (in the worst case the whole trimmed text becomes the prompt).
func ParseA1111(text string) *A1111Params {
	params := &A1111Params{}

	promptEnd := len(text)
	if i := strings.Index(text, negativePromptMarker); i != -1 {
		params.matched = true
		promptEnd = i
		negStart := i + len(negativePromptMarker)
		negEnd := len(text)
		if j := strings.IndexByte(text[negStart:], '\n'); j != -1 {
			negEnd = negStart + j
		}
		params.NegativePrompt = strings.TrimSpace(text[negStart:negEnd])
	} else if loc := paramKeyLineRe.FindStringIndex(text); loc != nil {
		promptEnd = loc[0]
	}
	params.Prompt = strings.TrimSpace(text[:promptEnd])

	if m := a1111ModelRe.FindStringSubmatch(text); m != nil {
		params.Model = strings.TrimSpace(m[1])
		params.matched = true
	}
	if m := a1111ModelHashRe.FindStringSubmatch(text); m != nil {
		params.ModelHash = strings.TrimSpace(m[1])
		params.matched = true
	}
	if m := a1111StepsRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			params.Steps = v
			params.matched = true
		}
	}
	if m := a1111SamplerRe.FindStringSubmatch(text); m != nil {
		params.Sampler = strings.TrimSpace(m[1])
		params.matched = true
	}
	if m := a1111CfgScaleRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			params.CfgScale = v
			params.matched = true
		}
	}
	if m := a1111SeedRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			params.Seed = v
			params.matched = true
			params.seedMatched = true
		}
	}
	if m := a1111SizeRe.FindStringSubmatch(text); m != nil {
		w, errW := strconv.Atoi(m[1])
		h, errH := strconv.Atoi(m[2])
		if errW == nil && errH == nil {
			params.Width, params.Height = w, h
			params.matched = true
		}
	}
	return params
}

// Matched reports whether the text carried recognizable Automatic1111 markers.
// Used by the JPEG classification path, where an unmatched parse means
// "no metadata" rather than "everything is the prompt".
func (p *A1111Params) Matched() bool {
	return p.matched
}

// HasSeed reports whether a Seed pattern actually matched
// (0 is a valid seed value, so the zero value alone cannot tell).
func (p *A1111Params) HasSeed() bool {
	return p.seedMatched
}
