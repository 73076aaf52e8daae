package metadata

import (
	"errors"

	log "github.com/sirupsen/logrus"
)

var errNotAnObject = errors.New("not a JSON object")

// Parse is the core entry point: it decodes the container, classifies the
// generator format and builds the typed metadata variant. It returns nil when
// the buffer holds no supported metadata; it never returns an error and never
// panics, regardless of malformed or adversarial input.
func Parse(buf []byte, filename string) (m *ImageMetadata) {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("%s: metadata parse panic: %v", filename, r)
			m = nil
		}
	}()
	blobs := DecodeContainer(buf, filename)
	if blobs == nil {
		return nil
	}
	if _, ok := blobs["workflow"]; ok || hasKey(blobs, "prompt", "invokeai_metadata", "parameters") {
		return classifyPngBlobs(blobs, filename)
	}
	// JPEG path: a single EXIF text field, keyed by its EXIF tag name.
	for _, text := range blobs {
		return classifyExifText(text, filename)
	}
	return nil
}

func hasKey(blobs RawBlobSet, keys ...string) bool {
	for _, key := range keys {
		if _, ok := blobs[key]; ok {
			return true
		}
	}
	return false
}

// classifyPngBlobs applies the strict priority cascade over recognized PNG
// tEXt keywords; the first matching tier wins:
//
//  1. workflow -> ComfyUI. Takes precedence even over invokeai_metadata /
//     parameters, because ComfyUI commonly embeds an Automatic1111-style
//     string as auxiliary data inside its own graph.
//  2. invokeai_metadata -> InvokeAI. A JSON parse failure disqualifies this
//     tier only; classification falls through to the next one.
//  3. parameters -> Automatic1111.
//  4. prompt (without workflow) -> ComfyUI, prompt-only mode.
func classifyPngBlobs(blobs RawBlobSet, filename string) *ImageMetadata {
	if workflow, ok := blobs["workflow"]; ok {
		return parseComfyUI(workflow, blobs["prompt"], blobs["parameters"])
	}
	if invokeBlob, ok := blobs["invokeai_metadata"]; ok {
		raw, err := decodeJSONValue(invokeBlob)
		if err == nil {
			if obj := asMap(raw); obj != nil {
				return parseInvokeAI(obj)
			}
			err = errNotAnObject
		}
		log.Warnf("%s: malformed invokeai_metadata, falling through: %v", filename, err)
	}
	if parameters, ok := blobs["parameters"]; ok {
		return &ImageMetadata{Format: FormatA1111, Parameters: parameters}
	}
	if prompt, ok := blobs["prompt"]; ok {
		return parseComfyUI("", prompt, "")
	}
	return nil
}

// classifyExifText handles the JPEG path: the matched EXIF text is first
// JSON-parsed speculatively (success = InvokeAI), then tried against the
// Automatic1111 grammar; failure of both means no metadata.
func classifyExifText(text string, filename string) *ImageMetadata {
	if decoded, err := decodeJSONValue(text); err == nil {
		if obj := asMap(decoded); obj != nil {
			return parseInvokeAI(obj)
		}
		log.Debugf("%s: EXIF text is JSON but not an object, trying parameters grammar", filename)
	}
	if params := ParseA1111(text); params.Matched() {
		return &ImageMetadata{Format: FormatA1111, Parameters: text}
	}
	return nil
}
