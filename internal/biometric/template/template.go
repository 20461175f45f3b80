// Package template turns raw scanner payloads into canonical fingerprint
// template encodings. Scanner firmware and bridge software wrap the sample
// in inconsistent shapes (bare string, object with a data field, array of
// objects) and occasionally garble the encoding, so normalization recovers a
// usable template whenever any string payload is reachable.
package template

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoExtractableData is returned when no string payload is reachable in
// the raw sample.
var ErrNoExtractableData = errors.New("no extractable data in raw sample")

// maxUnwrapDepth bounds recursion through wrapper shapes so a maliciously
// nested payload cannot blow the stack.
const maxUnwrapDepth = 8

// Template is a validated, padding-correct base64 encoding of a captured
// fingerprint sample.
//
// Invariants: Encoded decodes under standard base64 and len(Encoded)%4 == 0.
type Template struct {
	Encoded string

	// Lossy marks templates produced by the wholesale re-encode fallback.
	// The pipeline prefers producing some template over failing the capture;
	// callers should log lossy templates as a warning condition.
	Lossy bool
}

// Normalize extracts the innermost string payload from a raw scanner sample
// and returns it as a canonical template. Pure function over its input.
//
// Resolution order for the candidate string:
//  1. already-canonical base64 is used unchanged (normalization is
//     idempotent on canonical input)
//  2. known contamination is stripped (escaped separators, control
//     characters, bytes outside the base64 alphabet) and padding repaired
//  3. wholesale re-encode of the candidate bytes, flagged Lossy
func Normalize(raw []byte) (Template, error) {
	candidate, ok := extract(raw, 0)
	if !ok {
		return Template{}, ErrNoExtractableData
	}
	if candidate == "" {
		return Template{}, ErrNoExtractableData
	}

	if isCanonical(candidate) {
		return Template{Encoded: candidate}, nil
	}

	if cleaned, ok := clean(candidate); ok {
		return Template{Encoded: cleaned}, nil
	}

	// Lossy fallback: re-encode the candidate bytes wholesale so the capture
	// attempt still yields a template.
	return Template{
		Encoded: base64.StdEncoding.EncodeToString([]byte(candidate)),
		Lossy:   true,
	}, nil
}

// wrapped is the object wrapper shape some scanner bridges emit. The json
// package matches field names case-insensitively, so this covers both
// "data" and "Data" variants; a sibling compression field is tolerated and
// ignored.
type wrapped struct {
	Data json.RawMessage `json:"data"`
}

// extract walks the tagged wrapper variants (scalar | wrapped | list) to the
// innermost string payload.
func extract(raw []byte, depth int) (string, bool) {
	if depth > maxUnwrapDepth || len(raw) == 0 {
		return "", false
	}

	// An already-canonical payload is the template itself. Checked before
	// any JSON routing: an all-digit or bare-literal payload ("12345678",
	// "true") is both canonical base64 and a valid JSON scalar, and the
	// canonical reading wins.
	if depth == 0 && isCanonical(string(raw)) {
		return string(raw), true
	}

	// Not JSON at all: the payload is the raw bytes themselves.
	if depth == 0 && !json.Valid(raw) {
		return string(raw), true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	var w wrapped
	if err := json.Unmarshal(raw, &w); err == nil && len(w.Data) > 0 {
		return extract(w.Data, depth+1)
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return "", false
		}
		return extract(list[0], depth+1)
	}

	return "", false
}

// isCanonical reports whether s already satisfies the canonical encoding:
// standard base64 alphabet, correct padding, length a multiple of 4.
func isCanonical(s string) bool {
	if s == "" || len(s)%4 != 0 {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(s)
	return err == nil
}

// clean strips known contamination and repairs padding. Returns false when
// the result still fails base64 validation.
func clean(s string) (string, bool) {
	// JSON-escaped separators show up when a payload is serialized twice.
	s = strings.ReplaceAll(s, `\/`, "/")

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAlphabet(c) {
			b.WriteByte(c)
		}
	}
	stripped := b.String()
	if stripped == "" {
		return "", false
	}

	// Interior pad characters are leftovers from concatenated chunks; padding
	// is recomputed from the data length.
	stripped = strings.ReplaceAll(stripped, "=", "")
	switch len(stripped) % 4 {
	case 1:
		// A single trailing character cannot carry a full byte; no padding
		// makes this decodable.
		return "", false
	case 2:
		stripped += "=="
	case 3:
		stripped += "="
	}

	if _, err := base64.StdEncoding.DecodeString(stripped); err != nil {
		return "", false
	}
	return stripped, true
}

func isAlphabet(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') || c == '+' || c == '/' || c == '='
}
