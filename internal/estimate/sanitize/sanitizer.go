// Package sanitize normalizes line-item codes against the controlled
// vocabulary. Sanitization is total: malformed input degrades confidence,
// it never fails.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/scopeline/scopeline/internal/estimate"
	"github.com/scopeline/scopeline/internal/vocabulary"
)

// UnknownCode is the sentinel used when a category or selector sanitizes
// to the empty string
const UnknownCode = "UNK"

// DowngradeMarker is appended to the reasoning of items whose category is
// not in the dictionary. Added at most once per item so re-running the
// sanitizer is a no-op.
const DowngradeMarker = "[Auto-Downgraded: category not in dictionary]"

var nonAlphanumeric = regexp.MustCompile(`[^A-Z0-9]`)

// Sanitizer normalizes line items against a loaded vocabulary
type Sanitizer struct {
	vocab *vocabulary.Vocabulary
}

// New creates a sanitizer backed by the given vocabulary
func New(vocab *vocabulary.Vocabulary) *Sanitizer {
	return &Sanitizer{vocab: vocab}
}

// Sanitize returns a normalized copy of the item. Pure and idempotent:
// sanitize(sanitize(x)) == sanitize(x).
func (s *Sanitizer) Sanitize(item estimate.LineItem) estimate.LineItem {
	out := item

	// Trailing single dash on the selector is a template-literal artifact
	// from the upstream generator; drop it before any lookup.
	out.Selector = strings.TrimSuffix(strings.TrimSpace(out.Selector), "-")

	out.Category = cleanCode(out.Category)
	out.Selector = cleanCode(out.Selector)

	if alias, ok := s.vocab.LookupAlias(out.Code()); ok {
		out.Category = alias.Category
		out.Selector = alias.Selector
	}
	if override, ok := s.vocab.LookupOverride(out.Code()); ok {
		out.Category = override.Category
		out.Selector = override.Selector
	}

	if !s.vocab.IsKnownCategory(out.Category) {
		out.Confidence = estimate.ConfidenceLow
		if !strings.Contains(out.Reasoning, DowngradeMarker) {
			out.Reasoning = appendReasoning(out.Reasoning, DowngradeMarker)
		}
	}

	if out.Quantity < 0 {
		out.Quantity = 0
	}

	return out
}

// SanitizeRoom returns a copy of the room with every item sanitized
func (s *Sanitizer) SanitizeRoom(room estimate.RoomData) estimate.RoomData {
	out := room.Clone()
	for i := range out.Items {
		out.Items[i] = s.Sanitize(out.Items[i])
	}
	return out
}

// SanitizeAll sanitizes every item in every room
func (s *Sanitizer) SanitizeAll(rooms []estimate.RoomData) []estimate.RoomData {
	out := make([]estimate.RoomData, 0, len(rooms))
	for i := range rooms {
		out = append(out, s.SanitizeRoom(rooms[i]))
	}
	return out
}

// cleanCode uppercases and strips everything outside [A-Z0-9], falling back
// to the UNK sentinel when nothing survives
func cleanCode(code string) string {
	cleaned := nonAlphanumeric.ReplaceAllString(strings.ToUpper(strings.TrimSpace(code)), "")
	if cleaned == "" {
		return UnknownCode
	}
	return cleaned
}

// appendReasoning appends to the audit trail without destroying prior text
func appendReasoning(existing, addition string) string {
	if existing == "" {
		return addition
	}
	return existing + "; " + addition
}
