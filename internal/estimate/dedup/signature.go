package dedup

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/scopeline/scopeline/internal/estimate"
)

// roomTypePatterns classify room names into semantic buckets. Order
// matters: the first match wins, so more specific synonyms come first.
var roomTypePatterns = []struct {
	bucket string
	re     *regexp.Regexp
}{
	{"bathroom", regexp.MustCompile(`(?i)\b(bath|bathroom|powder|restroom|washroom|ensuite|wc)\b`)},
	{"laundry", regexp.MustCompile(`(?i)\b(laundry|utility|mud)\b`)},
	{"kitchen", regexp.MustCompile(`(?i)\b(kitchen|kitchenette)\b`)},
	{"bedroom", regexp.MustCompile(`(?i)\b(bedroom|bed|master|nursery)\b`)},
	{"living", regexp.MustCompile(`(?i)\b(living|family|great|den|lounge)\b`)},
	{"hallway", regexp.MustCompile(`(?i)\b(hall|hallway|corridor|entry|foyer|landing|stair)\b`)},
	{"garage", regexp.MustCompile(`(?i)\b(garage|carport)\b`)},
	{"basement", regexp.MustCompile(`(?i)\b(basement|cellar|crawl)\b`)},
	{"office", regexp.MustCompile(`(?i)\b(office|study|library)\b`)},
	{"dining", regexp.MustCompile(`(?i)\b(dining|breakfast|nook)\b`)},
	{"closet", regexp.MustCompile(`(?i)\b(closet|wardrobe|pantry)\b`)},
}

// RoomTypeBucket classifies a room name into a semantic bucket. Two rooms
// of different buckets are never merge candidates, whatever their item
// similarity. Unmatched names fall back to their first token, lowercased.
func RoomTypeBucket(name string) string {
	for _, p := range roomTypePatterns {
		if p.re.MatchString(name) {
			return p.bucket
		}
	}

	fields := strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}

// quantityBucket maps a quantity into one of five bands, tolerating small
// estimation noise without conflating materially different jobs
func quantityBucket(q float64) string {
	switch {
	case q <= 10:
		return "q10"
	case q <= 50:
		return "q50"
	case q <= 100:
		return "q100"
	case q <= 500:
		return "q500"
	default:
		return "qmax"
	}
}

// Signature builds the normalized item-signature set of a room
func Signature(room estimate.RoomData) map[string]struct{} {
	sig := make(map[string]struct{}, len(room.Items))
	for i := range room.Items {
		item := &room.Items[i]
		sig[fmt.Sprintf("%s:%s:%s", item.Category, item.Selector, quantityBucket(item.Quantity))] = struct{}{}
	}
	return sig
}

// Similarity computes the Jaccard coefficient between two rooms' signature
// sets. Two empty rooms are similarity 1 (duplicate "inspected, no damage"
// entries); one empty and one non-empty is 0. Symmetric by construction.
func Similarity(a, b estimate.RoomData) float64 {
	sa, sb := Signature(a), Signature(b)

	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}

	intersection := 0
	for key := range sa {
		if _, ok := sb[key]; ok {
			intersection++
		}
	}
	union := len(sa) + len(sb) - intersection
	return float64(intersection) / float64(union)
}
