// Package dedup detects and merges "ghost rooms": duplicate room entries
// produced when the upstream model re-detects the same physical space.
// Detection is clustering by pairwise Jaccard similarity over normalized
// item signatures, bounded by a fixed-point pass limit.
package dedup

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/scopeline/scopeline/internal/estimate"
)

// Settings holds the similarity thresholds and the pass bound. The defaults
// have not been calibrated against labeled duplicate pairs yet.
type Settings struct {
	MergeThreshold  float64 // similarity at or above which rooms merge
	ReviewThreshold float64 // lower edge of the "verify manually" band
	MaxPasses       int     // safety bound on the fixed-point loop
}

// DefaultSettings returns the stock thresholds
func DefaultSettings() Settings {
	return Settings{
		MergeThreshold:  0.75,
		ReviewThreshold: 0.60,
		MaxPasses:       5,
	}
}

// MergeRecord captures one performed merge for the audit trail
type MergeRecord struct {
	PrimaryRoomID string  `json:"primary_room_id"`
	PrimaryName   string  `json:"primary_name"`
	MergedRoomID  string  `json:"merged_room_id"`
	MergedName    string  `json:"merged_name"`
	Similarity    float64 `json:"similarity"`
}

// Result is the outcome of one deduplication run
type Result struct {
	Rooms      []estimate.RoomData
	Warnings   []string
	MergeCount int
	Merges     []MergeRecord
}

// Deduplicator merges probable duplicate rooms
type Deduplicator struct {
	settings Settings
}

// New creates a deduplicator with the given settings
func New(settings Settings) *Deduplicator {
	if settings.MaxPasses <= 0 {
		settings.MaxPasses = DefaultSettings().MaxPasses
	}
	return &Deduplicator{settings: settings}
}

// SanitizeRooms deduplicates the room list. Diagnostics run against the
// pre-merge list; the General Conditions room is never a merge candidate
// and is always first in the returned ordering.
func (d *Deduplicator) SanitizeRooms(rooms []estimate.RoomData) Result {
	working := estimate.CloneRooms(rooms)

	result := Result{}
	result.Warnings = append(result.Warnings, d.plausibilityWarnings(working)...)
	result.Warnings = append(result.Warnings, d.reviewBandWarnings(working)...)
	result.Warnings = append(result.Warnings, markEmptyRooms(working)...)

	working, result.Merges = d.mergeToFixedPoint(working)
	result.MergeCount = len(result.Merges)
	result.Rooms = assembleOutput(working)

	if result.MergeCount > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d ghost rooms merged", result.MergeCount))
	}
	return result
}

// mergeToFixedPoint sweeps every same-bucket pair, merging as it goes, and
// repeats until a full sweep performs no merge or the pass limit is
// reached. A merge changes the surviving room's signature, so a pair
// dismissed earlier in a sweep may qualify on the next one. The bound is a
// safety valve: pathological inputs that need more passes simply keep
// their remaining near-duplicates.
func (d *Deduplicator) mergeToFixedPoint(rooms []estimate.RoomData) ([]estimate.RoomData, []MergeRecord) {
	var merges []MergeRecord

	for pass := 0; pass < d.settings.MaxPasses; pass++ {
		merged := false

		for i := 0; i < len(rooms); i++ {
			if estimate.IsGeneralConditions(rooms[i].Name) {
				continue
			}
			for j := i + 1; j < len(rooms); {
				if estimate.IsGeneralConditions(rooms[j].Name) ||
					RoomTypeBucket(rooms[i].Name) != RoomTypeBucket(rooms[j].Name) {
					j++
					continue
				}
				sim := Similarity(rooms[i], rooms[j])
				if sim < d.settings.MergeThreshold {
					j++
					continue
				}

				primary, secondary := rooms[i], rooms[j]
				if !isPrimary(primary, secondary) {
					primary, secondary = secondary, primary
				}
				merges = append(merges, MergeRecord{
					PrimaryRoomID: primary.ID,
					PrimaryName:   primary.Name,
					MergedRoomID:  secondary.ID,
					MergedName:    secondary.Name,
					Similarity:    sim,
				})
				rooms[i] = mergeRooms(primary, secondary)
				// the removal shifts the next candidate into index j
				rooms = append(rooms[:j], rooms[j+1:]...)
				merged = true
			}
		}

		if !merged {
			break
		}
	}
	return rooms, merges
}

// isPrimary reports whether a should survive a merge with b. The room with
// the lower trailing ordinal wins; ties fall back to name order so the
// outcome does not depend on input order.
func isPrimary(a, b estimate.RoomData) bool {
	oa, ob := trailingOrdinal(a.Name), trailingOrdinal(b.Name)
	if oa != ob {
		return oa < ob
	}
	return a.Name <= b.Name
}

var trailingNumber = regexp.MustCompile(`(\d+)\s*$`)

// trailingOrdinal extracts the trailing number of a room name ("Bathroom 2"
// -> 2), defaulting to 999 when absent
func trailingOrdinal(name string) int {
	m := trailingNumber.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return 999
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 999
	}
	return n
}

const narrativeCap = 250

// mergeRooms folds secondary into primary. The primary's id and name
// survive; items union by code key with larger quantities winning while
// resident item ids are preserved for the audit trail.
func mergeRooms(primary, secondary estimate.RoomData) estimate.RoomData {
	out := primary.Clone()

	index := make(map[string]int, len(out.Items))
	for i := range out.Items {
		index[itemKey(out.Items[i])] = i
	}
	for _, item := range secondary.Items {
		key := itemKey(item)
		if at, ok := index[key]; ok {
			if item.Quantity > out.Items[at].Quantity {
				kept := item
				kept.ID = out.Items[at].ID
				out.Items[at] = kept
			}
			continue
		}
		index[key] = len(out.Items)
		out.Items = append(out.Items, item)
	}

	out.NarrativeSynthesis = mergeNarratives(primary.NarrativeSynthesis, secondary.NarrativeSynthesis)

	if out.TimestampIn == "" {
		out.TimestampIn = secondary.TimestampIn
	}
	if out.TimestampOut == "" {
		out.TimestampOut = secondary.TimestampOut
	}

	seen := make(map[string]bool, len(out.FlaggedIssues))
	for _, issue := range out.FlaggedIssues {
		seen[issue] = true
	}
	for _, issue := range secondary.FlaggedIssues {
		if !seen[issue] {
			seen[issue] = true
			out.FlaggedIssues = append(out.FlaggedIssues, issue)
		}
	}

	return out
}

// mergeNarratives concatenates distinct narratives under a hard length cap
func mergeNarratives(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	var merged string
	switch {
	case a == "":
		merged = b
	case b == "" || a == b:
		merged = a
	default:
		merged = a + " " + b
	}
	if len(merged) > narrativeCap {
		merged = merged[:narrativeCap]
	}
	return merged
}

func itemKey(item estimate.LineItem) string {
	return item.Category + ":" + item.Selector
}

// plausibilityWarnings flags room-type counts beyond domain-plausible
// thresholds, independent of whether any merge later fires
func (d *Deduplicator) plausibilityWarnings(rooms []estimate.RoomData) []string {
	limits := map[string]int{
		"bathroom": 3,
		"kitchen":  2,
		"laundry":  2,
		"garage":   2,
	}

	counts := make(map[string]int)
	for i := range rooms {
		if estimate.IsGeneralConditions(rooms[i].Name) {
			continue
		}
		counts[RoomTypeBucket(rooms[i].Name)]++
	}

	buckets := make([]string, 0, len(limits))
	for bucket := range limits {
		buckets = append(buckets, bucket)
	}
	sort.Strings(buckets)

	var warnings []string
	for _, bucket := range buckets {
		if counts[bucket] > limits[bucket] {
			warnings = append(warnings, fmt.Sprintf(
				"Found %d %s rooms; more than %d is unusual for a single structure, verify they are distinct spaces",
				counts[bucket], bucket, limits[bucket]))
		}
	}
	return warnings
}

// reviewBandWarnings flags same-bucket pairs whose similarity falls inside
// the review band: too alike to ignore, not alike enough to merge
func (d *Deduplicator) reviewBandWarnings(rooms []estimate.RoomData) []string {
	var warnings []string
	for i := 0; i < len(rooms); i++ {
		if estimate.IsGeneralConditions(rooms[i].Name) {
			continue
		}
		for j := i + 1; j < len(rooms); j++ {
			if estimate.IsGeneralConditions(rooms[j].Name) {
				continue
			}
			if RoomTypeBucket(rooms[i].Name) != RoomTypeBucket(rooms[j].Name) {
				continue
			}
			sim := Similarity(rooms[i], rooms[j])
			if sim >= d.settings.ReviewThreshold && sim < d.settings.MergeThreshold {
				warnings = append(warnings, fmt.Sprintf(
					"Rooms %q and %q are %.0f%% similar; verify manually whether they are the same space",
					rooms[i].Name, rooms[j].Name, sim*100))
			}
		}
	}
	return warnings
}

// markEmptyRooms annotates item-less rooms in place and returns an
// informational warning naming them. The General Conditions room is exempt.
func markEmptyRooms(rooms []estimate.RoomData) []string {
	const prefix = "Inspected, no damage items recorded. "

	var empty []string
	for i := range rooms {
		if estimate.IsGeneralConditions(rooms[i].Name) || len(rooms[i].Items) > 0 {
			continue
		}
		if !strings.HasPrefix(rooms[i].NarrativeSynthesis, prefix) {
			rooms[i].NarrativeSynthesis = prefix + rooms[i].NarrativeSynthesis
		}
		empty = append(empty, rooms[i].Name)
	}
	if len(empty) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("Rooms with no line items: %s", strings.Join(empty, ", "))}
}

// assembleOutput places the General Conditions room first, preserving the
// relative order of everything else
func assembleOutput(rooms []estimate.RoomData) []estimate.RoomData {
	out := make([]estimate.RoomData, 0, len(rooms))
	for i := range rooms {
		if estimate.IsGeneralConditions(rooms[i].Name) {
			out = append(out, rooms[i])
		}
	}
	for i := range rooms {
		if !estimate.IsGeneralConditions(rooms[i].Name) {
			out = append(out, rooms[i])
		}
	}
	return out
}
