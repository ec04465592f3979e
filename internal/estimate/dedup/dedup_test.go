package dedup

import (
	"strings"
	"testing"

	"github.com/scopeline/scopeline/internal/estimate"
	"github.com/scopeline/scopeline/internal/testhelpers"
)

func TestSanitizeRooms_MergesGhostRooms(t *testing.T) {
	bath2 := testhelpers.NewRoomBuilder("Bathroom 2").
		WithID("room-b2").
		WithItem("DRY", "12", 100, "SF").
		WithItem("FCT", "TILE", 40, "SF").
		WithItem("PNT", "W2", 200, "SF").
		Build()
	bath3 := testhelpers.NewRoomBuilder("Bathroom 3").
		WithID("room-b3").
		WithItem("DRY", "12", 95, "SF").
		WithItem("FCT", "TILE", 42, "SF").
		WithItem("PNT", "W2", 210, "SF").
		Build()
	kitchen := testhelpers.NewRoomBuilder("Kitchen").
		WithID("room-k").
		WithItem("CAB", "LOW", 12, "LF").
		Build()

	d := New(DefaultSettings())
	result := d.SanitizeRooms([]estimate.RoomData{bath2, bath3, kitchen})

	if result.MergeCount != 1 {
		t.Fatalf("expected 1 merge, got %d", result.MergeCount)
	}
	if len(result.Rooms) != 2 {
		t.Fatalf("expected 2 rooms after merge, got %d", len(result.Rooms))
	}

	var names []string
	for _, r := range result.Rooms {
		names = append(names, r.Name)
	}
	if names[0] != "Bathroom 2" && names[1] != "Bathroom 2" {
		t.Errorf("expected Bathroom 2 to survive, got %v", names)
	}
	for _, n := range names {
		if n == "Bathroom 3" {
			t.Errorf("Bathroom 3 should have been absorbed, got %v", names)
		}
	}

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "1 ghost rooms merged") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected merge summary warning, got %v", result.Warnings)
	}
}

func TestSanitizeRooms_PrimarySelection_OrderIndependent(t *testing.T) {
	build := func() (estimate.RoomData, estimate.RoomData) {
		a := testhelpers.NewRoomBuilder("Bathroom 2").WithID("id-a").WithItem("DRY", "12", 100, "SF").Build()
		b := testhelpers.NewRoomBuilder("Bathroom 3").WithID("id-b").WithItem("DRY", "12", 100, "SF").Build()
		return a, b
	}

	d := New(DefaultSettings())

	a, b := build()
	forward := d.SanitizeRooms([]estimate.RoomData{a, b})
	a, b = build()
	backward := d.SanitizeRooms([]estimate.RoomData{b, a})

	if forward.Rooms[0].Name != "Bathroom 2" || backward.Rooms[0].Name != "Bathroom 2" {
		t.Errorf("lower ordinal should survive regardless of input order: forward %s, backward %s",
			forward.Rooms[0].Name, backward.Rooms[0].Name)
	}
	if forward.Merges[0].PrimaryRoomID != "id-a" || backward.Merges[0].PrimaryRoomID != "id-a" {
		t.Errorf("merge records should agree on the primary: forward %s, backward %s",
			forward.Merges[0].PrimaryRoomID, backward.Merges[0].PrimaryRoomID)
	}
}

func TestSanitizeRooms_ItemUnion_KeepsLargerQuantityAndResidentID(t *testing.T) {
	primary := testhelpers.NewRoomBuilder("Bathroom 2").
		WithID("room-p").
		WithItems(
			estimate.LineItem{ID: "p-dry", Category: "DRY", Selector: "12", Quantity: 100, Unit: "SF"},
			estimate.LineItem{ID: "p-tile", Category: "FCT", Selector: "TILE", Quantity: 40, Unit: "SF"},
		).
		Build()
	ghost := testhelpers.NewRoomBuilder("Bathroom 3").
		WithID("room-g").
		WithItems(
			estimate.LineItem{ID: "g-dry", Category: "DRY", Selector: "12", Quantity: 98, Unit: "SF"},
			estimate.LineItem{ID: "g-tile", Category: "FCT", Selector: "TILE", Quantity: 47, Unit: "SF"},
			estimate.LineItem{ID: "g-pnt", Category: "PNT", Selector: "W2", Quantity: 5, Unit: "SF"},
		).
		Build()

	d := New(DefaultSettings())
	result := d.SanitizeRooms([]estimate.RoomData{primary, ghost})

	if result.MergeCount != 1 {
		t.Fatalf("expected a merge, got %d", result.MergeCount)
	}

	merged := result.Rooms[0]
	byCode := make(map[string]estimate.LineItem)
	for _, item := range merged.Items {
		byCode[item.Code()] = item
	}

	if len(merged.Items) != 3 {
		t.Fatalf("expected union of 3 items, got %d", len(merged.Items))
	}

	dry := byCode["DRY 12"]
	if dry.Quantity != 100 || dry.ID != "p-dry" {
		t.Errorf("DRY 12: expected primary's larger quantity 100 and id p-dry, got %f %s", dry.Quantity, dry.ID)
	}

	tile := byCode["FCT TILE"]
	if tile.Quantity != 47 {
		t.Errorf("FCT TILE: expected ghost's larger quantity 47, got %f", tile.Quantity)
	}
	if tile.ID != "p-tile" {
		t.Errorf("FCT TILE: resident item id should survive the quantity update, got %s", tile.ID)
	}

	pnt := byCode["PNT W2"]
	if pnt.ID != "g-pnt" {
		t.Errorf("PNT W2: new item should keep its own id, got %s", pnt.ID)
	}
}

func TestSanitizeRooms_GeneralConditionsExcluded(t *testing.T) {
	gc1 := testhelpers.NewRoomBuilder("General Conditions").
		WithID("gc-1").
		WithItem("DMO", "DUMP", 1, "EA").
		Build()
	gc2 := testhelpers.NewRoomBuilder("General Conditions 2").
		WithID("gc-2").
		WithItem("DMO", "DUMP", 1, "EA").
		Build()

	d := New(DefaultSettings())
	result := d.SanitizeRooms([]estimate.RoomData{gc1, gc2})

	if result.MergeCount != 0 {
		t.Errorf("General Conditions rooms must never merge, got %d merges", result.MergeCount)
	}
	if len(result.Rooms) != 2 {
		t.Errorf("expected both rooms preserved, got %d", len(result.Rooms))
	}
}

func TestSanitizeRooms_GeneralConditionsFirstInOutput(t *testing.T) {
	kitchen := testhelpers.NewRoomBuilder("Kitchen").WithItem("CAB", "LOW", 10, "LF").Build()
	gc := testhelpers.NewRoomBuilder("General Conditions").WithItem("DMO", "DUMP", 1, "EA").Build()
	office := testhelpers.NewRoomBuilder("Office").WithItem("PNT", "W2", 100, "SF").Build()

	d := New(DefaultSettings())
	result := d.SanitizeRooms([]estimate.RoomData{kitchen, gc, office})

	if len(result.Rooms) != 3 {
		t.Fatalf("expected 3 rooms, got %d", len(result.Rooms))
	}
	if result.Rooms[0].Name != "General Conditions" {
		t.Errorf("General Conditions should be first, got %s", result.Rooms[0].Name)
	}
	if result.Rooms[1].Name != "Kitchen" || result.Rooms[2].Name != "Office" {
		t.Errorf("relative order of other rooms should be preserved, got %s then %s",
			result.Rooms[1].Name, result.Rooms[2].Name)
	}
}

func TestSanitizeRooms_DifferentBucketsNeverMerge(t *testing.T) {
	kitchen := testhelpers.NewRoomBuilder("Kitchen").WithItem("DRY", "12", 100, "SF").Build()
	office := testhelpers.NewRoomBuilder("Office").WithItem("DRY", "12", 100, "SF").Build()

	d := New(DefaultSettings())
	result := d.SanitizeRooms([]estimate.RoomData{kitchen, office})

	if result.MergeCount != 0 {
		t.Errorf("identical items in different room types must not merge, got %d merges", result.MergeCount)
	}
}

func TestSanitizeRooms_ReviewBandWarning(t *testing.T) {
	// intersection 2, union 3 -> 0.667: inside [0.60, 0.75)
	a := testhelpers.NewRoomBuilder("Bathroom 2").
		WithItem("DRY", "12", 100, "SF").
		WithItem("FCT", "TILE", 40, "SF").
		WithItem("PNT", "W2", 200, "SF").
		Build()
	b := testhelpers.NewRoomBuilder("Bathroom 3").
		WithItem("DRY", "12", 100, "SF").
		WithItem("FCT", "TILE", 40, "SF").
		Build()

	d := New(DefaultSettings())
	result := d.SanitizeRooms([]estimate.RoomData{a, b})

	if result.MergeCount != 0 {
		t.Fatalf("similarity below merge threshold should not merge, got %d", result.MergeCount)
	}

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "verify manually") && strings.Contains(w, "Bathroom 2") && strings.Contains(w, "Bathroom 3") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected review-band warning, got %v", result.Warnings)
	}
}

func TestSanitizeRooms_PlausibilityWarning(t *testing.T) {
	rooms := []estimate.RoomData{
		testhelpers.NewRoomBuilder("Bathroom 1").WithItem("DRY", "12", 10, "SF").Build(),
		testhelpers.NewRoomBuilder("Bathroom 2").WithItem("FCT", "TILE", 40, "SF").Build(),
		testhelpers.NewRoomBuilder("Bathroom 3").WithItem("PNT", "W2", 200, "SF").Build(),
		testhelpers.NewRoomBuilder("Bathroom 4").WithItem("CAB", "VAN", 5, "LF").Build(),
	}

	d := New(DefaultSettings())
	result := d.SanitizeRooms(rooms)

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "4 bathroom rooms") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected bathroom plausibility warning, got %v", result.Warnings)
	}
}

func TestSanitizeRooms_EmptyRoomAnnotated(t *testing.T) {
	empty := testhelpers.NewRoomBuilder("Sunroom").WithNarrative("Bright room off the kitchen.").Build()
	kitchen := testhelpers.NewRoomBuilder("Kitchen").WithItem("CAB", "LOW", 10, "LF").Build()

	d := New(DefaultSettings())
	result := d.SanitizeRooms([]estimate.RoomData{empty, kitchen})

	var sunroom *estimate.RoomData
	for i := range result.Rooms {
		if result.Rooms[i].Name == "Sunroom" {
			sunroom = &result.Rooms[i]
		}
	}
	if sunroom == nil {
		t.Fatal("empty room should still be present in output")
	}
	if !strings.HasPrefix(sunroom.NarrativeSynthesis, "Inspected, no damage items recorded. ") {
		t.Errorf("empty room narrative not annotated: %q", sunroom.NarrativeSynthesis)
	}
	if !strings.Contains(sunroom.NarrativeSynthesis, "Bright room off the kitchen.") {
		t.Errorf("original narrative should be preserved: %q", sunroom.NarrativeSynthesis)
	}

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "Rooms with no line items") && strings.Contains(w, "Sunroom") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected empty-room warning, got %v", result.Warnings)
	}
}

func TestSanitizeRooms_MergeChainTerminates(t *testing.T) {
	// Three near-identical bathrooms collapse into one across passes
	rooms := []estimate.RoomData{
		testhelpers.NewRoomBuilder("Bathroom 1").WithItem("DRY", "12", 100, "SF").WithItem("FCT", "TILE", 40, "SF").Build(),
		testhelpers.NewRoomBuilder("Bathroom 2").WithItem("DRY", "12", 99, "SF").WithItem("FCT", "TILE", 41, "SF").Build(),
		testhelpers.NewRoomBuilder("Bathroom 3").WithItem("DRY", "12", 98, "SF").WithItem("FCT", "TILE", 42, "SF").Build(),
	}

	d := New(DefaultSettings())
	result := d.SanitizeRooms(rooms)

	if result.MergeCount != 2 {
		t.Errorf("expected 2 merges, got %d", result.MergeCount)
	}
	if len(result.Rooms) != 1 {
		t.Errorf("expected a single surviving room, got %d", len(result.Rooms))
	}
	if result.Rooms[0].Name != "Bathroom 1" {
		t.Errorf("expected Bathroom 1 to survive, got %s", result.Rooms[0].Name)
	}
}

func TestSanitizeRooms_AllDuplicatePairsMergeInOneRun(t *testing.T) {
	// Six duplicate pairs across six buckets. Every pair must merge even
	// with the stock pass limit well below the pair count.
	names := []string{"Bathroom", "Kitchen", "Bedroom", "Garage", "Office", "Closet"}
	var rooms []estimate.RoomData
	for _, name := range names {
		rooms = append(rooms,
			testhelpers.NewRoomBuilder(name+" 1").WithItem("DRY", "12", 100, "SF").Build(),
			testhelpers.NewRoomBuilder(name+" 2").WithItem("DRY", "12", 100, "SF").Build(),
		)
	}

	d := New(DefaultSettings())
	result := d.SanitizeRooms(rooms)

	if result.MergeCount != 6 {
		t.Errorf("expected 6 merges, got %d", result.MergeCount)
	}
	if len(result.Rooms) != 6 {
		t.Errorf("expected 6 surviving rooms, got %d", len(result.Rooms))
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "6 ghost rooms merged") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected merge summary warning, got %v", result.Warnings)
	}
}

// passBoundRooms needs two passes to settle: Bathroom 2 and Bathroom 3 are
// exactly at the merge threshold and merge first, and only their combined
// signature lifts the
// similarity with Bathroom 1 up to the merge threshold.
func passBoundRooms() []estimate.RoomData {
	shared := func(b *testhelpers.RoomBuilder, n int) *testhelpers.RoomBuilder {
		codes := [][2]string{
			{"DRY", "12"}, {"FCT", "TILE"}, {"PNT", "WALL"},
			{"FCC", "CPT"}, {"WTR", "GRD"}, {"CLN", "FIN"},
		}
		for _, c := range codes[:n] {
			b = b.WithItem(c[0], c[1], 20, "SF")
		}
		return b
	}
	return []estimate.RoomData{
		shared(testhelpers.NewRoomBuilder("Bathroom 1"), 4).
			WithItem("DMO", "DUMP", 20, "EA").
			WithItem("HMR", "DEHU", 20, "EA").
			Build(),
		shared(testhelpers.NewRoomBuilder("Bathroom 2"), 6).
			WithItem("DMO", "DUMP", 20, "EA").
			Build(),
		shared(testhelpers.NewRoomBuilder("Bathroom 3"), 6).
			WithItem("HMR", "DEHU", 20, "EA").
			Build(),
	}
}

func TestSanitizeRooms_SecondPassCatchesWidenedSignature(t *testing.T) {
	d := New(DefaultSettings())
	result := d.SanitizeRooms(passBoundRooms())

	if result.MergeCount != 2 {
		t.Errorf("expected 2 merges across two passes, got %d", result.MergeCount)
	}
	if len(result.Rooms) != 1 {
		t.Fatalf("expected a single surviving room, got %d", len(result.Rooms))
	}
	if result.Rooms[0].Name != "Bathroom 1" {
		t.Errorf("expected Bathroom 1 to survive, got %s", result.Rooms[0].Name)
	}
	if len(result.Rooms[0].Items) != 8 {
		t.Errorf("expected 8 distinct items after both merges, got %d", len(result.Rooms[0].Items))
	}
}

func TestSanitizeRooms_PassBoundRespected(t *testing.T) {
	d := New(Settings{MergeThreshold: 0.75, ReviewThreshold: 0.60, MaxPasses: 1})
	result := d.SanitizeRooms(passBoundRooms())

	if result.MergeCount != 1 {
		t.Errorf("with one pass only the first merge should fire, got %d", result.MergeCount)
	}
	if len(result.Rooms) != 2 {
		t.Errorf("expected 2 rooms after a single pass, got %d", len(result.Rooms))
	}
}

func TestSanitizeRooms_NarrativeMerge(t *testing.T) {
	a := testhelpers.NewRoomBuilder("Bathroom 2").
		WithNarrative("Water damage on the floor.").
		WithTimestamps("", "03:00").
		WithIssues("standing water").
		WithItem("DRY", "12", 100, "SF").
		Build()
	b := testhelpers.NewRoomBuilder("Bathroom 3").
		WithNarrative("Tile is lifting near the tub.").
		WithTimestamps("01:30", "02:10").
		WithIssues("standing water", "loose tile").
		WithItem("DRY", "12", 100, "SF").
		Build()

	d := New(DefaultSettings())
	result := d.SanitizeRooms([]estimate.RoomData{a, b})

	if result.MergeCount != 1 {
		t.Fatalf("expected a merge, got %d", result.MergeCount)
	}
	merged := result.Rooms[0]

	if merged.NarrativeSynthesis != "Water damage on the floor. Tile is lifting near the tub." {
		t.Errorf("unexpected merged narrative: %q", merged.NarrativeSynthesis)
	}
	if merged.TimestampIn != "01:30" {
		t.Errorf("empty timestamp should be filled from the ghost, got %q", merged.TimestampIn)
	}
	if merged.TimestampOut != "03:00" {
		t.Errorf("primary timestamp should be kept, got %q", merged.TimestampOut)
	}
	if len(merged.FlaggedIssues) != 2 {
		t.Errorf("issues should union without duplicates, got %v", merged.FlaggedIssues)
	}
}

func TestSanitizeRooms_NarrativeCap(t *testing.T) {
	long := strings.Repeat("x", 200)
	a := testhelpers.NewRoomBuilder("Bathroom 2").WithNarrative(long).WithItem("DRY", "12", 100, "SF").Build()
	b := testhelpers.NewRoomBuilder("Bathroom 3").WithNarrative(long+"y").WithItem("DRY", "12", 100, "SF").Build()

	d := New(DefaultSettings())
	result := d.SanitizeRooms([]estimate.RoomData{a, b})

	if len(result.Rooms[0].NarrativeSynthesis) > 250 {
		t.Errorf("merged narrative should be capped at 250 chars, got %d", len(result.Rooms[0].NarrativeSynthesis))
	}
}

func TestSanitizeRooms_NoInputMutation(t *testing.T) {
	rooms := []estimate.RoomData{
		testhelpers.NewRoomBuilder("Bathroom 2").WithItem("DRY", "12", 100, "SF").Build(),
		testhelpers.NewRoomBuilder("Bathroom 3").WithItem("DRY", "12", 100, "SF").Build(),
	}

	d := New(DefaultSettings())
	d.SanitizeRooms(rooms)

	if len(rooms) != 2 || rooms[0].Name != "Bathroom 2" || rooms[1].Name != "Bathroom 3" {
		t.Error("input slice should not be mutated")
	}
	if len(rooms[1].Items) != 1 {
		t.Error("input items should not be mutated")
	}
}

func TestSanitizeRooms_EmptyInput(t *testing.T) {
	d := New(DefaultSettings())
	result := d.SanitizeRooms(nil)

	if len(result.Rooms) != 0 || result.MergeCount != 0 || len(result.Warnings) != 0 {
		t.Errorf("empty input should produce an empty result, got %+v", result)
	}
}
