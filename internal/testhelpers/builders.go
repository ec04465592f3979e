package testhelpers

import (
	"fmt"

	"github.com/scopeline/scopeline/internal/estimate"
)

// ItemBuilder builds LineItem instances for testing
type ItemBuilder struct {
	item estimate.LineItem
}

// NewItemBuilder creates an item builder with sensible defaults
func NewItemBuilder() *ItemBuilder {
	return &ItemBuilder{
		item: estimate.LineItem{
			ID:         "item-test",
			Category:   "DRY",
			Selector:   "12",
			Activity:   estimate.ActivityReplace,
			Quantity:   100,
			Unit:       "SF",
			Confidence: estimate.ConfidenceHigh,
		},
	}
}

// WithID sets the item id
func (b *ItemBuilder) WithID(id string) *ItemBuilder {
	b.item.ID = id
	return b
}

// WithCode sets category and selector
func (b *ItemBuilder) WithCode(category, selector string) *ItemBuilder {
	b.item.Category = category
	b.item.Selector = selector
	return b
}

// WithActivity sets the activity
func (b *ItemBuilder) WithActivity(activity estimate.Activity) *ItemBuilder {
	b.item.Activity = activity
	return b
}

// WithQuantity sets the quantity
func (b *ItemBuilder) WithQuantity(quantity float64) *ItemBuilder {
	b.item.Quantity = quantity
	return b
}

// WithUnit sets the unit
func (b *ItemBuilder) WithUnit(unit string) *ItemBuilder {
	b.item.Unit = unit
	return b
}

// WithConfidence sets the confidence
func (b *ItemBuilder) WithConfidence(confidence estimate.Confidence) *ItemBuilder {
	b.item.Confidence = confidence
	return b
}

// WithReasoning sets the reasoning text
func (b *ItemBuilder) WithReasoning(reasoning string) *ItemBuilder {
	b.item.Reasoning = reasoning
	return b
}

// Build returns the constructed item
func (b *ItemBuilder) Build() estimate.LineItem {
	return b.item
}

// RoomBuilder builds RoomData instances for testing
type RoomBuilder struct {
	room estimate.RoomData
	seq  int
}

// NewRoomBuilder creates a room builder with sensible defaults
func NewRoomBuilder(name string) *RoomBuilder {
	return &RoomBuilder{
		room: estimate.RoomData{
			ID:   "room-" + name,
			Name: name,
		},
	}
}

// WithID sets the room id
func (b *RoomBuilder) WithID(id string) *RoomBuilder {
	b.room.ID = id
	return b
}

// WithTimestamps sets the video offsets
func (b *RoomBuilder) WithTimestamps(in, out string) *RoomBuilder {
	b.room.TimestampIn = in
	b.room.TimestampOut = out
	return b
}

// WithNarrative sets the narrative synthesis
func (b *RoomBuilder) WithNarrative(narrative string) *RoomBuilder {
	b.room.NarrativeSynthesis = narrative
	return b
}

// WithIssues sets the flagged issues
func (b *RoomBuilder) WithIssues(issues ...string) *RoomBuilder {
	b.room.FlaggedIssues = issues
	return b
}

// WithItems appends prebuilt items
func (b *RoomBuilder) WithItems(items ...estimate.LineItem) *RoomBuilder {
	b.room.Items = append(b.room.Items, items...)
	return b
}

// WithItem appends one item built from the common fields, assigning a
// sequential id scoped to the room
func (b *RoomBuilder) WithItem(category, selector string, quantity float64, unit string) *RoomBuilder {
	b.seq++
	b.room.Items = append(b.room.Items, estimate.LineItem{
		ID:         fmt.Sprintf("%s-item-%d", b.room.ID, b.seq),
		Category:   category,
		Selector:   selector,
		Activity:   estimate.ActivityReplace,
		Quantity:   quantity,
		Unit:       unit,
		Confidence: estimate.ConfidenceHigh,
	})
	return b
}

// Build returns the constructed room
func (b *RoomBuilder) Build() estimate.RoomData {
	return b.room
}
