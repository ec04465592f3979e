package api

import "github.com/scopeline/scopeline/internal/estimate"

// RoomsFromPayload converts submitted room payloads into pipeline rooms,
// assigning fresh ids from the injected generator
func RoomsFromPayload(payloads []RoomPayload, ids estimate.IDGenerator) []estimate.RoomData {
	rooms := make([]estimate.RoomData, 0, len(payloads))
	for _, p := range payloads {
		room := estimate.RoomData{
			ID:                 ids.NewID(),
			Name:               p.Name,
			TimestampIn:        p.TimestampIn,
			TimestampOut:       p.TimestampOut,
			NarrativeSynthesis: p.NarrativeSynthesis,
			FlaggedIssues:      p.FlaggedIssues,
		}
		for _, it := range p.Items {
			activity := estimate.Activity(it.Activity)
			if activity == "" {
				activity = estimate.ActivityReplace
			}
			confidence := estimate.Confidence(it.Confidence)
			if confidence == "" {
				confidence = estimate.ConfidenceMedium
			}
			room.Items = append(room.Items, estimate.LineItem{
				ID:         ids.NewID(),
				Category:   it.Category,
				Selector:   it.Selector,
				Activity:   activity,
				Quantity:   it.Quantity,
				Unit:       it.Unit,
				Confidence: confidence,
				Reasoning:  it.Reasoning,
			})
		}
		rooms = append(rooms, room)
	}
	return rooms
}
