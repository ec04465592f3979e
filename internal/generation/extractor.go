// Package generation calls the external model that turns a walkthrough
// transcript into a candidate room scope. This is the upstream collaborator
// of the post-processing pipeline: its output is untrusted and always fed
// through sanitization before use.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/scopeline/scopeline/internal/estimate"
	"github.com/scopeline/scopeline/internal/pacing"
)

// Config holds the generation API configuration
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ScopeExtractor extracts a room scope from free-form walkthrough text
type ScopeExtractor struct {
	httpClient *http.Client
	scheduler  *pacing.Scheduler
	ids        estimate.IDGenerator
	cfg        Config
}

// NewScopeExtractor creates a scope extractor. The scheduler paces outbound
// API calls and is shared with any other component talking to the same API.
func NewScopeExtractor(cfg Config, scheduler *pacing.Scheduler, ids estimate.IDGenerator) *ScopeExtractor {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &ScopeExtractor{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		scheduler:  scheduler,
		ids:        ids,
		cfg:        cfg,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// rawRoom and rawItem mirror the JSON shape the model is asked to return.
// Ids are assigned locally, never trusted from the model.
type rawRoom struct {
	Name               string    `json:"name"`
	TimestampIn        string    `json:"timestamp_in"`
	TimestampOut       string    `json:"timestamp_out"`
	NarrativeSynthesis string    `json:"narrative_synthesis"`
	FlaggedIssues      []string  `json:"flagged_issues"`
	Items              []rawItem `json:"items"`
}

type rawItem struct {
	Category   string  `json:"category"`
	Selector   string  `json:"selector"`
	Activity   string  `json:"activity"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
	Confidence string  `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

const extractionPrompt = `You are scoping property damage for a repair estimate. From the walkthrough transcript below, list every damaged room. Return ONLY valid JSON: an array of rooms, each with:
- name: the room label (e.g. "Bathroom 2")
- timestamp_in / timestamp_out: video offsets like "01:23" if identifiable, else null
- narrative_synthesis: one or two sentences describing the observed damage
- flagged_issues: array of short issue tags (e.g. "standing water", "possible mold")
- items: array of repair line items, each with category (3-letter estimating category code), selector (short uppercase code), activity (REMOVE, REPLACE or DETACH_RESET), quantity (number), unit (SF, LF, EA, HR or MO), confidence (HIGH, MEDIUM or LOW), reasoning (one sentence)

Transcript:
%s`

// Extract calls the generation API and returns the candidate scope. Total:
// any failure yields an empty scope plus a warning, never an error. The
// caller must still run the result through the post-processing pipeline.
func (e *ScopeExtractor) Extract(ctx context.Context, transcript string) ([]estimate.RoomData, []string) {
	if e.cfg.APIKey == "" {
		return nil, []string{"Generation API key not configured; produced an empty scope"}
	}

	if err := e.scheduler.Wait(ctx); err != nil {
		return nil, []string{fmt.Sprintf("Generation call cancelled while waiting for a slot: %v", err)}
	}

	reqBody := chatRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(extractionPrompt, truncate(transcript, 12000))},
		},
		MaxTokens:   4000,
		Temperature: 0.1,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		log.Printf("Failed to marshal generation request: %v", err)
		return nil, []string{"Generation request could not be built; produced an empty scope"}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.cfg.BaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		log.Printf("Failed to create generation request: %v", err)
		return nil, []string{"Generation request could not be built; produced an empty scope"}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		log.Printf("Generation API request failed: %v", err)
		return nil, []string{"Generation API unreachable; produced an empty scope"}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("Failed to read generation response: %v", err)
		return nil, []string{"Generation response unreadable; produced an empty scope"}
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		log.Printf("Failed to parse generation response: %v", err)
		return nil, []string{"Generation response unparseable; produced an empty scope"}
	}
	if chat.Error != nil {
		log.Printf("Generation API error: %s", chat.Error.Message)
		return nil, []string{fmt.Sprintf("Generation API error: %s", chat.Error.Message)}
	}
	if len(chat.Choices) == 0 {
		return nil, []string{"Generation API returned no choices; produced an empty scope"}
	}

	rooms, warnings := e.ParseScope(chat.Choices[0].Message.Content)
	return rooms, warnings
}

// ParseScope parses the model's JSON content into rooms, assigning fresh
// local ids. Exposed separately so the parsing path is testable without a
// network call.
func (e *ScopeExtractor) ParseScope(content string) ([]estimate.RoomData, []string) {
	content = stripCodeFence(content)

	var raws []rawRoom
	if err := json.Unmarshal([]byte(content), &raws); err != nil {
		log.Printf("Failed to parse scope JSON: %v", err)
		return nil, []string{"Model returned malformed scope JSON; produced an empty scope"}
	}

	rooms := make([]estimate.RoomData, 0, len(raws))
	for _, r := range raws {
		room := estimate.RoomData{
			ID:                 e.ids.NewID(),
			Name:               strings.TrimSpace(r.Name),
			TimestampIn:        r.TimestampIn,
			TimestampOut:       r.TimestampOut,
			NarrativeSynthesis: r.NarrativeSynthesis,
			FlaggedIssues:      r.FlaggedIssues,
		}
		if room.Name == "" {
			room.Name = "Unlabeled Room"
		}
		for _, it := range r.Items {
			room.Items = append(room.Items, estimate.LineItem{
				ID:         e.ids.NewID(),
				Category:   it.Category,
				Selector:   it.Selector,
				Activity:   normalizeActivity(it.Activity),
				Quantity:   it.Quantity,
				Unit:       it.Unit,
				Confidence: normalizeConfidence(it.Confidence),
				Reasoning:  it.Reasoning,
			})
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// normalizeActivity maps free-form activity text onto the closed enumeration
func normalizeActivity(activity string) estimate.Activity {
	switch strings.ToUpper(strings.TrimSpace(activity)) {
	case "REMOVE", "REMOVAL", "DEMO":
		return estimate.ActivityRemove
	case "DETACH_RESET", "DETACH AND RESET", "D&R":
		return estimate.ActivityDetachReset
	default:
		return estimate.ActivityReplace
	}
}

// normalizeConfidence maps free-form confidence text onto the closed set,
// defaulting unrecognized values down to LOW
func normalizeConfidence(confidence string) estimate.Confidence {
	switch strings.ToUpper(strings.TrimSpace(confidence)) {
	case "HIGH":
		return estimate.ConfidenceHigh
	case "MEDIUM", "MED":
		return estimate.ConfidenceMedium
	default:
		return estimate.ConfidenceLow
	}
}

// stripCodeFence removes a surrounding markdown code block if present
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// truncate limits a transcript to maxLen characters
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
