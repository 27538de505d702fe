// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package adapters

import (
	"context"
	"strconv"

	"github.com/goccy/go-json"

	"disasterfeed/internal/logging"
	"disasterfeed/internal/models"
)

// forestFireFeedURL is the upstream forest-fire situation feed.
const forestFireFeedURL = "https://forestfire.example.kr/v1/incidents"

type forestFireItem struct {
	Serial       int64  `json:"serial"`
	Region       string `json:"region"`
	ProgressCode string `json:"progressCode"`
	ReportedAt   string `json:"reportedAt"`
}

// ForestFireAdapter polls a JSON feed of forest-fire incidents keyed by a
// monotonically increasing serial (dedup pattern 1).
type ForestFireAdapter struct {
	client *resilientClient
}

// NewForestFireAdapter builds the adapter registered as
// models.SourceForestFire.
func NewForestFireAdapter(cfg Config) *ForestFireAdapter {
	return &ForestFireAdapter{client: newResilientClient("forestfire", cfg.HTTPTimeout)}
}

func (a *ForestFireAdapter) SourceID() models.Source { return models.SourceForestFire }
func (a *ForestFireAdapter) PollIntervalSec() int    { return 180 }

func (a *ForestFireAdapter) Run(ctx context.Context, priorState *string) ([]models.PartialEvent, *string) {
	maxSerial := int64(0)
	if priorState != nil {
		if v, err := strconv.ParseInt(*priorState, 10, 64); err == nil {
			maxSerial = v
		}
	}

	body, _, err := a.client.get(ctx, forestFireFeedURL)
	if err != nil {
		logging.Warn().Err(err).Msg("forestfire: fetch failed")
		return nil, priorState
	}

	var items []forestFireItem
	if err := json.Unmarshal(body, &items); err != nil {
		logging.Warn().Err(err).Msg("forestfire: malformed feed body")
		return nil, priorState
	}

	var events []models.PartialEvent
	newMax := maxSerial
	for _, item := range items {
		if item.Serial <= maxSerial {
			continue
		}
		events = append(events, a.toEvent(item))
		if item.Serial > newMax {
			newMax = item.Serial
		}
	}

	if newMax == maxSerial {
		return events, priorState
	}
	next := strconv.FormatInt(newMax, 10)
	return events, &next
}

func (a *ForestFireAdapter) toEvent(item forestFireItem) models.PartialEvent {
	level, kind := forestFireLevel(item.ProgressCode)
	region := item.Region
	occurredAt := parseKSTTimestamp(item.ReportedAt, "2006-01-02T15:04:05")
	title := normalizeText(region + " 산불 " + item.ProgressCode)

	return models.PartialEvent{
		Kind:       kind,
		Title:      title,
		OccurredAt: occurredAt,
		RegionText: &region,
		Level:      level,
		Payload: map[string]any{
			"serial":       item.Serial,
			"progressCode": item.ProgressCode,
		},
	}
}
