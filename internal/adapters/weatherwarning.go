// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package adapters

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"disasterfeed/internal/logging"
	"disasterfeed/internal/models"
)

// weatherWarningFeedURL is the KMA-style CSV-over-HTTP warning table.
const weatherWarningFeedURL = "https://kma.example.kr/warning/table.csv"

// weatherWarningTTL is how long a seen warning id is remembered before
// it may be re-emitted.
const weatherWarningTTL = 7 * 24 * time.Hour

// csv columns: region, warnCode, level, title, issuedAt.
const (
	colRegion   = 0
	colWarnCode = 1
	colLevel    = 2
	colTitle    = 3
	colIssuedAt = 4
)

var weatherWarningLevels = map[string]models.Level{
	"advisory": models.LevelMinor,
	"warning":  models.LevelSevere,
}

// WeatherWarningAdapter polls a CSV feed of active weather warnings, keyed
// by KMA_API_KEY, deduplicating via a seen-set with TTL (dedup pattern 3).
type WeatherWarningAdapter struct {
	client *resilientClient
	apiKey string
}

// NewWeatherWarningAdapter builds the adapter registered as
// models.SourceWeatherWarning.
func NewWeatherWarningAdapter(cfg Config) *WeatherWarningAdapter {
	return &WeatherWarningAdapter{
		client: newResilientClient("weatherwarning", cfg.HTTPTimeout),
		apiKey: cfg.KMAAPIKey,
	}
}

func (a *WeatherWarningAdapter) SourceID() models.Source { return models.SourceWeatherWarning }
func (a *WeatherWarningAdapter) PollIntervalSec() int    { return 300 }

func (a *WeatherWarningAdapter) Run(ctx context.Context, priorState *string) ([]models.PartialEvent, *string) {
	url := weatherWarningFeedURL
	if a.apiKey != "" {
		url = fmt.Sprintf("%s?authKey=%s", url, a.apiKey)
	}

	body, _, err := a.client.get(ctx, url)
	if err != nil {
		logging.Warn().Err(err).Msg("weatherwarning: fetch failed")
		return nil, priorState
	}

	rows, err := parseWarningCSV(decodeIfEUCKR(body))
	if err != nil {
		logging.Warn().Err(err).Msg("weatherwarning: malformed CSV body")
		return nil, priorState
	}

	now := time.Now().UTC()
	state := decodeSeenSet(priorState)
	state.prune(now, weatherWarningTTL)

	var events []models.PartialEvent
	for _, row := range rows {
		id := fmt.Sprintf("%s:%s:%s", row[colRegion], row[colWarnCode], row[colIssuedAt])
		if _, seen := state.Seen[id]; seen {
			continue
		}
		events = append(events, weatherWarningEvent(row))
		state.Seen[id] = now
	}

	return events, state.encode()
}

// parseWarningCSV parses the feed body, trimming the trailing "=" padding
// the upstream occasionally appends to a cell's value (see DESIGN.md open
// question).
func parseWarningCSV(body []byte) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}

	var rows [][]string
	for i, record := range records {
		if i == 0 && looksLikeHeader(record) {
			continue
		}
		for j, cell := range record {
			record[j] = strings.TrimSuffix(strings.TrimSpace(cell), "=")
		}
		if len(record) <= colIssuedAt {
			continue
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func looksLikeHeader(record []string) bool {
	return len(record) > colRegion && strings.EqualFold(record[colRegion], "region")
}

func weatherWarningEvent(row []string) models.PartialEvent {
	level, ok := weatherWarningLevels[strings.ToLower(row[colLevel])]
	if !ok {
		level = models.LevelModerate
	}
	kind := models.KindWeatherWarning
	if level == models.LevelMinor {
		kind = models.KindWeatherAdvisory
	}

	region := row[colRegion]
	occurredAt := parseKSTTimestamp(row[colIssuedAt], "2006-01-02T15:04:05")
	body := normalizeText(row[colTitle])

	return models.PartialEvent{
		Kind:       kind,
		Title:      body,
		Body:       &body,
		OccurredAt: occurredAt,
		RegionText: &region,
		Level:      level,
		Payload: map[string]any{
			"warnCode": row[colWarnCode],
		},
	}
}
