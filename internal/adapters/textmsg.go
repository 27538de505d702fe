// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package adapters

import (
	"context"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"disasterfeed/internal/logging"
	"disasterfeed/internal/models"
)

// textMsgFeedURL is the upstream safety-broadcast text-message feed.
const textMsgFeedURL = "https://api.safetymsg.example.kr/v1/messages"

// textMsgItem is one element of the upstream feed's JSON array.
type textMsgItem struct {
	Serial int64  `json:"serial"`
	Body   string `json:"body"`
	SentAt string `json:"sentAt"`
}

// TextMsgAdapter polls a JSON feed of safety broadcast messages, ordered
// by a monotonically increasing serial number (dedup pattern 1).
type TextMsgAdapter struct {
	client *resilientClient
}

// NewTextMsgAdapter builds the adapter registered as models.SourceTextMsg.
func NewTextMsgAdapter(cfg Config) *TextMsgAdapter {
	return &TextMsgAdapter{client: newResilientClient("textmsg", cfg.HTTPTimeout)}
}

func (a *TextMsgAdapter) SourceID() models.Source { return models.SourceTextMsg }
func (a *TextMsgAdapter) PollIntervalSec() int    { return 60 }

// Run fetches the feed and emits items whose serial exceeds the
// last-seen watermark stored in priorState.
func (a *TextMsgAdapter) Run(ctx context.Context, priorState *string) ([]models.PartialEvent, *string) {
	maxSerial := int64(0)
	if priorState != nil {
		if v, err := strconv.ParseInt(*priorState, 10, 64); err == nil {
			maxSerial = v
		}
	}

	body, _, err := a.client.get(ctx, textMsgFeedURL)
	if err != nil {
		logging.Warn().Err(err).Msg("textmsg: fetch failed")
		return nil, priorState
	}

	var items []textMsgItem
	if err := json.Unmarshal(body, &items); err != nil {
		logging.Warn().Err(err).Msg("textmsg: malformed feed body")
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

func (a *TextMsgAdapter) toEvent(item textMsgItem) models.PartialEvent {
	normalized := normalizeText(item.Body)
	title := normalized
	raw := strings.TrimSpace(item.Body)
	if idx := strings.IndexByte(raw, '\n'); idx >= 0 {
		title = normalizeText(raw[:idx])
	}
	if len(title) > 200 {
		title = title[:200]
	}

	occurredAt := parseKSTTimestamp(item.SentAt, "2006-01-02T15:04:05")

	return models.PartialEvent{
		Kind:       models.KindCivilEmergency,
		Title:      title,
		Body:       &normalized,
		OccurredAt: occurredAt,
		Level:      textMsgLevel(normalized),
		Payload: map[string]any{
			"serial": item.Serial,
		},
	}
}
