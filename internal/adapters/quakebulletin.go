// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package adapters

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"disasterfeed/internal/logging"
	"disasterfeed/internal/models"
)

// quakeBulletinPageURL is the upstream HTML dashboard carrying the single
// latest seismic bulletin block.
const quakeBulletinPageURL = "https://quake.example.kr/bulletin"

// quakeBulletinPattern matches the fixed-format bulletin block:
// "<datetime> <title> (규모:<mag> / 깊이:<depth>km)".
var quakeBulletinPattern = regexp.MustCompile(
	`^(\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2})\s+(.+?)\s*\(규모:([0-9.]+)\s*/\s*깊이:([0-9.]+)km\)$`)

// QuakeBulletinAdapter polls an HTML dashboard page and emits an event
// only when the normalized bulletin block text differs from the last run
// (dedup pattern 2: content hash of last snapshot).
type QuakeBulletinAdapter struct {
	client *resilientClient
}

// NewQuakeBulletinAdapter builds the adapter registered as
// models.SourceQuakeBulletin.
func NewQuakeBulletinAdapter(cfg Config) *QuakeBulletinAdapter {
	return &QuakeBulletinAdapter{client: newResilientClient("quakebulletin", cfg.HTTPTimeout)}
}

func (a *QuakeBulletinAdapter) SourceID() models.Source { return models.SourceQuakeBulletin }
func (a *QuakeBulletinAdapter) PollIntervalSec() int    { return 120 }

func (a *QuakeBulletinAdapter) Run(ctx context.Context, priorState *string) ([]models.PartialEvent, *string) {
	body, _, err := a.client.get(ctx, quakeBulletinPageURL)
	if err != nil {
		logging.Warn().Err(err).Msg("quakebulletin: fetch failed")
		return nil, priorState
	}

	blockText, ok := extractBulletinBlock(decodeIfEUCKR(body))
	if !ok {
		logging.Warn().Msg("quakebulletin: no bulletin block found in page")
		return nil, priorState
	}

	normalized := normalizeText(decodeHTMLEntities(blockText))
	if priorState != nil && *priorState == normalized {
		return nil, priorState
	}

	ev, ok := parseBulletin(normalized)
	if !ok {
		logging.Warn().Str("block", normalized).Msg("quakebulletin: block did not match fixed format")
		return nil, &normalized
	}

	return []models.PartialEvent{ev}, &normalized
}

// extractBulletinBlock finds the first <p> element's text content using a
// streaming tokenizer rather than regex over raw HTML.
func extractBulletinBlock(doc []byte) (string, bool) {
	tokenizer := html.NewTokenizer(strings.NewReader(string(doc)))
	inP := false
	var text strings.Builder

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken:
			if tokenizer.Token().Data == "p" {
				inP = true
			}
		case html.EndTagToken:
			if tokenizer.Token().Data == "p" && inP {
				return text.String(), text.Len() > 0
			}
		case html.TextToken:
			if inP {
				text.WriteString(tokenizer.Token().Data)
			}
		}
	}
}

func parseBulletin(normalized string) (models.PartialEvent, bool) {
	m := quakeBulletinPattern.FindStringSubmatch(normalized)
	if m == nil {
		return models.PartialEvent{}, false
	}

	occurredAt := parseKSTTimestamp(m[1], "2006/01/02 15:04:05")
	mag, _ := strconv.ParseFloat(m[3], 64)
	depth, _ := strconv.ParseFloat(m[4], 64)

	return models.PartialEvent{
		Kind:       models.KindEarthquakeInfoOnly,
		Title:      m[2],
		OccurredAt: occurredAt,
		Level:      models.LevelMinor,
		Payload: map[string]any{
			"magnitude": mag,
			"depthKm":   depth,
		},
	}, true
}
