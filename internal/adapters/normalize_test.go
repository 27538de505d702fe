// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package adapters

import (
	"testing"

	"disasterfeed/internal/models"
)

func TestNormalizeTextCollapsesWhitespace(t *testing.T) {
	t.Parallel()
	got := normalizeText("  2025/12/25  05:14:43   지진 발생  ")
	want := "2025/12/25 05:14:43 지진 발생"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDecodePercentEncodingFallsBackOnInvalid(t *testing.T) {
	t.Parallel()
	got := decodePercentEncoding("%zz")
	if got != "%zz" {
		t.Fatalf("expected fallback to input, got %q", got)
	}
}

func TestTextMsgLevelKeywords(t *testing.T) {
	t.Parallel()
	cases := map[string]models.Level{
		"위급재난 발생":   models.LevelCritical,
		"긴급재난 상황":   models.LevelSevere,
		"안전안내 문자입니다": models.LevelInfo,
		"일반 공지":     models.LevelModerate,
	}
	for body, want := range cases {
		if got := textMsgLevel(body); got != want {
			t.Errorf("textMsgLevel(%q) = %v, want %v", body, got, want)
		}
	}
}

func TestForestFireLevelUnknownDoesNotBoost(t *testing.T) {
	t.Parallel()
	level, kind := forestFireLevel("mop-up")
	if level != models.LevelInfo || kind != models.KindUnknown {
		t.Fatalf("unexpected mapping for unknown code: %v/%v", level, kind)
	}
}

func TestParseKSTTimestampMalformedReturnsNil(t *testing.T) {
	t.Parallel()
	if got := parseKSTTimestamp("not-a-time", "2006-01-02T15:04:05"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestParseKSTTimestampConvertsToUTC(t *testing.T) {
	t.Parallel()
	got := parseKSTTimestamp("2025/12/25 05:14:43", "2006/01/02 15:04:05")
	if got == nil {
		t.Fatal("expected non-nil result")
	}
	if got.UTC().Hour() != 20 || got.UTC().Day() != 24 {
		t.Fatalf("expected 2025-12-24T20:14:43Z, got %v", got.UTC())
	}
}
