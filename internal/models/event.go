// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models holds the data types shared across DisasterFeed's
// ingestion, storage, and API layers.
package models

import (
	"time"
)

// Level is the 1..5 severity enum assigned to every event.
type Level int

const (
	LevelInfo     Level = 1
	LevelMinor    Level = 2
	LevelModerate Level = 3
	LevelSevere   Level = 4
	LevelCritical Level = 5
)

// Valid reports whether l is one of the five defined severity levels.
func (l Level) Valid() bool {
	return l >= LevelInfo && l <= LevelCritical
}

// Source tags which registered adapter produced an event.
type Source int

const (
	SourceUnknown Source = iota
	SourceTextMsg
	SourceQuakeBulletin
	SourceWeatherWarning
	SourcePEWS
	SourceForestFire
)

var sourceNames = map[Source]string{
	SourceUnknown:        "unknown",
	SourceTextMsg:        "textmsg",
	SourceQuakeBulletin:  "quakebulletin",
	SourceWeatherWarning: "weatherwarning",
	SourcePEWS:           "pews",
	SourceForestFire:     "forestfire",
}

func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return "unknown"
}

// Kind categorizes the real-world event. Adapters map source-native codes
// into this set and fall back to KindUnknown for anything unrecognized.
type Kind int

const (
	KindUnknown Kind = iota
	KindEarthquakePhase2
	KindEarthquakePhase3
	KindEarthquakeInfoOnly
	KindWeatherWarning
	KindWeatherAdvisory
	KindForestFireReported
	KindForestFireContained
	KindForestFireExtinguished
	KindFlood
	KindHeavyRain
	KindHeavySnow
	KindHighWind
	KindWave
	KindColdWave
	KindHeatWave
	KindDrought
	KindLandslide
	KindTyphoon
	KindTsunami
	KindTsunamiWatchLifted
	KindAirQuality
	KindWildfireSmoke
	KindInfrastructureOutage
	KindRoadClosure
	KindPublicTransitDisruption
	KindChemicalSpill
	KindRadiation
	KindEpidemicNotice
	KindCivilEmergency
	KindAmberAlertEquivalent
	KindVolcanicActivity
	KindMarineWeather
	KindCoastalErosion
	KindDamDischarge
	KindWaterQuality
)

// Event is the immutable, append-only record written by the Event Log.
// Pointer fields are nullable and marshal to JSON null when unset, so the
// DTO a client receives is the event record verbatim.
type Event struct {
	ID         string          `json:"id"`
	Source     Source          `json:"source"`
	Kind       Kind            `json:"kind"`
	Title      string          `json:"title"`
	Body       *string         `json:"body"`
	FetchedAt  time.Time       `json:"fetched_at"`
	OccurredAt *time.Time      `json:"occurred_at"`
	RegionText *string         `json:"region_text"`
	Level      Level           `json:"level"`
	Payload    map[string]any  `json:"payload"`
}

// PartialEvent is what a SourceAdapter's Run returns: an event with id,
// source, and fetched_at not yet assigned. The Ingest Worker passes source
// and fetched_at to the Event Writer, which mints the id.
type PartialEvent struct {
	Kind       Kind
	Title      string
	Body       *string
	OccurredAt *time.Time
	RegionText *string
	Level      Level
	Payload    map[string]any
}
