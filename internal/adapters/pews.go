// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"disasterfeed/internal/logging"
	"disasterfeed/internal/models"
)

const (
	pewsBaseURL    = "https://pews.example.kr/stream"
	pewsSimBaseURL = "https://pews.example.kr/sim/stream"

	pewsHeaderLenNormal = 4
	pewsHeaderLenSim    = 1
	pewsTextBlockLen    = 60
	pewsBitBlockLen     = 15 // 120 bits
)

// pewsRegionNames is the fixed 17-element list the affected-regions
// bitmask indexes into, one bit per region.
var pewsRegionNames = [17]string{
	"서울", "인천", "경기", "강원", "충북", "충남", "대전", "세종",
	"전북", "전남", "광주", "경북", "경남", "대구", "부산", "울산", "제주",
}

// pewsCheckpointState is the adapter's durable dedup key: it suppresses
// emission when the incoming (eqkId, phase) pair matches the last one
// seen, so a client doesn't re-alert on an unchanged broadcast.
type pewsCheckpointState struct {
	LastEqkID string `json:"lastEqkId"`
	LastPhase int    `json:"lastPhase"`
}

// PEWSAdapter decodes a bit-packed binary earthquake early-warning
// stream. It keeps an in-memory clock-offset estimate across runs (never
// durable — correctness across restarts relies only on the checkpoint).
type PEWSAdapter struct {
	client *resilientClient

	simEqkID   string
	simStartAt time.Time
	simEnabled bool

	mu             sync.Mutex
	clockOffsetSec int64 // server-ahead-of-local estimate, clamped >= 0
}

// NewPEWSAdapter builds the adapter registered as models.SourcePEWS.
func NewPEWSAdapter(cfg Config) *PEWSAdapter {
	a := &PEWSAdapter{client: newResilientClient("pews", cfg.HTTPTimeout)}

	if cfg.PEWSSimEqkID != "" && cfg.PEWSSimStartAt != "" {
		startAt, err := time.Parse(time.RFC3339, cfg.PEWSSimStartAt)
		if err != nil {
			logging.Warn().Err(err).Msg("pews: invalid KMA_PEWS_SIM_START_AT, ignoring simulation mode")
		} else {
			a.simEqkID = cfg.PEWSSimEqkID
			a.simStartAt = startAt
			a.simEnabled = true
		}
	} else if cfg.PEWSSimEqkID != "" || cfg.PEWSSimStartAt != "" {
		logging.Warn().Msg("pews: KMA_PEWS_SIM_EQK_ID and KMA_PEWS_SIM_START_AT must both be set; ignoring")
	}

	return a
}

func (a *PEWSAdapter) SourceID() models.Source { return models.SourcePEWS }
func (a *PEWSAdapter) PollIntervalSec() int    { return 5 }

func (a *PEWSAdapter) Run(ctx context.Context, priorState *string) ([]models.PartialEvent, *string) {
	url, headerLen := a.buildURL()

	body, headers, err := a.client.get(ctx, url)
	if err != nil {
		logging.Warn().Err(err).Msg("pews: fetch failed")
		return nil, priorState
	}
	a.updateClockOffset(headers)

	if len(body) < headerLen+pewsTextBlockLen+pewsBitBlockLen {
		logging.Warn().Int("len", len(body)).Msg("pews: frame shorter than expected, dropping")
		return nil, priorState
	}

	header := body[:headerLen]
	phase := decodePhase(header[0])
	if phase < 2 {
		return nil, priorState
	}

	textBlock := body[headerLen : headerLen+pewsTextBlockLen]
	bitBlock := body[headerLen+pewsTextBlockLen : headerLen+pewsTextBlockLen+pewsBitBlockLen]

	fields := decodeTrailerBits(bitBlock)
	state := decodePEWSState(priorState)

	eqkID := strconv.FormatInt(fields.eqkID, 10)
	if state.LastEqkID == eqkID && state.LastPhase == phase {
		return nil, priorState
	}

	// A later phase for an incident that already alerted is informational
	// only: the client was already alerted at LastPhase, so this update
	// must not re-alert at full severity.
	repeatIncident := state.LastEqkID == eqkID && phase > state.LastPhase
	ev := a.toEvent(phase, fields, textBlock, repeatIncident)
	next := pewsCheckpointState{LastEqkID: eqkID, LastPhase: phase}
	encoded, err := json.Marshal(next)
	if err != nil {
		return []models.PartialEvent{ev}, priorState
	}
	nextState := string(encoded)
	return []models.PartialEvent{ev}, &nextState
}

func decodePEWSState(state *string) pewsCheckpointState {
	var s pewsCheckpointState
	if state == nil {
		return s
	}
	_ = json.Unmarshal([]byte(*state), &s)
	return s
}

// decodePhase applies the header-bit contract: bit index 1 (value 2)
// gates phase 2, bit index 2 (value 4) gates phase 3. Bit 0 is unmapped
// (see DESIGN.md open question) and deliberately ignored.
func decodePhase(headerByte byte) int {
	bit1 := headerByte&0x02 != 0
	bit2 := headerByte&0x04 != 0
	switch {
	case bit2:
		return 3
	case bit1:
		return 2
	default:
		return 1
	}
}

type pewsFields struct {
	lat, lon     float64
	magnitude    float64
	depthKm      float64
	occurredAt   time.Time
	eqkID        int64
	intensity    int64
	regions      []string
}

// decodeTrailerBits unpacks the 120-bit trailer block per the fixed
// bit-offset table: lat[0:10], lon[10:20], mag×10[20:27], depth×10[27:37],
// unix-seconds[37:69], eqk-id[69:95], intensity[95:99], regions-mask[99:116].
func decodeTrailerBits(block []byte) pewsFields {
	br := newBitReader(block)

	latRaw := br.readBits(10)
	lonRaw := br.readBits(10)
	magRaw := br.readBits(7)
	depthRaw := br.readBits(10)
	unixSec := br.readBits(32)
	eqkID := br.readBits(26)
	intensity := br.readBits(4)
	regionMask := br.readBits(17)

	var regions []string
	for i := 0; i < len(pewsRegionNames); i++ {
		if regionMask&(1<<uint(len(pewsRegionNames)-1-i)) != 0 {
			regions = append(regions, pewsRegionNames[i])
		}
	}

	return pewsFields{
		lat:        30 + float64(latRaw)/100,
		lon:        124 + float64(lonRaw)/100,
		magnitude:  float64(magRaw) / 10,
		depthKm:    float64(depthRaw) / 10,
		occurredAt: time.Unix(unixSec, 0).UTC(),
		eqkID:      eqkID,
		intensity:  intensity,
		regions:    regions,
	}
}

// toEvent builds the event for phase on incident f. repeatIncident marks a
// later phase arriving for an incident that already alerted at an earlier
// phase: the kind still reflects the new phase, but the level is forced to
// Info so the client isn't re-alerted at full severity for news it already
// received.
func (a *PEWSAdapter) toEvent(phase int, f pewsFields, textBlock []byte, repeatIncident bool) models.PartialEvent {
	kind := models.KindEarthquakePhase2
	level := models.LevelSevere
	if phase == 3 {
		kind = models.KindEarthquakePhase3
		level = models.LevelCritical
	}
	if repeatIncident {
		level = models.LevelInfo
	}

	title := normalizeText(decodePercentEncoding(strings.TrimRight(string(textBlock), "\x00")))
	if title == "" {
		title = fmt.Sprintf("지진 조기경보 phase%d 규모 %.1f", phase, f.magnitude)
	}

	var regionText *string
	if len(f.regions) > 0 {
		joined := strings.Join(f.regions, ",")
		regionText = &joined
	}

	occurredAt := f.occurredAt
	return models.PartialEvent{
		Kind:       kind,
		Title:      title,
		OccurredAt: &occurredAt,
		RegionText: regionText,
		Level:      level,
		Payload: map[string]any{
			"eqkId":     f.eqkID,
			"magnitude": f.magnitude,
			"depthKm":   f.depthKm,
			"intensity": f.intensity,
			"lat":       f.lat,
			"lon":       f.lon,
			"phase":     phase,
		},
	}
}

// buildURL formats the server-timestamp query parameter from the current
// clock-offset estimate, choosing the simulation endpoint and 1-byte
// header when simulation mode is active and the 5-minute replay window
// hasn't elapsed.
func (a *PEWSAdapter) buildURL() (string, int) {
	a.mu.Lock()
	offset := a.clockOffsetSec
	a.mu.Unlock()

	now := time.Now().UTC().Add(time.Duration(offset) * time.Second)

	if a.simEnabled && now.Before(a.simStartAt.Add(5*time.Minute)) {
		ts := a.simStartAt.Format("20060102150405.0")
		return fmt.Sprintf("%s?eqkId=%s&t=%s", pewsSimBaseURL, a.simEqkID, ts), pewsHeaderLenSim
	}

	ts := now.Format("20060102150405.0")
	return fmt.Sprintf("%s?t=%s", pewsBaseURL, ts), pewsHeaderLenNormal
}

// updateClockOffset re-derives the server-ahead-of-local estimate from
// the response's ST header (seconds since epoch) or, failing that, Date,
// clamping the result to non-negative.
func (a *PEWSAdapter) updateClockOffset(headers http.Header) {
	var serverTime time.Time
	if st := headers.Get("ST"); st != "" {
		if sec, err := strconv.ParseInt(st, 10, 64); err == nil {
			serverTime = time.Unix(sec, 0).UTC()
		}
	}
	if serverTime.IsZero() {
		if d := headers.Get("Date"); d != "" {
			if t, err := http.ParseTime(d); err == nil {
				serverTime = t.UTC()
			}
		}
	}
	if serverTime.IsZero() {
		return
	}

	offset := int64(serverTime.Sub(time.Now().UTC()).Seconds())
	if offset < 0 {
		offset = 0
	}

	a.mu.Lock()
	a.clockOffsetSec = offset
	a.mu.Unlock()
}
