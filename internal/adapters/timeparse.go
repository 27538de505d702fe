// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package adapters

import "time"

// kstLocation is the fixed +09:00 offset every upstream source timestamps
// against. A fixed zone is used instead of a named IANA zone so parsing
// never depends on the host's tzdata.
var kstLocation = time.FixedZone("KST", 9*60*60)

// parseKSTTimestamp parses a local-time timestamp in layout, interpreted
// in the +09:00 zone every adapter's source emits, and converts it to
// UTC. Malformed input returns nil rather than an error — adapters must
// never throw on a single unparsable timestamp.
func parseKSTTimestamp(value, layout string) *time.Time {
	t, err := time.ParseInLocation(layout, value, kstLocation)
	if err != nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
