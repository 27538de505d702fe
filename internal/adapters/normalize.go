// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package adapters

import (
	"html"
	"net/url"
	"strings"
)

// normalizeText collapses whitespace to single spaces and trims, per the
// text-normalization contract every adapter follows before comparing or
// hashing upstream content.
func normalizeText(input string) string {
	s := strings.TrimSpace(input)
	return strings.Join(strings.Fields(s), " ")
}

// decodeHTMLEntities unescapes HTML entities in text pulled from an HTML
// source, ahead of normalization.
func decodeHTMLEntities(input string) string {
	return html.UnescapeString(input)
}

// decodePercentEncoding decodes percent-encoded text extracted from a
// binary frame. Invalid escapes are left as-is rather than erroring, since
// a malformed frame must degrade to an empty result, not a panic.
func decodePercentEncoding(input string) string {
	decoded, err := url.QueryUnescape(input)
	if err != nil {
		return input
	}
	return decoded
}
