// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package adapters

import (
	"strings"

	"disasterfeed/internal/models"
)

// textMsgLevel maps a keyword found anywhere in a safety-broadcast body to
// a severity level, checking Critical, then Severe, then Info keywords and
// taking the first that matches. Unmatched bodies default to Moderate: the absence of a
// recognized keyword is not itself informative about severity.
func textMsgLevel(body string) models.Level {
	switch {
	case strings.Contains(body, "위급재난"):
		return models.LevelCritical
	case strings.Contains(body, "긴급재난"):
		return models.LevelSevere
	case strings.Contains(body, "안전안내"):
		return models.LevelInfo
	default:
		return models.LevelModerate
	}
}

// forestFireLevel maps a progress code to severity. Codes outside the
// known set classify as KindUnknown/Info rather than boosting severity —
// see DESIGN.md's Open Question resolutions.
func forestFireLevel(progressCode string) (models.Level, models.Kind) {
	switch progressCode {
	case "reported":
		return models.LevelSevere, models.KindForestFireReported
	case "in-progress":
		return models.LevelSevere, models.KindForestFireReported
	case "contained":
		return models.LevelModerate, models.KindForestFireContained
	case "extinguished":
		return models.LevelInfo, models.KindForestFireExtinguished
	default:
		return models.LevelInfo, models.KindUnknown
	}
}
