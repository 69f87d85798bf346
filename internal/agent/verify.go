package agent

import (
	"strconv"
	"strings"

	"github.com/kestrelworks/hive/pkg/models"
)

// parseVerification extracts the verdict and confidence score from a
// verifier response. A missing verdict counts as a failure; a missing
// score falls back to 1.0 on pass and 0.0 on fail so that a clear verdict
// without a score still routes correctly.
func parseVerification(text string) *models.VerificationResult {
	result := &models.VerificationResult{}

	verdictSeen := false
	scoreSeen := false
	var feedback []string

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)

		switch {
		case !verdictSeen && strings.HasPrefix(upper, "PASS"):
			result.Passed = true
			verdictSeen = true
		case !verdictSeen && strings.HasPrefix(upper, "FAIL"):
			result.Passed = false
			verdictSeen = true
		case strings.HasPrefix(upper, "SCORE:"):
			raw := strings.TrimSpace(trimmed[len("Score:"):])
			if score, err := strconv.ParseFloat(raw, 64); err == nil {
				if score < 0 {
					score = 0
				}
				if score > 1 {
					score = 1
				}
				result.Score = score
				scoreSeen = true
			}
		default:
			if trimmed != "" {
				feedback = append(feedback, trimmed)
			}
		}
	}

	if !scoreSeen {
		if result.Passed {
			result.Score = 1.0
		} else {
			result.Score = 0.0
		}
	}
	result.Feedback = strings.Join(feedback, "\n")
	return result
}
