package synth

import (
	"regexp"
	"strings"

	"github.com/albarami/udc-sub000/internal/model"
)

// minInsightLength filters out trivial bullet fragments.
const minInsightLength = 10

var bulletLine = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.*)$`)

var recommendationHeader = regexp.MustCompile(`(?i)^\s*(?:#+\s*|\*\*)?recommendation`)

var priorityTag = regexp.MustCompile(`(?i)^\[?\b(high|medium|low)\b\]?\s*(?:priority)?\s*[:\-–]?\s*`)

// ExtractInsights pulls bullet lines of at least minInsightLength
// characters from the report.
func ExtractInsights(report string) []string {
	var insights []string
	for _, line := range strings.Split(report, "\n") {
		m := bulletLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		item := strings.TrimSpace(m[1])
		if len(item) >= minInsightLength {
			insights = append(insights, item)
		}
	}
	return insights
}

// ExtractRecommendations captures numbered or bulleted items following a
// "recommendation" section header, reading the priority from prose
// markers. Unmarked items default to medium.
func ExtractRecommendations(report string) []model.Recommendation {
	var recs []model.Recommendation
	inSection := false

	for _, line := range strings.Split(report, "\n") {
		trimmed := strings.TrimSpace(line)

		if recommendationHeader.MatchString(trimmed) {
			inSection = true
			continue
		}
		if inSection && looksLikeHeader(trimmed) {
			break
		}
		if !inSection {
			continue
		}

		m := bulletLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		item := strings.TrimSpace(m[1])
		if item == "" {
			continue
		}

		priority := model.PriorityMedium
		if tag := priorityTag.FindStringSubmatch(item); tag != nil {
			switch strings.ToLower(tag[1]) {
			case "high":
				priority = model.PriorityHigh
			case "low":
				priority = model.PriorityLow
			}
			item = strings.TrimSpace(item[len(tag[0]):])
		}

		recs = append(recs, model.Recommendation{Text: item, Priority: priority})
	}
	return recs
}

// looksLikeHeader detects the next section header so recommendation
// collection stops there.
func looksLikeHeader(line string) bool {
	if line == "" {
		return false
	}
	if bulletLine.MatchString(line) {
		return false
	}
	upper := strings.TrimSuffix(line, ":")
	return strings.HasSuffix(line, ":") && upper == strings.ToUpper(upper) && len(upper) > 3
}
