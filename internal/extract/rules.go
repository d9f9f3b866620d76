package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/albarami/udc-sub000/internal/model"
)

// ruleConfidence is the confidence assigned to deterministic pattern hits.
const ruleConfidence = 0.92

// metricPattern binds a canonical metric name to the regular expression
// that finds it in financial prose. Patterns capture the numeric value and
// an optional scale word; the full match is kept as the citation quote.
type metricPattern struct {
	metric  string
	pattern *regexp.Regexp
}

const numberGroup = `\(?-?\s?(?:QR|QAR|USD|\$)?\s*(-?[0-9][0-9,]*(?:\.[0-9]+)?)\)?\s*(million|billion|mn|bn|%|percent)?`

// rulePatterns is evaluated in order so repeated runs produce
// byte-identical fact sets. First match per metric wins.
var rulePatterns = []metricPattern{
	{"revenue", regexp.MustCompile(`(?i)(?:total\s+)?revenue[s]?\s*(?:of|:|was|were|reached|at)?\s*` + numberGroup)},
	{"net_profit", regexp.MustCompile(`(?i)net\s+(?:profit|income|earnings)\s*(?:of|:|was|reached|at)?\s*` + numberGroup)},
	{"gross_profit", regexp.MustCompile(`(?i)gross\s+profit\s*(?:of|:|was|reached|at)?\s*` + numberGroup)},
	{"operating_cash_flow", regexp.MustCompile(`(?i)operating\s+cash\s*(?:-|\s)?flow[s]?\s*(?:of|:|was|at)?\s*` + numberGroup)},
	{"total_assets", regexp.MustCompile(`(?i)total\s+assets\s*(?:of|:|was|were|stood\s+at|at)?\s*` + numberGroup)},
	{"total_liabilities", regexp.MustCompile(`(?i)total\s+liabilities\s*(?:of|:|was|were|stood\s+at|at)?\s*` + numberGroup)},
	{"total_equity", regexp.MustCompile(`(?i)(?:total\s+|shareholders'?\s+)equity\s*(?:of|:|was|stood\s+at|at)?\s*` + numberGroup)},
	{"ebitda", regexp.MustCompile(`(?i)\bEBITDA\b\s*(?:of|:|was|reached|at)?\s*` + numberGroup)},
	{"occupancy_rate", regexp.MustCompile(`(?i)occupancy\s*(?:rate)?\s*(?:of|:|was|at|stood\s+at)?\s*` + numberGroup)},
	{"net_margin", regexp.MustCompile(`(?i)net\s+(?:profit\s+)?margin\s*(?:of|:|was|at)?\s*` + numberGroup)},
	{"debt", regexp.MustCompile(`(?i)(?:total\s+|net\s+)?(?:debt|borrowings)\s*(?:of|:|was|stood\s+at|at)?\s*` + numberGroup)},
	{"dividend", regexp.MustCompile(`(?i)dividend[s]?\s*(?:of|:|was|per\s+share\s+of|at)?\s*` + numberGroup)},
	{"capex", regexp.MustCompile(`(?i)(?:capital\s+expenditure[s]?|capex)\s*(?:of|:|was|at)?\s*` + numberGroup)},
	{"land_sales", regexp.MustCompile(`(?i)land\s+sales?\s*(?:of|:|was|were|at)?\s*` + numberGroup)},
}

// fiscalPeriodPattern finds a fiscal period mention near a metric quote.
var fiscalPeriodPattern = regexp.MustCompile(`(?i)\b(?:FY\s?20\d\d|H[12]\s?20\d\d|Q[1-4]\s?20\d\d|(?:full\s+year|first\s+half|second\s+half)\s+20\d\d|20\d\d)\b`)

// RuleExtract is layer A: deterministic pattern extraction over the
// retrieved context. Monetary values are normalized to millions with
// signs preserved; percentages keep their unit.
func RuleExtract(context string) model.FactSet {
	facts := make(model.FactSet)

	for _, mp := range rulePatterns {
		loc := mp.pattern.FindStringSubmatchIndex(context)
		if loc == nil {
			continue
		}

		quote := context[loc[0]:loc[1]]
		rawValue := context[loc[2]:loc[3]]
		scale := ""
		if loc[4] >= 0 {
			scale = strings.ToLower(context[loc[4]:loc[5]])
		}

		value, ok := parseNumber(rawValue)
		if !ok {
			continue
		}
		// Accounting-style parentheses denote negatives.
		if strings.HasPrefix(strings.TrimSpace(quoteTail(quote, rawValue)), "(") {
			value = -value
		}

		value, unit := normalizeUnit(value, scale)

		facts[mp.metric] = model.Fact{
			Value:        value,
			Unit:         unit,
			Quote:        strings.TrimSpace(quote),
			Source:       model.SourceRuleBased,
			Confidence:   ruleConfidence,
			FiscalPeriod: nearbyFiscalPeriod(context, loc[0]),
		}
	}

	return facts
}

// quoteTail returns the portion of the quote from the number onward, used
// to detect parenthesized negatives.
func quoteTail(quote, rawValue string) string {
	idx := strings.Index(quote, rawValue)
	if idx <= 0 {
		return quote
	}
	// Step back one rune to include a possible opening parenthesis.
	start := idx - 1
	for start > 0 && quote[start] == ' ' {
		start--
	}
	return quote[start:]
}

func parseNumber(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// normalizeUnit converts scale words to the canonical base unit. All
// monetary values land in millions; percentages stay percentages.
func normalizeUnit(value float64, scale string) (float64, string) {
	switch scale {
	case "billion", "bn":
		return value * 1000, "millions"
	case "million", "mn":
		return value, "millions"
	case "%", "percent":
		return value, "percent"
	default:
		return value, "millions"
	}
}

// nearbyFiscalPeriod searches the 160 characters around offset for a
// fiscal period mention. Empty when none found.
func nearbyFiscalPeriod(context string, offset int) string {
	start := offset - 80
	if start < 0 {
		start = 0
	}
	end := offset + 160
	if end > len(context) {
		end = len(context)
	}
	return fiscalPeriodPattern.FindString(context[start:end])
}
