package metrics

import (
	"regexp"
	"strconv"
	"strings"
)

// fallbackConfidence is attached to regex-extracted values; regex
// matching cannot judge whether the figure is the right period or the
// right line item, so it scores below a clean LLM parse.
const fallbackConfidence = 0.6

var (
	// Dollar amounts carry their magnitude as a spelled-out word or a
	// bare B/M suffix ("$394.3 billion", "$394.3B"); the boundary keeps
	// a following word from being read as a suffix.
	dollarValueRe  = regexp.MustCompile(`(?i)\$\s*(-?[\d,]+\.?\d*)\s*(billion|million|thousand|[BM])?\b`)
	percentValueRe = regexp.MustCompile(`(-?[\d,]*\.?\d+)\s*%`)
	bareNumberRe   = regexp.MustCompile(`(-?[\d,]*\.?\d+)`)
)

// fallbackExtract scans the answer text with unit-aware regexes when
// the LLM extraction path fails. It takes the first match, applies the
// billion/million/thousand multiplier for dollar amounts, and reports
// not-found (never an error) when nothing matches.
func fallbackExtract(answer string, unit Unit) extractedValue {
	switch unit {
	case UnitDollars:
		m := dollarValueRe.FindStringSubmatch(answer)
		if m == nil {
			return extractedValue{Found: false}
		}
		value, err := parseNumber(m[1])
		if err != nil {
			return extractedValue{Found: false}
		}
		switch strings.ToLower(m[2]) {
		case "billion", "b":
			value *= 1e9
		case "million", "m":
			value *= 1e6
		case "thousand":
			value *= 1e3
		}
		return extractedValue{
			Found:        true,
			RawValue:     strings.TrimSpace(m[0]),
			NumericValue: &value,
			Confidence:   fallbackConfidence,
		}

	case UnitPercentage:
		m := percentValueRe.FindStringSubmatch(answer)
		if m == nil {
			return extractedValue{Found: false}
		}
		value, err := parseNumber(m[1])
		if err != nil {
			return extractedValue{Found: false}
		}
		return extractedValue{
			Found:        true,
			RawValue:     strings.TrimSpace(m[0]),
			NumericValue: &value,
			Confidence:   fallbackConfidence,
		}

	case UnitDollarsPerShare:
		m := dollarValueRe.FindStringSubmatch(answer)
		if m == nil {
			return extractedValue{Found: false}
		}
		value, err := parseNumber(m[1])
		if err != nil {
			return extractedValue{Found: false}
		}
		return extractedValue{
			Found:        true,
			RawValue:     strings.TrimSpace(m[0]),
			NumericValue: &value,
			Confidence:   fallbackConfidence,
		}

	default:
		m := bareNumberRe.FindStringSubmatch(answer)
		if m == nil {
			return extractedValue{Found: false}
		}
		value, err := parseNumber(m[1])
		if err != nil {
			return extractedValue{Found: false}
		}
		return extractedValue{
			Found:        true,
			RawValue:     strings.TrimSpace(m[0]),
			NumericValue: &value,
			Confidence:   fallbackConfidence,
		}
	}
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}
