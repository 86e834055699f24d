package orders

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// TextExtractor reads raw text out of a receipt image. The concrete
// engine lives behind this interface so the service and its tests never
// depend on it directly.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte, contentType string) (string, error)
}

// amountPattern captures currency-looking tokens: $1.250.000, $50.000,
// 1,250,000, 1250000, $1.250,50 and the like. Plain digit runs come
// first so grouping-free amounts are not split into triplets.
var amountPattern = regexp.MustCompile(`\$?\s?\d{4,}(?:[.,]\d{1,2})?|\$?\s?\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{1,2})?`)

var ocrConfusions = strings.NewReplacer(
	"O", "0", "o", "0",
	"l", "1", "I", "1",
)

// ParseAmount extracts the payment amount from OCR text. Receipts mix
// Colombian (1.250.000,50) and US (1,250,000.50) digit grouping, and the
// engine commonly confuses O/0 and l/1, so the text is normalized first.
// Among all parseable candidates the largest positive one wins, which in
// practice is the receipt total. Returns ok=false when nothing usable is
// found.
func ParseAmount(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	normalized := ocrConfusions.Replace(strings.Join(strings.Fields(text), " "))

	var best float64
	var found bool
	for _, raw := range amountPattern.FindAllString(normalized, -1) {
		cleaned := strings.NewReplacer(" ", "", "$", "").Replace(raw)
		num, ok := parseGroupedNumber(cleaned)
		if ok && num > 0 && (!found || num > best) {
			best = num
			found = true
		}
	}
	return best, found
}

// parseGroupedNumber resolves the separator convention of a single
// numeric token and parses it.
func parseGroupedNumber(s string) (float64, bool) {
	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	var canonical string
	switch {
	case dots > 1:
		// 1.250.000 or 1.250.000,50
		canonical = strings.ReplaceAll(s, ".", "")
		canonical = strings.Replace(canonical, ",", ".", 1)
	case commas > 1:
		// 1,250,000
		canonical = strings.ReplaceAll(s, ",", "")
	case dots == 1 && commas == 1:
		if strings.Index(s, ".") < strings.Index(s, ",") {
			// 1.250,50
			canonical = strings.Replace(s, ".", "", 1)
			canonical = strings.Replace(canonical, ",", ".", 1)
		} else {
			// 1,250.50
			canonical = strings.Replace(s, ",", "", 1)
		}
	case commas == 1:
		// 1,250 is thousands grouping, 1,50 is a decimal
		if after := s[strings.Index(s, ",")+1:]; len(after) == 3 {
			canonical = strings.Replace(s, ",", "", 1)
		} else {
			canonical = strings.Replace(s, ",", ".", 1)
		}
	case dots == 1:
		// 50.000 is thousands grouping on local receipts, 1.50 is a decimal
		if after := s[strings.Index(s, ".")+1:]; len(after) == 3 {
			canonical = strings.Replace(s, ".", "", 1)
		} else {
			canonical = s
		}
	default:
		canonical = s
	}

	num, err := strconv.ParseFloat(canonical, 64)
	if err != nil {
		return 0, false
	}
	return num, true
}
