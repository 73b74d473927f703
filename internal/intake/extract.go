package intake

import (
	"regexp"
	"strconv"
	"strings"
)

// Extractor pulls typed fields out of raw message fragments. All methods
// are pure; absence is reported as a zero value, never an error.
type Extractor struct {
	gaz Gazetteer
}

func NewExtractor(gaz Gazetteer) *Extractor {
	return &Extractor{gaz: gaz}
}

var (
	labeledPhoneRe = regexp.MustCompile(`(?i)(?:livraison|num[ée]ro|phone|t[ée]l[ée]phone)\s*:\s*([0-9xX+][0-9xX\s.-]*)`)
	barePhoneRe    = regexp.MustCompile(`\b6\d{8}\b`)
	maskedPhoneRe  = regexp.MustCompile(`\b6[\dxX]{7,8}\b`)
	countryPhoneRe = regexp.MustCompile(`\+237\s?(\d{8,9})\b`)
	digitRunRe     = regexp.MustCompile(`\d+`)

	kAmountRe        = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)k\b`)
	sepAmountRe      = regexp.MustCompile(`\b\d{1,3}(?:[.,]\d{3})+\b`)
	customerRe       = regexp.MustCompile(`(?i)(?:client|nom|name)\s*:\s*([\p{L}][\p{L} '-]*)`)
	customerClauseRe = regexp.MustCompile(`(?i)(?:client|nom|name)\s*:\s*[\p{L}][\p{L} '-]*`)
)

// phoneMatch pairs the normalized number with the raw substring it was
// recognized in, so the fallback parser can strip it from the item text.
type phoneMatch struct {
	value string
	raw   string
}

// Phone extracts a Cameroonian mobile number. Labeled text is most
// reliable, unlabeled full numbers next, masked or country-prefixed
// numbers last.
func (e *Extractor) Phone(text string) string {
	m, ok := e.phone(text)
	if !ok {
		return ""
	}
	return m.value
}

func (e *Extractor) phone(text string) (phoneMatch, bool) {
	if m := labeledPhoneRe.FindStringSubmatch(text); m != nil {
		if n, ok := normalizePhoneToken(m[1]); ok {
			return phoneMatch{value: n, raw: m[0]}, true
		}
	}
	if raw := barePhoneRe.FindString(text); raw != "" {
		return phoneMatch{value: raw, raw: raw}, true
	}
	if raw := maskedPhoneRe.FindString(text); raw != "" {
		if n, ok := normalizePhoneToken(raw); ok {
			return phoneMatch{value: n, raw: raw}, true
		}
	}
	if m := countryPhoneRe.FindStringSubmatch(text); m != nil {
		digits := m[1]
		if len(digits) == 8 {
			digits = "6" + digits
		}
		if len(digits) == 9 && digits[0] == '6' {
			return phoneMatch{value: digits, raw: m[0]}, true
		}
	}
	for _, raw := range digitRunRe.FindAllString(text, -1) {
		if len(raw) == 9 && raw[0] == '6' {
			return phoneMatch{value: raw, raw: raw}, true
		}
	}
	return phoneMatch{}, false
}

// normalizePhoneToken strips everything but digits and x placeholders,
// turns x into 0 and right-pads to 9 digits. Tokens that normalize to
// more than 9 digits are rejected unless they carry the 237 country code.
func normalizePhoneToken(token string) (string, bool) {
	var b strings.Builder
	for _, r := range token {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('0')
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "237") && len(digits) == 12 {
		digits = digits[3:]
	}
	if len(digits) == 0 || len(digits) > 9 {
		return "", false
	}
	for len(digits) < 9 {
		digits += "0"
	}
	return digits, true
}

type amountMatch struct {
	value float64
	raw   string
}

// Amount extracts a monetary amount in XAF. A k suffix means thousands,
// dot or comma groups are thousand separators, and bare digit runs are
// considered last (phones and values at or below 100 are noise).
func (e *Extractor) Amount(text string) (float64, bool) {
	m, ok := e.amount(text)
	if !ok {
		return 0, false
	}
	return m.value, true
}

func (e *Extractor) amount(text string) (amountMatch, bool) {
	if m := kAmountRe.FindStringSubmatch(text); m != nil {
		num := strings.ReplaceAll(m[1], ",", ".")
		if v, err := strconv.ParseFloat(num, 64); err == nil {
			return amountMatch{value: v * 1000, raw: m[0]}, true
		}
	}
	best := amountMatch{}
	found := false
	for _, raw := range sepAmountRe.FindAllString(text, -1) {
		plain := strings.NewReplacer(".", "", ",", "").Replace(raw)
		if v, err := strconv.ParseFloat(plain, 64); err == nil && (!found || v > best.value) {
			best = amountMatch{value: v, raw: raw}
			found = true
		}
	}
	if found {
		return best, true
	}
	for _, raw := range digitRunRe.FindAllString(text, -1) {
		if len(raw) == 9 && raw[0] == '6' {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 100 {
			continue
		}
		if !found || v > best.value {
			best = amountMatch{value: v, raw: raw}
			found = true
		}
	}
	return best, found
}

// Quartier matches the message against the known neighborhood list.
func (e *Extractor) Quartier(text string) string {
	return e.gaz.matchQuartier(text)
}

// Carrier matches the message against known carrier spelling variants.
func (e *Extractor) Carrier(text string) string {
	canonical, _ := e.gaz.matchCarrier(text)
	return canonical
}

// CustomerName extracts a name following a client:/nom:/name: label.
func (e *Extractor) CustomerName(text string) string {
	m := customerRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
