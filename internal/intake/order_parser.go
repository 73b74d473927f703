package intake

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParsedOrder is the structured record recovered from a new-order message.
type ParsedOrder struct {
	Phone        string
	CustomerName string
	Items        string
	AmountDue    float64
	Quartier     string
	Carrier      string
	HasPhone     bool
	HasAmount    bool
}

// SchemaError reports a structural failure in a recognized order format.
// It names the offending line and carries the template the operator was
// expected to follow. It is a value, not a panic: unparseable user text is
// an expected condition.
type SchemaError struct {
	Line   int
	Reason string
	Hint   string
}

func (e *SchemaError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("ligne %d: %s", e.Line, e.Reason)
	}
	return e.Reason
}

const compactFormatHint = "Format attendu:\n<numéro (6XXXXXXXX)>\n<articles>\n<montant>\n<quartier>"

// OrderParser recognizes the two structured order formats and falls back
// to opportunistic field extraction for short free-form messages.
type OrderParser struct {
	ex *Extractor
}

func NewOrderParser(ex *Extractor) *OrderParser {
	return &OrderParser{ex: ex}
}

// Parse tries the known formats in priority order and returns the first
// structurally valid result.
//
// A 4+-line message that fails both structured formats is reported as an
// error rather than run through the fallback: long messages are assumed to
// be attempted structured orders, and a silent fallback would mask the
// operator's formatting mistake.
func (p *OrderParser) Parse(text string) (*ParsedOrder, error) {
	lines := splitLines(text)
	if len(lines) >= 4 {
		if quartierFirstEligible(lines) {
			if order, err := p.parseQuartierFirst(lines, text); err == nil {
				return order, nil
			}
		}
		order, err := p.parseCompact(lines, text)
		if err != nil {
			return nil, err
		}
		return order, nil
	}
	return p.parseFlexible(text), nil
}

// splitLines returns the non-empty trimmed lines of a message.
func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// parseCompact decodes the compact structured format:
// phone / items / amount / quartier, one field per line.
func (p *OrderParser) parseCompact(lines []string, full string) (*ParsedOrder, error) {
	if len(lines) < 4 {
		return nil, &SchemaError{Reason: "message trop court: 4 lignes attendues", Hint: compactFormatHint}
	}
	phone, ok := normalizePhoneLine(lines[0])
	if !ok {
		return nil, &SchemaError{Line: 1, Reason: "numéro invalide: 9 chiffres commençant par 6 attendus", Hint: compactFormatHint}
	}
	items := lines[1]
	if len(items) < 2 {
		return nil, &SchemaError{Line: 2, Reason: "articles manquants", Hint: compactFormatHint}
	}
	amount, ok := amountOnLine(lines[2])
	if !ok {
		return nil, &SchemaError{Line: 3, Reason: "montant invalide: une valeur supérieure à 100 est attendue", Hint: compactFormatHint}
	}
	quartier := lines[3]
	if len(quartier) < 2 {
		return nil, &SchemaError{Line: 4, Reason: "quartier manquant", Hint: compactFormatHint}
	}
	return &ParsedOrder{
		Phone:        phone,
		CustomerName: p.ex.CustomerName(full),
		Items:        items,
		AmountDue:    amount,
		Quartier:     quartier,
		Carrier:      p.ex.Carrier(full),
		HasPhone:     true,
		HasAmount:    true,
	}, nil
}

// quartierFirstEligible guards the alternative format: the first line must
// not be a bare number and the last line must look like a phone. Without
// this check the alternative parser would swallow compact messages whose
// first line is the phone.
func quartierFirstEligible(lines []string) bool {
	first := stripPhoneSeparators(lines[0])
	if first != "" && digitsAndPlaceholdersOnly(first) {
		return false
	}
	last := stripPhoneSeparators(lines[len(lines)-1])
	if len(last) < 8 || len(last) > 11 || last[0] != '6' {
		return false
	}
	return digitsAndPlaceholdersOnly(last)
}

// parseQuartierFirst decodes the neighborhood-first format:
// quartier on line 1, the phone on the last line, the amount just above
// it, and everything in between joined as the item list.
func (p *OrderParser) parseQuartierFirst(lines []string, full string) (*ParsedOrder, error) {
	quartier := lines[0]
	phoneRaw := stripPhoneSeparators(lines[len(lines)-1])
	phone := strings.NewReplacer("x", "0", "X", "0").Replace(phoneRaw)
	switch len(phone) {
	case 9:
	case 8:
		phone += "0"
	default:
		return nil, &SchemaError{Line: len(lines), Reason: "numéro invalide: 8 ou 9 chiffres attendus"}
	}
	amount, ok := amountOnLine(lines[len(lines)-2])
	if !ok {
		return nil, &SchemaError{Line: len(lines) - 1, Reason: "montant invalide: une valeur supérieure à 100 est attendue"}
	}
	items := strings.Join(lines[1:len(lines)-2], ", ")
	if len(items) < 2 {
		return nil, &SchemaError{Reason: "articles manquants entre le quartier et le montant"}
	}
	return &ParsedOrder{
		Phone:        phone,
		CustomerName: p.ex.CustomerName(full),
		Items:        items,
		AmountDue:    amount,
		Quartier:     quartier,
		Carrier:      p.ex.Carrier(full),
		HasPhone:     true,
		HasAmount:    true,
	}, nil
}

// parseFlexible runs every extractor over the whole text and keeps, as the
// item description, whatever is left once the recognized fields are
// stripped out. It never fails; the HasPhone/HasAmount flags let the
// caller apply its own minimum-field policy.
func (p *OrderParser) parseFlexible(text string) *ParsedOrder {
	order := &ParsedOrder{}
	stripped := text

	if m, ok := p.ex.phone(text); ok {
		order.Phone = m.value
		order.HasPhone = true
		stripped = strings.ReplaceAll(stripped, m.raw, " ")
	}
	if m, ok := p.ex.amount(text); ok {
		order.AmountDue = m.value
		order.HasAmount = true
		stripped = strings.ReplaceAll(stripped, m.raw, " ")
		// The amount may appear both as "15k" and "15000"; drop the
		// digit form too so it does not pollute the item text.
		plain := strconv.FormatFloat(m.value, 'f', -1, 64)
		stripped = strings.ReplaceAll(stripped, plain, " ")
	}
	if q := p.ex.Quartier(text); q != "" {
		order.Quartier = q
		stripped = removeFold(stripped, q)
	}
	if canonical, variant := p.ex.gaz.matchCarrier(text); canonical != "" {
		order.Carrier = canonical
		stripped = removeFold(stripped, variant)
	}
	if name := p.ex.CustomerName(text); name != "" {
		order.CustomerName = name
		stripped = customerClauseRe.ReplaceAllString(stripped, " ")
	}

	items := strings.Join(strings.Fields(stripped), " ")
	if len(items) < 5 {
		items = strings.TrimSpace(text)
		if len(items) > 200 {
			items = items[:200]
		}
	}
	order.Items = items
	return order
}

var phoneLineJunkRe = regexp.MustCompile(`[^0-9xX]`)

// normalizePhoneLine validates a line expected to hold only a phone.
func normalizePhoneLine(line string) (string, bool) {
	digits := phoneLineJunkRe.ReplaceAllString(line, "")
	digits = strings.NewReplacer("x", "0", "X", "0").Replace(digits)
	if len(digits) != 9 || digits[0] != '6' {
		return "", false
	}
	return digits, true
}

var lineKAmountRe = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)k\b`)

// amountOnLine decodes an amount line: a k-suffixed number first, then the
// largest digit run above 100 once separators are dropped.
func amountOnLine(line string) (float64, bool) {
	if m := lineKAmountRe.FindStringSubmatch(line); m != nil {
		num := strings.ReplaceAll(m[1], ",", ".")
		if v, err := strconv.ParseFloat(num, 64); err == nil {
			return v * 1000, true
		}
	}
	plain := strings.NewReplacer(".", "", ",", "", " ", "").Replace(line)
	best := 0.0
	found := false
	for _, raw := range digitRunRe.FindAllString(plain, -1) {
		if len(raw) == 9 && raw[0] == '6' {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 100 {
			continue
		}
		if !found || v > best {
			best = v
			found = true
		}
	}
	return best, found
}

func stripPhoneSeparators(s string) string {
	return strings.NewReplacer(" ", "", ".", "", "-", "", "+", "").Replace(s)
}

func digitsAndPlaceholdersOnly(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == 'x' || r == 'X':
		default:
			return false
		}
	}
	return len(s) > 0
}

// removeFold removes the first case-insensitive occurrence of sub.
func removeFold(s, sub string) string {
	idx := strings.Index(strings.ToLower(s), strings.ToLower(sub))
	if idx < 0 {
		return s
	}
	return s[:idx] + " " + s[idx+len(sub):]
}
