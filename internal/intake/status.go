package intake

import (
	"regexp"
	"strings"
)

// IntentKind discriminates the status-update variants.
type IntentKind int

const (
	IntentNone IntentKind = iota
	IntentPayment
	IntentFailed
	IntentPickup
	IntentPending
	IntentModify
	IntentNumberChange
)

func (k IntentKind) String() string {
	switch k {
	case IntentPayment:
		return "payment"
	case IntentFailed:
		return "failed"
	case IntentPickup:
		return "pickup"
	case IntentPending:
		return "pending"
	case IntentModify:
		return "modify"
	case IntentNumberChange:
		return "number_change"
	default:
		return "none"
	}
}

// StatusIntent is the classification of a status-update message. Exactly
// one kind is produced per message; IntentNone means no status keyword
// matched and the message should be considered as a possible new order.
//
// Amount carries HasAmount beside it because an explicit 0 is treated the
// same as an absent amount: both mean "settle the remaining balance". A
// genuine zero-value payment is not representable, matching how operators
// use the chat.
type StatusIntent struct {
	Kind      IntentKind
	Phone     string
	Amount    float64
	HasAmount bool
	Items     string
	OldPhone  string
	NewPhone  string
	// Details keeps the raw text for the order's audit history.
	Details string
}

var accentFolder = strings.NewReplacer(
	"à", "a", "â", "a", "ä", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"î", "i", "ï", "i",
	"ô", "o", "ö", "o",
	"ù", "u", "û", "u", "ü", "u",
	"ç", "c",
	"À", "a", "Â", "a", "É", "e", "È", "e", "Ê", "e", "Î", "i", "Ô", "o", "Ù", "u", "Ç", "c",
)

// foldStatus lowercases and strips French accents so keyword rules match
// however the operator typed them.
func foldStatus(text string) string {
	return strings.ToLower(accentFolder.Replace(text))
}

var (
	deliveredRe    = regexp.MustCompile(`\blivree?s?\b`)
	failedPhraseRe = regexp.MustCompile(`num(?:e|er)?o?\s+(?:ne\s+)?passe\s+pas`)
	modifyItemsRe  = regexp.MustCompile(`(?i)prend\s+([^\n.]+)`)
	countItemsRe   = regexp.MustCompile(`\b(\d{1,2}\s+\p{L}{3,}[^\n]*)`)
)

var pickupPhrases = []string{
	"vient chercher",
	"passe chercher",
	"pickup",
	"ramassage",
	"elle passe",
	"il passe",
}

var numberChangePhrases = []string{
	"changer numero",
	"nouveau numero",
	"change numero",
}

var pendingPhrases = []string{
	"en attente",
	"attente",
	"en cours",
}

// StatusParser classifies messages against the seven status intents using
// ordered keyword rules. The rule order resolves real keyword overlaps
// (number-change before modify, since "change" alone would satisfy the
// modify rule) and must not be rearranged.
type StatusParser struct {
	ex *Extractor
}

func NewStatusParser(ex *Extractor) *StatusParser {
	return &StatusParser{ex: ex}
}

// Parse classifies text. isReply is true when the message replies to a
// known order-creation message; in that case a lone phone in a
// number-change message is the new number, since the target order is
// already identified by the reply thread.
func (p *StatusParser) Parse(text string, isReply bool) StatusIntent {
	folded := foldStatus(text)
	intent := StatusIntent{Kind: IntentNone, Details: strings.TrimSpace(text)}

	switch {
	case deliveredRe.MatchString(folded):
		intent.Kind = IntentPayment
		p.fillPaymentFields(&intent, text)

	case strings.HasPrefix(folded, "echec"), failedPhraseRe.MatchString(folded):
		intent.Kind = IntentFailed
		intent.Phone = p.statusPhone(text)

	case strings.HasPrefix(folded, "collecte"), strings.HasPrefix(folded, "paye"),
		strings.Contains(folded, "collecte"):
		intent.Kind = IntentPayment
		p.fillPaymentFields(&intent, text)

	case containsAny(folded, pickupPhrases):
		intent.Kind = IntentPickup
		intent.Phone = p.statusPhone(text)

	case containsAny(folded, numberChangePhrases):
		intent.Kind = IntentNumberChange
		p.fillNumberChange(&intent, text, isReply)

	case strings.HasPrefix(folded, "modifier"), strings.HasPrefix(folded, "modif"),
		strings.Contains(folded, "modifier"),
		strings.Contains(folded, "change") && !strings.Contains(folded, "numero"):
		intent.Kind = IntentModify
		intent.Phone = p.statusPhone(text)
		if amount, ok := p.statusAmount(text); ok {
			intent.Amount = amount
			intent.HasAmount = true
		}
		intent.Items = modifyItems(text)

	case containsAny(folded, pendingPhrases):
		intent.Kind = IntentPending
		intent.Phone = p.statusPhone(text)
	}

	return intent
}

func (p *StatusParser) fillPaymentFields(intent *StatusIntent, text string) {
	intent.Phone = p.statusPhone(text)
	if amount, ok := p.statusAmount(text); ok && amount != 0 {
		intent.Amount = amount
		intent.HasAmount = true
	}
}

func (p *StatusParser) fillNumberChange(intent *StatusIntent, text string, isReply bool) {
	phones := phoneTokens(text)
	switch {
	case len(phones) >= 2:
		intent.OldPhone = phones[0]
		intent.NewPhone = phones[1]
	case len(phones) == 1 && isReply:
		intent.NewPhone = phones[0]
	case len(phones) == 1:
		intent.OldPhone = phones[0]
	}
}

// statusPhone reuses the field-extractor precedence on status text.
func (p *StatusParser) statusPhone(text string) string {
	return p.ex.Phone(text)
}

// statusAmount extracts an amount from a phone-stripped copy of the text,
// additionally dropping any digit run of 8+ characters. Phone numbers are
// never amounts.
func (p *StatusParser) statusAmount(text string) (float64, bool) {
	stripped := text
	if m, ok := p.ex.phone(text); ok {
		stripped = strings.ReplaceAll(stripped, m.raw, " ")
	}
	stripped = digitRunRe.ReplaceAllStringFunc(stripped, func(run string) string {
		if len(run) >= 8 {
			return " "
		}
		return run
	})
	return p.ex.Amount(stripped)
}

// phoneTokens returns every phone-shaped token in order of appearance.
func phoneTokens(text string) []string {
	var out []string
	for _, raw := range maskedPhoneRe.FindAllString(text, -1) {
		if n, ok := normalizePhoneToken(raw); ok {
			out = append(out, n)
		}
	}
	return out
}

// modifyItems looks for a "prend <phrase>" clause first, then a bare
// "<count> <word>" item description.
func modifyItems(text string) string {
	if m := modifyItemsRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := countItemsRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
