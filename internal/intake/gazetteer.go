package intake

import "strings"

// Gazetteer carries the fixed reference lists the parsers match against.
// Instances are treated as immutable; parsers receive one at construction
// time so tests can substitute fixtures.
type Gazetteer struct {
	// Quartiers is matched in order; the first hit wins, so more specific
	// names must come before names they contain (e.g. "Bonamoussadi"
	// before "Bona").
	Quartiers []string
	Carriers  []CarrierAlias
}

// CarrierAlias maps the spelling variants operators actually type to one
// canonical carrier name.
type CarrierAlias struct {
	Canonical string
	Variants  []string
}

// DefaultGazetteer returns the production lists for Douala.
func DefaultGazetteer() Gazetteer {
	return Gazetteer{
		Quartiers: []string{
			"Bonamoussadi",
			"Bonapriso",
			"Bonaberi",
			"Bonanjo",
			"Bessengue",
			"Bepanda",
			"Makepe",
			"Logpom",
			"Logbaba",
			"Ndokoti",
			"Nyalla",
			"New Bell",
			"Cite Sic",
			"Cité Sic",
			"Akwa Nord",
			"Akwa",
			"Deido",
			"Bali",
			"Kotto",
			"Yassa",
			"Village",
			"PK8",
			"PK10",
			"PK12",
			"PK14",
			"Japoma",
			"Bangue",
			"Dakar",
			"Cite des Palmiers",
			"Cité des Palmiers",
		},
		Carriers: []CarrierAlias{
			{Canonical: "Mondial Express", Variants: []string{"mondial express", "mondialexpress"}},
			{Canonical: "GP Express", Variants: []string{"gp express", "gpexpress"}},
			{Canonical: "Touristique", Variants: []string{"touristique", "touristik"}},
			{Canonical: "Buca Voyages", Variants: []string{"buca voyages", "bucavoyage"}},
		},
	}
}

// matchQuartier returns the first gazetteer entry contained in text,
// case-insensitively. Iteration order is significant.
func (g Gazetteer) matchQuartier(text string) string {
	lower := strings.ToLower(text)
	for _, q := range g.Quartiers {
		if strings.Contains(lower, strings.ToLower(q)) {
			return q
		}
	}
	return ""
}

// matchCarrier returns the canonical carrier name for the first alias
// variant contained in text, plus the variant that matched.
func (g Gazetteer) matchCarrier(text string) (canonical, variant string) {
	lower := strings.ToLower(text)
	for _, c := range g.Carriers {
		for _, v := range c.Variants {
			if strings.Contains(lower, v) {
				return c.Canonical, v
			}
		}
	}
	return "", ""
}
