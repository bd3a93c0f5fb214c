// Package names centralizes service-name matching across the carrier
// boundary. Every carrier spells service names slightly differently from
// the order platform ("UPS Ground" vs "UPS® Ground", trademark glyphs,
// accents), so all joins between carrier quotes and platform rate lists go
// through one normalization function plus an explicit alias table.
package names

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	_ "embed"

	"github.com/shipops/rate-shopper/internal/entities"
)

//go:embed aliases.yaml
var aliasesYAML []byte

var aliases map[string]string

func init() {
	var raw struct {
		Aliases map[string]string `yaml:"aliases"`
	}
	if err := yaml.Unmarshal(aliasesYAML, &raw); err != nil {
		panic("names: invalid aliases.yaml: " + err.Error())
	}
	aliases = make(map[string]string, len(raw.Aliases))
	for k, v := range raw.Aliases {
		aliases[Normalize(k)] = v
	}
}

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize folds a service name for joining: diacritics stripped,
// non-ASCII glyphs and punctuation dropped, case folded, whitespace
// collapsed.
func Normalize(name string) string {
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r > unicode.MaxASCII:
			// trademark glyphs and anything else exotic
		case r == '.' || r == ',':
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Canonical maps a carrier-side service name to the platform's spelling
// when a known alias exists; otherwise the name is returned unchanged.
func Canonical(name string) string {
	if canonical, ok := aliases[Normalize(name)]; ok {
		return canonical
	}
	return name
}

// Index is a platform rate list keyed by normalized service name, used by
// every carrier client to re-price its options with the platform's quotes.
type Index struct {
	byName map[string]entities.RateQuote
}

func NewIndex(quotes []entities.RateQuote) *Index {
	ix := &Index{byName: make(map[string]entities.RateQuote, len(quotes))}
	for _, q := range quotes {
		key := Normalize(q.ServiceName)
		if _, exists := ix.byName[key]; !exists {
			ix.byName[key] = q
		}
	}
	return ix
}

// Price returns the platform price for a carrier-side service name.
func (ix *Index) Price(serviceName string) (decimal.Decimal, bool) {
	q, ok := ix.byName[Normalize(serviceName)]
	return q.Price, ok
}

// PlatformName returns the platform's own spelling for a carrier-side
// service name, so write-backs use the name the platform expects.
func (ix *Index) PlatformName(serviceName string) (string, bool) {
	q, ok := ix.byName[Normalize(serviceName)]
	return q.ServiceName, ok
}
