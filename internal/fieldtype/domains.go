package fieldtype

// ValueSet is a set of permitted normalized values for a field.
type ValueSet map[string]struct{}

// NewValueSet builds a ValueSet from a list of values.
func NewValueSet(values ...string) ValueSet {
	s := make(ValueSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Contains reports whether the value is a member of the set.
func (s ValueSet) Contains(value string) bool {
	_, ok := s[value]
	return ok
}

// Values returns the members of the set as a slice (unordered).
func (s ValueSet) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}

// Static whitelist source names resolvable without a lookup table load.
const (
	SourceUnits         = "units"
	SourceCurrencies    = "currencies"
	SourceProcurement   = "procurement_types"
	SourceSpecies       = "species_codes"
	SourceMaterialTypes = "material_types"
)

// ProcurementTypes are the permitted procurement type codes (BESKZ domain).
var ProcurementTypes = []string{"E", "F", "X"}

// MaterialTypes are the permitted material type codes (MTART domain).
var MaterialTypes = []string{"ROH", "HALB", "FERT", "HAWA", "HIBE", "VERP", "DIEN"}

// TruthyTokens are raw values recognized as boolean true. The canonical
// true token is "X" (flag-style as in the master data tables).
var TruthyTokens = []string{"X", "x", "true", "TRUE", "1", "yes", "YES", "y", "Y"}

// FalsyTokens are raw values recognized as boolean false. The canonical
// false token is the empty string.
var FalsyTokens = []string{"", "false", "FALSE", "0", "no", "NO", "n", "N"}

// BooleanTrue and BooleanFalse are the canonical boolean tokens.
const (
	BooleanTrue  = "X"
	BooleanFalse = ""
)

// FallbackUnits is the static unit-of-measure whitelist used when the unit
// lookup table cannot be loaded.
var FallbackUnits = []string{
	"ST", "PC", "KG", "G", "MG", "TO", "L", "ML", "M", "MM", "CM", "KM",
	"M2", "M3", "CM3", "DM3", "H", "MIN", "KWH", "PAL", "CAR", "ROL",
}

// FallbackCurrencies is the static currency whitelist used when the currency
// lookup table cannot be loaded.
var FallbackCurrencies = []string{
	"EUR", "USD", "GBP", "CHF", "JPY", "CNY", "SEK", "NOK", "DKK", "PLN",
	"CZK", "HUF", "CAD", "AUD", "BRL", "INR",
}

// SpeciesCodes is the sample whitelist of 4-letter timber species codes
// (genus/species abbreviation scheme) used for deforestation reporting.
var SpeciesCodes = []string{
	"ABAL", // Abies alba
	"ACPS", // Acer pseudoplatanus
	"BEPE", // Betula pendula
	"FASY", // Fagus sylvatica
	"FREX", // Fraxinus excelsior
	"LADE", // Larix decidua
	"PCAB", // Picea abies
	"PISY", // Pinus sylvestris
	"QUPE", // Quercus petraea
	"QURO", // Quercus robur
	"TECT", // Tectona grandis
	"SWMA", // Swietenia macrophylla
}

// StaticWhitelist resolves a whitelist source name that is backed by a
// compile-time constant set. Lookup-table-backed sources return false here
// and are resolved through the cache instead.
func StaticWhitelist(source string) (ValueSet, bool) {
	switch source {
	case SourceProcurement:
		return NewValueSet(ProcurementTypes...), true
	case SourceMaterialTypes:
		return NewValueSet(MaterialTypes...), true
	case SourceSpecies:
		return NewValueSet(SpeciesCodes...), true
	default:
		return nil, false
	}
}
