package picture

// Symbols are the locale-dependent characters a numeric clause uses.
type Symbols struct {
	Decimal  string
	Grouping string
	Currency string
}

// DefaultLocale is used for nodes without a locale and for unknown names.
const DefaultLocale = "en_US"

var locales = map[string]Symbols{
	"en_US": {Decimal: ".", Grouping: ",", Currency: "$"},
	"en_GB": {Decimal: ".", Grouping: ",", Currency: "£"},
	"de_DE": {Decimal: ",", Grouping: ".", Currency: "€"},
	"fr_FR": {Decimal: ",", Grouping: " ", Currency: "€"},
	"ja_JP": {Decimal: ".", Grouping: ",", Currency: "¥"},
}

// Lookup returns the symbols of name, falling back to DefaultLocale.
func Lookup(name string) Symbols {
	if s, ok := locales[name]; ok {
		return s
	}
	return locales[DefaultLocale]
}
