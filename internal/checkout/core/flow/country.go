package flow

import "strings"

// isoCountries maps the country names the storefront offers to ISO
// 3166-1 alpha-2 codes, which is what the order service's address schema
// expects.
var isoCountries = map[string]string{
	"nigeria":        "NG",
	"ghana":          "GH",
	"benin":          "BJ",
	"cameroon":       "CM",
	"niger":          "NE",
	"togo":           "TG",
	"kenya":          "KE",
	"south africa":   "ZA",
	"united kingdom": "GB",
	"united states":  "US",
}

// normalizeCountry converts a full country name to its ISO code. Values
// that already look like a code pass through uppercased; anything
// unrecognized falls back to NG, the storefront's home market.
func normalizeCountry(name string) string {
	trimmed := strings.TrimSpace(name)
	if code, ok := isoCountries[strings.ToLower(trimmed)]; ok {
		return code
	}
	if len(trimmed) == 2 {
		return strings.ToUpper(trimmed)
	}
	return "NG"
}
