package classify

import "strings"

// modelAliases maps cryptic SSDP/mDNS model strings to friendly display
// names. Matching is substring-based and case-insensitive since vendors
// append region/SKU suffixes to an otherwise-stable model family code.
var modelAliases = map[string]string{
	"QN65Q80C": "Samsung QLED Q8",
	"QN55Q80C": "Samsung QLED Q8",
	"UN55TU":   "Samsung Crystal UHD TU",
	"OLED55C":  "LG OLED C Series",
	"OLED65C":  "LG OLED C Series",
	"4200R":    "Roku Express 4K",
	"3930X":    "Roku Ultra",
}

// NormalizeModel returns the friendly display name for a raw model string,
// or the input unchanged if no alias matches.
func NormalizeModel(raw string) string {
	if raw == "" {
		return ""
	}
	upper := strings.ToUpper(raw)
	for prefix, friendly := range modelAliases {
		if strings.Contains(upper, prefix) {
			return friendly
		}
	}
	return raw
}
