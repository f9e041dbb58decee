package normalize

import "strings"

// ExtractLocation resolves city and country. Explicit values win when both are
// present; otherwise the last two comma separated address segments are used
// ("123 St, Paris, France" gives Paris, France).
func ExtractLocation(addressText, explicitCity, explicitCountry string) (city, country string) {
	explicitCity = strings.TrimSpace(explicitCity)
	explicitCountry = strings.TrimSpace(explicitCountry)

	if explicitCity != "" && explicitCountry != "" {
		return explicitCity, explicitCountry
	}

	var parts []string
	for _, p := range strings.Split(addressText, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	switch {
	case len(parts) >= 2:
		return parts[len(parts)-2], parts[len(parts)-1]
	case len(parts) == 1:
		return parts[0], ""
	default:
		return explicitCity, explicitCountry
	}
}
