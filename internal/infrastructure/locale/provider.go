package locale

import "strings"

// StaticProvider serves a fixed list of locales taken from configuration.
type StaticProvider struct {
	locales []string
}

// NewStaticProvider normalizes codes to lower case and drops blanks and duplicates.
func NewStaticProvider(codes []string) *StaticProvider {
	seen := make(map[string]struct{}, len(codes))
	locales := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		locales = append(locales, c)
	}
	return &StaticProvider{locales: locales}
}

func (p *StaticProvider) Locales() []string {
	out := make([]string, len(p.locales))
	copy(out, p.locales)
	return out
}
