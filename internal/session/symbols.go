package session

import "strings"

// SymbolMap translates canonical on-chain symbols into the payment provider's vocabulary.
type SymbolMap struct {
	aliases map[string]string
}

// NewSymbolMap maps the wrapped native symbol ("W" + native, e.g. WMATIC) onto the native
// symbol, plus any explicit aliases. Alias keys are matched case-insensitively.
func NewSymbolMap(nativeSymbol string, aliases map[string]string) *SymbolMap {
	m := &SymbolMap{aliases: make(map[string]string, len(aliases)+1)}

	if native := strings.ToUpper(strings.TrimSpace(nativeSymbol)); native != "" {
		m.aliases["W"+native] = native
	}

	for canonical, provider := range aliases {
		m.aliases[strings.ToUpper(strings.TrimSpace(canonical))] = strings.TrimSpace(provider)
	}

	return m
}

// ProviderSymbol returns the provider symbol for canonical, or canonical unchanged.
func (m *SymbolMap) ProviderSymbol(canonical string) string {
	if m == nil {
		return canonical
	}

	if mapped, ok := m.aliases[strings.ToUpper(strings.TrimSpace(canonical))]; ok && mapped != "" {
		return mapped
	}

	return canonical
}
