package comicflow

// Provider identifies a language model provider.
type Provider string

// String returns the provider identifier.
func (p Provider) String() string { return string(p) }

// Supported providers.
const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
	// ProviderOffline synthesizes schema-conforming output without network access.
	ProviderOffline Provider = "offline"
)

// Providers lists every supported provider.
func Providers() []Provider {
	return []Provider{ProviderAnthropic, ProviderOpenAI, ProviderGoogle, ProviderOffline}
}

// Remote reports whether the provider needs network access and an API key.
func (p Provider) Remote() bool {
	return p != ProviderOffline
}

// Valid reports whether p is a supported provider.
func (p Provider) Valid() bool {
	for _, known := range Providers() {
		if p == known {
			return true
		}
	}
	return false
}
