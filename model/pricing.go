package model

import (
	"sort"
	"strings"

	"github.com/spetersoncode/comicflow"
)

// Pricing is the price of a chat model per million tokens (USD).
type Pricing struct {
	Model            string
	Provider         comicflow.Provider
	InputPerMillion  float64
	OutputPerMillion float64
}

// Cost estimates what usage costs at this price.
func (p Pricing) Cost(usage comicflow.Usage) float64 {
	return float64(usage.InputTokens)/1_000_000*p.InputPerMillion +
		float64(usage.OutputTokens)/1_000_000*p.OutputPerMillion
}

// Prices last verified: December 14, 2025.
var catalog = []Pricing{
	{"claude-opus-4-5", comicflow.ProviderAnthropic, 5.00, 25.00},
	{"claude-sonnet-4-5", comicflow.ProviderAnthropic, 3.00, 15.00},
	{"claude-haiku-4-5", comicflow.ProviderAnthropic, 1.00, 5.00},

	{"gpt-5.2", comicflow.ProviderOpenAI, 1.75, 14.00},
	{"gpt-5.1", comicflow.ProviderOpenAI, 1.25, 10.00},
	{"gpt-5-mini", comicflow.ProviderOpenAI, 0.25, 2.00},
	{"gpt-4.1", comicflow.ProviderOpenAI, 2.00, 8.00},
	{"gpt-4.1-mini", comicflow.ProviderOpenAI, 0.40, 1.60},

	{"gemini-2.5-pro", comicflow.ProviderGoogle, 1.25, 10.00},
	{"gemini-2.5-flash", comicflow.ProviderGoogle, 0.30, 2.50},
	{"gemini-2.5-flash-lite", comicflow.ProviderGoogle, 0.10, 0.40},
}

// Lookup returns the pricing for a model id. Dated snapshots such as
// "claude-sonnet-4-5-20250929" resolve to their alias.
func Lookup(id string) (Pricing, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return Pricing{}, false
	}
	var best Pricing
	for _, p := range catalog {
		if id == p.Model {
			return p, true
		}
		if strings.HasPrefix(id, p.Model+"-") && len(p.Model) > len(best.Model) {
			best = p
		}
	}
	return best, best.Model != ""
}

// ForProvider lists the priced models of one provider, sorted by id.
func ForProvider(p comicflow.Provider) []Pricing {
	var out []Pricing
	for _, m := range catalog {
		if m.Provider == p {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}
