package cost

// PricingService looks up per-1k-token prices for a given provider/model.
// Implementations are injected by the caller; this package ships
// TableService, which prices from a caller-supplied table and falls back to
// a caller-supplied default rate when no model-specific price is known.
type PricingService interface {
	// Price returns the dollar cost of one completion, and whether a
	// model-specific price was found at all.
	Price(provider, model string, promptTokens, completionTokens int) (costUSD float64, found bool)
}

// Rate is a pair of per-1000-token prices.
type Rate struct {
	PromptPer1k     float64
	CompletionPer1k float64
}

// TableService is a PricingService backed by a static provider/model rate
// table, with an engine-default rate used for unknown models.
type TableService struct {
	Rates   map[string]map[string]Rate // provider -> model -> rate
	Default Rate
}

// NewTableService creates a TableService with the given default rate applied
// to any (provider, model) pair absent from rates.
func NewTableService(rates map[string]map[string]Rate, def Rate) *TableService {
	if rates == nil {
		rates = make(map[string]map[string]Rate)
	}
	return &TableService{Rates: rates, Default: def}
}

// Price implements PricingService.
func (s *TableService) Price(provider, model string, promptTokens, completionTokens int) (float64, bool) {
	rate, found := s.Default, false
	if byModel, ok := s.Rates[provider]; ok {
		if r, ok := byModel[model]; ok {
			rate, found = r, true
		}
	}
	cost := float64(promptTokens)/1000*rate.PromptPer1k + float64(completionTokens)/1000*rate.CompletionPer1k
	return cost, found
}

// EstimateCost is a convenience that reads the tracker's current token
// totals and prices them via svc.
func EstimateCost(t *Tracker, svc PricingService, provider, model string) float64 {
	cost, _ := svc.Price(provider, model, t.PromptTokens(), t.CompletionTokens())
	return cost
}
