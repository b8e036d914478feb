package usage

// UsageData is the root structure stored in usage.json.
type UsageData struct {
	Version   string          `json:"version"`
	Aggregate AggregatedStats `json:"aggregate"`
}

// AggregatedStats holds token counters broken down by dimension.
type AggregatedStats struct {
	Total      TokenCounts            `json:"total"`
	ByBackend  map[string]TokenCounts `json:"by_backend"`
	ByModel    map[string]TokenCounts `json:"by_model"`
	ByStrength map[string]TokenCounts `json:"by_strength"` // "1".."4"
	Requests   int64                  `json:"requests"`
}

// TokenCounts holds input/output sums.
type TokenCounts struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
	Total  int64 `json:"total"`
}

func (tc *TokenCounts) Add(input, output int64) {
	tc.Input += input
	tc.Output += output
	tc.Total += input + output
}

func (s *AggregatedStats) ensureMaps() {
	if s.ByBackend == nil {
		s.ByBackend = make(map[string]TokenCounts)
	}
	if s.ByModel == nil {
		s.ByModel = make(map[string]TokenCounts)
	}
	if s.ByStrength == nil {
		s.ByStrength = make(map[string]TokenCounts)
	}
}
