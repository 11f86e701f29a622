package cost

import (
	"log/slog"
	"strings"
)

// Per-token USD rates for the structuring service.
const (
	inputCostPerToken  = 1.0 / 1_000_000
	outputCostPerToken = 5.0 / 1_000_000
)

// Tracker accumulates token usage and call counts across a run. It is owned
// by the batch driver and updated strictly sequentially after each call; it
// never aborts a run itself.
type Tracker struct {
	TotalCalls      int
	SuccessfulCalls int
	FailedCalls     int
	InputTokens     int
	OutputTokens    int
}

// Estimate is a cost breakdown in USD.
type Estimate struct {
	InputCost  float64
	OutputCost float64
	TotalCost  float64
}

// RecordCall records one external call with its token counts.
func (t *Tracker) RecordCall(inputTokens, outputTokens int, succeeded bool) {
	t.TotalCalls++
	t.InputTokens += inputTokens
	t.OutputTokens += outputTokens
	if succeeded {
		t.SuccessfulCalls++
	} else {
		t.FailedCalls++
	}
}

// Estimate returns the running cost estimate.
func (t *Tracker) Estimate() Estimate {
	in := float64(t.InputTokens) * inputCostPerToken
	out := float64(t.OutputTokens) * outputCostPerToken
	return Estimate{InputCost: in, OutputCost: out, TotalCost: in + out}
}

// LogSummary writes the final usage summary to the run log.
func (t *Tracker) LogSummary(logger *slog.Logger) {
	est := t.Estimate()
	logger.Info("cost.summary",
		"total_calls", t.TotalCalls,
		"successful_calls", t.SuccessfulCalls,
		"failed_calls", t.FailedCalls,
		"input_tokens", t.InputTokens,
		"output_tokens", t.OutputTokens,
		"total_tokens", t.InputTokens+t.OutputTokens,
		"input_cost_usd", est.InputCost,
		"output_cost_usd", est.OutputCost,
		"total_cost_usd", est.TotalCost,
	)
	switch {
	case est.TotalCost > 10.0:
		logger.Warn("cost.threshold_exceeded", "total_cost_usd", est.TotalCost, "threshold_usd", 10.0)
	case est.TotalCost > 5.0:
		logger.Warn("cost.high", "total_cost_usd", est.TotalCost)
	}
}

// EstimateTokens approximates a token count for text when the service does
// not report usage. Word count times 1.3.
func EstimateTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * 1.3)
}
