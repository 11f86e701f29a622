package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chakravartyharish/question-extractor/internal/cost"
	"github.com/chakravartyharish/question-extractor/internal/llm"
	"github.com/chakravartyharish/question-extractor/internal/question"
)

// Config for the Anthropic Messages API client.
type Config struct {
	APIKey      string
	BaseURL     string // default https://api.anthropic.com
	Version     string // anthropic-version header
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Client implements llm.Structurer against the Messages API.
type Client struct {
	cfg        Config
	retry      llm.RetryPolicy
	tracker    *cost.Tracker
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, retry llm.RetryPolicy, tracker *cost.Tracker, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Version == "" {
		cfg.Version = "2023-06-01"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		retry:      retry,
		tracker:    tracker,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}

const systemPrompt = "You are a NEET Physics expert. Generate detailed step-by-step solutions " +
	"explaining the provided correct answer. NEVER guess or change the correct answer provided. " +
	"Your job is to EXPLAIN, not to SOLVE. Return ONLY valid JSON matching the schema."

// Structure sends one record to the service under the retry policy and parses
// the response into a structured question. The record's verified answer is
// pinned in the prompt and enforced again on the parsed result.
func (c *Client) Structure(ctx context.Context, rec question.Record) (question.Structured, llm.Usage, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.structure.start",
		"req_id", rid,
		"number", rec.Number,
		"model", c.cfg.Model,
		"correct_label", rec.CorrectLabel,
	)

	userPrompt := buildUserPrompt(rec)
	body := map[string]any{
		"model":       c.cfg.Model,
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": c.cfg.Temperature,
		"system":      systemPrompt,
		"messages": []map[string]any{
			{"role": "user", "content": userPrompt},
		},
	}

	var out question.Structured
	var total llm.Usage

	err := c.retry.Do(ctx, c.log, func(attempt int) error {
		parsed, usage, err := c.attempt(ctx, rid, rec, body, userPrompt)
		total.InputTokens += usage.InputTokens
		total.OutputTokens += usage.OutputTokens
		if c.tracker != nil {
			c.tracker.RecordCall(usage.InputTokens, usage.OutputTokens, err == nil)
		}
		if err != nil {
			return err
		}
		out = parsed
		return nil
	})
	if err != nil {
		c.log.Error("llm.structure.failed",
			"req_id", rid,
			"number", rec.Number,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return question.Structured{}, total, err
	}

	c.log.Info("llm.structure.ok",
		"req_id", rid,
		"number", rec.Number,
		"chapter", out.Classification.Chapter,
		"topic", out.Classification.Topic,
		"steps", len(out.StepByStep),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, total, nil
}

// attempt is one call: POST, decode, lenient JSON extraction, backfill,
// integrity enforcement, schema check.
func (c *Client) attempt(ctx context.Context, rid string, rec question.Record, body map[string]any, userPrompt string) (question.Structured, llm.Usage, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/messages"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		return question.Structured{}, llm.Usage{}, err
	}

	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return question.Structured{}, llm.Usage{}, llm.TransientError(fmt.Errorf("decode response envelope: %w", err))
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	usage := llm.Usage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens}
	if usage.InputTokens == 0 && usage.OutputTokens == 0 {
		usage.InputTokens = cost.EstimateTokens(userPrompt)
		usage.OutputTokens = cost.EstimateTokens(content.String())
	}

	doc, err := llm.ExtractJSONObject(content.String())
	if err != nil {
		c.log.Warn("llm.structure.parse_failed", "req_id", rid, "number", rec.Number, "error", err)
		return question.Structured{}, usage, llm.TransientError(err)
	}

	var out question.Structured
	if err := json.Unmarshal(doc, &out); err != nil {
		return question.Structured{}, usage, llm.TransientError(fmt.Errorf("unmarshal structured question: %w", err))
	}

	llm.Backfill(&out, rec)
	llm.EnforceAnswer(&out, rec, c.log)

	// Structural check against the dataset schema; a malformed document is a
	// permanent failure for this record, not worth more attempts.
	normalized, err := json.Marshal(out)
	if err != nil {
		return question.Structured{}, usage, &llm.ServiceError{Transient: false, Err: err}
	}
	if err := llm.ValidateJSONAgainstSchema(question.BuildStructuredSchema(), normalized); err != nil {
		c.log.Warn("llm.structure.schema_failed", "req_id", rid, "number", rec.Number, "error", err)
		return question.Structured{}, usage, &llm.ServiceError{Transient: false, Err: err}
	}

	return out, usage, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", c.cfg.Version)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, llm.TransientError(fmt.Errorf("http error: %w", err))
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.log.Warn("response body close error", "error", err)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := buf.String()
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return nil, llm.ClassifyStatus(resp.StatusCode, fmt.Errorf("api error: %s", msg))
	}
	return buf.Bytes(), nil
}

func buildUserPrompt(rec question.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a NEET Physics question analyzer. Your task is to explain the solution, NOT to find the answer.\n\n")
	fmt.Fprintf(&b, "Question %d: %s\n\nOptions:\n", rec.Number, rec.Text)
	for i, l := range question.Labels {
		fmt.Fprintf(&b, "%s) %s\n", l, rec.Options[i])
	}
	fmt.Fprintf(&b, "\n**CORRECT ANSWER FROM THE OFFICIAL ANSWER KEY: Option %s**\n\n", rec.CorrectLabel)
	fmt.Fprintf(&b, "**CRITICAL: The correct answer is %s. DO NOT change or question this answer. Your job is to EXPLAIN why it is correct.**\n\n", rec.CorrectLabel)
	b.WriteString("Your task:\n")
	fmt.Fprintf(&b, "1. Provide detailed step-by-step reasoning explaining WHY option %s is the correct answer\n", rec.CorrectLabel)
	b.WriteString("2. Explain WHY each of the other options is incorrect\n")
	b.WriteString("3. Include relevant physics formulas and calculations with proper units\n")
	b.WriteString("4. Use real NCERT chapter names and classification metadata\n")
	b.WriteString("5. Provide at least 3-4 solution steps and 3-5 concept tags; NO placeholder text\n\n")
	fmt.Fprintf(&b, "Set \"id\" to %q and \"questionNumber\" to %d. examInfo is year 2024, examType NEET, paperCode 2024-PHY.\n\n", rec.ID(), rec.Number)
	b.WriteString("Return ONLY a JSON object matching this schema:\n")
	b.WriteString(mustJSON(question.BuildStructuredSchema()))
	fmt.Fprintf(&b, "\n\nREMEMBER: correctOption MUST be %q and only option %s may have isCorrect true.\n", rec.CorrectLabel, rec.CorrectLabel)
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
