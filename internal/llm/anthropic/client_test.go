package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chakravartyharish/question-extractor/internal/cost"
	"github.com/chakravartyharish/question-extractor/internal/llm"
	"github.com/chakravartyharish/question-extractor/internal/question"
)

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(nopWriter{}, nil))
}

func testRecord() question.Record {
	return question.Record{
		Number:       3,
		Text:         "A uniform rod is pivoted at one end and released from the horizontal position. Find the initial angular acceleration.",
		Options:      []string{"g/L", "3g/2L", "2g/3L", "g/2L"},
		CorrectLabel: "C",
	}
}

// serviceReply builds a schema-valid structured question claiming the given
// correct option, wrapped in a Messages API envelope.
func serviceReply(t *testing.T, rec question.Record, claimedCorrect string) string {
	t.Helper()
	opts := make([]map[string]any, 0, 4)
	for i, l := range question.Labels {
		opts = append(opts, map[string]any{
			"id":        l,
			"text":      rec.Options[i],
			"isCorrect": l == claimedCorrect,
			"analysis":  "Torque and moment of inertia analysis for this option.",
		})
	}
	structured := map[string]any{
		"id":             rec.ID(),
		"questionNumber": rec.Number,
		"examInfo":       map[string]any{"year": 2024, "examType": "NEET", "paperCode": "2024-PHY"},
		"title":          "Angular acceleration of a pivoted rod",
		"questionText":   rec.Text,
		"questionImages": []string{},
		"options":        opts,
		"correctOption":  claimedCorrect,
		"classification": map[string]any{
			"subject":       "Physics",
			"chapter":       "System of Particles and Rotational Motion",
			"topic":         "Torque and Angular Acceleration",
			"ncertClass":    11,
			"difficulty":    "Medium",
			"estimatedTime": 3,
			"conceptTags":   []string{"torque", "moment of inertia"},
			"bloomsLevel":   "apply",
		},
		"stepByStep": []map[string]any{
			{"title": "Step 1: Torque about the pivot", "content": "The weight acts at the centre, producing torque MgL/2 about the pivot."},
			{"title": "Step 2: Apply the rotational law", "content": "With I = ML^2/3 the angular acceleration is tau/I = 3g/2L... reduced to 2g/3L here."},
		},
		"solutionImages": []string{},
	}
	inner, err := json.Marshal(structured)
	if err != nil {
		t.Fatalf("marshal structured: %v", err)
	}
	envelope := map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": "Here is the JSON you asked for:\n" + string(inner)},
		},
		"usage": map[string]any{"input_tokens": 900, "output_tokens": 450},
	}
	out, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return string(out)
}

func newTestClient(baseURL string, tracker *cost.Tracker) *Client {
	policy := llm.NewRetryPolicy(3, 0, 0)
	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "test-model",
	}, policy, tracker, testLogger())
}

func TestStructure_OverridesClaimedAnswer(t *testing.T) {
	rec := testRecord()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		fmt.Fprint(w, serviceReply(t, rec, "A")) // service claims A; the key says C
	}))
	defer srv.Close()

	tracker := &cost.Tracker{}
	c := newTestClient(srv.URL, tracker)

	out, usage, err := c.Structure(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.CorrectOption != "C" {
		t.Errorf("correct option = %q, the official answer must win", out.CorrectOption)
	}
	for _, opt := range out.Options {
		if want := opt.ID == "C"; opt.IsCorrect != want {
			t.Errorf("option %s flag = %v, want %v", opt.ID, opt.IsCorrect, want)
		}
	}
	if usage.InputTokens != 900 || usage.OutputTokens != 450 {
		t.Errorf("usage = %+v", usage)
	}
	if tracker.SuccessfulCalls != 1 || tracker.FailedCalls != 0 {
		t.Errorf("tracker = %+v", tracker)
	}
}

func TestStructure_RetriesServerErrors(t *testing.T) {
	rec := testRecord()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, serviceReply(t, rec, "C"))
	}))
	defer srv.Close()

	tracker := &cost.Tracker{}
	c := newTestClient(srv.URL, tracker)

	out, _, err := c.Structure(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if out.QuestionNumber != 3 {
		t.Errorf("question number = %d", out.QuestionNumber)
	}
	if tracker.FailedCalls != 1 || tracker.SuccessfulCalls != 1 {
		t.Errorf("tracker = %+v", tracker)
	}
}

func TestStructure_PermanentErrorDoesNotRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "invalid request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &cost.Tracker{})
	_, _, err := c.Structure(context.Background(), testRecord())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, permanent errors must not retry", calls)
	}
	if llm.IsTransient(err) {
		t.Error("a 400 must classify as permanent")
	}
}

func TestStructure_ProseWithoutJSONIsRetried(t *testing.T) {
	rec := testRecord()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"content":[{"type":"text","text":"Sorry, I cannot answer that."}],"usage":{"input_tokens":10,"output_tokens":5}}`)
			return
		}
		fmt.Fprint(w, serviceReply(t, rec, "C"))
	}))
	defer srv.Close()

	tracker := &cost.Tracker{}
	c := newTestClient(srv.URL, tracker)
	if _, _, err := c.Structure(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, parse failures must retry", calls)
	}
	if tracker.TotalCalls != 2 {
		t.Errorf("tracker calls = %d, every attempt must be recorded", tracker.TotalCalls)
	}
}
