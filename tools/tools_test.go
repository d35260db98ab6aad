package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/richinex/chronica/analysis"
	"github.com/richinex/chronica/model"
)

// stubTool counts executions and fails a configured number of times before
// succeeding.
type stubTool struct {
	name        string
	failures    int
	failWith    error
	validateErr error
	calls       int
}

func (s *stubTool) Metadata() ToolMetadata {
	return ToolMetadata{Name: s.name, Description: "test tool", Schema: map[string]any{"type": "object"}}
}

func (s *stubTool) Validate(json.RawMessage) error { return s.validateErr }

func (s *stubTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	s.calls++
	if s.calls <= s.failures {
		return FailureResult(s.failWith), nil
	}
	return SuccessResult("ok"), nil
}

func TestExecutorRetriesTransientFailures(t *testing.T) {
	tool := &stubTool{name: "flaky", failures: 2, failWith: errors.New("connection reset")}
	e := NewDefaultExecutor()

	result, err := e.Execute(context.Background(), tool, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success() {
		t.Fatalf("expected success after retries, got %v", result.Error)
	}
	if tool.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", tool.calls)
	}
}

func TestExecutorExhaustsRetries(t *testing.T) {
	tool := &stubTool{name: "down", failures: 10, failWith: errors.New("still broken")}
	e := NewExecutor(ExecutorConfig{MaxRetries: 2})

	result, err := e.Execute(context.Background(), tool, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Success() {
		t.Fatal("expected failure after exhausting retries")
	}
	if tool.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", tool.calls)
	}
	msg := result.Error.Error()
	if !strings.Contains(msg, "down") || !strings.Contains(msg, "2 attempts") || !strings.Contains(msg, "still broken") {
		t.Errorf("failure message should name tool, attempts and cause: %q", msg)
	}
}

func TestExecutorNeverRetriesValidationFailures(t *testing.T) {
	// Validation rejection before the first attempt.
	tool := &stubTool{name: "strict", validateErr: model.Validationf("bad args")}
	e := NewDefaultExecutor()

	result, err := e.Execute(context.Background(), tool, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Success() {
		t.Fatal("expected validation failure")
	}
	if tool.calls != 0 {
		t.Errorf("tool must not run when validation fails, got %d calls", tool.calls)
	}

	// Validation-class failure from Execute stops the retry loop too.
	tool = &stubTool{name: "strict", failures: 10, failWith: model.NotFoundf("cached result %q", "res_gone")}
	result, err = e.Execute(context.Background(), tool, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Success() {
		t.Fatal("expected failure")
	}
	if tool.calls != 1 {
		t.Errorf("non-retryable failure should run once, got %d calls", tool.calls)
	}
}

// blockingTool waits for its context and reports how it was stopped.
type blockingTool struct {
	calls int
}

func (b *blockingTool) Metadata() ToolMetadata {
	return ToolMetadata{Name: "slow", Description: "test tool", Schema: map[string]any{"type": "object"}}
}

func (b *blockingTool) Validate(json.RawMessage) error { return nil }

func (b *blockingTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	b.calls++
	<-ctx.Done()
	return ToolResult{}, ctx.Err()
}

func TestExecutorTimesOutBlockedTool(t *testing.T) {
	tool := &blockingTool{}
	e := NewExecutor(ExecutorConfig{TimeoutSecs: 1, MaxRetries: 1})

	start := time.Now()
	result, err := e.Execute(context.Background(), tool, json.RawMessage(`{}`))
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("a timed out attempt must surface as a tool failure, not an error: %v", err)
	}
	if result.Success() {
		t.Fatal("expected failure")
	}
	msg := result.Error.Error()
	if !strings.Contains(msg, "slow") || !strings.Contains(msg, "timed out") {
		t.Errorf("failure should name the tool and the timeout: %q", msg)
	}
	if tool.calls != 1 {
		t.Errorf("expected 1 attempt, got %d", tool.calls)
	}
	if elapsed > 3*time.Second {
		t.Errorf("configured 1s timeout not applied, took %v", elapsed)
	}
}

func TestExecutorTimeoutDoesNotOutliveCancellation(t *testing.T) {
	tool := &blockingTool{}
	e := NewExecutor(ExecutorConfig{TimeoutSecs: 30, MaxRetries: 3})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := e.Execute(ctx, tool, json.RawMessage(`{}`))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("caller cancellation should abort, got %v", err)
	}
	if tool.calls != 1 {
		t.Errorf("cancelled call must not retry, got %d attempts", tool.calls)
	}
}

func TestRetryableClassification(t *testing.T) {
	if retryable(nil) {
		t.Error("nil error is not retryable")
	}
	if retryable(model.Validationf("x")) {
		t.Error("validation errors are not retryable")
	}
	if retryable(model.NotFoundf("x")) {
		t.Error("not-found errors are not retryable")
	}
	if retryable(context.Canceled) {
		t.Error("cancellation is not retryable")
	}
	if !retryable(errors.New("io timeout")) {
		t.Error("generic failures are retryable")
	}
	if !retryable(fmt.Errorf("wrapped: %w", model.ErrUpstreamFailure)) {
		t.Error("upstream failures are retryable")
	}
}

func TestRetryBackoffDoublesAndCaps(t *testing.T) {
	if d := retryBackoff(1); d != 200*time.Millisecond {
		t.Errorf("attempt 1: got %v", d)
	}
	if d := retryBackoff(2); d != 400*time.Millisecond {
		t.Errorf("attempt 2: got %v", d)
	}
	if d := retryBackoff(30); d != 5*time.Second {
		t.Errorf("large attempt should cap at 5s, got %v", d)
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "beta"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&stubTool{name: "alpha"}); err != nil {
		t.Fatal(err)
	}

	if err := r.Register(&stubTool{name: "alpha"}); err == nil {
		t.Error("duplicate registration should fail")
	}

	if !r.Has("alpha") || r.Has("gamma") {
		t.Error("Has lookup wrong")
	}
	if _, ok := r.Get("beta"); !ok {
		t.Error("Get should find beta")
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("Names should sort: %v", names)
	}

	defs := r.Definitions()
	if len(defs) != 2 || defs[0].Name != "alpha" {
		t.Errorf("Definitions should sort: %+v", defs)
	}

	catalog := r.Catalog()
	if !strings.Contains(catalog, "Tool: alpha") || !strings.Contains(catalog, "Tool: beta") {
		t.Errorf("catalog missing tools: %q", catalog)
	}
}

func TestSchemaForReflectsRequestStruct(t *testing.T) {
	schema := schemaFor[retrieveRequest]()

	if schema["type"] != "object" {
		t.Errorf("expected object schema, got %v", schema["type"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties: %v", schema)
	}
	for _, field := range []string{"scope", "phrase", "keyword", "start", "end", "limit", "preset"} {
		if _, ok := props[field]; !ok {
			t.Errorf("schema missing %q", field)
		}
	}
	if _, ok := schema["$schema"]; ok {
		t.Error("$schema should be stripped")
	}

	scope, ok := props["scope"].(map[string]any)
	if !ok {
		t.Fatal("scope property missing")
	}
	enum, ok := scope["enum"].([]any)
	if !ok || len(enum) != 4 {
		t.Errorf("scope should enumerate the four populations, got %v", scope["enum"])
	}
}

func TestParseRetrieveArgsDates(t *testing.T) {
	q, err := parseRetrieveArgs(json.RawMessage(
		`{"scope":"entries","start":"2025-03-01","end":"2025-03-31"}`))
	if err != nil {
		t.Fatalf("parseRetrieveArgs: %v", err)
	}
	wantStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !q.Start.Equal(wantStart) {
		t.Errorf("start: got %v", q.Start)
	}
	// Bare end dates run to the end of the day so the range is inclusive.
	wantEnd := time.Date(2025, 3, 31, 23, 59, 59, 999999999, time.UTC)
	if !q.End.Equal(wantEnd) {
		t.Errorf("end: got %v, want %v", q.End, wantEnd)
	}

	// RFC3339 timestamps pass through untouched.
	q, err = parseRetrieveArgs(json.RawMessage(
		`{"scope":"entries","end":"2025-03-31T12:00:00Z"}`))
	if err != nil {
		t.Fatal(err)
	}
	if q.End.Hour() != 12 {
		t.Errorf("RFC3339 end should keep its time of day, got %v", q.End)
	}

	_, err = parseRetrieveArgs(json.RawMessage(`{"scope":"entries","start":"march 1st"}`))
	if err == nil {
		t.Fatal("expected error for unrecognized date")
	}
	if !model.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRetrieveValidate(t *testing.T) {
	tool := NewRetrieveTool(nil, nil)

	cases := []struct {
		name string
		args string
	}{
		{"bad scope", `{"scope":"diary"}`},
		{"bad sort", `{"scope":"entries","sort":"newest"}`},
		{"bad view", `{"scope":"entries","view":"chart"}`},
		{"limit too high", `{"scope":"entries","limit":1000}`},
		{"end before start", `{"scope":"entries","start":"2025-06-01","end":"2025-05-01"}`},
		{"negative half life", `{"scope":"entries","half_life_days":-1}`},
		{"malformed json", `{"scope":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tool.Validate(json.RawMessage(tc.args))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !model.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	if err := tool.Validate(json.RawMessage(`{"scope":"entries","phrase":"sleep"}`)); err != nil {
		t.Errorf("valid args rejected: %v", err)
	}
}

func TestAnalyzeValidate(t *testing.T) {
	tool := NewAnalyzeTool(nil)

	cases := []struct {
		name string
		args string
	}{
		{"unknown operation", `{"operation":"summarize","cache_ref":"res_1"}`},
		{"no evidence source", `{"operation":"trend"}`},
		{"correlation without second series", `{"operation":"correlation","cache_ref":"res_1"}`},
		{"malformed json", `{"operation":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tool.Validate(json.RawMessage(tc.args))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !model.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	valid := `{"operation":"correlation","cache_ref":"res_1","second_cache_ref":"res_2"}`
	if err := tool.Validate(json.RawMessage(valid)); err != nil {
		t.Errorf("valid args rejected: %v", err)
	}

	// Inline items satisfy the evidence requirement without a cache_ref.
	inline := `{"operation":"trend","items":[{"item":{"id":"a","scope":"entries","timestamp":"2025-03-01T00:00:00Z"}}]}`
	if err := tool.Validate(json.RawMessage(inline)); err != nil {
		t.Errorf("inline items rejected: %v", err)
	}
}

func TestAnalyzeExecutesInlineItems(t *testing.T) {
	tool := NewAnalyzeTool(analysis.NewRouter(nil, nil, nil, nil))

	metric := func(v float64) *float64 { return &v }
	items := []model.RankedItem{
		{Item: model.SearchableItem{ID: "a", Scope: model.ScopeEntries,
			Timestamp: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Metric: metric(2)}},
		{Item: model.SearchableItem{ID: "b", Scope: model.ScopeEntries,
			Timestamp: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), Metric: metric(4)}},
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		t.Fatal(err)
	}

	args := json.RawMessage(`{"operation":"trend","items":` + string(encoded) + `}`)
	result, err := tool.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success() {
		t.Fatalf("inline items should analyze without a cache: %v", result.Error)
	}

	var res struct {
		Operation string          `json:"operation"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal([]byte(result.Output), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Operation != "trend" {
		t.Errorf("operation %q, want trend", res.Operation)
	}
	var trend struct {
		N         int    `json:"n"`
		Direction string `json:"direction"`
	}
	if err := json.Unmarshal(res.Payload, &trend); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if trend.N != 2 || trend.Direction != "rising" {
		t.Errorf("trend over inline items wrong: %+v", trend)
	}
}

func TestToolResultMarshalJSON(t *testing.T) {
	raw, err := json.Marshal(SuccessResult("all good"))
	if err != nil {
		t.Fatal(err)
	}
	var ok struct {
		Success bool   `json:"success"`
		Output  string `json:"output"`
	}
	if err := json.Unmarshal(raw, &ok); err != nil {
		t.Fatal(err)
	}
	if !ok.Success || ok.Output != "all good" {
		t.Errorf("success marshal wrong: %s", raw)
	}

	raw, err = json.Marshal(FailureResult(errors.New("boom")))
	if err != nil {
		t.Fatal(err)
	}
	var fail struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &fail); err != nil {
		t.Fatal(err)
	}
	if fail.Success || fail.Error != "boom" {
		t.Errorf("failure marshal wrong: %s", raw)
	}
}
