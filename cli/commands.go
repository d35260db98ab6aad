// CLI command implementations.
//
// Information Hiding:
// - Session transcript loading hidden
// - Import format parsing hidden

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/richinex/chronica/model"
)

// Ask runs one conversation turn against the timeline, optionally resuming
// a stored session.
func Ask(ctx context.Context, question, sessionID string, opts Options) error {
	app, err := BuildApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	var prior []model.ConversationTurn
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else {
		prior, err = app.Store.Load(ctx, sessionID)
		if err != nil && !model.IsNotFound(err) {
			return fmt.Errorf("loading session %s: %w", sessionID, err)
		}
	}

	kernel, err := app.RequireKernel()
	if err != nil {
		return err
	}
	kernel = kernel.WithStorage(app.Store, sessionID)
	result, _, err := kernel.RunConversationTurn(ctx, question, prior)
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)
	if result.Limited() {
		fmt.Fprintln(os.Stderr, "\n(answer is partial: reasoning step limit reached)")
	}
	if result.Confidence == model.ConfidenceLow {
		fmt.Fprintln(os.Stderr, "\n(low retrieval confidence: treat this answer with care)")
	}

	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "\nsession: %s  llm calls: %d  tokens: %d  elapsed: %dms\n",
			sessionID, result.LLMCalls, result.Usage.TotalTokens, result.ElapsedMs)
		for _, tc := range result.ToolsUsed {
			fmt.Fprintf(os.Stderr, "  tool: %s\n", tc)
		}
	}
	return nil
}

// importRecord is one line of an import file.
type importRecord struct {
	ID         string   `json:"id,omitempty"`
	Scope      string   `json:"scope"`
	Timestamp  string   `json:"timestamp"`
	Text       string   `json:"text"`
	Metric     *float64 `json:"metric,omitempty"`
	ParentID   string   `json:"parent_id,omitempty"`
	FragmentID string   `json:"fragment_id,omitempty"`
}

// Import loads newline-delimited JSON records into the store.
func Import(ctx context.Context, path string, opts Options) error {
	app, err := BuildApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var items []model.SearchableItem
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec importRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		scope, err := model.ParseScope(rec.Scope)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		ts, err := parseTimestamp(rec.Timestamp)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		id := rec.ID
		if id == "" {
			id = uuid.NewString()
		}

		items = append(items, model.SearchableItem{
			ID:         id,
			Scope:      scope,
			Timestamp:  ts,
			Text:       rec.Text,
			Metric:     rec.Metric,
			ParentID:   rec.ParentID,
			FragmentID: rec.FragmentID,
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err := app.Store.PutItems(ctx, items); err != nil {
		return fmt.Errorf("storing items: %w", err)
	}
	fmt.Printf("imported %d items\n", len(items))
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	}
	return ts, nil
}

// Tools prints the tool catalog.
func Tools(opts Options) error {
	app, err := BuildApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	fmt.Println(app.Registry.Catalog())
	return nil
}

// Sessions lists stored conversation sessions.
func Sessions(ctx context.Context, opts Options) error {
	app, err := BuildApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	ids, err := app.Store.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("no stored sessions")
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
