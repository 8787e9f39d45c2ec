package e2e

import (
	"context"
	"iter"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/hyperengineering/tinyleap/internal/agent"
	"github.com/hyperengineering/tinyleap/internal/api"
	"github.com/hyperengineering/tinyleap/internal/credential"
	"github.com/hyperengineering/tinyleap/internal/evaluation"
	"github.com/hyperengineering/tinyleap/internal/metrics"
	"github.com/hyperengineering/tinyleap/internal/store"
	"github.com/hyperengineering/tinyleap/internal/types"
	"github.com/hyperengineering/tinyleap/internal/worker"
	"github.com/hyperengineering/tinyleap/internal/workshop"
	"github.com/hyperengineering/tinyleap/pkg/client"
)

// --- Scripted agents ---

// scriptedValidator scores by behavior text; unknown texts are not behaviors.
type scriptedValidator struct {
	scores map[string]types.RationalScore
}

func (v *scriptedValidator) Validate(_ context.Context, text, _ string, _ types.Language) types.ValidationResult {
	s, ok := v.scores[text]
	if !ok {
		return types.ValidationResult{IsBehavior: false, Suggestion: "Describe one concrete action."}
	}
	return types.ValidationResult{
		IsBehavior:    true,
		Suggestion:    "Looks tiny enough.",
		Scores:        types.RubricScores{Actionable: 8, Specific: 8, Tiny: 8, Relevance: 8},
		RationalScore: &s,
	}
}

type scriptedDesigner struct {
	items []types.GeneratedBehavior
}

func (d *scriptedDesigner) Generate(_ context.Context, _ string, _ types.Language, _ []string) []types.GeneratedBehavior {
	return d.items
}

// scriptedCoach numbers its questions and gives a fixed final score.
type scriptedCoach struct {
	mu    sync.Mutex
	asked int
	final types.FinalEvaluation
}

func (c *scriptedCoach) question() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.asked++
	return "Question " + strings.Repeat("?", c.asked)
}

func (c *scriptedCoach) StreamQuestion(_ context.Context, _ agent.QuestionRequest) iter.Seq2[string, error] {
	q := c.question()
	return func(yield func(string, error) bool) {
		for _, part := range strings.SplitAfter(q, " ") {
			if !yield(part, nil) {
				return
			}
		}
	}
}

func (c *scriptedCoach) NextQuestion(_ context.Context, _ agent.QuestionRequest) string {
	return c.question()
}

func (c *scriptedCoach) FinalEvaluation(_ context.Context, _ agent.FinalRequest) types.FinalEvaluation {
	return c.final
}

// recordingWriter echoes the behaviors it was asked to cover.
type recordingWriter struct {
	mu    sync.Mutex
	items []types.SOPItem
}

func (w *recordingWriter) Generate(_ context.Context, vision string, items []types.SOPItem, _ types.Language) *types.SOPData {
	w.mu.Lock()
	w.items = items
	w.mu.Unlock()

	sop := &types.SOPData{Title: "Plan for " + vision, Overview: "Start tiny."}
	for _, it := range items {
		sop.Sections = append(sop.Sections, types.SOPSection{
			BehaviorText: it.Text,
			BehaviorType: it.Type,
			Steps:        []string{"Do it after breakfast"},
			Tips:         []string{"Keep it visible"},
			Motivation:   "Every page counts",
		})
	}
	return sop
}

// --- In-process server ---

type testEnv struct {
	client *client.Client
	store  *store.SQLiteStore
	saves  *worker.SaveCoalescer
	coach  *scriptedCoach
	writer *recordingWriter
}

// setupServer runs the full API stack over a file-backed SQLite store with
// scripted agents and a running save coalescer.
func setupServer(t *testing.T) *testEnv {
	t.Helper()

	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "tinyleap.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	env := &testEnv{
		store: db,
		saves: worker.NewSaveCoalescer(db, 20*time.Millisecond),
		coach: &scriptedCoach{final: types.FinalEvaluation{
			Summary: "You know why this matters.",
			Score:   types.RationalScore{Impact: 80, Ability: 75},
		}},
		writer: &recordingWriter{},
	}
	validator := &scriptedValidator{scores: map[string]types.RationalScore{
		"Read one page after dinner": {Impact: 70, Ability: 85},
		"Finish a novel every week":  {Impact: 90, Ability: 20},
		"Put a book on the pillow":   {Impact: 65, Ability: 90},
		"Reorganize the whole shelf": {Impact: 20, Ability: 40},
	}}
	designer := &scriptedDesigner{items: []types.GeneratedBehavior{
		{Text: "Put a book on the pillow", Ability: 80, Impact: 60},
		{Text: "Read one page after dinner", Ability: 70, Impact: 70},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		env.saves.Run(ctx)
	}()

	service := workshop.NewService(env.saves, designer, env.writer)
	handler := api.NewHandler(api.Deps{
		Workshops:    env.saves,
		Service:      service,
		Sessions:     evaluation.NewManager(service, validator, env.coach, metrics.MustNew(prometheus.NewRegistry())),
		Credentials:  credential.NewService(db, bcrypt.MinCost),
		Validator:    validator,
		Designer:     designer,
		Coach:        env.coach,
		Writer:       env.writer,
		Version:      "e2e",
		Model:        "scripted",
		StoreName:    "sqlite",
		PendingSaves: env.saves.Pending,
	})
	srv := httptest.NewServer(api.NewRouter(handler))
	env.client = client.New(srv.URL)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
		db.Close()
	})
	return env
}

// waitFlushed waits until the coalescer has written every pending save.
func (e *testEnv) waitFlushed(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for e.saves.Pending() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("saves still pending: %d", e.saves.Pending())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
