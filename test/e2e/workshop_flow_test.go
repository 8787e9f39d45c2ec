package e2e

import (
	"context"
	"strings"
	"testing"

	"github.com/hyperengineering/tinyleap/internal/types"
	"github.com/hyperengineering/tinyleap/pkg/client"
)

// seed creates a workshop with one user behavior.
func seed(t *testing.T, c *client.Client, text string) (*client.Workshop, *client.Behavior) {
	t.Helper()
	ctx := context.Background()
	ws, err := c.CreateWorkshop(ctx, "Read more books")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := c.AddBehavior(ctx, ws.ID, text)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	return ws, b
}

func TestWorkshop_FullFlow(t *testing.T) {
	env := setupServer(t)
	c := env.client
	ctx := context.Background()

	health, err := c.Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.Status != "healthy" || health.Store != "sqlite" {
		t.Errorf("unexpected health: %+v", health)
	}

	ws, err := c.CreateWorkshop(ctx, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.SetVision(ctx, ws.ID, "Read more books"); err != nil {
		t.Fatalf("set vision: %v", err)
	}

	// --- Canvas ---

	first, err := c.AddBehavior(ctx, ws.ID, "Read one page after dinner")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if first.IntuitivePosition != (client.Position{X: 50, Y: 50}) || first.Source != "user" {
		t.Errorf("unexpected new behavior: %+v", first)
	}

	added, err := c.GenerateBehaviors(ctx, ws.ID, client.LanguageEN)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(added) != 1 || added[0].Text != "Put a book on the pillow" {
		t.Fatalf("expected only the new proposal, got %+v", added)
	}
	if _, err := c.MoveBehavior(ctx, ws.ID, added[0].ID, 30, 30); err != nil {
		t.Fatalf("move: %v", err)
	}

	novel, err := c.AddBehavior(ctx, ws.ID, "Finish a novel every week")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// --- Coached evaluation ---

	s := c.Session(ws.ID, first.ID)
	view, err := s.Check(ctx, client.LanguageEN)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !view.Can(client.ActionStartChat) {
		t.Fatalf("expected start_chat to be allowed, got %v", view.Actions)
	}
	if _, err := s.Confirm(ctx); !client.IsConflict(err) {
		t.Errorf("expected conflict confirming before chat, got %v", err)
	}

	view, err = s.Start(ctx, client.LanguageEN)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	replies := 0
	for view.Step == client.StepChatting {
		view, err = s.Reply(ctx, "Because stories help me unwind", client.LanguageEN)
		if err != nil {
			t.Fatalf("reply: %v", err)
		}
		replies++
		if replies > view.MaxQuestions {
			t.Fatalf("still chatting after %d replies", replies)
		}
	}
	if view.Step != client.StepSummary {
		t.Fatalf("expected summary, got %q", view.Step)
	}
	if view.QuestionsAsked > view.MaxQuestions {
		t.Errorf("asked %d questions, max %d", view.QuestionsAsked, view.MaxQuestions)
	}

	view, err = s.Confirm(ctx)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	b := view.Behavior
	if view.Step != client.StepCompleted || !b.IsEvaluated || !b.IsGolden {
		t.Errorf("expected evaluated golden behavior, got step %q %+v", view.Step, b)
	}
	if b.RationalScore == nil || *b.RationalScore != (client.Score{Impact: 80, Ability: 75}) {
		t.Errorf("expected final score 80/75, got %+v", b.RationalScore)
	}
	if b.AiEvaluation == nil || b.AiEvaluation.FinalSummary == "" {
		t.Errorf("expected final summary, got %+v", b.AiEvaluation)
	}

	// --- Preliminary acceptance ---

	ns := c.Session(ws.ID, novel.ID)
	if _, err := ns.Check(ctx, client.LanguageEN); err != nil {
		t.Fatalf("check: %v", err)
	}
	view, err = ns.Accept(ctx)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if view.Behavior.IsGolden || view.Behavior.RationalScore == nil || view.Behavior.RationalScore.Impact != 90 {
		t.Errorf("expected high-impact challenge, got %+v", view.Behavior)
	}

	// --- SOP ---

	sop, err := c.GenerateSOP(ctx, ws.ID, client.LanguageEN)
	if err != nil {
		t.Fatalf("sop: %v", err)
	}
	if len(sop.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %+v", sop.Sections)
	}
	if sop.Sections[0].BehaviorText != "Finish a novel every week" || sop.Sections[0].BehaviorType != "challenge" {
		t.Errorf("expected challenge first by impact, got %+v", sop.Sections[0])
	}
	if sop.Sections[1].BehaviorType != "golden" {
		t.Errorf("expected golden second, got %+v", sop.Sections[1])
	}

	// --- Persistence through the coalescer ---

	env.waitFlushed(t)
	stored, err := env.store.Get(ctx, ws.ID)
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	if stored.Vision != "Read more books" || len(stored.Behaviors) != 3 {
		t.Errorf("unexpected stored workshop: vision %q, %d behaviors", stored.Vision, len(stored.Behaviors))
	}
	if stored.SOPData == nil || len(stored.SOPData.Sections) != 2 {
		t.Errorf("expected SOP persisted, got %+v", stored.SOPData)
	}
	i := stored.FindBehavior(first.ID)
	if i < 0 {
		t.Fatal("evaluated behavior missing from store")
	}
	if sb := stored.Behaviors[i]; !sb.IsGolden || sb.AiEvaluation == nil || sb.AiEvaluation.Step != types.StepCompleted {
		t.Errorf("expected completed golden behavior persisted, got %+v", sb)
	}
}

func TestWorkshop_EditResetsEvaluation(t *testing.T) {
	env := setupServer(t)
	c := env.client
	ctx := context.Background()

	ws, b := seed(t, c, "Put a book on the pillow")
	s := c.Session(ws.ID, b.ID)
	if _, err := s.Check(ctx, client.LanguageEN); err != nil {
		t.Fatalf("check: %v", err)
	}
	if _, err := s.Accept(ctx); err != nil {
		t.Fatalf("accept: %v", err)
	}

	edited, err := c.EditBehavior(ctx, ws.ID, b.ID, "Put two books on the pillow")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.IsEvaluated || edited.RationalScore != nil || edited.AiEvaluation != nil {
		t.Errorf("expected evaluation reset, got %+v", edited)
	}

	view, err := s.View(ctx)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if !view.Can(client.ActionCheck) {
		t.Errorf("expected a fresh session, got actions %v", view.Actions)
	}
}

func TestWorkshop_NotABehavior(t *testing.T) {
	env := setupServer(t)
	c := env.client
	ctx := context.Background()

	ws, b := seed(t, c, "Be a reader")

	view, err := c.Session(ws.ID, b.ID).Check(ctx, client.LanguageEN)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	ev := view.Behavior.AiEvaluation
	if ev == nil || ev.IsBehavior || ev.Suggestion == "" {
		t.Errorf("expected rejection with suggestion, got %+v", ev)
	}
	if view.Can(client.ActionAcceptPreliminary) {
		t.Error("a rejected behavior has no preliminary score to accept")
	}
}

func TestWorkshop_SOPNeedsQualifyingBehaviors(t *testing.T) {
	env := setupServer(t)
	c := env.client
	ctx := context.Background()

	ws, b := seed(t, c, "Reorganize the whole shelf")
	if _, err := c.MoveBehavior(ctx, ws.ID, b.ID, 10, 10); err != nil {
		t.Fatalf("move: %v", err)
	}

	_, err := c.GenerateSOP(ctx, ws.ID, client.LanguageEN)
	if client.StatusOf(err) != 422 {
		t.Errorf("expected 422, got %v", err)
	}
}

func TestWorkshop_DeleteAndMissing(t *testing.T) {
	env := setupServer(t)
	c := env.client
	ctx := context.Background()

	ws, b := seed(t, c, "Read one page after dinner")

	if err := c.DeleteBehavior(ctx, ws.ID, b.ID); err != nil {
		t.Fatalf("delete behavior: %v", err)
	}
	if _, err := c.Session(ws.ID, b.ID).View(ctx); !client.IsNotFound(err) {
		t.Errorf("expected not found for deleted behavior, got %v", err)
	}

	if err := c.DeleteWorkshop(ctx, ws.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := c.DeleteWorkshop(ctx, ws.ID); err != nil {
		t.Errorf("second delete should succeed, got %v", err)
	}
	if _, err := c.GetWorkshop(ctx, ws.ID); !client.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}

	list, err := c.ListWorkshops(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, s := range list {
		if s.ID == ws.ID {
			t.Error("deleted workshop still listed")
		}
	}
}

func TestWorkshop_StreamQuestion(t *testing.T) {
	env := setupServer(t)

	q, err := env.client.NextQuestion(context.Background(), client.QuestionRequest{
		Behavior: "Read one page after dinner",
		Vision:   "Read more books",
		Language: client.LanguageEN,
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if !strings.HasPrefix(q, "Question ") {
		t.Errorf("unexpected question %q", q)
	}
}

func TestWorkshop_Password(t *testing.T) {
	env := setupServer(t)
	c := env.client
	ctx := context.Background()

	isSet, err := c.PasswordSet(ctx)
	if err != nil || isSet {
		t.Fatalf("expected unset password, got %v %v", isSet, err)
	}
	if err := c.SetPassword(ctx, "tiny-habits", ""); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.VerifyPassword(ctx, "tiny-habits"); err != nil {
		t.Errorf("verify: %v", err)
	}
	if err := c.VerifyPassword(ctx, "wrong"); client.StatusOf(err) != 401 {
		t.Errorf("expected 401, got %v", err)
	}
	if err := c.SetPassword(ctx, "new", "wrong"); err == nil {
		t.Error("expected change with wrong old password to fail")
	}
}
