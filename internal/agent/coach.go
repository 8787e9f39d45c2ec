package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/hyperengineering/tinyleap/internal/llm"
	"github.com/hyperengineering/tinyleap/internal/metrics"
	"github.com/hyperengineering/tinyleap/internal/types"
)

// fallbackFinalScore is the neutral score used when the final evaluation fails.
var fallbackFinalScore = types.RationalScore{Impact: 60, Ability: 60}

var errEmptyQuestion = errors.New("empty question")

// ErrStreamInterrupted is yielded when the question stream fails after part
// of the question was already produced.
var ErrStreamInterrupted = errors.New("question stream interrupted")

// Coach drives the diagnostic dialogue and the final evaluation.
type Coach struct {
	question caller
	final    caller
}

// NewCoach creates a Coach. m may be nil.
func NewCoach(c llm.Completer, m *metrics.Metrics) *Coach {
	return &Coach{
		question: caller{completer: c, metrics: m, name: nameQuestion},
		final:    caller{completer: c, metrics: m, name: nameFinal},
	}
}

// QuestionRequest is the context for one diagnostic question.
type QuestionRequest struct {
	Behavior string
	Vision   string
	History  []types.ChatEntry
	// Critique is the validator's suggestion for this behavior.
	Critique string
	Language types.Language
}

// FinalRequest is the context for the final evaluation.
type FinalRequest struct {
	Behavior string
	Vision   string
	History  []types.ChatEntry
	Language types.Language
}

// OpeningMessage is the first AI turn of a chat: a fixed welcome for
// AI-generated behaviors, the validator's critique otherwise.
func OpeningMessage(source types.Source, critique string, lang types.Language) string {
	if source == types.SourceAI {
		return WelcomeMessage(lang)
	}
	return critique
}

func (c *Coach) questionPrompt(req QuestionRequest) (string, []llm.Message) {
	p := phrasesFor(req.Language)
	system := fmt.Sprintf(questionSystemPrompt, req.Behavior, req.Critique, p.name)

	conversation := toConversation(req.History)
	// The model answers the latest user turn; when the user has not spoken
	// yet, ask for the analysis explicitly.
	if len(req.History) == 0 || req.History[len(req.History)-1].Role == types.RoleAI {
		conversation = append(conversation, llm.Message{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf(p.coachIntro, req.Behavior, req.Vision),
		})
	}
	return system, conversation
}

// StreamQuestion yields the next question as text increments. If the call
// fails before anything was produced, the fallback question is yielded
// instead. A failure after partial output ends the sequence with an error
// wrapping ErrStreamInterrupted.
func (c *Coach) StreamQuestion(ctx context.Context, req QuestionRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		system, conversation := c.questionPrompt(req)
		start := time.Now()
		emitted := false
		var failure error

		for delta, err := range c.question.completer.Stream(ctx, system, conversation) {
			if err != nil {
				failure = err
				break
			}
			emitted = true
			if !yield(delta, nil) {
				c.question.metrics.ObserveCall(c.question.name, "ok", time.Since(start))
				return
			}
		}
		c.question.metrics.ObserveCall(c.question.name, outcome(failure), time.Since(start))

		if failure == nil && !emitted {
			failure = errEmptyQuestion
		}
		if failure == nil {
			return
		}
		c.question.fallback(failure, "emitted", emitted)
		if emitted {
			yield("", fmt.Errorf("%w: %w", ErrStreamInterrupted, failure))
			return
		}
		yield(FallbackQuestion(req.Language), nil)
	}
}

// NextQuestion returns the complete next question. Any failure, including one
// after partial output, yields the fallback question.
func (c *Coach) NextQuestion(ctx context.Context, req QuestionRequest) string {
	system, conversation := c.questionPrompt(req)
	start := time.Now()
	text, err := llm.Collect(c.question.completer.Stream(ctx, system, conversation))
	c.question.metrics.ObserveCall(c.question.name, outcome(err), time.Since(start))

	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyQuestion
	}
	if err != nil {
		c.question.fallback(err)
		return FallbackQuestion(req.Language)
	}
	return text
}

type finalOutput struct {
	Reasoning *string      `json:"reasoning"`
	Summary   *string      `json:"summary"`
	Score     *scoreOutput `json:"score"`
}

func (o *finalOutput) validate() error {
	if o.Summary == nil || strings.TrimSpace(*o.Summary) == "" {
		return schemaError("missing summary")
	}
	if o.Score == nil {
		return schemaError("missing score")
	}
	return o.Score.validate("score")
}

// FinalEvaluation concludes the dialogue with a summary and a definitive score.
// Failures yield a fixed neutral summary and a 60/60 score.
func (c *Coach) FinalEvaluation(ctx context.Context, req FinalRequest) types.FinalEvaluation {
	p := phrasesFor(req.Language)
	system := fmt.Sprintf(finalSystemPrompt, req.Behavior, req.Vision, p.name)
	conversation := append(toConversation(req.History), llm.Message{Role: llm.RoleUser, Content: p.finalRequest})

	var out finalOutput
	if err := c.final.structured(ctx, system, conversation, &out); err != nil {
		c.final.fallback(err)
		return FinalFallback(req.Language)
	}
	return types.FinalEvaluation{
		Summary: *out.Summary,
		Score:   out.Score.value(),
	}
}

// FallbackQuestion is asked when the question call fails.
func FallbackQuestion(lang types.Language) string {
	return phrasesFor(lang).questionFallback
}

// FinalFallback is the evaluation used when the final call fails.
func FinalFallback(lang types.Language) types.FinalEvaluation {
	return types.FinalEvaluation{
		Summary: phrasesFor(lang).summaryFallback,
		Score:   fallbackFinalScore,
	}
}
