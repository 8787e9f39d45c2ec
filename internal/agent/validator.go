package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperengineering/tinyleap/internal/llm"
	"github.com/hyperengineering/tinyleap/internal/metrics"
	"github.com/hyperengineering/tinyleap/internal/types"
)

// fallbackRubricScore is the neutral sub-score reported when validation fails.
const fallbackRubricScore = 8

// Validator checks a candidate behavior against the four rubrics.
type Validator struct {
	caller
}

// NewValidator creates a Validator. m may be nil.
func NewValidator(c llm.Completer, m *metrics.Metrics) *Validator {
	return &Validator{caller{completer: c, metrics: m, name: nameValidator}}
}

// validatorOutput is the structured-output contract of the validator call.
// Pointer fields distinguish missing keys from zero values.
type validatorOutput struct {
	IsBehavior *bool   `json:"isBehavior"`
	Suggestion *string `json:"suggestion"`
	Scores     *struct {
		Actionable *float64 `json:"actionable"`
		Specific   *float64 `json:"specific"`
		Tiny       *float64 `json:"tiny"`
		Relevance  *float64 `json:"relevance"`
	} `json:"scores"`
	RationalScore *scoreOutput `json:"rationalScore"`
}

type scoreOutput struct {
	Impact  *float64 `json:"impact"`
	Ability *float64 `json:"ability"`
}

func (s *scoreOutput) validate(field string) error {
	if !inRange(s.Impact, 0, 100) || !inRange(s.Ability, 0, 100) {
		return schemaError("%s must hold impact and ability in 0-100", field)
	}
	return nil
}

func (s *scoreOutput) value() types.RationalScore {
	return types.RationalScore{Impact: *s.Impact, Ability: *s.Ability}
}

func (o *validatorOutput) validate() error {
	if o.IsBehavior == nil {
		return schemaError("missing isBehavior")
	}
	if o.Suggestion == nil || strings.TrimSpace(*o.Suggestion) == "" {
		return schemaError("missing suggestion")
	}
	if o.Scores == nil {
		return schemaError("missing scores")
	}
	for name, v := range map[string]*float64{
		"actionable": o.Scores.Actionable,
		"specific":   o.Scores.Specific,
		"tiny":       o.Scores.Tiny,
		"relevance":  o.Scores.Relevance,
	} {
		if !inRange(v, 0, 10) {
			return schemaError("scores.%s must be in 0-10", name)
		}
	}
	if o.RationalScore != nil {
		return o.RationalScore.validate("rationalScore")
	}
	return nil
}

// Validate judges behaviorText against vision. It never fails: any transport,
// parse or schema failure yields ValidatorFallback.
func (v *Validator) Validate(ctx context.Context, behaviorText, vision string, lang types.Language) types.ValidationResult {
	result, err := v.Judge(ctx, behaviorText, vision, lang)
	if err != nil {
		v.fallback(err)
		return ValidatorFallback(lang)
	}
	return result
}

// Judge is Validate without the fallback: failures are returned to the caller.
func (v *Validator) Judge(ctx context.Context, behaviorText, vision string, lang types.Language) (types.ValidationResult, error) {
	p := phrasesFor(lang)
	system := fmt.Sprintf(validatorSystemPrompt, vision, p.name)
	conversation := []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(p.validateRequest, behaviorText)}}

	var out validatorOutput
	if err := v.structured(ctx, system, conversation, &out); err != nil {
		return types.ValidationResult{}, err
	}

	result := types.ValidationResult{
		IsBehavior: *out.IsBehavior,
		Suggestion: *out.Suggestion,
		Scores: types.RubricScores{
			Actionable: *out.Scores.Actionable,
			Specific:   *out.Scores.Specific,
			Tiny:       *out.Scores.Tiny,
			Relevance:  *out.Scores.Relevance,
		},
	}
	if out.RationalScore != nil {
		score := out.RationalScore.value()
		result.RationalScore = &score
	}
	return result, nil
}

// ValidatorFallback is the verdict used when validation cannot complete.
// It passes the behavior so the user's flow is never blocked.
func ValidatorFallback(lang types.Language) types.ValidationResult {
	return types.ValidationResult{
		IsBehavior: true,
		Suggestion: phrasesFor(lang).validatorFallback,
		Scores: types.RubricScores{
			Actionable: fallbackRubricScore,
			Specific:   fallbackRubricScore,
			Tiny:       fallbackRubricScore,
			Relevance:  fallbackRubricScore,
		},
	}
}
