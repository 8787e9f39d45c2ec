package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hyperengineering/tinyleap/internal/llm"
	"github.com/hyperengineering/tinyleap/internal/metrics"
	"github.com/hyperengineering/tinyleap/internal/types"
)

// Designer brainstorms candidate behaviors for a vision.
type Designer struct {
	caller
}

// NewDesigner creates a Designer. m may be nil.
func NewDesigner(c llm.Completer, m *metrics.Metrics) *Designer {
	return &Designer{caller{completer: c, metrics: m, name: nameDesigner}}
}

type designerItem struct {
	Text      *string  `json:"text"`
	Impact    *float64 `json:"impact"`
	Ability   *float64 `json:"ability"`
	Rationale string   `json:"rationale"`
}

type designerOutput struct {
	Behaviors *[]designerItem `json:"behaviors"`
}

func (o *designerOutput) validate() error {
	if o.Behaviors == nil {
		return schemaError("missing behaviors")
	}
	return nil
}

// Generate proposes behaviors spanning the golden, quick-win and challenge
// quadrants. Items with empty text or out-of-range scores are dropped. On any
// failure the result is empty, which callers treat as "nothing generated".
func (d *Designer) Generate(ctx context.Context, vision string, lang types.Language, excludeTexts []string) []types.GeneratedBehavior {
	p := phrasesFor(lang)
	system := fmt.Sprintf(designerSystemPrompt, exclusionBlock(excludeTexts), p.name)
	conversation := []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(p.designerRequest, vision)}}

	var out designerOutput
	if err := d.structured(ctx, system, conversation, &out); err != nil {
		d.fallback(err)
		return []types.GeneratedBehavior{}
	}

	items := make([]types.GeneratedBehavior, 0, len(*out.Behaviors))
	for _, item := range *out.Behaviors {
		if item.Text == nil || strings.TrimSpace(*item.Text) == "" {
			continue
		}
		if !inRange(item.Impact, 0, 100) || !inRange(item.Ability, 0, 100) {
			slog.Debug("dropping designer item with invalid scores",
				"component", "agent",
				"agent", nameDesigner,
				"text", *item.Text,
			)
			continue
		}
		items = append(items, types.GeneratedBehavior{
			Text:      strings.TrimSpace(*item.Text),
			Impact:    *item.Impact,
			Ability:   *item.Ability,
			Rationale: item.Rationale,
		})
	}
	return items
}

func exclusionBlock(excludeTexts []string) string {
	if len(excludeTexts) == 0 {
		return ""
	}
	lines := make([]string, len(excludeTexts))
	for i, t := range excludeTexts {
		lines[i] = "- " + t
	}
	return fmt.Sprintf(designerExclusionBlock, strings.Join(lines, "\n"))
}

// FilterDuplicates removes generated items whose text matches an excluded text
// or an earlier item, comparing trimmed, case-folded text.
func FilterDuplicates(items []types.GeneratedBehavior, excludeTexts []string) []types.GeneratedBehavior {
	seen := make(map[string]struct{}, len(excludeTexts)+len(items))
	for _, t := range excludeTexts {
		seen[normalizeText(t)] = struct{}{}
	}

	out := make([]types.GeneratedBehavior, 0, len(items))
	for _, item := range items {
		key := normalizeText(item.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
