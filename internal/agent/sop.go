package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperengineering/tinyleap/internal/llm"
	"github.com/hyperengineering/tinyleap/internal/metrics"
	"github.com/hyperengineering/tinyleap/internal/types"
)

// stepNumbering matches manual numbering such as "1. ", "2) ", "Step 3:" or "4、".
var stepNumbering = regexp.MustCompile(`(?i)^\s*(?:step\s*)?\d+\s*[.)、:：）-]\s*`)

// SOPWriter synthesizes the execution document for selected behaviors.
type SOPWriter struct {
	caller
}

// NewSOPWriter creates an SOPWriter. m may be nil.
func NewSOPWriter(c llm.Completer, m *metrics.Metrics) *SOPWriter {
	return &SOPWriter{caller{completer: c, metrics: m, name: nameSOP}}
}

type sopSectionOutput struct {
	BehaviorText string   `json:"behaviorText"`
	BehaviorType string   `json:"behaviorType"`
	Steps        []string `json:"steps"`
	Tips         []string `json:"tips"`
	Motivation   string   `json:"motivation"`
}

type sopOutput struct {
	Title    *string             `json:"title"`
	Overview *string             `json:"overview"`
	Sections *[]sopSectionOutput `json:"sections"`
}

func (o *sopOutput) validate() error {
	if o.Title == nil || strings.TrimSpace(*o.Title) == "" {
		return schemaError("missing title")
	}
	if o.Overview == nil {
		return schemaError("missing overview")
	}
	if o.Sections == nil {
		return schemaError("missing sections")
	}
	for i, s := range *o.Sections {
		if len(cleanSteps(s.Steps)) == 0 {
			return schemaError("sections[%d].steps is empty", i)
		}
		if len(nonEmpty(s.Tips)) == 0 {
			return schemaError("sections[%d].tips is empty", i)
		}
		if strings.TrimSpace(s.Motivation) == "" {
			return schemaError("sections[%d].motivation is empty", i)
		}
	}
	return nil
}

// Generate writes one SOP section per item, in item order, each tagged with
// the item's type. It returns nil when items is empty or on any failure; a
// partial document is never returned.
func (w *SOPWriter) Generate(ctx context.Context, vision string, items []types.SOPItem, lang types.Language) *types.SOPData {
	if len(items) == 0 {
		return nil
	}

	p := phrasesFor(lang)
	system := fmt.Sprintf(sopSystemPrompt, vision, p.name)
	lines := make([]string, len(items))
	for i, item := range items {
		label := p.challengeLabel
		if item.Type == types.BehaviorGolden {
			label = p.goldenLabel
		}
		lines[i] = fmt.Sprintf("- [%s] %s", label, item.Text)
	}
	conversation := []llm.Message{{Role: llm.RoleUser, Content: p.sopRequest + "\n" + strings.Join(lines, "\n")}}

	var out sopOutput
	if err := w.structured(ctx, system, conversation, &out); err != nil {
		w.fallback(err, "behaviors", len(items))
		return nil
	}
	if len(*out.Sections) != len(items) {
		w.fallback(schemaError("expected %d sections, got %d", len(items), len(*out.Sections)))
		return nil
	}

	sop := &types.SOPData{
		Title:    *out.Title,
		Overview: *out.Overview,
		Sections: make([]types.SOPSection, len(items)),
	}
	for i, s := range *out.Sections {
		text := strings.TrimSpace(s.BehaviorText)
		if text == "" {
			text = items[i].Text
		}
		sop.Sections[i] = types.SOPSection{
			BehaviorText: text,
			BehaviorType: items[i].Type,
			Steps:        cleanSteps(s.Steps),
			Tips:         nonEmpty(s.Tips),
			Motivation:   s.Motivation,
		}
	}
	return sop
}

// cleanSteps strips manual numbering and drops blank steps.
func cleanSteps(steps []string) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		s = strings.TrimSpace(stepNumbering.ReplaceAllString(s, ""))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
