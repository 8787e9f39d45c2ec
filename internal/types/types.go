package types

import (
	"time"
)

// GoldenThreshold is the minimum impact and ability a score needs on both axes
// to count as a golden behavior.
const GoldenThreshold = 60

// Source records who proposed a behavior.
type Source string

const (
	SourceUser Source = "user"
	SourceAI   Source = "ai"
)

// Role identifies the author of a coaching chat turn.
type Role string

const (
	RoleAI   Role = "ai"
	RoleUser Role = "user"
)

// Color is the sticky-note color of a behavior on the canvas.
type Color string

const (
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorPink   Color = "pink"
	ColorPurple Color = "purple"
	ColorGray   Color = "gray"
)

// BehaviorColors are the colors randomly assigned to new behaviors.
var BehaviorColors = []Color{ColorYellow, ColorBlue, ColorGreen, ColorPink}

// Language selects the natural language of agent output. It never affects
// JSON keys or schema shape.
type Language string

const (
	LanguageZH Language = "zh"
	LanguageEN Language = "en"
)

// ParseLanguage maps a client language code to a Language.
// Empty means the default (zh); any code other than zh means English.
func ParseLanguage(code string) Language {
	switch code {
	case "", string(LanguageZH):
		return LanguageZH
	default:
		return LanguageEN
	}
}

// Position is a placement on the Impact×Ability canvas.
// X is ability and Y is impact, both in 0–100.
type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// RationalScore is an Impact/Ability pair in 0–100.
type RationalScore struct {
	Impact  float64 `json:"impact" bson:"impact"`
	Ability float64 `json:"ability" bson:"ability"`
}

// IsGolden reports whether the score sits in the golden quadrant.
func (s RationalScore) IsGolden() bool {
	return s.Impact >= GoldenThreshold && s.Ability >= GoldenThreshold
}

// RubricScores are the validator's diagnostic sub-scores, each 0–10.
type RubricScores struct {
	Actionable float64 `json:"actionable" bson:"actionable"`
	Specific   float64 `json:"specific" bson:"specific"`
	Tiny       float64 `json:"tiny" bson:"tiny"`
	Relevance  float64 `json:"relevance" bson:"relevance"`
}

// ChatEntry is one turn of a coaching dialogue.
type ChatEntry struct {
	Role    Role   `json:"role" bson:"role"`
	Content string `json:"content" bson:"content"`
}

// EvaluationStep is the position of a behavior in its evaluation session.
type EvaluationStep string

const (
	StepEvaluating EvaluationStep = "evaluating"
	StepChatting   EvaluationStep = "chatting"
	StepSummary    EvaluationStep = "summary"
	StepCompleted  EvaluationStep = "completed"
)

// AiEvaluation accumulates the results of one evaluation session.
type AiEvaluation struct {
	IsBehavior    bool           `json:"isBehavior" bson:"isBehavior"`
	Suggestion    string         `json:"suggestion,omitempty" bson:"suggestion,omitempty"`
	Scores        *RubricScores  `json:"scores,omitempty" bson:"scores,omitempty"`
	RationalScore *RationalScore `json:"rationalScore,omitempty" bson:"rationalScore,omitempty"`
	ChatHistory   []ChatEntry    `json:"chatHistory" bson:"chatHistory"`
	FinalSummary  string         `json:"finalSummary,omitempty" bson:"finalSummary,omitempty"`
	// FinalScore holds the coach's score until the user confirms it.
	FinalScore *RationalScore `json:"finalScore,omitempty" bson:"finalScore,omitempty"`
	IsComplete bool           `json:"isComplete" bson:"isComplete"`
	Step       EvaluationStep `json:"step,omitempty" bson:"step,omitempty"`
}

// AITurns counts the AI-authored entries in the chat history.
func (e *AiEvaluation) AITurns() int {
	n := 0
	for _, entry := range e.ChatHistory {
		if entry.Role == RoleAI {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (e *AiEvaluation) Clone() *AiEvaluation {
	if e == nil {
		return nil
	}
	out := *e
	if e.Scores != nil {
		s := *e.Scores
		out.Scores = &s
	}
	out.RationalScore = cloneScore(e.RationalScore)
	out.FinalScore = cloneScore(e.FinalScore)
	out.ChatHistory = append([]ChatEntry{}, e.ChatHistory...)
	return &out
}

// Behavior is a candidate micro-action placed on the canvas.
type Behavior struct {
	ID                string         `json:"id" bson:"id"`
	Text              string         `json:"text" bson:"text"`
	Color             Color          `json:"color" bson:"color"`
	IntuitivePosition Position       `json:"intuitivePosition" bson:"intuitivePosition"`
	RationalScore     *RationalScore `json:"rationalScore,omitempty" bson:"rationalScore,omitempty"`
	IsEvaluated       bool           `json:"isEvaluated" bson:"isEvaluated"`
	IsGolden          bool           `json:"isGolden" bson:"isGolden"`
	Rotation          float64        `json:"rotation" bson:"rotation"`
	Source            Source         `json:"source" bson:"source"`
	AiEvaluation      *AiEvaluation  `json:"aiEvaluation,omitempty" bson:"aiEvaluation,omitempty"`
}

// ActiveScore returns the confirmed rational score when the behavior is
// evaluated, otherwise the intuitive position read as ability=x, impact=y.
func (b *Behavior) ActiveScore() RationalScore {
	if b.IsEvaluated && b.RationalScore != nil {
		return *b.RationalScore
	}
	return RationalScore{Impact: b.IntuitivePosition.Y, Ability: b.IntuitivePosition.X}
}

// RefreshGolden recomputes IsGolden from the active score.
func (b *Behavior) RefreshGolden() {
	b.IsGolden = b.ActiveScore().IsGolden()
}

// Clone returns a deep copy.
func (b *Behavior) Clone() Behavior {
	out := *b
	out.RationalScore = cloneScore(b.RationalScore)
	out.AiEvaluation = b.AiEvaluation.Clone()
	return out
}

func cloneScore(s *RationalScore) *RationalScore {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// BehaviorType tags a behavior selected for the SOP.
type BehaviorType string

const (
	BehaviorGolden    BehaviorType = "golden"
	BehaviorChallenge BehaviorType = "challenge"
)

// SOPSection is the execution guide for one behavior.
type SOPSection struct {
	BehaviorText string       `json:"behaviorText" bson:"behaviorText"`
	BehaviorType BehaviorType `json:"behaviorType" bson:"behaviorType"`
	Steps        []string     `json:"steps" bson:"steps"`
	Tips         []string     `json:"tips" bson:"tips"`
	Motivation   string       `json:"motivation" bson:"motivation"`
}

// SOPData is a generated standard operating procedure document.
type SOPData struct {
	Title    string       `json:"title" bson:"title"`
	Overview string       `json:"overview" bson:"overview"`
	Sections []SOPSection `json:"sections" bson:"sections"`
}

// Workshop is the aggregate root persisted as a single document.
type Workshop struct {
	ID        string     `json:"id" bson:"_id"`
	Vision    string     `json:"vision" bson:"vision"`
	Behaviors []Behavior `json:"behaviors" bson:"behaviors"`
	SOPData   *SOPData   `json:"sopData,omitempty" bson:"sopData,omitempty"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// FindBehavior returns the index of the behavior with the given id, or -1.
func (w *Workshop) FindBehavior(id string) int {
	for i := range w.Behaviors {
		if w.Behaviors[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy.
func (w *Workshop) Clone() *Workshop {
	out := *w
	out.Behaviors = make([]Behavior, len(w.Behaviors))
	for i := range w.Behaviors {
		out.Behaviors[i] = w.Behaviors[i].Clone()
	}
	if w.SOPData != nil {
		sop := *w.SOPData
		sop.Sections = make([]SOPSection, len(w.SOPData.Sections))
		for i, s := range w.SOPData.Sections {
			s.Steps = append([]string{}, s.Steps...)
			s.Tips = append([]string{}, s.Tips...)
			sop.Sections[i] = s
		}
		out.SOPData = &sop
	}
	return &out
}

// WorkshopSummary is the list view of a workshop.
type WorkshopSummary struct {
	ID        string    `json:"id" bson:"_id"`
	Vision    string    `json:"vision" bson:"vision"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// WorkshopContent is the replaceable part of a workshop document.
type WorkshopContent struct {
	Vision    string     `json:"vision"`
	Behaviors []Behavior `json:"behaviors"`
	SOPData   *SOPData   `json:"sopData,omitempty"`
}

// GeneratedBehavior is one Designer proposal.
type GeneratedBehavior struct {
	Text      string  `json:"text"`
	Impact    float64 `json:"impact"`
	Ability   float64 `json:"ability"`
	Rationale string  `json:"rationale,omitempty"`
}

// ValidationResult is the Validator's verdict on a behavior.
type ValidationResult struct {
	IsBehavior    bool           `json:"isBehavior"`
	Suggestion    string         `json:"suggestion"`
	Scores        RubricScores   `json:"scores"`
	RationalScore *RationalScore `json:"rationalScore,omitempty"`
}

// FinalEvaluation is the Coach's concluding summary and score.
type FinalEvaluation struct {
	Summary string        `json:"summary"`
	Score   RationalScore `json:"score"`
}

// SOPItem is one behavior handed to the SOP Writer.
type SOPItem struct {
	Text string       `json:"text"`
	Type BehaviorType `json:"type"`
}
