package client

import "time"

// Language codes accepted by the server. Empty means Chinese.
const (
	LanguageZH = "zh"
	LanguageEN = "en"
)

// Evaluation session steps.
const (
	StepEvaluating = "evaluating"
	StepChatting   = "chatting"
	StepSummary    = "summary"
	StepCompleted  = "completed"
)

// Position is a placement on the canvas: X is ability, Y is impact.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Score is an Impact/Ability pair in 0–100.
type Score struct {
	Impact  float64 `json:"impact"`
	Ability float64 `json:"ability"`
}

// ChatEntry is one coaching turn. Role is "ai" or "user".
type ChatEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Evaluation is a behavior's evaluation session record.
type Evaluation struct {
	IsBehavior    bool        `json:"isBehavior"`
	Suggestion    string      `json:"suggestion,omitempty"`
	RationalScore *Score      `json:"rationalScore,omitempty"`
	ChatHistory   []ChatEntry `json:"chatHistory"`
	FinalSummary  string      `json:"finalSummary,omitempty"`
	FinalScore    *Score      `json:"finalScore,omitempty"`
	IsComplete    bool        `json:"isComplete"`
	Step          string      `json:"step,omitempty"`
}

// Behavior is a candidate micro-action.
type Behavior struct {
	ID                string      `json:"id"`
	Text              string      `json:"text"`
	Color             string      `json:"color"`
	IntuitivePosition Position    `json:"intuitivePosition"`
	RationalScore     *Score      `json:"rationalScore,omitempty"`
	IsEvaluated       bool        `json:"isEvaluated"`
	IsGolden          bool        `json:"isGolden"`
	Rotation          float64     `json:"rotation"`
	Source            string      `json:"source"`
	AiEvaluation      *Evaluation `json:"aiEvaluation,omitempty"`
}

// SOPSection is the execution guide for one behavior.
type SOPSection struct {
	BehaviorText string   `json:"behaviorText"`
	BehaviorType string   `json:"behaviorType"`
	Steps        []string `json:"steps"`
	Tips         []string `json:"tips"`
	Motivation   string   `json:"motivation"`
}

// SOP is a generated standard operating procedure.
type SOP struct {
	Title    string       `json:"title"`
	Overview string       `json:"overview"`
	Sections []SOPSection `json:"sections"`
}

// Workshop is a whole workshop document.
type Workshop struct {
	ID        string     `json:"id"`
	Vision    string     `json:"vision"`
	Behaviors []Behavior `json:"behaviors"`
	SOPData   *SOP       `json:"sopData,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// WorkshopSummary is one entry of the workshop list.
type WorkshopSummary struct {
	ID        string    `json:"id"`
	Vision    string    `json:"vision"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// View is the state of one behavior's evaluation session.
type View struct {
	Behavior       Behavior `json:"behavior"`
	Step           string   `json:"step"`
	PreChatScore   Score    `json:"preChatScore"`
	QuestionsAsked int      `json:"questionsAsked"`
	MaxQuestions   int      `json:"maxQuestions"`
	Actions        []string `json:"actions"`
}

// Health is the server health report.
type Health struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Model        string `json:"model"`
	Store        string `json:"store"`
	PendingSaves int    `json:"pending_saves"`
}

// QuestionRequest asks the coach for its next question without a
// server-side session.
type QuestionRequest struct {
	Behavior          string      `json:"behavior"`
	Vision            string      `json:"vision,omitempty"`
	History           []ChatEntry `json:"history,omitempty"`
	Language          string      `json:"language,omitempty"`
	ValidatorCritique string      `json:"validatorCritique,omitempty"`
}
