package types

// CreateWorkshopRequest creates a workshop.
type CreateWorkshopRequest struct {
	Vision string `json:"vision"`
}

// GenerateRequest asks the Designer for candidate behaviors.
type GenerateRequest struct {
	Vision       string   `json:"vision"`
	Language     string   `json:"language"`
	ExcludeTexts []string `json:"excludeTexts"`
}

// ValidateRequest asks the Validator to judge one behavior.
type ValidateRequest struct {
	Behavior string `json:"behavior"`
	Vision   string `json:"vision"`
	Language string `json:"language"`
}

// CoachNextRequest asks for the next diagnostic question.
type CoachNextRequest struct {
	Behavior          string      `json:"behavior"`
	Vision            string      `json:"vision"`
	History           []ChatEntry `json:"history"`
	Language          string      `json:"language"`
	ValidatorCritique string      `json:"validatorCritique"`
}

// CoachNextResponse carries one question.
type CoachNextResponse struct {
	Content string `json:"content"`
}

// StreamDelta is one Server-Sent Event payload of a streamed question.
type StreamDelta struct {
	Delta string `json:"delta"`
}

// StreamError is the payload of the error event that ends an interrupted
// question stream.
type StreamError struct {
	Message string `json:"message"`
}

// CoachFinalRequest asks for the concluding evaluation.
type CoachFinalRequest struct {
	Behavior string      `json:"behavior"`
	Vision   string      `json:"vision"`
	History  []ChatEntry `json:"history"`
	Language string      `json:"language"`
}

// SOPRequest asks for an SOP built from the qualifying behaviors of the list.
type SOPRequest struct {
	Vision    string     `json:"vision"`
	Behaviors []Behavior `json:"behaviors"`
	Language  string     `json:"language"`
}

// PasswordRequest verifies or sets the workshop password.
type PasswordRequest struct {
	Password    string `json:"password"`
	OldPassword string `json:"oldPassword,omitempty"`
}

// AuthStatusResponse reports whether a password has been set.
type AuthStatusResponse struct {
	IsSet bool `json:"isSet"`
}

// SuccessResponse acknowledges an operation.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Model   string `json:"model"`
	Store   string `json:"store"`
	// PendingSaves counts workshop saves waiting for the debounce window.
	PendingSaves int `json:"pending_saves"`
}

// --- Workshop-scoped operations ---

// LanguageRequest carries only the output language.
type LanguageRequest struct {
	Language string `json:"language"`
}

// TextRequest adds a behavior or edits its text.
type TextRequest struct {
	Text string `json:"text"`
}

// VisionRequest sets the workshop vision.
type VisionRequest struct {
	Vision string `json:"vision"`
}

// MoveRequest places a behavior on the canvas.
type MoveRequest struct {
	Ability float64 `json:"ability"`
	Impact  float64 `json:"impact"`
}

// ReplyRequest answers the coach's latest question.
type ReplyRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// GenerateBehaviorsResponse lists the behaviors added by a generate call.
type GenerateBehaviorsResponse struct {
	Added []Behavior `json:"added"`
}
