package client

import (
	"context"
	"net/http"
	"net/url"
	"slices"
)

// Session actions reported in View.Actions.
const (
	ActionCheck             = "check"
	ActionStartChat         = "start_chat"
	ActionAcceptPreliminary = "accept_preliminary"
	ActionReply             = "reply"
	ActionConfirm           = "confirm"
	ActionRegenerate        = "regenerate"
)

// Can reports whether action is allowed in the session's current step.
func (v *View) Can(action string) bool {
	return slices.Contains(v.Actions, action)
}

// Session drives the evaluation of one behavior. The server keeps the
// session state; a Session only addresses it.
type Session struct {
	c    *Client
	path string
}

// Session returns a handle on the evaluation session of a behavior.
func (c *Client) Session(workshopID, behaviorID string) *Session {
	return &Session{
		c:    c,
		path: behaviorPath(workshopID, behaviorID) + "/evaluation",
	}
}

func (s *Session) action(ctx context.Context, method, name string, body any) (*View, error) {
	p := s.path
	if name != "" {
		p += "/" + url.PathEscape(name)
	}
	return call[View](ctx, s.c, method, p, body)
}

// View returns the current session state without changing it.
func (s *Session) View(ctx context.Context) (*View, error) {
	return s.action(ctx, http.MethodGet, "", nil)
}

// Check runs the validator on the behavior.
func (s *Session) Check(ctx context.Context, lang string) (*View, error) {
	return s.action(ctx, http.MethodPost, "check", map[string]string{"language": lang})
}

// Start begins the coaching conversation.
func (s *Session) Start(ctx context.Context, lang string) (*View, error) {
	return s.action(ctx, http.MethodPost, "start", map[string]string{"language": lang})
}

// Reply answers the coach's latest question.
func (s *Session) Reply(ctx context.Context, text, lang string) (*View, error) {
	return s.action(ctx, http.MethodPost, "reply", map[string]string{"text": text, "language": lang})
}

// Accept takes the validator's preliminary score without coaching.
func (s *Session) Accept(ctx context.Context) (*View, error) {
	return s.action(ctx, http.MethodPost, "accept", nil)
}

// Confirm completes the session with the coach's final score.
func (s *Session) Confirm(ctx context.Context) (*View, error) {
	return s.action(ctx, http.MethodPost, "confirm", nil)
}

// Regenerate discards the conversation and starts the session over.
func (s *Session) Regenerate(ctx context.Context) (*View, error) {
	return s.action(ctx, http.MethodPost, "regenerate", nil)
}
