package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/tinyleap/internal/evaluation"
	"github.com/hyperengineering/tinyleap/internal/types"
	"github.com/hyperengineering/tinyleap/internal/validation"
)

func sessionRef(r *http.Request) evaluation.Ref {
	return evaluation.Ref{
		WorkshopID: chi.URLParam(r, "id"),
		BehaviorID: chi.URLParam(r, "behaviorID"),
	}
}

func writeView(w http.ResponseWriter, r *http.Request, view evaluation.View, err error) {
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// EvaluationView handles GET .../behaviors/{behaviorID}/evaluation.
func (h *Handler) EvaluationView(w http.ResponseWriter, r *http.Request) {
	view, err := h.Sessions.View(r.Context(), sessionRef(r))
	writeView(w, r, view, err)
}

// languageAction serves the session actions whose only input is the language.
func (h *Handler) languageAction(fn func(ctx context.Context, ref evaluation.Ref, lang types.Language) (evaluation.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.LanguageRequest
		if !decodeJSON(w, r, &req, true) {
			return
		}
		view, err := fn(r.Context(), sessionRef(r), types.ParseLanguage(req.Language))
		writeView(w, r, view, err)
	}
}

// EvaluationCheck handles POST .../evaluation/check.
func (h *Handler) EvaluationCheck(w http.ResponseWriter, r *http.Request) {
	h.languageAction(h.Sessions.Check)(w, r)
}

// EvaluationStart handles POST .../evaluation/start.
func (h *Handler) EvaluationStart(w http.ResponseWriter, r *http.Request) {
	h.languageAction(h.Sessions.StartChat)(w, r)
}

// EvaluationReply handles POST .../evaluation/reply.
func (h *Handler) EvaluationReply(w http.ResponseWriter, r *http.Request) {
	var req types.ReplyRequest
	if !decodeJSON(w, r, &req, false) || !validate(w, r, validation.ValidateReply(&req)) {
		return
	}
	view, err := h.Sessions.Reply(r.Context(), sessionRef(r), req.Text, types.ParseLanguage(req.Language))
	writeView(w, r, view, err)
}

// EvaluationAccept handles POST .../evaluation/accept.
func (h *Handler) EvaluationAccept(w http.ResponseWriter, r *http.Request) {
	view, err := h.Sessions.AcceptPreliminary(r.Context(), sessionRef(r))
	writeView(w, r, view, err)
}

// EvaluationConfirm handles POST .../evaluation/confirm.
func (h *Handler) EvaluationConfirm(w http.ResponseWriter, r *http.Request) {
	view, err := h.Sessions.Confirm(r.Context(), sessionRef(r))
	writeView(w, r, view, err)
}

// EvaluationRegenerate handles POST .../evaluation/regenerate.
func (h *Handler) EvaluationRegenerate(w http.ResponseWriter, r *http.Request) {
	view, err := h.Sessions.Regenerate(r.Context(), sessionRef(r))
	writeView(w, r, view, err)
}
