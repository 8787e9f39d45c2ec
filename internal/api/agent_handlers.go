package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/tinyleap/internal/agent"
	"github.com/hyperengineering/tinyleap/internal/quadrant"
	"github.com/hyperengineering/tinyleap/internal/types"
	"github.com/hyperengineering/tinyleap/internal/validation"
	"github.com/hyperengineering/tinyleap/internal/workshop"
)

// Generate handles POST /api/behaviors/generate.
// Proposals repeating an excluded text are dropped.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !decodeJSON(w, r, &req, false) || !validate(w, r, validation.ValidateGenerate(&req)) {
		return
	}

	items := h.Designer.Generate(r.Context(), req.Vision, types.ParseLanguage(req.Language), req.ExcludeTexts)
	writeJSON(w, http.StatusOK, agent.FilterDuplicates(items, req.ExcludeTexts))
}

// Validate handles POST /api/behaviors/validate.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req types.ValidateRequest
	if !decodeJSON(w, r, &req, false) || !validate(w, r, validation.ValidateValidate(&req)) {
		return
	}

	writeJSON(w, http.StatusOK, h.Validator.Validate(r.Context(), req.Behavior, req.Vision, types.ParseLanguage(req.Language)))
}

func questionRequest(req *types.CoachNextRequest) agent.QuestionRequest {
	return agent.QuestionRequest{
		Behavior: req.Behavior,
		Vision:   req.Vision,
		History:  req.History,
		Critique: req.ValidatorCritique,
		Language: types.ParseLanguage(req.Language),
	}
}

// CoachNext handles POST /api/behaviors/coach/next.
func (h *Handler) CoachNext(w http.ResponseWriter, r *http.Request) {
	var req types.CoachNextRequest
	if !decodeJSON(w, r, &req, false) || !validate(w, r, validation.ValidateCoachNext(&req)) {
		return
	}

	content := h.Coach.NextQuestion(r.Context(), questionRequest(&req))
	writeJSON(w, http.StatusOK, types.CoachNextResponse{Content: content})
}

// CoachNextStream handles POST /api/behaviors/coach/next/stream. Each text
// increment is sent as a data event; an empty done event ends a complete
// stream and an error event ends an interrupted one.
func (h *Handler) CoachNextStream(w http.ResponseWriter, r *http.Request) {
	var req types.CoachNextRequest
	if !decodeJSON(w, r, &req, false) || !validate(w, r, validation.ValidateCoachNext(&req)) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteProblem(w, r, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for delta, err := range h.Coach.StreamQuestion(r.Context(), questionRequest(&req)) {
		if err != nil {
			data, _ := json.Marshal(types.StreamError{Message: "The question was cut off. Please ask again."})
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
			flusher.Flush()
			return
		}
		data, err := json.Marshal(types.StreamDelta{Delta: delta})
		if err != nil {
			slog.Error("failed to encode stream delta", "component", "api", "error", err)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			// Client went away; stopping the range cancels the upstream call.
			return
		}
		flusher.Flush()
	}

	fmt.Fprint(w, "event: done\ndata: {}\n\n")
	flusher.Flush()
}

// CoachFinal handles POST /api/behaviors/coach/final.
func (h *Handler) CoachFinal(w http.ResponseWriter, r *http.Request) {
	var req types.CoachFinalRequest
	if !decodeJSON(w, r, &req, false) || !validate(w, r, validation.ValidateCoachFinal(&req)) {
		return
	}

	final := h.Coach.FinalEvaluation(r.Context(), agent.FinalRequest{
		Behavior: req.Behavior,
		Vision:   req.Vision,
		History:  req.History,
		Language: types.ParseLanguage(req.Language),
	})
	writeJSON(w, http.StatusOK, final)
}

// SOP handles POST /api/behaviors/sop. Only golden and challenge behaviors
// are handed to the writer, highest impact first.
func (h *Handler) SOP(w http.ResponseWriter, r *http.Request) {
	var req types.SOPRequest
	if !decodeJSON(w, r, &req, false) || !validate(w, r, validation.ValidateSOP(&req)) {
		return
	}

	items, err := quadrant.SOPInput(req.Behaviors)
	if err != nil {
		MapError(w, r, err)
		return
	}

	sop := h.Writer.Generate(r.Context(), req.Vision, items, types.ParseLanguage(req.Language))
	if sop == nil {
		MapError(w, r, workshop.ErrSOPUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, sop)
}
