package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/tinyleap/internal/agent"
	"github.com/hyperengineering/tinyleap/internal/credential"
	"github.com/hyperengineering/tinyleap/internal/evaluation"
	"github.com/hyperengineering/tinyleap/internal/store"
	"github.com/hyperengineering/tinyleap/internal/types"
	"github.com/hyperengineering/tinyleap/internal/validation"
	"github.com/hyperengineering/tinyleap/internal/workshop"
)

// maxBodyBytes bounds request bodies; whole-workshop saves are the largest.
const maxBodyBytes = 4 << 20

// Validator judges a behavior. Failures are answered with a fallback verdict.
type Validator interface {
	Validate(ctx context.Context, behaviorText, vision string, lang types.Language) types.ValidationResult
}

// Coach produces coaching questions and the final evaluation.
type Coach interface {
	StreamQuestion(ctx context.Context, req agent.QuestionRequest) iter.Seq2[string, error]
	NextQuestion(ctx context.Context, req agent.QuestionRequest) string
	FinalEvaluation(ctx context.Context, req agent.FinalRequest) types.FinalEvaluation
}

// Deps are the collaborators the handlers serve.
type Deps struct {
	// Workshops is the store handlers read from; in the server it is the
	// save coalescer so reads see pending writes.
	Workshops   store.WorkshopStore
	Service     *workshop.Service
	Sessions    *evaluation.Manager
	Credentials *credential.Service
	Validator   Validator
	Designer    workshop.BehaviorDesigner
	Coach       Coach
	Writer      workshop.SOPGenerator

	Version   string
	Model     string
	StoreName string
	// PendingSaves reports queued workshop saves. Optional.
	PendingSaves func() int
}

// Handler implements the API handlers
type Handler struct {
	Deps
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	return &Handler{Deps: d}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := types.HealthResponse{
		Status:  "healthy",
		Version: h.Version,
		Model:   h.Model,
		Store:   h.StoreName,
	}
	if h.PendingSaves != nil {
		resp.PendingSaves = h.PendingSaves()
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst at its
// zero value when allowEmpty is set. It writes the problem response and
// returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil:
		return true
	case errors.Is(err, io.EOF) && allowEmpty:
		return true
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteProblem(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("Body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err))
		return false
	}
}

// validate writes a 422 response when errs is non-empty.
func validate(w http.ResponseWriter, r *http.Request, errs []validation.ValidationError) bool {
	if len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "component", "api", "error", err)
	}
}
