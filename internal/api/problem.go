package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/tinyleap/internal/credential"
	"github.com/hyperengineering/tinyleap/internal/evaluation"
	"github.com/hyperengineering/tinyleap/internal/quadrant"
	"github.com/hyperengineering/tinyleap/internal/store"
	"github.com/hyperengineering/tinyleap/internal/validation"
	"github.com/hyperengineering/tinyleap/internal/workshop"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

const problemBase = "https://tinyleap.dev/errors/"

// problemTypes maps HTTP status codes to RFC 7807 type URIs and titles.
var problemTypes = map[int]struct {
	typeURI string
	title   string
}{
	http.StatusBadRequest:          {problemBase + "bad-request", "Bad Request"},
	http.StatusUnauthorized:        {problemBase + "unauthorized", "Unauthorized"},
	http.StatusNotFound:            {problemBase + "not-found", "Not Found"},
	http.StatusConflict:            {problemBase + "conflict", "Conflict"},
	http.StatusUnprocessableEntity: {problemBase + "validation-error", "Validation Error"},
	http.StatusInternalServerError: {problemBase + "internal-error", "Internal Server Error"},
	http.StatusServiceUnavailable:  {problemBase + "service-unavailable", "Service Unavailable"},
}

func newProblem(r *http.Request, status int, detail string) Problem {
	pt, ok := problemTypes[status]
	if !ok {
		pt.typeURI = problemBase + "unknown"
		pt.title = http.StatusText(status)
	}
	return Problem{
		Type:     pt.typeURI,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}
}

// WriteProblem writes an RFC 7807 Problem Details response.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeProblemBody(w, status, newProblem(r, status, detail))
}

// ProblemWithErrors extends Problem with validation error details.
type ProblemWithErrors struct {
	Problem
	Errors []validation.ValidationError `json:"errors,omitempty"`
}

// WriteProblemWithErrors writes a 422 Problem Details response with field errors.
func WriteProblemWithErrors(w http.ResponseWriter, r *http.Request, detail string, errs []validation.ValidationError) {
	writeProblemBody(w, http.StatusUnprocessableEntity, ProblemWithErrors{
		Problem: newProblem(r, http.StatusUnprocessableEntity, detail),
		Errors:  errs,
	})
}

func writeProblemBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode problem response", "error", err)
	}
}

// MapError converts domain errors to Problem Details responses.
func MapError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Workshop not found")
	case errors.Is(err, workshop.ErrBehaviorNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Behavior not found")
	case errors.Is(err, credential.ErrNotSet):
		WriteProblem(w, r, http.StatusNotFound, "Password not set")
	case errors.Is(err, credential.ErrUnauthorized):
		WriteProblem(w, r, http.StatusUnauthorized, "Invalid password")

	case errors.Is(err, evaluation.ErrInvalidTransition),
		errors.Is(err, evaluation.ErrNotABehavior),
		errors.Is(err, evaluation.ErrNoScore),
		errors.Is(err, evaluation.ErrStale),
		errors.Is(err, evaluation.ErrBusy):
		WriteProblem(w, r, http.StatusConflict, err.Error())

	case errors.Is(err, quadrant.ErrNothingQualifies):
		WriteProblem(w, r, http.StatusUnprocessableEntity, "No golden or challenge behavior qualifies for the SOP")
	case errors.Is(err, workshop.ErrEmptyText),
		errors.Is(err, evaluation.ErrEmptyReply),
		errors.Is(err, credential.ErrEmptyPassword):
		WriteProblem(w, r, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, workshop.ErrSOPUnavailable):
		WriteProblem(w, r, http.StatusServiceUnavailable, "SOP unavailable, try again")

	default:
		// Never expose internal error details to client
		slog.Error("request failed",
			"component", "api",
			"path", r.URL.Path,
			"error", err,
		)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}
