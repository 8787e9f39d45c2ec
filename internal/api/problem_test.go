package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperengineering/tinyleap/internal/credential"
	"github.com/hyperengineering/tinyleap/internal/evaluation"
	"github.com/hyperengineering/tinyleap/internal/quadrant"
	"github.com/hyperengineering/tinyleap/internal/store"
	"github.com/hyperengineering/tinyleap/internal/validation"
	"github.com/hyperengineering/tinyleap/internal/workshop"
)

func TestWriteProblem_ContentType(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/workshops/x", nil)

	WriteProblem(w, r, http.StatusNotFound, "Workshop not found")

	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q, want application/problem+json", ct)
	}
}

func TestWriteProblem_BodyFormat(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/workshops/x/sop", nil)

	WriteProblem(w, r, http.StatusServiceUnavailable, "SOP unavailable, try again")

	var p Problem
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	want := Problem{
		Type:     problemBase + "service-unavailable",
		Title:    "Service Unavailable",
		Status:   http.StatusServiceUnavailable,
		Detail:   "SOP unavailable, try again",
		Instance: "/api/workshops/x/sop",
	}
	if p != want {
		t.Errorf("problem = %+v, want %+v", p, want)
	}
}

func TestWriteProblem_UnknownStatus(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/behaviors/save/x", nil)

	WriteProblem(w, r, http.StatusRequestEntityTooLarge, "Body exceeds 4194304 bytes")

	var p Problem
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if p.Type != problemBase+"unknown" || p.Title != "Request Entity Too Large" {
		t.Errorf("problem = %+v", p)
	}
}

func TestWriteProblemWithErrors_422(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/behaviors/validate", nil)

	errs := []validation.ValidationError{{Field: "behavior", Message: "is required"}}
	WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
	var p ProblemWithErrors
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if p.Type != problemBase+"validation-error" || len(p.Errors) != 1 || p.Errors[0].Field != "behavior" {
		t.Errorf("problem = %+v", p)
	}
}

func TestMapError(t *testing.T) {
	captureLogs(t)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"workshop not found", fmt.Errorf("get: %w", store.ErrNotFound), http.StatusNotFound, "Workshop not found"},
		{"behavior not found", workshop.ErrBehaviorNotFound, http.StatusNotFound, "Behavior not found"},
		{"password not set", credential.ErrNotSet, http.StatusNotFound, "Password not set"},
		{"wrong password", credential.ErrUnauthorized, http.StatusUnauthorized, "Invalid password"},
		{"invalid transition", fmt.Errorf("confirm: %w", evaluation.ErrInvalidTransition), http.StatusConflict, ""},
		{"not a behavior", evaluation.ErrNotABehavior, http.StatusConflict, evaluation.ErrNotABehavior.Error()},
		{"no score", evaluation.ErrNoScore, http.StatusConflict, evaluation.ErrNoScore.Error()},
		{"stale", evaluation.ErrStale, http.StatusConflict, evaluation.ErrStale.Error()},
		{"busy", evaluation.ErrBusy, http.StatusConflict, evaluation.ErrBusy.Error()},
		{"nothing qualifies", quadrant.ErrNothingQualifies, http.StatusUnprocessableEntity, "No golden or challenge behavior qualifies for the SOP"},
		{"empty text", workshop.ErrEmptyText, http.StatusUnprocessableEntity, workshop.ErrEmptyText.Error()},
		{"empty reply", evaluation.ErrEmptyReply, http.StatusUnprocessableEntity, evaluation.ErrEmptyReply.Error()},
		{"empty password", credential.ErrEmptyPassword, http.StatusUnprocessableEntity, credential.ErrEmptyPassword.Error()},
		{"sop unavailable", workshop.ErrSOPUnavailable, http.StatusServiceUnavailable, "SOP unavailable, try again"},
		{"unknown", errors.New("disk I/O error at /var/lib/tinyleap"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/test", nil)

			MapError(w, r, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var p Problem
			if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if tt.wantDetail != "" && p.Detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", p.Detail, tt.wantDetail)
			}
		})
	}
}
