package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/tinyleap/internal/store"
	"github.com/hyperengineering/tinyleap/internal/types"
	"github.com/hyperengineering/tinyleap/internal/validation"
)

// ListWorkshops handles GET /api/behaviors/all and GET /api/workshops.
func (h *Handler) ListWorkshops(w http.ResponseWriter, r *http.Request) {
	list, err := h.Workshops.List(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// LatestWorkshop handles GET /api/behaviors. It creates an empty workshop
// when none exists.
func (h *Handler) LatestWorkshop(w http.ResponseWriter, r *http.Request) {
	ws, err := store.Latest(r.Context(), h.Workshops)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// GetWorkshop handles GET /api/behaviors/{id} and GET /api/workshops/{id}.
func (h *Handler) GetWorkshop(w http.ResponseWriter, r *http.Request) {
	ws, err := h.Workshops.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// CreateWorkshop handles POST /api/behaviors/create and POST /api/workshops.
func (h *Handler) CreateWorkshop(w http.ResponseWriter, r *http.Request) {
	var req types.CreateWorkshopRequest
	if !decodeJSON(w, r, &req, true) || !validate(w, r, validation.ValidateCreateWorkshop(&req)) {
		return
	}

	ws, err := h.Workshops.Create(r.Context(), req.Vision)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// DeleteWorkshop handles DELETE /api/behaviors/{id}. Deleting a missing
// workshop succeeds.
func (h *Handler) DeleteWorkshop(w http.ResponseWriter, r *http.Request) {
	if err := h.Workshops.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.SuccessResponse{Success: true})
}

// SaveWorkshop handles POST /api/behaviors/save/{id} and PUT
// /api/workshops/{id}: the whole document is replaced, last writer wins.
func (h *Handler) SaveWorkshop(w http.ResponseWriter, r *http.Request) {
	var req types.WorkshopContent
	if !decodeJSON(w, r, &req, false) || !validate(w, r, validation.ValidateWorkshopContent(&req)) {
		return
	}

	ws, err := h.Service.Replace(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// SetVision handles PUT /api/workshops/{id}/vision.
func (h *Handler) SetVision(w http.ResponseWriter, r *http.Request) {
	var req types.VisionRequest
	if !decodeJSON(w, r, &req, false) || !validate(w, r, validation.ValidateVision(&req)) {
		return
	}

	ws, err := h.Service.SetVision(r.Context(), chi.URLParam(r, "id"), req.Vision)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// ClearWorkshop handles POST /api/workshops/{id}/clear.
func (h *Handler) ClearWorkshop(w http.ResponseWriter, r *http.Request) {
	ws, err := h.Service.Clear(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// AddBehavior handles POST /api/workshops/{id}/behaviors.
func (h *Handler) AddBehavior(w http.ResponseWriter, r *http.Request) {
	var req types.TextRequest
	if !decodeJSON(w, r, &req, false) || !validate(w, r, validation.ValidateText(&req)) {
		return
	}

	b, err := h.Service.AddBehavior(r.Context(), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// GenerateBehaviors handles POST /api/workshops/{id}/behaviors/generate.
func (h *Handler) GenerateBehaviors(w http.ResponseWriter, r *http.Request) {
	var req types.LanguageRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	added, err := h.Service.GenerateBehaviors(r.Context(), chi.URLParam(r, "id"), types.ParseLanguage(req.Language))
	if err != nil {
		MapError(w, r, err)
		return
	}
	if added == nil {
		added = []types.Behavior{}
	}
	writeJSON(w, http.StatusOK, types.GenerateBehaviorsResponse{Added: added})
}

// MoveBehavior handles PUT /api/workshops/{id}/behaviors/{behaviorID}/position.
// Coordinates outside 0–100 are clamped.
func (h *Handler) MoveBehavior(w http.ResponseWriter, r *http.Request) {
	var req types.MoveRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	b, err := h.Service.MoveBehavior(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "behaviorID"),
		types.Position{X: req.Ability, Y: req.Impact})
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// EditBehaviorText handles PUT /api/workshops/{id}/behaviors/{behaviorID}/text.
func (h *Handler) EditBehaviorText(w http.ResponseWriter, r *http.Request) {
	var req types.TextRequest
	if !decodeJSON(w, r, &req, false) || !validate(w, r, validation.ValidateText(&req)) {
		return
	}

	b, err := h.Service.EditText(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "behaviorID"), req.Text)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// DeleteBehavior handles DELETE /api/workshops/{id}/behaviors/{behaviorID}.
func (h *Handler) DeleteBehavior(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteBehavior(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "behaviorID")); err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.SuccessResponse{Success: true})
}

// GenerateWorkshopSOP handles POST /api/workshops/{id}/sop.
func (h *Handler) GenerateWorkshopSOP(w http.ResponseWriter, r *http.Request) {
	var req types.LanguageRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	sop, err := h.Service.GenerateSOP(r.Context(), chi.URLParam(r, "id"), types.ParseLanguage(req.Language))
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sop)
}
