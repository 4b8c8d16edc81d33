package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"cementops/admin/internal/depotform"
	"cementops/admin/internal/logging"
	"cementops/admin/internal/screens"
	"cementops/admin/internal/selection"

	"github.com/go-chi/chi/v5"
)

func wantsWait(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	return v
}

func (a *App) visit(w http.ResponseWriter, r *http.Request) (*screens.Visit, bool) {
	v, ok := a.screens.Get(chi.URLParam(r, "sid"))
	if !ok {
		writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "screen not found")
		return nil, false
	}
	return v, true
}

func (a *App) handleOpenScreen(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind string `json:"kind" form:"kind"`
		ID   string `json:"id" form:"id"`
	}
	if err := a.decodeBody(r, &body); err != nil {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body")
		return
	}

	v, snap, err := a.screens.Open(r.Context(), screens.Kind(body.Kind), body.ID)
	switch {
	case errors.Is(err, screens.ErrMissingID):
		writeJSON(w, http.StatusOK, snap)
		return
	case errors.Is(err, screens.ErrUnknownKind):
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "kind must be add-depot|edit-depot|view-depot")
		return
	case errors.Is(err, screens.ErrInvalidID):
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id")
		return
	case err != nil:
		writeAPIError(w, http.StatusInternalServerError, "INTERNAL", "could not open screen")
		return
	}

	if wantsWait(r) {
		if err := v.Wait(r.Context()); err != nil {
			return
		}
		snap = v.Snapshot()
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (a *App) handleGetScreen(w http.ResponseWriter, r *http.Request) {
	v, ok := a.visit(w, r)
	if !ok {
		return
	}
	if wantsWait(r) {
		if err := v.Wait(r.Context()); err != nil {
			return
		}
	}
	writeJSON(w, http.StatusOK, v.Snapshot())
}

func (a *App) handleDiscardScreen(w http.ResponseWriter, r *http.Request) {
	if !a.screens.Discard(chi.URLParam(r, "sid")) {
		writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "screen not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type idBody struct {
	ID *int64 `json:"id" form:"id"`
}

func (a *App) handleSelectRegion(w http.ResponseWriter, r *http.Request) {
	v, ok := a.visit(w, r)
	if !ok {
		return
	}
	var body idBody
	if err := a.decodeBody(r, &body); err != nil {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body")
		return
	}
	if body.ID == nil {
		snap, err := v.ClearRegion()
		a.writeScreen(w, r, snap, err)
		return
	}
	snap, err := v.SelectRegion(*body.ID)
	a.writeScreen(w, r, snap, err)
}

func (a *App) handleSelectSubRegion(w http.ResponseWriter, r *http.Request) {
	v, ok := a.visit(w, r)
	if !ok {
		return
	}
	var body idBody
	if err := a.decodeBody(r, &body); err != nil || body.ID == nil {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "id required")
		return
	}
	snap, err := v.SelectSubRegion(*body.ID)
	a.writeScreen(w, r, snap, err)
}

func (a *App) handleSetName(w http.ResponseWriter, r *http.Request) {
	v, ok := a.visit(w, r)
	if !ok {
		return
	}
	var body struct {
		Name string `json:"name" form:"name"`
	}
	if err := a.decodeBody(r, &body); err != nil {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body")
		return
	}
	snap, err := v.SetName(body.Name)
	a.writeScreen(w, r, snap, err)
}

func (a *App) handleSubmit(w http.ResponseWriter, r *http.Request) {
	v, ok := a.visit(w, r)
	if !ok {
		return
	}
	snap, err := v.Submit(r.Context())
	a.writeScreen(w, r, snap, err)
}

// writeScreen always answers with the snapshot; the status code tells the
// front end which kind of error, if any, the snapshot describes.
func (a *App) writeScreen(w http.ResponseWriter, r *http.Request, snap screens.Snapshot, err error) {
	var ve *depotform.ValidationError
	var se *depotform.SubmitError
	status := http.StatusOK
	switch {
	case err == nil:
	case errors.As(err, &ve):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &se):
		status = http.StatusBadGateway
	case errors.Is(err, depotform.ErrSubmitInProgress),
		errors.Is(err, screens.ErrNotReady),
		errors.Is(err, screens.ErrClosed):
		status = http.StatusConflict
	case errors.Is(err, screens.ErrReadOnly):
		status = http.StatusForbidden
	case errors.Is(err, screens.ErrUnknownRegion),
		errors.Is(err, selection.ErrChildUnavailable):
		status = http.StatusUnprocessableEntity
	default:
		logging.FromContext(r.Context()).WithError(err).Error("screen action failed")
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, snap)
}
