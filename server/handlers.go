package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/wmo-raf/capwire/shared/cap"
	"github.com/wmo-raf/capwire/shared/config"
	"github.com/wmo-raf/capwire/shared/geometries"
	"github.com/wmo-raf/capwire/shared/lifecycle"
	"github.com/wmo-raf/capwire/shared/models"
	"github.com/wmo-raf/capwire/shared/store"
)

type apiHandler struct {
	store      *store.Store
	lifecycle  *lifecycle.Service
	documents  *cap.Documents
	normalizer *geometries.Normalizer
	cfg        *config.Config
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.WithFields(log.Fields{"err": err}).Error("failed to encode response")
		}
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeLifecycleError maps the lifecycle sentinel errors onto HTTP codes.
func writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		writeError(w, http.StatusNotFound, "alert not found")
	case errors.Is(err, lifecycle.ErrImmutableAlert):
		writeError(w, http.StatusConflict, "published Actual alerts are immutable; supersede instead")
	case errors.Is(err, lifecycle.ErrAlreadyPublished):
		writeError(w, http.StatusConflict, "alert is already published")
	default:
		log.WithFields(log.Fields{"err": err}).Error("lifecycle operation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeAlertBody(r *http.Request) (*models.Alert, string, bool) {
	var alert models.Alert
	if err := json.NewDecoder(r.Body).Decode(&alert); err != nil {
		return nil, "invalid alert payload: " + err.Error(), false
	}
	if alert.Status == "" {
		alert.Status = models.StatusActual
	}
	if alert.MsgType == "" {
		alert.MsgType = models.MsgTypeAlert
	}
	if alert.Scope == "" {
		alert.Scope = models.ScopePublic
	}
	if !models.ValidStatus(alert.Status) {
		return nil, "invalid status " + alert.Status, false
	}
	if !models.ValidMsgType(alert.MsgType) {
		return nil, "invalid msgType " + alert.MsgType, false
	}
	return &alert, "", true
}

// --- alerts ---

func (h *apiHandler) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	alert, msg, ok := decodeAlertBody(r)
	if !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if alert.Sender == "" {
		alert.Sender = h.cfg.CAP.Sender
	}

	created, err := h.lifecycle.CreateDraft(r.Context(), alert)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *apiHandler) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.store.GetAlert(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Error("failed to load alert")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if alert == nil {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (h *apiHandler) handleEditAlert(w http.ResponseWriter, r *http.Request) {
	updated, msg, ok := decodeAlertBody(r)
	if !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	alert, err := h.lifecycle.Edit(r.Context(), chi.URLParam(r, "identifier"), updated)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (h *apiHandler) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.lifecycle.Delete(r.Context(), chi.URLParam(r, "identifier")); err != nil {
		writeLifecycleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *apiHandler) handlePublish(w http.ResponseWriter, r *http.Request) {
	alert, err := h.lifecycle.Publish(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (h *apiHandler) handleUnpublish(w http.ResponseWriter, r *http.Request) {
	if err := h.lifecycle.Unpublish(r.Context(), chi.URLParam(r, "identifier")); err != nil {
		writeLifecycleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *apiHandler) handleSupersede(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MsgType string `json:"msgType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}

	successor, err := h.lifecycle.Supersede(r.Context(), chi.URLParam(r, "identifier"), body.MsgType)
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotFound) {
			writeLifecycleError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, successor)
}

func (h *apiHandler) handleRegenerateMultimedia(w http.ResponseWriter, r *http.Request) {
	if err := h.lifecycle.RegenerateMultimedia(r.Context(), chi.URLParam(r, "identifier")); err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (h *apiHandler) handleAlertDeliveries(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.DeliveryEventsByAlert(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Error("failed to list delivery events")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// --- webhook targets ---

func targetID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (h *apiHandler) handleListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.store.Targets(r.Context())
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Error("failed to list webhook targets")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, targets)
}

func (h *apiHandler) handleCreateTarget(w http.ResponseWriter, r *http.Request) {
	var target models.WebhookTarget
	if err := json.NewDecoder(r.Body).Decode(&target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid target payload: "+err.Error())
		return
	}
	if target.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	if err := h.store.CreateTarget(r.Context(), &target); err != nil {
		log.WithFields(log.Fields{"err": err}).Error("failed to create webhook target")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, target)
}

func (h *apiHandler) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	id, ok := targetID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid target id")
		return
	}
	target, err := h.store.GetTarget(r.Context(), id)
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Error("failed to load webhook target")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "target not found")
		return
	}
	writeJSON(w, http.StatusOK, target)
}

func (h *apiHandler) handleUpdateTarget(w http.ResponseWriter, r *http.Request) {
	id, ok := targetID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid target id")
		return
	}

	var target models.WebhookTarget
	if err := json.NewDecoder(r.Body).Decode(&target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid target payload: "+err.Error())
		return
	}
	target.ID = id

	err := h.store.UpdateTarget(r.Context(), &target)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "target not found")
		return
	}
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Error("failed to update webhook target")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, target)
}

func (h *apiHandler) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	id, ok := targetID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid target id")
		return
	}
	if err := h.store.DeleteTarget(r.Context(), id); err != nil {
		log.WithFields(log.Fields{"err": err}).Error("failed to delete webhook target")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *apiHandler) handleTargetDeliveries(w http.ResponseWriter, r *http.Request) {
	id, ok := targetID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid target id")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	events, err := h.store.DeliveryEventsByTarget(r.Context(), id, limit)
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Error("failed to list delivery events")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, events)
}
