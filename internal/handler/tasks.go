// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lingotag/lingotag/internal/fetch"
)

// enqueueRequest is the POST /api/tasks body.
type enqueueRequest struct {
	Langs   []string `json:"langs"`
	ScopeID *int64   `json:"scope_id,omitempty"`
}

// EnqueueTask handles POST /api/tasks. It creates a queued fetch task and
// returns its id for polling.
func (h *Handler) EnqueueTask(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid JSON body")
		return
	}

	task, err := h.tracker.Enqueue(r.Context(), fetch.Criteria{
		Langs:   req.Langs,
		ScopeID: req.ScopeID,
	})
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	WriteCreated(w, map[string]any{
		"task_id":       task.TaskID,
		"status":        task.Status,
		"total_entries": task.TotalEntries,
	})
}

// PollTask handles GET /api/tasks/{taskID}, the client polling loop.
func (h *Handler) PollTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	status, err := h.tracker.Poll(r.Context(), taskID)
	if errors.Is(err, fetch.ErrTaskNotFound) {
		WriteNotFound(w, "task not found")
		return
	}
	if err != nil {
		h.logger.Error("polling task failed", "task_id", taskID, "error", err)
		WriteInternalError(w, "polling task failed")
		return
	}

	WriteSuccess(w, status)
}
