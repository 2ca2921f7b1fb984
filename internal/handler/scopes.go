// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lingotag/lingotag/internal/model"
)

// DeleteScope handles DELETE /api/scopes/{scopeID}. The host calls it when
// a scope (a course) is deleted: all of the scope's mappings are removed and
// translation records whose hash no longer maps to any scope are pruned.
func (h *Handler) DeleteScope(w http.ResponseWriter, r *http.Request) {
	scopeID, err := strconv.ParseInt(chi.URLParam(r, "scopeID"), 10, 64)
	if err != nil {
		WriteBadRequest(w, "scope id must be an integer")
		return
	}

	ctx := r.Context()
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		h.logger.Error("scope deletion failed", "scope_id", scopeID, "error", err)
		WriteInternalError(w, "scope deletion failed")
		return
	}
	defer func() { _ = tx.Rollback() }()

	qtx := h.queries.WithTx(tx)
	removed, err := qtx.DeleteScopeMappings(ctx, scopeID)
	if err != nil {
		h.logger.Error("scope deletion failed", "scope_id", scopeID, "error", err)
		WriteInternalError(w, "scope deletion failed")
		return
	}
	pruned, err := qtx.PruneOrphans(ctx)
	if err != nil {
		h.logger.Error("orphan pruning failed", "scope_id", scopeID, "error", err)
		WriteInternalError(w, "scope deletion failed")
		return
	}
	if err := tx.Commit(); err != nil {
		h.logger.Error("scope deletion failed", "scope_id", scopeID, "error", err)
		WriteInternalError(w, "scope deletion failed")
		return
	}

	h.logger.Info("scope deleted",
		"category", model.EventCategoryScope,
		"scope_id", scopeID,
		"mappings_removed", removed,
		"records_pruned", pruned,
	)

	WriteSuccess(w, map[string]any{
		"scope_id":         scopeID,
		"mappings_removed": removed,
		"records_pruned":   pruned,
	})
}
