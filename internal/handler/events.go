// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"strconv"
)

const defaultEventLimit = 50

// ListEvents handles GET /api/events?limit=N, the audit view over the
// event log.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := int64(defaultEventLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			WriteBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	events, err := h.queries.ListRecentEvents(r.Context(), limit)
	if err != nil {
		h.logger.Error("listing events failed", "error", err)
		WriteInternalError(w, "listing events failed")
		return
	}

	WriteSuccess(w, events)
}
