// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http"
)

// renderRequest is the POST /api/render body: marked host content plus the
// viewer's language.
type renderRequest struct {
	Content string `json:"content"`
	Lang    string `json:"lang"`
}

// Render resolves marked content for a language. The host calls this at
// render time; unmarked content passes through, untranslated markers fall
// back to the base text.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid JSON body")
		return
	}

	resolved, err := h.resolver.Resolve(r.Context(), req.Content, req.Lang)
	if err != nil {
		h.logger.Error("render resolution failed", "lang", req.Lang, "error", err)
		WriteInternalError(w, "render resolution failed")
		return
	}

	WriteSuccess(w, map[string]string{"content": resolved, "lang": req.Lang})
}
