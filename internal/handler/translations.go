// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lingotag/lingotag/internal/fingerprint"
	"github.com/lingotag/lingotag/internal/model"
	"github.com/lingotag/lingotag/internal/translate"
)

// editRequest is the PUT /api/translations/{hash}/{lang} body.
type editRequest struct {
	Text string `json:"text"`
}

// EditTranslation handles a human correction. The edited record is flagged
// so automatic re-fetching never overwrites it.
func (h *Handler) EditTranslation(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	lang := chi.URLParam(r, "lang")

	if !fingerprint.IsValid(hash) {
		WriteBadRequest(w, "invalid identifier")
		return
	}
	// The base sentinel is editable too: it corrects the canonical text.
	if lang != model.LangOther {
		if err := model.ValidateLangCode(lang); err != nil {
			WriteBadRequest(w, err.Error())
			return
		}
	}

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid JSON body")
		return
	}
	if req.Text == "" {
		WriteBadRequest(w, "text is required")
		return
	}

	err := h.resolver.Edit(r.Context(), hash, lang, req.Text)
	if errors.Is(err, translate.ErrNotFound) {
		WriteNotFound(w, "translation not found")
		return
	}
	if err != nil {
		h.logger.Error("translation edit failed", "hash", hash, "lang", lang, "error", err)
		WriteInternalError(w, "translation edit failed")
		return
	}

	WriteSuccess(w, map[string]any{"hash": hash, "lang": lang})
}
