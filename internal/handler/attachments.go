package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/waveboard-dev/waveboard/internal/middleware"
	"github.com/waveboard-dev/waveboard/internal/service"
	"github.com/waveboard-dev/waveboard/shared/validation"
)

// UploadAttachments stages files ahead of submit. Per-file validation
// failures are staged alongside the file and reported; the submit stage
// refuses to promote a file that failed validation.
func (h *Handler) UploadAttachments(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Public.AttachmentsEnabled {
		http.Error(w, "Attachments are disabled", http.StatusForbidden)
		return
	}
	actor := middleware.GetActorFromContext(r)
	owner := service.StagingOwner(actor)

	maxRequestSize := validation.CalculateMaxRequestSize(h.cfg.Public.MaxTotalAttachmentSize, 1<<20)
	if err := validation.ValidateAndParseMultipart(r, w, maxRequestSize); err != nil {
		maxSizeMB := validation.FormatSizeMB(h.cfg.Public.MaxTotalAttachmentSize)
		http.Error(w, fmt.Sprintf("Total attachment size exceeds the limit of %.0f MB", maxSizeMB), http.StatusRequestEntityTooLarge)
		return
	}

	files := r.MultipartForm.File["attachments"]
	pendingFiles, err := validation.ValidateAttachments(
		files,
		h.cfg.Public.AllowedImageMimeTypes,
		h.cfg.Public.AllowedVideoMimeTypes,
		h.cfg.Public.MaxAttachmentsPerMessage,
		h.cfg.Public.MaxAttachmentSizeBytes,
	)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer func() {
		for _, pf := range pendingFiles {
			if closer, ok := pf.Data.(io.Closer); ok {
				closer.Close()
			}
		}
	}()

	type stagedJson struct {
		Key          string   `json:"key"`
		OriginalName string   `json:"original_name"`
		Errors       []string `json:"errors,omitempty"`
	}
	var out []stagedJson
	for _, pf := range pendingFiles {
		staged, err := h.staging.Stage(r.Context(), owner, pf, nil)
		if err != nil {
			writeError(w, err)
			return
		}
		out = append(out, stagedJson{
			Key:          staged.StagingKey,
			OriginalName: staged.OriginalName,
			Errors:       staged.ValidationErrors,
		})
	}

	writeJSON(w, http.StatusCreated, out)
}

// DeleteAttachment removes one staged file before submit.
func (h *Handler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r)
	owner := service.StagingOwner(actor)
	key := mux.Vars(r)["key"]

	if err := h.staging.Purge(r.Context(), owner, key); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
