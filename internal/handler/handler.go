package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/waveboard-dev/waveboard/internal/service"
	"github.com/waveboard-dev/waveboard/shared/config"
	"github.com/waveboard-dev/waveboard/shared/domain"
	"github.com/waveboard-dev/waveboard/shared/errors"
	"github.com/waveboard-dev/waveboard/shared/logger"
)

// Submitter is the composition pipeline as the handlers see it.
type Submitter interface {
	Submit(ctx context.Context, req *domain.CompositionRequest, actor *domain.AuthContext) (*service.SubmitResult, error)
}

// TokenIssuer hands out single-use submission tokens bound to a session.
type TokenIssuer interface {
	Issue(ctx context.Context, sessionId string) (string, error)
}

// StagingService is the staged attachment surface of the upload handlers.
type StagingService interface {
	Stage(ctx context.Context, owner domain.UserId, pf *domain.PendingFile, validationErrors []string) (*domain.StagedAttachment, error)
	ListForOwner(ctx context.Context, owner domain.UserId) ([]*domain.StagedAttachment, error)
	Purge(ctx context.Context, owner domain.UserId, key domain.StagingKey) error
	SetContext(ctx context.Context, owner domain.UserId, sc domain.StagingContext) error
	Context(ctx context.Context, owner domain.UserId) (*domain.StagingContext, error)
}

// DraftReader loads drafts for the compose form and the draft list.
type DraftReader interface {
	GetDraft(ctx context.Context, id domain.DraftId, owner domain.UserId) (*domain.Draft, error)
	ListDrafts(ctx context.Context, owner domain.UserId) ([]*domain.Draft, error)
}

type Handler struct {
	composer Submitter
	tokens   TokenIssuer
	staging  StagingService
	drafts   DraftReader
	cfg      *config.Config
}

func New(composer Submitter, tokens TokenIssuer, staging StagingService, drafts DraftReader, cfg *config.Config) *Handler {
	return &Handler{composer, tokens, staging, drafts, cfg}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	if e, ok := err.(*errors.ErrorWithStatusCode); ok {
		http.Error(w, e.Message, e.StatusCode)
		return
	}
	if e, ok := err.(*errors.AuthorizationError); ok {
		http.Error(w, e.Error(), http.StatusForbidden)
		return
	}
	logger.Log.Error("request failed", "err", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
