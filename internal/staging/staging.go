// Package staging holds attachments uploaded before the enclosing post is
// committed. Files live on disk; the per-user index lives in Redis so it
// survives across failed preview/submit cycles within a session.
package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/waveboard-dev/waveboard/shared/domain"
	"github.com/waveboard-dev/waveboard/shared/errors"
	"github.com/waveboard-dev/waveboard/shared/logger"
)

const keyPrefix = "post_tmp_"

// Store is the per-user staging area. Keys are namespaced by the owning
// user id so cross-user leakage is structurally impossible.
type Store struct {
	rdb   *redis.Client
	files *FileStore
	ttl   time.Duration
}

func NewStore(rdb *redis.Client, files *FileStore, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{rdb: rdb, files: files, ttl: ttl}
}

func indexKey(owner domain.UserId) string {
	return fmt.Sprintf("staging:%d", owner)
}

func contextKey(owner domain.UserId) string {
	return fmt.Sprintf("staging_ctx:%d", owner)
}

// OwnerOf extracts the owning user id from a staging key.
func OwnerOf(key domain.StagingKey) (domain.UserId, bool) {
	rest, ok := strings.CutPrefix(key, keyPrefix)
	if !ok {
		return 0, false
	}
	idStr, _, ok := strings.Cut(rest, "_")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Stage writes the upload to temp storage and records it in the owner's
// index. Validation errors found earlier ride along on the entry so the
// submit step can report them per file.
func (s *Store) Stage(ctx context.Context, owner domain.UserId, pf *domain.PendingFile, validationErrors []string) (*domain.StagedAttachment, error) {
	tempPath, err := s.files.SaveTemp(pf.Data)
	if err != nil {
		return nil, err
	}

	att := &domain.StagedAttachment{
		StagingKey:       fmt.Sprintf("%s%d_%s", keyPrefix, owner, uuid.NewString()),
		OwnerId:          owner,
		OriginalName:     pf.OriginalName,
		ByteSize:         pf.ByteSize,
		MimeType:         pf.MimeType,
		TempPath:         tempPath,
		ImageWidth:       pf.ImageWidth,
		ImageHeight:      pf.ImageHeight,
		ValidationErrors: validationErrors,
	}

	raw, err := json.Marshal(att)
	if err != nil {
		s.files.DeleteTemp(tempPath)
		return nil, err
	}
	key := indexKey(owner)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, att.StagingKey, raw)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.files.DeleteTemp(tempPath)
		return nil, fmt.Errorf("staging index write: %w", err)
	}
	return att, nil
}

// ListForOwner returns the owner's staged attachments in no particular
// order. Entries whose temp file no longer exists are pruned lazily.
func (s *Store) ListForOwner(ctx context.Context, owner domain.UserId) ([]*domain.StagedAttachment, error) {
	raw, err := s.rdb.HGetAll(ctx, indexKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("staging index read: %w", err)
	}

	var out []*domain.StagedAttachment
	for field, val := range raw {
		var att domain.StagedAttachment
		if err := json.Unmarshal([]byte(val), &att); err != nil {
			logger.Log.Warn("dropping unreadable staging entry", "key", field, "err", err)
			s.rdb.HDel(ctx, indexKey(owner), field)
			continue
		}
		if !s.files.Exists(att.TempPath) {
			// Silently gone; prune the dangling index entry.
			s.rdb.HDel(ctx, indexKey(owner), field)
			continue
		}
		out = append(out, &att)
	}
	return out, nil
}

// Get returns one staged attachment, or nil if absent or pruned.
func (s *Store) Get(ctx context.Context, owner domain.UserId, key domain.StagingKey) (*domain.StagedAttachment, error) {
	if keyOwner, ok := OwnerOf(key); !ok || keyOwner != owner {
		return nil, nil
	}
	val, err := s.rdb.HGet(ctx, indexKey(owner), key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("staging index read: %w", err)
	}
	var att domain.StagedAttachment
	if err := json.Unmarshal([]byte(val), &att); err != nil {
		return nil, err
	}
	if !s.files.Exists(att.TempPath) {
		s.rdb.HDel(ctx, indexKey(owner), key)
		return nil, nil
	}
	return &att, nil
}

// Purge deletes one staged attachment: temp file and index entry. Keys
// not owned by owner are ignored.
func (s *Store) Purge(ctx context.Context, owner domain.UserId, key domain.StagingKey) error {
	att, err := s.Get(ctx, owner, key)
	if err != nil {
		return err
	}
	if att != nil {
		if err := s.files.DeleteTemp(att.TempPath); err != nil {
			return err
		}
	}
	return s.rdb.HDel(ctx, indexKey(owner), key).Err()
}

// PurgeOwner clears the owner's entire staging area and its context.
func (s *Store) PurgeOwner(ctx context.Context, owner domain.UserId) error {
	atts, err := s.ListForOwner(ctx, owner)
	if err != nil {
		return err
	}
	for _, att := range atts {
		if err := s.files.DeleteTemp(att.TempPath); err != nil {
			logger.Log.Warn("failed to delete staged file", "path", att.TempPath, "err", err)
		}
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, indexKey(owner))
	pipe.Del(ctx, contextKey(owner))
	_, err = pipe.Exec(ctx)
	return err
}

// Take atomically removes the entry for key and returns it. The second
// Take of the same key reports taken=false, which is what makes
// promotion idempotent per staging key.
func (s *Store) Take(ctx context.Context, owner domain.UserId, key domain.StagingKey) (att *domain.StagedAttachment, taken bool, err error) {
	att, err = s.Get(ctx, owner, key)
	if err != nil || att == nil {
		return nil, false, err
	}
	removed, err := s.rdb.HDel(ctx, indexKey(owner), key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("staging index delete: %w", err)
	}
	if removed == 0 {
		// Lost the race with a concurrent submit; the key was already
		// consumed.
		return nil, false, nil
	}
	return att, true, nil
}

// SetContext records which post the owner's staged files belong to.
func (s *Store) SetContext(ctx context.Context, owner domain.UserId, sc domain.StagingContext) error {
	raw, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, contextKey(owner), raw, s.ttl).Err()
}

// Context returns the recorded post context, or nil when none is set.
func (s *Store) Context(ctx context.Context, owner domain.UserId) (*domain.StagingContext, error) {
	val, err := s.rdb.Get(ctx, contextKey(owner)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sc domain.StagingContext
	if err := json.Unmarshal([]byte(val), &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// CheckContext guards against cross-context leakage: staged files from an
// abandoned edit must not silently attach to a different post. When the
// owner has staged files for another (board, message) pair, it returns a
// StagingInconsistency naming them; the caller surfaces it and requires
// an explicit delete or navigate-back before the files can be reused.
func (s *Store) CheckContext(ctx context.Context, owner domain.UserId, board domain.BoardShortName, messageId domain.MsgId) error {
	atts, err := s.ListForOwner(ctx, owner)
	if err != nil {
		return err
	}
	if len(atts) == 0 {
		return nil
	}
	sc, err := s.Context(ctx, owner)
	if err != nil {
		return err
	}
	if sc == nil || sc.Matches(board, messageId) {
		return nil
	}
	files := make([]string, len(atts))
	for i, att := range atts {
		files[i] = att.OriginalName
	}
	return &errors.StagingInconsistency{Files: files, Board: sc.Board, MessageId: sc.MessageId}
}
