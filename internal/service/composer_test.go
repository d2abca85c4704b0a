package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveboard-dev/waveboard/internal/markup"
	"github.com/waveboard-dev/waveboard/internal/perm"
	"github.com/waveboard-dev/waveboard/shared/config"
	"github.com/waveboard-dev/waveboard/shared/domain"
	"github.com/waveboard-dev/waveboard/shared/errors"
)

type mockStorage struct {
	GetTopicFunc          func(ctx context.Context, id domain.TopicId) (*domain.Topic, error)
	GetMessageFunc        func(ctx context.Context, id domain.MsgId) (*domain.Message, error)
	CountRepliesSinceFunc func(ctx context.Context, topicId domain.TopicId, since domain.MsgId, approvedOnly bool) (int, error)
	GetEventFunc          func(ctx context.Context, id domain.EventId) (*domain.Event, error)
	CommitPostFunc        func(ctx context.Context, p *CommitParams, promote AttachmentPromoter) (*CommitReceipt, error)
	MarkTopicReadFunc     func(ctx context.Context, member domain.UserId, topicId domain.TopicId, msgId domain.MsgId) error
	SetTopicWatchFunc     func(ctx context.Context, member domain.UserId, topicId domain.TopicId, watch bool) error

	mu      sync.Mutex
	commits []*CommitParams
}

func (m *mockStorage) GetTopic(ctx context.Context, id domain.TopicId) (*domain.Topic, error) {
	if m.GetTopicFunc != nil {
		return m.GetTopicFunc(ctx, id)
	}
	return nil, errors.NotFound
}

func (m *mockStorage) GetMessage(ctx context.Context, id domain.MsgId) (*domain.Message, error) {
	if m.GetMessageFunc != nil {
		return m.GetMessageFunc(ctx, id)
	}
	return nil, errors.NotFound
}

func (m *mockStorage) CountRepliesSince(ctx context.Context, topicId domain.TopicId, since domain.MsgId, approvedOnly bool) (int, error) {
	if m.CountRepliesSinceFunc != nil {
		return m.CountRepliesSinceFunc(ctx, topicId, since, approvedOnly)
	}
	return 0, nil
}

func (m *mockStorage) GetEvent(ctx context.Context, id domain.EventId) (*domain.Event, error) {
	if m.GetEventFunc != nil {
		return m.GetEventFunc(ctx, id)
	}
	return nil, errors.NotFound
}

func (m *mockStorage) CommitPost(ctx context.Context, p *CommitParams, promote AttachmentPromoter) (*CommitReceipt, error) {
	m.mu.Lock()
	m.commits = append(m.commits, p)
	m.mu.Unlock()
	if m.CommitPostFunc != nil {
		return m.CommitPostFunc(ctx, p, promote)
	}
	receipt := &CommitReceipt{MessageId: 100, TopicId: p.TopicId}
	if receipt.TopicId == 0 {
		receipt.TopicId = 10
	}
	if promote != nil {
		rows, fileErrors := promote(receipt.TopicId, receipt.MessageId)
		for range rows {
			receipt.AttachmentIds = append(receipt.AttachmentIds, 1)
		}
		receipt.FileErrors = fileErrors
	}
	return receipt, nil
}

func (m *mockStorage) MarkTopicRead(ctx context.Context, member domain.UserId, topicId domain.TopicId, msgId domain.MsgId) error {
	if m.MarkTopicReadFunc != nil {
		return m.MarkTopicReadFunc(ctx, member, topicId, msgId)
	}
	return nil
}

func (m *mockStorage) SetTopicWatch(ctx context.Context, member domain.UserId, topicId domain.TopicId, watch bool) error {
	if m.SetTopicWatchFunc != nil {
		return m.SetTopicWatchFunc(ctx, member, topicId, watch)
	}
	return nil
}

func (m *mockStorage) commitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.commits)
}

func (m *mockStorage) lastCommit() *CommitParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.commits) == 0 {
		return nil
	}
	return m.commits[len(m.commits)-1]
}

type mockDrafts struct {
	SaveDraftFunc   func(ctx context.Context, d *domain.Draft) (domain.DraftId, error)
	DeleteDraftFunc func(ctx context.Context, id domain.DraftId, owner domain.UserId) error
}

func (m *mockDrafts) SaveDraft(ctx context.Context, d *domain.Draft) (domain.DraftId, error) {
	if m.SaveDraftFunc != nil {
		return m.SaveDraftFunc(ctx, d)
	}
	return 1, nil
}

func (m *mockDrafts) DeleteDraft(ctx context.Context, id domain.DraftId, owner domain.UserId) error {
	if m.DeleteDraftFunc != nil {
		return m.DeleteDraftFunc(ctx, id, owner)
	}
	return nil
}

// mockTokens accepts each token exactly once, like the real store.
type mockTokens struct {
	mu   sync.Mutex
	used map[string]bool
	deny bool
}

func (m *mockTokens) CheckAndInvalidate(ctx context.Context, token, sessionId string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deny || token == "" {
		return false, nil
	}
	if m.used == nil {
		m.used = make(map[string]bool)
	}
	if m.used[token] {
		return false, nil
	}
	m.used[token] = true
	return true, nil
}

type mockStaging struct {
	CheckContextFunc func(ctx context.Context, owner domain.UserId, board domain.BoardShortName, messageId domain.MsgId) error
	TakeFunc         func(ctx context.Context, owner domain.UserId, key domain.StagingKey) (*domain.StagedAttachment, bool, error)
	PurgeFunc        func(ctx context.Context, owner domain.UserId, key domain.StagingKey) error

	mu     sync.Mutex
	purged []domain.StagingKey
}

func (m *mockStaging) CheckContext(ctx context.Context, owner domain.UserId, board domain.BoardShortName, messageId domain.MsgId) error {
	if m.CheckContextFunc != nil {
		return m.CheckContextFunc(ctx, owner, board, messageId)
	}
	return nil
}

func (m *mockStaging) Take(ctx context.Context, owner domain.UserId, key domain.StagingKey) (*domain.StagedAttachment, bool, error) {
	if m.TakeFunc != nil {
		return m.TakeFunc(ctx, owner, key)
	}
	return nil, false, nil
}

func (m *mockStaging) Purge(ctx context.Context, owner domain.UserId, key domain.StagingKey) error {
	m.mu.Lock()
	m.purged = append(m.purged, key)
	m.mu.Unlock()
	if m.PurgeFunc != nil {
		return m.PurgeFunc(ctx, owner, key)
	}
	return nil
}

type mockFiles struct {
	PromoteFunc func(tempPath, board string, topicId, messageId int64, originalName string) (string, error)
}

func (m *mockFiles) Promote(tempPath, board string, topicId, messageId int64, originalName string) (string, error) {
	if m.PromoteFunc != nil {
		return m.PromoteFunc(tempPath, board, topicId, messageId, originalName)
	}
	return board + "/promoted", nil
}

func (m *mockFiles) DeleteTemp(path string) error { return nil }

type mockNotifier struct {
	mu           sync.Mutex
	topicNotices []domain.UserId // onlyMember per call
	boardNotices int
	err          error
}

func (m *mockNotifier) NotifyTopicWatchers(ctx context.Context, topicId domain.TopicId, msgId domain.MsgId, onlyMember domain.UserId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topicNotices = append(m.topicNotices, onlyMember)
	return m.err
}

func (m *mockNotifier) NotifyBoardWatchers(ctx context.Context, board domain.BoardShortName, topicId domain.TopicId, msgId domain.MsgId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boardNotices++
	return m.err
}

type mockModLog struct {
	mu      sync.Mutex
	entries []*domain.ModLogEntry
}

func (m *mockModLog) LogAction(ctx context.Context, entry *domain.ModLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockModLog) actions() []domain.ModLogAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ModLogAction, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Action
	}
	return out
}

type mockSearch struct {
	mu      sync.Mutex
	indexed []*domain.Message
}

func (m *mockSearch) IndexMessage(ctx context.Context, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed = append(m.indexed, msg)
	return nil
}

type composerFixture struct {
	composer *Composer
	storage  *mockStorage
	drafts   *mockDrafts
	tokens   *mockTokens
	staging  *mockStaging
	notifier *mockNotifier
	modlog   *mockModLog
	search   *mockSearch
}

func newFixture(t *testing.T, cfg *config.Public, oracle perm.Oracle) *composerFixture {
	t.Helper()
	if cfg == nil {
		cfg = &config.Public{
			PollsEnabled:     true,
			StickyEnabled:    true,
			CalendarEnabled:  true,
			MaxMessageLength: 10000,
			EditGraceSeconds: 90,
		}
	}
	if oracle == nil {
		oracle = perm.NewStaticOracle().GrantBoard(testBoard,
			perm.CapPostNew, perm.CapPostReplyAny, perm.CapModifyOwn, perm.CapPollPost)
	}
	f := &composerFixture{
		storage:  &mockStorage{},
		drafts:   &mockDrafts{},
		tokens:   &mockTokens{},
		staging:  &mockStaging{},
		notifier: &mockNotifier{},
		modlog:   &mockModLog{},
		search:   &mockSearch{},
	}
	names := &fakeNames{reserved: map[string]bool{}, banned: map[string]bool{}}
	validator := NewValidator(cfg, oracle, markup.New(), names)
	f.composer = NewComposer(cfg, oracle, f.storage, f.drafts, f.tokens, f.staging, &mockFiles{}, validator, markup.NewCensor(nil), f.notifier, f.modlog, f.search)
	return f
}

func newTopicRequest(token string) *domain.CompositionRequest {
	return &domain.CompositionRequest{
		Mode:            domain.NewTopic,
		Board:           testBoard,
		SubjectRaw:      "A new discussion",
		BodyRaw:         "Opening post body.",
		SubmissionToken: token,
	}
}

func TestSubmitNewTopic(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	res, err := f.composer.Submit(ctx, newTopicRequest("tok-1"), member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, res.Status)
	assert.Equal(t, domain.MsgId(100), res.MessageId)

	require.Equal(t, 1, f.storage.commitCount())
	p := f.storage.lastCommit()
	assert.True(t, p.Approved)
	assert.Equal(t, "member", p.PosterName)
	assert.Equal(t, 1, f.notifier.boardNotices)
	assert.Len(t, f.search.indexed, 1)
	assert.Empty(t, f.modlog.actions())
}

func TestSubmitWordFilterOnPreviewOnly(t *testing.T) {
	censored := func(t *testing.T) *composerFixture {
		f := newFixture(t, nil, nil)
		f.composer.censor = markup.NewCensor(map[string]string{"darn": "gosh"})
		return f
	}
	filteredReq := func(token string) *domain.CompositionRequest {
		req := newTopicRequest(token)
		req.SubjectRaw = "A darn discussion"
		req.BodyRaw = "Totally darn text."
		return req
	}

	t.Run("preview echoes the filtered text", func(t *testing.T) {
		f := censored(t)
		req := filteredReq("tok-1")
		req.Preview = true

		res, err := f.composer.Submit(context.Background(), req, member(1))
		require.NoError(t, err)
		assert.Equal(t, StatusNeedsPreview, res.Status)
		assert.Equal(t, "A gosh discussion", res.Normalized.Subject)
		assert.Equal(t, "Totally gosh text.", res.Normalized.Body)
	})

	t.Run("stored row keeps the raw text", func(t *testing.T) {
		f := censored(t)

		res, err := f.composer.Submit(context.Background(), filteredReq("tok-1"), member(1))
		require.NoError(t, err)
		assert.Equal(t, StatusCommitted, res.Status)
		p := f.storage.lastCommit()
		assert.Equal(t, "A darn discussion", p.Subject)
		assert.Equal(t, "Totally darn text.", p.Body)
	})
}

func TestSubmitDoubleSubmitCommitsOnce(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	first, err := f.composer.Submit(ctx, newTopicRequest("tok-1"), member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, first.Status)

	second, err := f.composer.Submit(ctx, newTopicRequest("tok-1"), member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsPreview, second.Status)
	assert.True(t, second.Errors.Has("session_timeout"))

	assert.Equal(t, 1, f.storage.commitCount())
}

func TestSubmitPreviewLeavesTokenAndState(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	req := newTopicRequest("tok-1")
	req.Preview = true
	res, err := f.composer.Submit(ctx, req, member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsPreview, res.Status)
	assert.Equal(t, 0, f.storage.commitCount())

	// The token survives the preview and still buys one commit.
	req.Preview = false
	res, err = f.composer.Submit(ctx, req, member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, res.Status)
}

func TestSubmitValidationErrorsReturnToPreview(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	req := newTopicRequest("tok-1")
	req.BodyRaw = "   "
	res, err := f.composer.Submit(ctx, req, member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsPreview, res.Status)
	assert.True(t, res.Errors.Has("no_message"))
	assert.Equal(t, 0, f.storage.commitCount())

	// The token was consumed by the failed attempt; the redisplayed form
	// carries a fresh one, so resubmitting the old token bounces.
	res, err = f.composer.Submit(ctx, req, member(1))
	require.NoError(t, err)
	assert.True(t, res.Errors.Has("session_timeout"))
}

func TestSubmitReplyToLockedTopic(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.storage.GetTopicFunc = func(ctx context.Context, id domain.TopicId) (*domain.Topic, error) {
		return &domain.Topic{Id: id, Board: testBoard, StarterId: 2, Locked: domain.LockAuthor, Approved: true}, nil
	}

	req := newTopicRequest("tok-1")
	req.Mode = domain.Reply
	req.TopicId = 7
	_, err := f.composer.Submit(context.Background(), req, member(1))
	require.Error(t, err)
	var status *errors.ErrorWithStatusCode
	require.ErrorAs(t, err, &status)
	assert.Equal(t, 403, status.StatusCode)
	assert.Equal(t, 0, f.storage.commitCount())
}

func TestSubmitModeratorRepliesToLockedTopic(t *testing.T) {
	oracle := perm.NewStaticOracle().GrantBoard(testBoard,
		perm.CapPostReplyAny, perm.CapModerateBoard)
	f := newFixture(t, nil, oracle)
	f.storage.GetTopicFunc = func(ctx context.Context, id domain.TopicId) (*domain.Topic, error) {
		return &domain.Topic{Id: id, Board: testBoard, StarterId: 2, Locked: domain.LockModerator, Approved: true}, nil
	}

	req := newTopicRequest("tok-1")
	req.Mode = domain.Reply
	req.TopicId = 7
	res, err := f.composer.Submit(context.Background(), req, member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, res.Status)
}

func TestSubmitPollIntentDroppedWhenTopicHasOne(t *testing.T) {
	f := newFixture(t, nil, nil)
	existing := domain.PollId(5)
	f.storage.GetTopicFunc = func(ctx context.Context, id domain.TopicId) (*domain.Topic, error) {
		return &domain.Topic{Id: id, Board: testBoard, StarterId: 1, PollId: &existing, Approved: true}, nil
	}

	req := newTopicRequest("tok-1")
	req.Mode = domain.Reply
	req.TopicId = 7
	req.Poll = &domain.PollDraft{Question: "Q?", Options: []string{"a", "b"}}
	res, err := f.composer.Submit(context.Background(), req, member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, res.Status)
	assert.Nil(t, f.storage.lastCommit().Poll)
}

func TestSubmitUnapprovedSkipsFanOut(t *testing.T) {
	oracle := perm.NewStaticOracle().GrantBoard(testBoard, perm.CapPostUnapprovedTopics)
	cfg := &config.Public{PostModerationActive: true, MaxMessageLength: 10000}
	f := newFixture(t, cfg, oracle)

	res, err := f.composer.Submit(context.Background(), newTopicRequest("tok-1"), member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, res.Status)
	assert.False(t, f.storage.lastCommit().Approved)
	assert.Equal(t, 0, f.notifier.boardNotices)
	assert.Empty(t, f.search.indexed)
}

func TestSubmitReplyToUnapprovedTopicNotifiesStarterOnly(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.storage.GetTopicFunc = func(ctx context.Context, id domain.TopicId) (*domain.Topic, error) {
		return &domain.Topic{Id: id, Board: testBoard, StarterId: 9, Approved: false}, nil
	}

	req := newTopicRequest("tok-1")
	req.Mode = domain.Reply
	req.TopicId = 7
	res, err := f.composer.Submit(context.Background(), req, member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, res.Status)
	require.Len(t, f.notifier.topicNotices, 1)
	assert.Equal(t, domain.UserId(9), f.notifier.topicNotices[0])
}

func TestSubmitDraftShortCircuit(t *testing.T) {
	oracle := perm.NewStaticOracle().GrantBoard(testBoard, perm.CapPostNew, perm.CapPostDraft)
	f := newFixture(t, nil, oracle)

	saved := false
	f.drafts.SaveDraftFunc = func(ctx context.Context, d *domain.Draft) (domain.DraftId, error) {
		saved = true
		assert.Equal(t, domain.UserId(1), d.OwnerId)
		return 11, nil
	}

	req := newTopicRequest("tok-1")
	req.SaveDraft = true
	req.BodyRaw = "half-written tho" // drafts skip validation entirely
	res, err := f.composer.Submit(context.Background(), req, member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusDraftSaved, res.Status)
	assert.Equal(t, domain.DraftId(11), res.DraftId)
	assert.True(t, saved)
	assert.Equal(t, 0, f.storage.commitCount())
}

func TestSubmitDraftDeniedForGuests(t *testing.T) {
	oracle := perm.NewStaticOracle().GrantGuest(testBoard, perm.CapPostNew)
	f := newFixture(t, nil, oracle)

	req := newTopicRequest("tok-1")
	req.SaveDraft = true
	req.Guest = &domain.GuestIdentity{DisplayName: "visitor", Email: "v@example.com"}
	_, err := f.composer.Submit(context.Background(), req, &domain.AuthContext{SessionId: "sess"})
	var authErr *errors.AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

func TestSubmitCommitDeletesResumedDraft(t *testing.T) {
	f := newFixture(t, nil, nil)
	var deleted domain.DraftId
	f.drafts.DeleteDraftFunc = func(ctx context.Context, id domain.DraftId, owner domain.UserId) error {
		deleted = id
		return nil
	}

	req := newTopicRequest("tok-1")
	req.DraftId = 11
	res, err := f.composer.Submit(context.Background(), req, member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, res.Status)
	assert.Equal(t, domain.DraftId(11), deleted)
}

func TestSubmitEditGraceWindow(t *testing.T) {
	row := &domain.Message{
		Id: 42, TopicId: 7, Board: testBoard,
		PosterId: 1, PosterName: "member", PosterEmail: "m@example.com",
		Approved: true,
	}
	topic := &domain.Topic{Id: 7, Board: testBoard, StarterId: 1, Approved: true}

	setup := func(t *testing.T, createdAgo time.Duration) *composerFixture {
		f := newFixture(t, nil, nil)
		fresh := *row
		fresh.CreatedAt = time.Now().Add(-createdAgo)
		f.storage.GetTopicFunc = func(ctx context.Context, id domain.TopicId) (*domain.Topic, error) {
			return topic, nil
		}
		f.storage.GetMessageFunc = func(ctx context.Context, id domain.MsgId) (*domain.Message, error) {
			return &fresh, nil
		}
		return f
	}

	editReq := func() *domain.CompositionRequest {
		req := newTopicRequest("tok-1")
		req.Mode = domain.EditMessage
		req.TopicId = 7
		req.MessageId = 42
		return req
	}

	t.Run("quick fix by the author stays unstamped", func(t *testing.T) {
		f := setup(t, 10*time.Second)
		res, err := f.composer.Submit(context.Background(), editReq(), member(1))
		require.NoError(t, err)
		assert.Equal(t, StatusCommitted, res.Status)
		p := f.storage.lastCommit()
		assert.Nil(t, p.ModifiedAt)
		assert.Empty(t, p.ModifiedBy)
		assert.Empty(t, f.modlog.actions())
	})

	t.Run("late edit by the author is stamped", func(t *testing.T) {
		f := setup(t, 10*time.Minute)
		res, err := f.composer.Submit(context.Background(), editReq(), member(1))
		require.NoError(t, err)
		assert.Equal(t, StatusCommitted, res.Status)
		p := f.storage.lastCommit()
		require.NotNil(t, p.ModifiedAt)
		assert.Equal(t, "member", p.ModifiedBy)
		assert.Empty(t, f.modlog.actions())
	})

	t.Run("attachment keep list flows into the commit", func(t *testing.T) {
		f := setup(t, 10*time.Second)
		req := editReq()
		req.KeepAttachmentIds = []domain.AttachmentId{3, 5}
		res, err := f.composer.Submit(context.Background(), req, member(1))
		require.NoError(t, err)
		assert.Equal(t, StatusCommitted, res.Status)
		p := f.storage.lastCommit()
		assert.True(t, p.PruneAttachments)
		assert.Equal(t, []domain.AttachmentId{3, 5}, p.KeepAttachmentIds)
	})

	t.Run("no keep list means nothing is pruned", func(t *testing.T) {
		f := setup(t, 10*time.Second)
		res, err := f.composer.Submit(context.Background(), editReq(), member(1))
		require.NoError(t, err)
		assert.Equal(t, StatusCommitted, res.Status)
		assert.False(t, f.storage.lastCommit().PruneAttachments)
	})

	t.Run("edit by a moderator is stamped and logged", func(t *testing.T) {
		oracle := perm.NewStaticOracle().GrantBoard(testBoard, perm.CapModifyAny)
		f := newFixture(t, nil, oracle)
		fresh := *row
		fresh.CreatedAt = time.Now().Add(-10 * time.Second)
		f.storage.GetTopicFunc = func(ctx context.Context, id domain.TopicId) (*domain.Topic, error) {
			return topic, nil
		}
		f.storage.GetMessageFunc = func(ctx context.Context, id domain.MsgId) (*domain.Message, error) {
			return &fresh, nil
		}

		res, err := f.composer.Submit(context.Background(), editReq(), member(3))
		require.NoError(t, err)
		assert.Equal(t, StatusCommitted, res.Status)
		p := f.storage.lastCommit()
		require.NotNil(t, p.ModifiedAt)
		assert.Equal(t, []domain.ModLogAction{domain.ModLogModify}, f.modlog.actions())
	})
}

func TestSubmitEditReleasesPendingPost(t *testing.T) {
	cfg := &config.Public{MaxMessageLength: 10000, PostModerationActive: true, EditGraceSeconds: 90}
	oracle := perm.NewStaticOracle().GrantBoard(testBoard, perm.CapModifyAny, perm.CapApprovePosts)
	f := newFixture(t, cfg, oracle)

	f.storage.GetTopicFunc = func(ctx context.Context, id domain.TopicId) (*domain.Topic, error) {
		return &domain.Topic{Id: 7, Board: testBoard, StarterId: 1, Approved: true}, nil
	}
	f.storage.GetMessageFunc = func(ctx context.Context, id domain.MsgId) (*domain.Message, error) {
		return &domain.Message{
			Id: 42, TopicId: 7, Board: testBoard, PosterId: 1,
			PosterName: "member", PosterEmail: "m@example.com",
			CreatedAt: time.Now().Add(-time.Minute), Approved: false,
		}, nil
	}

	req := newTopicRequest("tok-1")
	req.Mode = domain.EditMessage
	req.TopicId = 7
	req.MessageId = 42
	req.ApprovalOverride = truePtr()

	res, err := f.composer.Submit(context.Background(), req, member(3))
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, res.Status)

	p := f.storage.lastCommit()
	assert.True(t, p.Approved)
	assert.True(t, p.WriteApproved)
	assert.Contains(t, f.modlog.actions(), domain.ModLogModify)
	assert.Contains(t, f.modlog.actions(), domain.ModLogApprove)
}

func TestSubmitEditWindowExpired(t *testing.T) {
	cfg := &config.Public{MaxMessageLength: 10000, EditDisableMinutes: 30}
	oracle := perm.NewStaticOracle().GrantBoard(testBoard, perm.CapModifyOwn)
	f := newFixture(t, cfg, oracle)

	f.storage.GetTopicFunc = func(ctx context.Context, id domain.TopicId) (*domain.Topic, error) {
		return &domain.Topic{Id: id, Board: testBoard, StarterId: 1, Approved: true}, nil
	}
	f.storage.GetMessageFunc = func(ctx context.Context, id domain.MsgId) (*domain.Message, error) {
		return &domain.Message{
			Id: 42, TopicId: 7, Board: testBoard, PosterId: 1,
			PosterName: "member", PosterEmail: "m@example.com",
			CreatedAt: time.Now().Add(-2 * time.Hour), Approved: true,
		}, nil
	}

	req := newTopicRequest("tok-1")
	req.Mode = domain.EditMessage
	req.TopicId = 7
	req.MessageId = 42
	_, err := f.composer.Submit(context.Background(), req, member(1))
	require.Error(t, err)
	var status *errors.ErrorWithStatusCode
	require.ErrorAs(t, err, &status)
	assert.Equal(t, 403, status.StatusCode)
}

func TestSubmitAttachmentPromotion(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.staging.TakeFunc = func(ctx context.Context, owner domain.UserId, key domain.StagingKey) (*domain.StagedAttachment, bool, error) {
		if key == "post_tmp_1_gone" {
			return nil, false, nil
		}
		return &domain.StagedAttachment{
			StagingKey:   key,
			OwnerId:      owner,
			OriginalName: "photo.png",
			ByteSize:     123,
			MimeType:     "image/png",
			TempPath:     "/tmp/" + string(key),
		}, true, nil
	}

	req := newTopicRequest("tok-1")
	req.AttachmentRefs = []domain.StagingKey{"post_tmp_1_a", "post_tmp_1_gone", "post_tmp_1_b"}
	res, err := f.composer.Submit(context.Background(), req, member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, res.Status)
	// The vanished key is silently skipped, not an error.
	assert.Empty(t, res.AttachmentErrors)
	assert.Equal(t, domain.MsgId(100), res.MessageId)
}

func TestSubmitAttachmentContextMismatch(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.staging.CheckContextFunc = func(ctx context.Context, owner domain.UserId, board domain.BoardShortName, messageId domain.MsgId) error {
		return &errors.StagingInconsistency{Files: []string{"photo.png"}, Board: board, MessageId: messageId}
	}

	req := newTopicRequest("tok-1")
	req.AttachmentRefs = []domain.StagingKey{"post_tmp_1_a"}
	res, err := f.composer.Submit(context.Background(), req, member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsPreview, res.Status)
	assert.True(t, res.Errors.Has("temp_attachments_found"))
	assert.Equal(t, 0, f.storage.commitCount())
}

func TestSubmitAttachmentDeletesAlwaysHonored(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.tokens.deny = true

	req := newTopicRequest("stale")
	req.AttachmentDeletes = []domain.StagingKey{"post_tmp_1_old"}
	res, err := f.composer.Submit(context.Background(), req, member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsPreview, res.Status)
	assert.Equal(t, []domain.StagingKey{"post_tmp_1_old"}, f.staging.purged)
}

func TestSubmitStalenessAdvisory(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.storage.GetTopicFunc = func(ctx context.Context, id domain.TopicId) (*domain.Topic, error) {
		return &domain.Topic{Id: id, Board: testBoard, StarterId: 2, LastMsgId: 60, Approved: true}, nil
	}
	f.storage.CountRepliesSinceFunc = func(ctx context.Context, topicId domain.TopicId, since domain.MsgId, approvedOnly bool) (int, error) {
		return 3, nil
	}

	req := newTopicRequest("tok-1")
	req.Mode = domain.Reply
	req.TopicId = 7
	req.LastSeenMessageId = 50
	res, err := f.composer.Submit(context.Background(), req, member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsPreview, res.Status)
	assert.True(t, res.Errors.Has("new_replies"))
	assert.Equal(t, 3, res.NewReplies)

	t.Run("suppressed by user preference", func(t *testing.T) {
		f := newFixture(t, nil, nil)
		f.storage.GetTopicFunc = func(ctx context.Context, id domain.TopicId) (*domain.Topic, error) {
			return &domain.Topic{Id: id, Board: testBoard, StarterId: 2, LastMsgId: 60, Approved: true}, nil
		}
		actor := member(1)
		actor.NoNewReplyWarning = true
		res, err := f.composer.Submit(context.Background(), req, actor)
		require.NoError(t, err)
		assert.Equal(t, StatusCommitted, res.Status)
	})
}

func TestSubmitLockAndStickySideEffects(t *testing.T) {
	oracle := perm.NewStaticOracle().GrantBoard(testBoard,
		perm.CapPostReplyAny, perm.CapLockAny, perm.CapMakeSticky)
	f := newFixture(t, nil, oracle)
	f.storage.GetTopicFunc = func(ctx context.Context, id domain.TopicId) (*domain.Topic, error) {
		return &domain.Topic{Id: id, Board: testBoard, StarterId: 2, Approved: true}, nil
	}

	req := newTopicRequest("tok-1")
	req.Mode = domain.Reply
	req.TopicId = 7
	req.LockRequest = domain.Set
	req.StickyRequest = domain.Set
	res, err := f.composer.Submit(context.Background(), req, member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, res.Status)

	p := f.storage.lastCommit()
	require.NotNil(t, p.Lock)
	assert.Equal(t, domain.LockModerator, *p.Lock)
	require.NotNil(t, p.Sticky)
	assert.True(t, *p.Sticky)
	assert.ElementsMatch(t, []domain.ModLogAction{domain.ModLogLock, domain.ModLogSticky}, f.modlog.actions())
}

func TestSubmitAuthorSoftLockNotLogged(t *testing.T) {
	oracle := perm.NewStaticOracle().GrantBoard(testBoard, perm.CapPostReplyAny, perm.CapLockOwn)
	f := newFixture(t, nil, oracle)
	f.storage.GetTopicFunc = func(ctx context.Context, id domain.TopicId) (*domain.Topic, error) {
		return &domain.Topic{Id: id, Board: testBoard, StarterId: 1, Approved: true}, nil
	}

	req := newTopicRequest("tok-1")
	req.Mode = domain.Reply
	req.TopicId = 7
	req.LockRequest = domain.Set
	res, err := f.composer.Submit(context.Background(), req, member(1))
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, res.Status)

	p := f.storage.lastCommit()
	require.NotNil(t, p.Lock)
	assert.Equal(t, domain.LockAuthor, *p.Lock)
	assert.Empty(t, f.modlog.actions())
}

func TestStagingOwnerStability(t *testing.T) {
	guest1 := &domain.AuthContext{SessionId: "sess-a"}
	guest2 := &domain.AuthContext{SessionId: "sess-b"}

	assert.Equal(t, StagingOwner(guest1), StagingOwner(guest1))
	assert.NotEqual(t, StagingOwner(guest1), StagingOwner(guest2))
	assert.Negative(t, int64(StagingOwner(guest1)))
	assert.Equal(t, domain.UserId(1), StagingOwner(member(1)))
}
