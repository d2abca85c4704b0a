package setup

import (
	"github.com/redis/go-redis/v9"

	"github.com/waveboard-dev/waveboard/internal/handler"
	"github.com/waveboard-dev/waveboard/internal/markup"
	"github.com/waveboard-dev/waveboard/internal/perm"
	"github.com/waveboard-dev/waveboard/internal/service"
	"github.com/waveboard-dev/waveboard/internal/staging"
	"github.com/waveboard-dev/waveboard/internal/storage/pg"
	"github.com/waveboard-dev/waveboard/internal/tokenstore"
	"github.com/waveboard-dev/waveboard/shared/config"
	"github.com/waveboard-dev/waveboard/shared/jwt"
)

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Storage *pg.Storage
	Handler *handler.Handler
	Jwt     jwt.JwtService
}

// SetupDependencies initializes all dependencies required for the application.
func SetupDependencies(cfg *config.Config) (*Dependencies, error) {
	storage, err := pg.New(cfg.Private.Pg)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Private.Redis.Addr,
		Password: cfg.Private.Redis.Password,
		DB:       cfg.Private.Redis.DB,
	})

	files, err := staging.NewFileStore(cfg.Public.StagingDir, cfg.Public.AttachmentDir)
	if err != nil {
		return nil, err
	}
	stagingStore := staging.NewStore(rdb, files, cfg.Public.StagingTTL)
	tokens := tokenstore.New(rdb, cfg.Public.SubmissionTokenTTL)

	jwtService := jwt.New(cfg.JwtKey(), cfg.JwtTTL())

	oracle := defaultOracle()
	renderer := markup.New()
	censor := markup.NewCensor(cfg.Public.CensoredWords)
	validator := service.NewValidator(&cfg.Public, oracle, renderer, storage)

	var search service.SearchIndexer
	if cfg.Public.SearchEnabled {
		search = service.NewMeiliIndexer(cfg.Private.Meili.Host, cfg.Private.Meili.ApiKey, cfg.Public.SearchIndex)
	}

	composer := service.NewComposer(
		&cfg.Public,
		oracle,
		storage,
		storage,
		tokens,
		stagingStore,
		files,
		validator,
		censor,
		storage,
		storage,
		search,
	)

	h := handler.New(composer, tokens, stagingStore, storage, cfg)

	return &Dependencies{
		Storage: storage,
		Handler: h,
		Jwt:     jwtService,
	}, nil
}

// defaultOracle is the capability matrix until per-board grants move
// into storage. Members post and manage their own content everywhere;
// guests reply and vote but cannot start topics.
func defaultOracle() perm.Oracle {
	return perm.NewStaticOracle().
		GrantBoard("",
			perm.CapPostNew,
			perm.CapPostReplyOwn,
			perm.CapPostReplyAny,
			perm.CapModifyOwn,
			perm.CapLockOwn,
			perm.CapPollPost,
			perm.CapPollAddOwn,
			perm.CapPostAttachment,
			perm.CapPostDraft,
			perm.CapCalendarPost,
			perm.CapCalendarEditOwn,
		).
		GrantGuest("",
			perm.CapPostReplyAny,
			perm.CapPollGuestVote,
		)
}
