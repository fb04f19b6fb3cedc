package core

import (
	"context"
	"errors"
	"log/slog"

	"github.com/siahsang/kiterunner/internal/filter"
	"github.com/siahsang/kiterunner/internal/utils/databaseutils"
	"github.com/siahsang/kiterunner/models"
)

const maxTxAttempts = 3

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByUsername(ctx context.Context, username string) (*models.Profile, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
	Follow(ctx context.Context, followerID, followeeID int64) error
	Unfollow(ctx context.Context, followerID, followeeID int64) error
	// FollowedAmong reports which of ids are followed by followerID.
	FollowedAmong(ctx context.Context, followerID int64, ids []int64) (map[int64]bool, error)
}

type ArticleRepository interface {
	// Save inserts article or, when its slug is taken by an article of the same
	// author, overwrites that article. A slug owned by another author yields ErrDuplicatedSlug.
	Save(ctx context.Context, article *models.Article) error
	GetBySlug(ctx context.Context, slug string) (*models.Article, error)
	List(ctx context.Context, articleFilter ArticleFilter, page filter.Filter) ([]*models.Article, int64, error)
	Feed(ctx context.Context, profileID int64, page filter.Filter) ([]*models.Article, int64, error)
	Update(ctx context.Context, article *models.Article) error
	Delete(ctx context.Context, id int64) error
	// SetTags replaces the tag set of an article, keeping tagIDs order.
	SetTags(ctx context.Context, articleID int64, tagIDs []int64) error
	AddFavourite(ctx context.Context, profileID, articleID int64) error
	RemoveFavourite(ctx context.Context, profileID, articleID int64) error
	FavouriteCounts(ctx context.Context, articleIDs []int64) (map[int64]int64, error)
	FavouritedAmong(ctx context.Context, profileID int64, articleIDs []int64) (map[int64]bool, error)
}

type TagRepository interface {
	// GetOrCreate resolves every tag by slug, creating the missing ones.
	// The result follows the input order.
	GetOrCreate(ctx context.Context, tags []*models.Tag) ([]*models.Tag, error)
	ListByArticleIDs(ctx context.Context, articleIDs []int64) (map[int64][]*models.Tag, error)
	List(ctx context.Context) ([]*models.Tag, error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	ListByArticleSlug(ctx context.Context, slug string, page filter.Filter) ([]*models.Comment, int64, error)
	Delete(ctx context.Context, id int64) error
}

type Repositories struct {
	Users    UserRepository
	Profiles ProfileRepository
	Articles ArticleRepository
	Tags     TagRepository
	Comments CommentRepository
}

type TokenIssuer interface {
	IssueToken(user *models.User) (string, error)
	VerifyToken(token string) (int64, error)
}

type PasswordHasher interface {
	Hash(plainTextPassword string) ([]byte, error)
	Matches(hashedPassword []byte, plainTextPassword string) (bool, error)
}

// TagCache holds the rendered tag catalog between writes. Get reports the
// cache generation it observed; Set stores labels only while that generation
// is still current, and Invalidate starts a new one.
type TagCache interface {
	Get(ctx context.Context) (labels []string, generation int64, ok bool, err error)
	Set(ctx context.Context, generation int64, labels []string) error
	Invalidate(ctx context.Context) error
}

type Core struct {
	log       *slog.Logger
	repos     Repositories
	session   databaseutils.Session
	tokens    TokenIssuer
	passwords PasswordHasher
	tagCache  TagCache
}

type Option func(*Core)

func WithTagCache(cache TagCache) Option {
	return func(c *Core) {
		if cache != nil {
			c.tagCache = cache
		}
	}
}

func NewCore(repos Repositories, session databaseutils.Session, tokens TokenIssuer, passwords PasswordHasher, log *slog.Logger, opts ...Option) *Core {
	c := &Core{
		log:       log,
		repos:     repos,
		session:   session,
		tokens:    tokens,
		passwords: passwords,
		tagCache:  noTagCache{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// inTransaction runs fn in one transaction, retrying the whole unit when a
// uniqueness race surfaced as ErrConflict.
func (c *Core) inTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = c.session.DoTransactionally(ctx, fn)
		if err == nil || !errors.Is(err, ErrConflict) {
			return err
		}
		c.log.WarnContext(ctx, "retrying transaction after write conflict", slog.Int("attempt", attempt))
	}
	return err
}

type noTagCache struct{}

func (noTagCache) Get(context.Context) ([]string, int64, bool, error) { return nil, 0, false, nil }
func (noTagCache) Set(context.Context, int64, []string) error         { return nil }
func (noTagCache) Invalidate(context.Context) error                   { return nil }
