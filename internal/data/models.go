package data

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"

	"github.com/lib/pq"
	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/kiterunner/internal/core"
	"github.com/siahsang/kiterunner/internal/utils/databaseutils"
)

//go:embed schema.sql
var schema string

// NewModels builds the PostgreSQL repositories sharing one SQL template.
func NewModels(sqlTemplate *databaseutils.SQLTemplate) core.Repositories {
	return core.Repositories{
		Users:    UserModel{sqlTemplate: sqlTemplate},
		Profiles: ProfileModel{sqlTemplate: sqlTemplate},
		Articles: ArticleModel{sqlTemplate: sqlTemplate},
		Tags:     TagModel{sqlTemplate: sqlTemplate},
		Comments: CommentModel{sqlTemplate: sqlTemplate},
	}
}

// EnsureSchema creates the missing tables and indexes. It is safe to run on every start.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return xerrors.Newf("apply schema: %w", err)
	}
	return nil
}

// classify maps driver failures onto the core store errors.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return xerrors.New(core.ErrRecordNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			switch pqErr.Constraint {
			case "users_email_key":
				return xerrors.New(core.ErrDuplicateEmail)
			case "users_username_key":
				return xerrors.New(core.ErrDuplicateUsername)
			case "articles_slug_key":
				return xerrors.New(core.ErrDuplicatedSlug)
			default:
				return xerrors.Newf("%w: %v", core.ErrConflict, err)
			}
		case "23503":
			return xerrors.Newf("%w: %v", core.ErrRecordNotFound, err)
		case "40001", "40P01":
			return xerrors.Newf("%w: %v", core.ErrConflict, err)
		}
	}

	return xerrors.New(err)
}
