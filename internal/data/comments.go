package data

import (
	"context"
	"database/sql"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/kiterunner/internal/filter"
	"github.com/siahsang/kiterunner/internal/utils/databaseutils"
	"github.com/siahsang/kiterunner/models"
)

type CommentModel struct {
	sqlTemplate *databaseutils.SQLTemplate
}

func (m CommentModel) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (body, article_id, author_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
`
	_, err := databaseutils.ExecuteSingleQuery(ctx, m.sqlTemplate, query, func(rows *sql.Rows) (*models.Comment, error) {
		if err := rows.Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt); err != nil {
			return nil, xerrors.New(err)
		}
		return comment, nil
	}, comment.Body, comment.ArticleID, comment.AuthorID)

	return classify(err)
}

func (m CommentModel) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	query := `
		SELECT id, body, article_id, author_id, created_at, updated_at
		FROM comments
		WHERE id = $1
`
	comment, err := databaseutils.ExecuteSingleQuery(ctx, m.sqlTemplate, query, scanComment, id)
	if err != nil {
		return nil, classify(err)
	}
	return comment, nil
}

func (m CommentModel) ListByArticleSlug(ctx context.Context, slug string, page filter.Filter) ([]*models.Comment, int64, error) {
	countQuery := `
		SELECT count(*)
		FROM comments c
		JOIN articles a ON a.id = c.article_id
		WHERE a.slug = $1
`
	total, err := databaseutils.ExecuteSingleQuery(ctx, m.sqlTemplate, countQuery, scanID, slug)
	if err != nil {
		return nil, 0, classify(err)
	}

	query := `
		SELECT c.id, c.body, c.article_id, c.author_id, c.created_at, c.updated_at
		FROM comments c
		JOIN articles a ON a.id = c.article_id
		WHERE a.slug = $1
		ORDER BY c.created_at, c.id
		LIMIT $2 OFFSET $3
`
	comments, err := databaseutils.ExecuteQuery(ctx, m.sqlTemplate, query, scanComment, slug, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, classify(err)
	}
	return comments, total, nil
}

func (m CommentModel) Delete(ctx context.Context, id int64) error {
	affected, err := databaseutils.Exec(ctx, m.sqlTemplate, "DELETE FROM comments WHERE id = $1", id)
	if err != nil {
		return classify(err)
	}
	if affected == 0 {
		return classify(sql.ErrNoRows)
	}
	return nil
}

func scanComment(rows *sql.Rows) (*models.Comment, error) {
	comment := &models.Comment{}
	if err := rows.Scan(
		&comment.ID,
		&comment.Body,
		&comment.ArticleID,
		&comment.AuthorID,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	); err != nil {
		return nil, xerrors.New(err)
	}
	return comment, nil
}
