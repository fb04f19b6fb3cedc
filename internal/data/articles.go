package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/kiterunner/internal/core"
	"github.com/siahsang/kiterunner/internal/filter"
	"github.com/siahsang/kiterunner/internal/utils/databaseutils"
	"github.com/siahsang/kiterunner/internal/utils/stringutils"
	"github.com/siahsang/kiterunner/models"
)

const selectArticle = `
		SELECT a.id, a.slug, a.title, a.description, a.body, a.author_id, a.created_at, a.updated_at
		FROM articles a
`

type ArticleModel struct {
	sqlTemplate *databaseutils.SQLTemplate
}

// Save overwrites the article holding the same slug only when the author matches;
// otherwise the conflict update is skipped and no row comes back.
func (m ArticleModel) Save(ctx context.Context, article *models.Article) error {
	query := `
		INSERT INTO articles (slug, title, description, body, author_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (slug) DO UPDATE
		SET title = EXCLUDED.title,
		    description = EXCLUDED.description,
		    body = EXCLUDED.body,
		    updated_at = now()
		WHERE articles.author_id = EXCLUDED.author_id
		RETURNING id, created_at, updated_at
`
	args := []any{article.Slug, article.Title, article.Description, article.Body, article.AuthorID}
	_, err := databaseutils.ExecuteSingleQuery(ctx, m.sqlTemplate, query, func(rows *sql.Rows) (*models.Article, error) {
		if err := rows.Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt); err != nil {
			return nil, xerrors.New(err)
		}
		return article, nil
	}, args...)

	if errors.Is(err, sql.ErrNoRows) {
		return xerrors.New(core.ErrDuplicatedSlug)
	}
	return classify(err)
}

func (m ArticleModel) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	article, err := databaseutils.ExecuteSingleQuery(ctx, m.sqlTemplate, selectArticle+" WHERE a.slug = $1", scanArticle, slug)
	if err != nil {
		return nil, classify(err)
	}
	return article, nil
}

func (m ArticleModel) List(ctx context.Context, articleFilter core.ArticleFilter, page filter.Filter) ([]*models.Article, int64, error) {
	var conditions []string
	var args []any

	if articleFilter.Author != "" {
		args = append(args, articleFilter.Author)
		conditions = append(conditions, fmt.Sprintf(`a.author_id IN (
			SELECT p.id FROM profiles p JOIN users u ON u.id = p.user_id WHERE u.username = $%d)`, len(args)))
	}
	if articleFilter.Tag != "" {
		args = append(args, articleFilter.Tag)
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM article_tags at JOIN tags t ON t.id = at.tag_id
			WHERE at.article_id = a.id AND t.label = $%d)`, len(args)))
	}
	if articleFilter.FavoritedBy != "" {
		args = append(args, articleFilter.FavoritedBy)
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM favourites f
			JOIN profiles p ON p.id = f.profile_id
			JOIN users u ON u.id = p.user_id
			WHERE f.article_id = a.id AND u.username = $%d)`, len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	return m.page(ctx, where, args, page)
}

func (m ArticleModel) Feed(ctx context.Context, profileID int64, page filter.Filter) ([]*models.Article, int64, error) {
	where := `WHERE a.author_id = $1
		OR a.author_id IN (SELECT followee_id FROM follows WHERE follower_id = $1)`

	return m.page(ctx, where, []any{profileID}, page)
}

// page counts every article matching where and returns one window of them, newest first.
func (m ArticleModel) page(ctx context.Context, where string, args []any, page filter.Filter) ([]*models.Article, int64, error) {
	countQuery := fmt.Sprintf("SELECT count(*) FROM articles a %s", where)
	total, err := databaseutils.ExecuteSingleQuery(ctx, m.sqlTemplate, countQuery, scanID, args...)
	if err != nil {
		return nil, 0, classify(err)
	}

	n := len(args)
	query := fmt.Sprintf(`%s %s
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $%d OFFSET $%d`, selectArticle, where, n+1, n+2)

	articles, err := databaseutils.ExecuteQuery(ctx, m.sqlTemplate, query, scanArticle, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, classify(err)
	}
	return articles, total, nil
}

func (m ArticleModel) Update(ctx context.Context, article *models.Article) error {
	query := `
		UPDATE articles
		SET title = $1, description = $2, body = $3, updated_at = now()
		WHERE id = $4
		RETURNING updated_at
`
	args := []any{article.Title, article.Description, article.Body, article.ID}
	_, err := databaseutils.ExecuteSingleQuery(ctx, m.sqlTemplate, query, func(rows *sql.Rows) (*models.Article, error) {
		if err := rows.Scan(&article.UpdatedAt); err != nil {
			return nil, xerrors.New(err)
		}
		return article, nil
	}, args...)

	return classify(err)
}

func (m ArticleModel) Delete(ctx context.Context, id int64) error {
	affected, err := databaseutils.Exec(ctx, m.sqlTemplate, "DELETE FROM articles WHERE id = $1", id)
	if err != nil {
		return classify(err)
	}
	if affected == 0 {
		return classify(sql.ErrNoRows)
	}
	return nil
}

func (m ArticleModel) SetTags(ctx context.Context, articleID int64, tagIDs []int64) error {
	if _, err := databaseutils.Exec(ctx, m.sqlTemplate, "DELETE FROM article_tags WHERE article_id = $1", articleID); err != nil {
		return classify(err)
	}
	if len(tagIDs) == 0 {
		return nil
	}

	// INSERT INTO article_tags (article_id, tag_id, position) VALUES ($1, $2, 0), ($1, $3, 1), ...
	values := make([]string, len(tagIDs))
	args := make([]any, 0, len(tagIDs)+1)
	args = append(args, articleID)
	for i, tagID := range tagIDs {
		values[i] = fmt.Sprintf("($1, $%d, %d)", i+2, i)
		args = append(args, tagID)
	}

	query := fmt.Sprintf("INSERT INTO article_tags (article_id, tag_id, position) VALUES %s", strings.Join(values, ", "))
	_, err := databaseutils.Exec(ctx, m.sqlTemplate, query, args...)
	return classify(err)
}

func (m ArticleModel) AddFavourite(ctx context.Context, profileID, articleID int64) error {
	query := `
		INSERT INTO favourites (profile_id, article_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
`
	_, err := databaseutils.Exec(ctx, m.sqlTemplate, query, profileID, articleID)
	return classify(err)
}

func (m ArticleModel) RemoveFavourite(ctx context.Context, profileID, articleID int64) error {
	query := `
		DELETE FROM favourites
		WHERE profile_id = $1 AND article_id = $2
`
	_, err := databaseutils.Exec(ctx, m.sqlTemplate, query, profileID, articleID)
	return classify(err)
}

func (m ArticleModel) FavouriteCounts(ctx context.Context, articleIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(articleIDs))
	if len(articleIDs) == 0 {
		return counts, nil
	}

	placeholders, args := stringutils.InClause(1, articleIDs)
	query := fmt.Sprintf(`
		SELECT article_id, count(*)
		FROM favourites
		WHERE article_id IN (%s)
		GROUP BY article_id
`, placeholders)

	type articleCount struct {
		articleID int64
		count     int64
	}
	rows, err := databaseutils.ExecuteQuery(ctx, m.sqlTemplate, query, func(rows *sql.Rows) (articleCount, error) {
		var c articleCount
		if err := rows.Scan(&c.articleID, &c.count); err != nil {
			return c, xerrors.New(err)
		}
		return c, nil
	}, args...)
	if err != nil {
		return nil, classify(err)
	}

	for _, c := range rows {
		counts[c.articleID] = c.count
	}
	return counts, nil
}

func (m ArticleModel) FavouritedAmong(ctx context.Context, profileID int64, articleIDs []int64) (map[int64]bool, error) {
	favourited := make(map[int64]bool, len(articleIDs))
	if len(articleIDs) == 0 {
		return favourited, nil
	}

	placeholders, args := stringutils.InClause(2, articleIDs)
	query := fmt.Sprintf(`
		SELECT article_id
		FROM favourites
		WHERE profile_id = $1 AND article_id IN (%s)
`, placeholders)

	ids, err := databaseutils.ExecuteQuery(ctx, m.sqlTemplate, query, scanID, append([]any{profileID}, args...)...)
	if err != nil {
		return nil, classify(err)
	}

	for _, id := range ids {
		favourited[id] = true
	}
	return favourited, nil
}

func scanArticle(rows *sql.Rows) (*models.Article, error) {
	article := &models.Article{}
	if err := rows.Scan(
		&article.ID,
		&article.Slug,
		&article.Title,
		&article.Description,
		&article.Body,
		&article.AuthorID,
		&article.CreatedAt,
		&article.UpdatedAt,
	); err != nil {
		return nil, xerrors.New(err)
	}
	return article, nil
}
