package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/kiterunner/internal/utils/collectionutils"
	"github.com/siahsang/kiterunner/internal/utils/databaseutils"
	"github.com/siahsang/kiterunner/internal/utils/functional"
	"github.com/siahsang/kiterunner/internal/utils/stringutils"
	"github.com/siahsang/kiterunner/models"
)

type TagModel struct {
	sqlTemplate *databaseutils.SQLTemplate
}

// GetOrCreate inserts the unknown tags and reads all of them back by slug.
// A tag created concurrently by another writer is picked up by the read.
func (m TagModel) GetOrCreate(ctx context.Context, tags []*models.Tag) ([]*models.Tag, error) {
	if len(tags) == 0 {
		return []*models.Tag{}, nil
	}

	// INSERT INTO tags (label, slug) VALUES ($1, $2), ($3, $4), ...
	values := make([]string, len(tags))
	args := make([]any, 0, len(tags)*2)
	for i, tag := range tags {
		values[i] = fmt.Sprintf("($%d, $%d)", 2*i+1, 2*i+2)
		args = append(args, tag.Label, tag.Slug)
	}

	insert := fmt.Sprintf(`
		INSERT INTO tags (label, slug)
		VALUES %s
		ON CONFLICT (slug) DO NOTHING
`, strings.Join(values, ", "))
	if _, err := databaseutils.Exec(ctx, m.sqlTemplate, insert, args...); err != nil {
		return nil, classify(err)
	}

	slugs := functional.Map(tags, func(t *models.Tag) string { return t.Slug })
	placeholders, slugArgs := stringutils.InClause(1, slugs)
	query := fmt.Sprintf("SELECT id, label, slug FROM tags WHERE slug IN (%s)", placeholders)

	stored, err := databaseutils.ExecuteQuery(ctx, m.sqlTemplate, query, scanTag, slugArgs...)
	if err != nil {
		return nil, classify(err)
	}

	bySlug := collectionutils.Associate(stored, func(t *models.Tag) (string, *models.Tag) { return t.Slug, t })
	result := make([]*models.Tag, 0, len(tags))
	for _, tag := range tags {
		existing, ok := bySlug[tag.Slug]
		if !ok {
			return nil, xerrors.Newf("tag %s not found in database", tag.Slug)
		}
		result = append(result, existing)
	}
	return result, nil
}

func (m TagModel) ListByArticleIDs(ctx context.Context, articleIDs []int64) (map[int64][]*models.Tag, error) {
	if len(articleIDs) == 0 {
		return map[int64][]*models.Tag{}, nil
	}

	placeholders, args := stringutils.InClause(1, articleIDs)
	query := fmt.Sprintf(`
		SELECT at.article_id, t.id, t.label, t.slug
		FROM article_tags at
		JOIN tags t ON t.id = at.tag_id
		WHERE at.article_id IN (%s)
		ORDER BY at.article_id, at.position
`, placeholders)

	type articleTag struct {
		articleID int64
		tag       *models.Tag
	}
	rows, err := databaseutils.ExecuteQuery(ctx, m.sqlTemplate, query, func(rows *sql.Rows) (articleTag, error) {
		at := articleTag{tag: &models.Tag{}}
		if err := rows.Scan(&at.articleID, &at.tag.ID, &at.tag.Label, &at.tag.Slug); err != nil {
			return at, xerrors.New(err)
		}
		return at, nil
	}, args...)
	if err != nil {
		return nil, classify(err)
	}

	grouped := collectionutils.GroupBy(rows, func(at articleTag) int64 { return at.articleID })
	result := make(map[int64][]*models.Tag, len(grouped))
	for articleID, links := range grouped {
		result[articleID] = functional.Map(links, func(at articleTag) *models.Tag { return at.tag })
	}
	return result, nil
}

func (m TagModel) List(ctx context.Context) ([]*models.Tag, error) {
	tags, err := databaseutils.ExecuteQuery(ctx, m.sqlTemplate, "SELECT id, label, slug FROM tags ORDER BY label", scanTag)
	if err != nil {
		return nil, classify(err)
	}
	return tags, nil
}

func scanTag(rows *sql.Rows) (*models.Tag, error) {
	tag := &models.Tag{}
	if err := rows.Scan(&tag.ID, &tag.Label, &tag.Slug); err != nil {
		return nil, xerrors.New(err)
	}
	return tag, nil
}
