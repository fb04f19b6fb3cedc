package core

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/kiterunner/internal/filter"
	"github.com/siahsang/kiterunner/internal/utils/collectionutils"
	"github.com/siahsang/kiterunner/internal/utils/functional"
	"github.com/siahsang/kiterunner/internal/utils/stringutils"
	"github.com/siahsang/kiterunner/internal/validator"
	"github.com/siahsang/kiterunner/models"
)

const maxTitleLength = 255

// ArticleFilter narrows an article listing. Empty fields do not filter; set
// fields are AND-combined and matched exactly.
type ArticleFilter struct {
	Author      string
	Tag         string
	FavoritedBy string
}

type ArticleInput struct {
	Title       string
	Description string
	Body        string
	TagList     []string
}

// ArticleUpdate is a partial update; nil fields are left untouched.
type ArticleUpdate struct {
	Title       *string
	Description *string
	Body        *string
	TagList     *[]string
}

// CreateArticle stores a new article for author. An article of the same author
// with the same slug is overwritten.
func (c *Core) CreateArticle(ctx context.Context, author *models.User, in ArticleInput) (*models.Article, error) {
	if author == nil {
		return nil, xerrors.New(ErrAuthenticationRequired)
	}

	v := validator.New()
	title := strings.TrimSpace(in.Title)
	v.CheckRules(title, "title", validation.Required, validation.RuneLength(1, maxTitleLength))
	v.CheckNotBlank(in.Body, "body", "cannot be blank")
	slug := stringutils.Slugify(title)
	if title != "" {
		v.Check(slug != "", "title", "must contain at least one letter or digit")
	}
	tags := normalizeTags(v, in.TagList)
	if !v.IsValid() {
		return nil, NewValidationError(v)
	}

	article := &models.Article{
		Slug:        slug,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Body:        in.Body,
		AuthorID:    author.ProfileID,
	}

	err := c.inTransaction(ctx, func(txCtx context.Context) error {
		if err := c.repos.Articles.Save(txCtx, article); err != nil {
			return err
		}
		return c.replaceTags(txCtx, article.ID, tags)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicatedSlug) {
			return nil, fieldError("slug", "Article with this slug already exists.")
		}
		return nil, err
	}

	if len(tags) > 0 {
		c.invalidateTags(ctx)
	}

	c.log.InfoContext(ctx, "article saved", "article_id", article.ID, "slug", article.Slug)

	if err := c.enrichArticles(ctx, author, []*models.Article{article}); err != nil {
		return nil, err
	}
	return article, nil
}

// ListArticles returns one page of articles, newest first, with the total match count.
func (c *Core) ListArticles(ctx context.Context, viewer *models.User, articleFilter ArticleFilter, page filter.Filter) ([]*models.Article, int64, error) {
	if err := validatePage(page); err != nil {
		return nil, 0, err
	}

	articles, total, err := c.repos.Articles.List(ctx, articleFilter, page)
	if err != nil {
		return nil, 0, err
	}

	if err := c.enrichArticles(ctx, viewer, articles); err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// Feed lists articles written by the profiles viewer follows and by viewer itself.
func (c *Core) Feed(ctx context.Context, viewer *models.User, page filter.Filter) ([]*models.Article, int64, error) {
	if viewer == nil {
		return nil, 0, xerrors.New(ErrAuthenticationRequired)
	}
	if err := validatePage(page); err != nil {
		return nil, 0, err
	}

	articles, total, err := c.repos.Articles.Feed(ctx, viewer.ProfileID, page)
	if err != nil {
		return nil, 0, err
	}

	if err := c.enrichArticles(ctx, viewer, articles); err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

func (c *Core) GetArticle(ctx context.Context, viewer *models.User, slug string) (*models.Article, error) {
	article, err := c.lookupArticle(ctx, slug)
	if err != nil {
		return nil, err
	}

	if err := c.enrichArticles(ctx, viewer, []*models.Article{article}); err != nil {
		return nil, err
	}
	return article, nil
}

// UpdateArticle changes only the supplied fields. The slug keeps its original value.
func (c *Core) UpdateArticle(ctx context.Context, caller *models.User, slug string, in ArticleUpdate) (*models.Article, error) {
	if caller == nil {
		return nil, xerrors.New(ErrAuthenticationRequired)
	}

	article, err := c.lookupArticle(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !canModify(caller, article.AuthorID) {
		return nil, ErrPermissionDenied
	}

	v := validator.New()
	if in.Title != nil {
		article.Title = strings.TrimSpace(*in.Title)
		v.CheckRules(article.Title, "title", validation.Required, validation.RuneLength(1, maxTitleLength))
	}
	if in.Description != nil {
		article.Description = strings.TrimSpace(*in.Description)
	}
	if in.Body != nil {
		article.Body = *in.Body
		v.CheckNotBlank(article.Body, "body", "cannot be blank")
	}
	var tags []*models.Tag
	if in.TagList != nil {
		tags = normalizeTags(v, *in.TagList)
	}
	if !v.IsValid() {
		return nil, NewValidationError(v)
	}

	err = c.inTransaction(ctx, func(txCtx context.Context) error {
		if err := c.repos.Articles.Update(txCtx, article); err != nil {
			return err
		}
		if in.TagList == nil {
			return nil
		}
		return c.replaceTags(txCtx, article.ID, tags)
	})
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, articleNotFound(slug)
		}
		return nil, err
	}

	if len(tags) > 0 {
		c.invalidateTags(ctx)
	}

	if err := c.enrichArticles(ctx, caller, []*models.Article{article}); err != nil {
		return nil, err
	}
	return article, nil
}

func (c *Core) DeleteArticle(ctx context.Context, caller *models.User, slug string) error {
	if caller == nil {
		return xerrors.New(ErrAuthenticationRequired)
	}

	article, err := c.lookupArticle(ctx, slug)
	if err != nil {
		return err
	}
	if !canModify(caller, article.AuthorID) {
		return ErrPermissionDenied
	}

	err = c.inTransaction(ctx, func(txCtx context.Context) error {
		return c.repos.Articles.Delete(txCtx, article.ID)
	})
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return articleNotFound(slug)
		}
		return err
	}

	c.log.InfoContext(ctx, "article deleted", "article_id", article.ID, "slug", slug)
	return nil
}

// Favorite adds the article to caller's favourites. Repeating it is a no-op.
func (c *Core) Favorite(ctx context.Context, caller *models.User, slug string) (*models.Article, error) {
	return c.toggleFavourite(ctx, caller, slug, c.repos.Articles.AddFavourite)
}

func (c *Core) Unfavorite(ctx context.Context, caller *models.User, slug string) (*models.Article, error) {
	return c.toggleFavourite(ctx, caller, slug, c.repos.Articles.RemoveFavourite)
}

func (c *Core) toggleFavourite(ctx context.Context, caller *models.User, slug string, apply func(ctx context.Context, profileID, articleID int64) error) (*models.Article, error) {
	if caller == nil {
		return nil, xerrors.New(ErrAuthenticationRequired)
	}

	article, err := c.lookupArticle(ctx, slug)
	if err != nil {
		return nil, err
	}

	err = c.inTransaction(ctx, func(txCtx context.Context) error {
		return apply(txCtx, caller.ProfileID, article.ID)
	})
	if err != nil {
		return nil, err
	}

	if err := c.enrichArticles(ctx, caller, []*models.Article{article}); err != nil {
		return nil, err
	}
	return article, nil
}

func (c *Core) lookupArticle(ctx context.Context, slug string) (*models.Article, error) {
	article, err := c.repos.Articles.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, articleNotFound(slug)
		}
		return nil, err
	}
	return article, nil
}

func (c *Core) replaceTags(ctx context.Context, articleID int64, tags []*models.Tag) error {
	resolved, err := c.repos.Tags.GetOrCreate(ctx, tags)
	if err != nil {
		return err
	}

	ids := functional.Map(resolved, func(t *models.Tag) int64 { return t.ID })
	return c.repos.Articles.SetTags(ctx, articleID, ids)
}

// enrichArticles fills the computed fields of every article: tag labels,
// favourite count, the viewer's favourite flag and the author profile.
func (c *Core) enrichArticles(ctx context.Context, viewer *models.User, articles []*models.Article) error {
	if len(articles) == 0 {
		return nil
	}

	ids := functional.Map(articles, func(a *models.Article) int64 { return a.ID })
	authorIDs := collectionutils.Keys(collectionutils.GroupBy(articles, func(a *models.Article) int64 { return a.AuthorID }))

	tagsByArticle, err := c.repos.Tags.ListByArticleIDs(ctx, ids)
	if err != nil {
		return err
	}

	counts, err := c.repos.Articles.FavouriteCounts(ctx, ids)
	if err != nil {
		return err
	}

	favourited := map[int64]bool{}
	if viewer != nil {
		favourited, err = c.repos.Articles.FavouritedAmong(ctx, viewer.ProfileID, ids)
		if err != nil {
			return err
		}
	}

	authors, err := c.resolveAuthors(ctx, viewer, authorIDs)
	if err != nil {
		return err
	}

	for _, a := range articles {
		tags := collectionutils.GetOrDefault(tagsByArticle, a.ID, nil)
		a.TagList = functional.Map(tags, func(t *models.Tag) string { return t.Label })
		a.FavoritesCount = counts[a.ID]
		a.Favorited = favourited[a.ID]
		a.Author = authors[a.AuthorID]
	}
	return nil
}

func canModify(caller *models.User, ownerProfileID int64) bool {
	return caller.IsStaff || caller.ProfileID == ownerProfileID
}

func validatePage(page filter.Filter) error {
	v := validator.New()
	filter.ValidateFilters(v, page)
	if !v.IsValid() {
		return NewValidationError(v)
	}
	return nil
}
