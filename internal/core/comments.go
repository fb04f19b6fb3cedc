package core

import (
	"context"
	"errors"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/kiterunner/internal/filter"
	"github.com/siahsang/kiterunner/internal/utils/functional"
	"github.com/siahsang/kiterunner/internal/validator"
	"github.com/siahsang/kiterunner/models"
)

// ListComments pages through the comments of an article, oldest first.
// An unknown slug yields an empty page rather than an error.
func (c *Core) ListComments(ctx context.Context, viewer *models.User, slug string, page filter.Filter) ([]*models.Comment, int64, error) {
	if err := validatePage(page); err != nil {
		return nil, 0, err
	}

	comments, total, err := c.repos.Comments.ListByArticleSlug(ctx, slug, page)
	if err != nil {
		return nil, 0, err
	}

	if err := c.attachCommentAuthors(ctx, viewer, comments); err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

func (c *Core) CreateComment(ctx context.Context, author *models.User, slug, body string) (*models.Comment, error) {
	if author == nil {
		return nil, xerrors.New(ErrAuthenticationRequired)
	}

	v := validator.New()
	v.CheckNotBlank(body, "body", "cannot be blank")
	if !v.IsValid() {
		return nil, NewValidationError(v)
	}

	article, err := c.lookupArticle(ctx, slug)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		Body:      body,
		ArticleID: article.ID,
		AuthorID:  author.ProfileID,
	}
	err = c.inTransaction(ctx, func(txCtx context.Context) error {
		return c.repos.Comments.Create(txCtx, comment)
	})
	if err != nil {
		return nil, err
	}

	comment.Author = &models.Profile{
		ID:       author.ProfileID,
		UserID:   author.ID,
		Username: author.Username,
		Bio:      author.Bio,
		Image:    author.Image,
	}
	return comment, nil
}

// DeleteComment removes a comment of the article. The comment author, the
// article author and staff may delete it.
func (c *Core) DeleteComment(ctx context.Context, caller *models.User, slug string, id int64) error {
	if caller == nil {
		return xerrors.New(ErrAuthenticationRequired)
	}

	article, err := c.lookupArticle(ctx, slug)
	if err != nil {
		return err
	}

	comment, err := c.repos.Comments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return commentNotFound(id)
		}
		return err
	}
	if comment.ArticleID != article.ID {
		return commentNotFound(id)
	}
	if !canModify(caller, comment.AuthorID) && !canModify(caller, article.AuthorID) {
		return ErrPermissionDenied
	}

	err = c.inTransaction(ctx, func(txCtx context.Context) error {
		return c.repos.Comments.Delete(txCtx, comment.ID)
	})
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return commentNotFound(id)
		}
		return err
	}

	c.log.InfoContext(ctx, "comment deleted", "comment_id", id, "article_id", article.ID)
	return nil
}

func (c *Core) attachCommentAuthors(ctx context.Context, viewer *models.User, comments []*models.Comment) error {
	if len(comments) == 0 {
		return nil
	}

	authorIDs := functional.DistinctBy(
		functional.Map(comments, func(cm *models.Comment) int64 { return cm.AuthorID }),
		func(id int64) int64 { return id },
	)
	authors, err := c.resolveAuthors(ctx, viewer, authorIDs)
	if err != nil {
		return err
	}

	for _, cm := range comments {
		cm.Author = authors[cm.AuthorID]
	}
	return nil
}
