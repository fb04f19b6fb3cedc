package main

import (
	"time"

	"github.com/siahsang/kiterunner/internal/utils/functional"
	"github.com/siahsang/kiterunner/models"
)

// isoTimeFormat is ISO 8601 with millisecond precision, always in UTC.
const isoTimeFormat = "2006-01-02T15:04:05.000Z07:00"

type userPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
}

type profilePayload struct {
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	Following bool   `json:"following"`
}

type articlePayload struct {
	Slug           string         `json:"slug"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Body           string         `json:"body"`
	TagList        []string       `json:"tagList"`
	CreatedAt      string         `json:"createdAt"`
	UpdatedAt      string         `json:"updatedAt"`
	Favorited      bool           `json:"favorited"`
	FavoritesCount int64          `json:"favoritesCount"`
	Author         profilePayload `json:"author"`
}

type commentPayload struct {
	ID        int64          `json:"id"`
	CreatedAt string         `json:"createdAt"`
	UpdatedAt string         `json:"updatedAt"`
	Body      string         `json:"body"`
	Author    profilePayload `json:"author"`
}

func userResponse(user *models.User, token string) userPayload {
	return userPayload{
		Username: user.Username,
		Email:    user.Email,
		Token:    token,
		Bio:      user.Bio,
		Image:    user.Image,
	}
}

func profileResponse(profile *models.Profile) profilePayload {
	if profile == nil {
		return profilePayload{}
	}
	return profilePayload{
		Username:  profile.Username,
		Bio:       profile.Bio,
		Image:     profile.Image,
		Following: profile.Following,
	}
}

func articleResponse(article *models.Article) articlePayload {
	tagList := article.TagList
	if tagList == nil {
		tagList = []string{}
	}
	return articlePayload{
		Slug:           article.Slug,
		Title:          article.Title,
		Description:    article.Description,
		Body:           article.Body,
		TagList:        tagList,
		CreatedAt:      isoTime(article.CreatedAt),
		UpdatedAt:      isoTime(article.UpdatedAt),
		Favorited:      article.Favorited,
		FavoritesCount: article.FavoritesCount,
		Author:         profileResponse(article.Author),
	}
}

func commentResponse(comment *models.Comment) commentPayload {
	return commentPayload{
		ID:        comment.ID,
		CreatedAt: isoTime(comment.CreatedAt),
		UpdatedAt: isoTime(comment.UpdatedAt),
		Body:      comment.Body,
		Author:    profileResponse(comment.Author),
	}
}

// pageResponse wraps a list as {plural: items, "count": total}; items is never null.
func pageResponse[T, P any](plural string, items []T, total int64, toPayload func(T) P) envelope {
	return envelope{
		plural:  functional.Map(items, toPayload),
		"count": total,
	}
}

func isoTime(t time.Time) string {
	return t.UTC().Format(isoTimeFormat)
}
