package main

import (
	"context"
	"net/http"

	"github.com/siahsang/kiterunner/internal/core"
	"github.com/siahsang/kiterunner/models"
)

const feedSlug = "feed"

func (app *application) listArticlesHandler(w http.ResponseWriter, r *http.Request) {
	page, err := app.readPage(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	qs := r.URL.Query()
	articleFilter := core.ArticleFilter{
		Author:      app.readString(qs, "author", ""),
		Tag:         app.readString(qs, "tag", ""),
		FavoritedBy: app.readString(qs, "favorited", ""),
	}

	articles, total, err := app.core.ListArticles(r.Context(), app.viewer(r), articleFilter, page)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	app.respond(w, r, http.StatusOK, pageResponse("articles", articles, total, articleResponse))
}

func (app *application) feedArticlesHandler(w http.ResponseWriter, r *http.Request) {
	page, err := app.readPage(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	articles, total, err := app.core.Feed(r.Context(), app.viewer(r), page)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	app.respond(w, r, http.StatusOK, pageResponse("articles", articles, total, articleResponse))
}

func (app *application) createArticleHandler(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Article struct {
			Title       string   `json:"title"`
			Description string   `json:"description"`
			Body        string   `json:"body"`
			TagList     []string `json:"tagList"`
		} `json:"article"`
	}

	if err := app.readJSON(w, r, &request); err != nil {
		app.malformedRequestResponse(w, r, err)
		return
	}

	article, err := app.core.CreateArticle(r.Context(), app.viewer(r), core.ArticleInput{
		Title:       request.Article.Title,
		Description: request.Article.Description,
		Body:        request.Article.Body,
		TagList:     request.Article.TagList,
	})
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	app.respond(w, r, http.StatusCreated, envelope{"article": articleResponse(article)})
}

func (app *application) showArticleHandler(w http.ResponseWriter, r *http.Request) {
	slug := app.readParam(r, "slug")
	if slug == feedSlug {
		app.requireAuthenticatedUser(app.feedArticlesHandler)(w, r)
		return
	}

	article, err := app.core.GetArticle(r.Context(), app.viewer(r), slug)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	app.respond(w, r, http.StatusOK, envelope{"article": articleResponse(article)})
}

func (app *application) updateArticleHandler(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Article struct {
			Title       *string   `json:"title"`
			Description *string   `json:"description"`
			Body        *string   `json:"body"`
			TagList     *[]string `json:"tagList"`
		} `json:"article"`
	}

	if err := app.readJSON(w, r, &request); err != nil {
		app.malformedRequestResponse(w, r, err)
		return
	}

	article, err := app.core.UpdateArticle(r.Context(), app.viewer(r), app.readParam(r, "slug"), core.ArticleUpdate{
		Title:       request.Article.Title,
		Description: request.Article.Description,
		Body:        request.Article.Body,
		TagList:     request.Article.TagList,
	})
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	app.respond(w, r, http.StatusOK, envelope{"article": articleResponse(article)})
}

func (app *application) deleteArticleHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.core.DeleteArticle(r.Context(), app.viewer(r), app.readParam(r, "slug")); err != nil {
		app.handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *application) favoriteArticleHandler(w http.ResponseWriter, r *http.Request) {
	app.favoriteAction(w, r, http.StatusCreated, app.core.Favorite)
}

func (app *application) unfavoriteArticleHandler(w http.ResponseWriter, r *http.Request) {
	app.favoriteAction(w, r, http.StatusOK, app.core.Unfavorite)
}

func (app *application) favoriteAction(w http.ResponseWriter, r *http.Request, status int, action func(context.Context, *models.User, string) (*models.Article, error)) {
	article, err := action(r.Context(), app.viewer(r), app.readParam(r, "slug"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	app.respond(w, r, status, envelope{"article": articleResponse(article)})
}
