package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)
	router.RedirectTrailingSlash = false

	router.HandlerFunc(http.MethodGet, "/healthz", app.healthcheckHandler)

	router.HandlerFunc(http.MethodPost, "/api/users", app.registerUserHandler)
	router.HandlerFunc(http.MethodPost, "/api/users/login", app.loginUserHandler)
	router.HandlerFunc(http.MethodGet, "/api/user", app.requireAuthenticatedUser(app.currentUserHandler))
	router.HandlerFunc(http.MethodPut, "/api/user", app.requireAuthenticatedUser(app.updateUserHandler))

	router.HandlerFunc(http.MethodGet, "/api/profiles/:username", app.showProfileHandler)
	router.HandlerFunc(http.MethodPost, "/api/profiles/:username/follow", app.requireAuthenticatedUser(app.followProfileHandler))
	router.HandlerFunc(http.MethodDelete, "/api/profiles/:username/follow", app.requireAuthenticatedUser(app.unfollowProfileHandler))

	router.HandlerFunc(http.MethodGet, "/api/articles", app.listArticlesHandler)
	router.HandlerFunc(http.MethodPost, "/api/articles", app.requireAuthenticatedUser(app.createArticleHandler))
	// "/api/articles/feed" shares this route; httprouter cannot register it beside :slug.
	router.HandlerFunc(http.MethodGet, "/api/articles/:slug", app.showArticleHandler)
	router.HandlerFunc(http.MethodPut, "/api/articles/:slug", app.requireAuthenticatedUser(app.updateArticleHandler))
	router.HandlerFunc(http.MethodDelete, "/api/articles/:slug", app.requireAuthenticatedUser(app.deleteArticleHandler))
	router.HandlerFunc(http.MethodPost, "/api/articles/:slug/favorite", app.requireAuthenticatedUser(app.favoriteArticleHandler))
	router.HandlerFunc(http.MethodDelete, "/api/articles/:slug/favorite", app.requireAuthenticatedUser(app.unfavoriteArticleHandler))

	router.HandlerFunc(http.MethodGet, "/api/articles/:slug/comments", app.listCommentsHandler)
	router.HandlerFunc(http.MethodPost, "/api/articles/:slug/comments", app.requireAuthenticatedUser(app.createCommentHandler))
	router.HandlerFunc(http.MethodDelete, "/api/articles/:slug/comments/:id", app.requireAuthenticatedUser(app.deleteCommentHandler))

	router.HandlerFunc(http.MethodGet, "/api/tags", app.listTagsHandler)

	return app.requestID(app.logRequest(app.recoverPanic(app.stripTrailingSlash(app.authenticate(router)))))
}
