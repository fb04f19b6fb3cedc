package main

import (
	"context"
	"net/http"

	"github.com/siahsang/kiterunner/models"
)

func (app *application) showProfileHandler(w http.ResponseWriter, r *http.Request) {
	app.profileAction(w, r, app.core.GetProfile)
}

func (app *application) followProfileHandler(w http.ResponseWriter, r *http.Request) {
	app.profileAction(w, r, app.core.Follow)
}

func (app *application) unfollowProfileHandler(w http.ResponseWriter, r *http.Request) {
	app.profileAction(w, r, app.core.Unfollow)
}

func (app *application) profileAction(w http.ResponseWriter, r *http.Request, action func(context.Context, *models.User, string) (*models.Profile, error)) {
	profile, err := action(r.Context(), app.viewer(r), app.readParam(r, "username"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	app.respond(w, r, http.StatusOK, envelope{"profile": profileResponse(profile)})
}
