package main

import (
	"net/http"

	"github.com/siahsang/kiterunner/internal/core"
)

func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var request struct {
		User struct {
			Email    string `json:"email"`
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"user"`
	}

	if err := app.readJSON(w, r, &request); err != nil {
		app.malformedRequestResponse(w, r, err)
		return
	}

	user, token, err := app.core.Signup(r.Context(), core.SignupInput{
		Username: request.User.Username,
		Email:    request.User.Email,
		Password: request.User.Password,
	})
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	app.respond(w, r, http.StatusCreated, envelope{"user": userResponse(user, token)})
}

func (app *application) loginUserHandler(w http.ResponseWriter, r *http.Request) {
	var request struct {
		User struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		} `json:"user"`
	}

	if err := app.readJSON(w, r, &request); err != nil {
		app.malformedRequestResponse(w, r, err)
		return
	}

	user, token, err := app.core.Login(r.Context(), request.User.Email, request.User.Password)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	app.respond(w, r, http.StatusOK, envelope{"user": userResponse(user, token)})
}

func (app *application) currentUserHandler(w http.ResponseWriter, r *http.Request) {
	user := app.viewer(r)

	token, err := app.core.IssueToken(user)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	app.respond(w, r, http.StatusOK, envelope{"user": userResponse(user, token)})
}

func (app *application) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	var request struct {
		User struct {
			Email    *string `json:"email"`
			Username *string `json:"username"`
			Password *string `json:"password"`
			Bio      *string `json:"bio"`
			Image    *string `json:"image"`
		} `json:"user"`
	}

	if err := app.readJSON(w, r, &request); err != nil {
		app.malformedRequestResponse(w, r, err)
		return
	}

	user, token, err := app.core.UpdateUser(r.Context(), app.viewer(r), core.UpdateUserInput{
		Email:    request.User.Email,
		Username: request.User.Username,
		Password: request.User.Password,
		Bio:      request.User.Bio,
		Image:    request.User.Image,
	})
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	app.respond(w, r, http.StatusOK, envelope{"user": userResponse(user, token)})
}
