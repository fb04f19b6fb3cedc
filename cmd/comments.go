package main

import (
	"fmt"
	"net/http"
)

func (app *application) listCommentsHandler(w http.ResponseWriter, r *http.Request) {
	page, err := app.readPage(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	comments, total, err := app.core.ListComments(r.Context(), app.viewer(r), app.readParam(r, "slug"), page)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	app.respond(w, r, http.StatusOK, pageResponse("comments", comments, total, commentResponse))
}

func (app *application) createCommentHandler(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Comment struct {
			Body string `json:"body"`
		} `json:"comment"`
	}

	if err := app.readJSON(w, r, &request); err != nil {
		app.malformedRequestResponse(w, r, err)
		return
	}

	comment, err := app.core.CreateComment(r.Context(), app.viewer(r), app.readParam(r, "slug"), request.Comment.Body)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	app.respond(w, r, http.StatusCreated, envelope{"comment": commentResponse(comment)})
}

func (app *application) deleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.errorResponse(w, r, http.StatusNotFound, &AppError{
			ErrorStack: err,
			Errors:     map[string]string{"comment": fmt.Sprintf("Could not found any comment with id: %s", app.readParam(r, "id"))},
		})
		return
	}

	if err := app.core.DeleteComment(r.Context(), app.viewer(r), app.readParam(r, "slug"), id); err != nil {
		app.handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
