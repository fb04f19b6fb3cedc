package main

import "net/http"

func (app *application) listTagsHandler(w http.ResponseWriter, r *http.Request) {
	tags, err := app.core.ListTags(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}

	app.respond(w, r, http.StatusOK, envelope{"tags": tags})
}
