package main

import (
	"net/http"
	"sort"
)

// healthcheckHandler probes every registered dependency and answers 503 when any of them fails.
func (app *application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(app.checks))
	for name := range app.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := app.checks[name](r.Context()); err != nil {
			app.logger.WarnContext(r.Context(), "health check failed", "check", name, "error", err)
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "available"
	if status != http.StatusOK {
		state = "degraded"
	}

	app.respond(w, r, status, envelope{
		"status": state,
		"env":    app.config.Env,
		"checks": results,
	})
}
