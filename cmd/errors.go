package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/kiterunner/internal/core"
)

const detailKey = "detail"

// AppError is what the error boundary renders: Errors becomes the response
// body, ErrorStack only reaches the log.
type AppError struct {
	ErrorStack error
	Errors     map[string]string
}

func detailError(message string, stack error) *AppError {
	return &AppError{
		ErrorStack: stack,
		Errors:     map[string]string{detailKey: message},
	}
}

// handleError translates an error returned by the core into its response.
func (app *application) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationError *core.ValidationError
		notFoundError   *core.NotFoundError
	)

	switch {
	case errors.As(err, &validationError):
		app.badRequestResponse(w, r, &AppError{ErrorStack: err, Errors: validationError.Errors})
	case errors.As(err, &notFoundError):
		app.errorResponse(w, r, http.StatusNotFound, &AppError{
			ErrorStack: err,
			Errors:     map[string]string{notFoundError.Resource: notFoundError.Message},
		})
	case errors.Is(err, core.ErrAuthenticationRequired):
		app.authenticationRequiredResponse(w, r)
	case errors.Is(err, core.ErrInvalidToken):
		app.invalidAuthenticationTokenResponse(w, r, err)
	case errors.Is(err, core.ErrInvalidCredentials):
		app.errorResponse(w, r, http.StatusUnauthorized, detailError(core.ErrInvalidCredentials.Error(), err))
	case errors.Is(err, core.ErrPermissionDenied):
		app.errorResponse(w, r, http.StatusForbidden, detailError(core.ErrPermissionDenied.Error(), err))
	default:
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, appError *AppError) {
	app.errorResponse(w, r, http.StatusBadRequest, appError)
}

func (app *application) malformedRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.badRequestResponse(w, r, detailError(err.Error(), err))
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, detailError("The requested resource could not be found.", nil))
}

func (app *application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := fmt.Sprintf("The %s method is not supported for this resource.", r.Method)
	app.errorResponse(w, r, http.StatusMethodNotAllowed, detailError(message, nil))
}

func (app *application) authenticationRequiredResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Token")
	app.errorResponse(w, r, http.StatusUnauthorized, detailError(core.ErrAuthenticationRequired.Error(), nil))
}

func (app *application) invalidAuthenticationTokenResponse(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", "Token")
	app.errorResponse(w, r, http.StatusUnauthorized, detailError(core.ErrInvalidToken.Error(), err))
}

func (app *application) internalErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusInternalServerError, detailError("An error occurred.", err))
}

func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, appError *AppError) {
	attrs := []slog.Attr{
		slog.Int("status", status),
		slog.String("request_method", r.Method),
		slog.String("request_url", r.URL.String()),
		slog.String("request_id", requestIDFrom(r)),
	}
	for key, message := range appError.Errors {
		attrs = append(attrs, slog.String("error."+key, message))
	}

	if status >= http.StatusInternalServerError {
		if appError.ErrorStack != nil {
			attrs = append(attrs, slog.String("stack", xerrors.Sprint(appError.ErrorStack)))
		}
		app.logger.LogAttrs(r.Context(), slog.LevelError, "error handling request", attrs...)
	} else {
		if appError.ErrorStack != nil {
			attrs = append(attrs, slog.String("error", appError.ErrorStack.Error()))
		}
		app.logger.LogAttrs(r.Context(), slog.LevelInfo, "request rejected", attrs...)
	}

	if err := app.writeJSON(w, status, envelope{"errors": appError.Errors}, nil); err != nil {
		app.logger.ErrorContext(r.Context(), "failed to write error response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}
