package web

import (
	"context"
	"net/http"
)

// AddValueToContext returns a shallow copy of r whose context carries value under key.
// Keys should be unexported types owned by the calling package.
func AddValueToContext(r *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(r.Context(), key, value)
	return r.WithContext(ctx)
}

func GetValueFromContext[T any](r *http.Request, key any) (T, bool) {
	tVal, ok := r.Context().Value(key).(T)
	if !ok {
		var zero T
		return zero, false
	}

	return tVal, true
}
