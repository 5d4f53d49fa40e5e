package api

import (
	"context"
	"strings"

	"tripplanner/internal/observability"
)

// RequestIDFromContext retrieves the request ID set by RequestIDMiddleware.
func RequestIDFromContext(ctx context.Context) string {
	return observability.RequestIDFromContext(ctx)
}

// sessionIDFromPath returns the {id} segment of a /api/v1/sessions/{id}/...
// path, or "" for any other path.
func sessionIDFromPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/v1/sessions/")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return id
}
