// Package site serves the embedded chat page.
package site

import (
	"context"
	"net/http"
)

// Register attaches the embedded chat page and its assets to mux at /.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	// Serve the embedded chat page at root /
	mux.Handle("/", http.FileServer(FS()))
}
