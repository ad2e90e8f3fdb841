package web

// handlers_common.go holds request parsing helpers shared across handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// maxJSONBody bounds small JSON request bodies (mapping edits, import options).
const maxJSONBody = 64 << 10

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// sessionID returns the {id} route parameter.
func sessionID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// untouched; malformed JSON wraps errMappingRequest so it maps to VAL004.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", errMappingRequest, err)
	}
	return nil
}
