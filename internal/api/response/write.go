package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes a JSON response. Roster data changes with every sign-up, so
// responses are never cached.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// List converts every element, returning an empty slice rather than nil so
// empty collections encode as []
func List[T, R any](in []T, convert func(T) R) []R {
	out := make([]R, len(in))
	for i, v := range in {
		out[i] = convert(v)
	}
	return out
}
