package utils

import (
	"encoding/json"
	"net/http"
)

// JSONError writes an error response `{"code": "<message>"}` with the
// given status. The code string is machine-stable; no internal detail is
// ever exposed here.
func JSONError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code})
}

// JSONWrite writes v as JSON with the given status code.
func JSONWrite(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	return json.NewEncoder(w).Encode(v)
}

// Envelope wraps a success payload as `{"success":{"data":<v>}}`, the
// wrapped response form some deployments expect.
func Envelope(v interface{}) interface{} {
	return map[string]interface{}{"success": map[string]interface{}{"data": v}}
}
