package middleware

import (
	"encoding/json"
	"net/http"
)

// writeDetail writes a {"detail": ...} error body.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
