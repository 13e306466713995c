package httpError

import (
	"encoding/json"
	"net/http"

	"github.com/autom8ter/ideabase/errors"
)

// Error writes the error as a json {"error": message} body with the status mapped from its code
func Error(w http.ResponseWriter, err error) {
	status := int(errors.CodeOf(err))
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	Respond(w, status, map[string]any{"error": err.Error()})
}

// Respond writes the value as a json body with the given status
func Respond(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(value)
}
