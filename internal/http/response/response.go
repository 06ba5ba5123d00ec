package response

import (
	"encoding/json"
	"net/http"

	"github.com/trailborn/tours-api/pkg/logger"
)

// Envelope is the standard success body.
type Envelope struct {
	Status  string `json:"status"`
	Results *int   `json:"results,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func JSON(w http.ResponseWriter, statusCode int, data any) {
	write(w, statusCode, Envelope{Status: "success", Data: data})
}

// List writes a success body with a result count.
func List(w http.ResponseWriter, statusCode int, results int, data any) {
	write(w, statusCode, Envelope{Status: "success", Results: &results, Data: data})
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func write(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
