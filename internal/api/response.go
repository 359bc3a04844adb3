package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tahcohcat/xpboard/internal/apperr"
	"github.com/tahcohcat/xpboard/internal/logger"
)

const maxBodyBytes = 1 << 20

// response is the body shape of every JSON endpoint.
type response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.New().WithError(err).Debug("write response")
	}
}

func ok(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, response{Success: true, Data: data})
}

func created(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, response{Success: true, Data: data})
}

// fail maps err to a status. Server faults are logged and their detail is
// not echoed to the client.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	log := logger.Named("api").With("method", r.Method).With("path", r.URL.Path).WithError(err)

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error("request failed")
		msg = "Internal server error"
	} else {
		log.Warn("request rejected")
	}
	writeJSON(w, status, response{Success: false, Message: msg})
}

func decode(r *http.Request, v interface{}) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", apperr.ErrValidation)
	}
	return nil
}

func unauthorized() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, response{Success: false, Message: "Authentication required"})
	})
}
