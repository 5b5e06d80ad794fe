package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper/internal/mines"
	"github.com/vancomm/minesweeper/internal/repository"
	"github.com/vancomm/minesweeper/internal/sessions"
)

func SendJSON(w http.ResponseWriter, statusCode int, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, err = w.Write(payload)
	return err
}

func sendJSONOrLog(w http.ResponseWriter, log logrus.FieldLogger, statusCode int, v any) {
	if err := SendJSON(w, statusCode, v); err != nil {
		log.WithError(err).WithField("response", v).Error("unable to send response")
	}
}

type ErrorDTO struct {
	Error string `json:"error"`
	Line  int    `json:"line,omitempty"`
}

func wrapError(err error) ErrorDTO {
	dto := ErrorDTO{Error: err.Error()}
	var cmdErr *sessions.CommandError
	if errors.As(err, &cmdErr) {
		dto.Error = cmdErr.Err.Error()
		dto.Line = cmdErr.Line
	}
	return dto
}

func statusOf(err error) int {
	var cmdErr *sessions.CommandError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, mines.ErrOutOfRange),
		errors.Is(err, sessions.ErrBadParams),
		errors.As(err, &cmdErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// sendError maps domain errors to client errors; anything else is logged
// and reported as an internal error.
func sendError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("unable to handle request")
		w.WriteHeader(status)
		return
	}
	sendJSONOrLog(w, log, status, wrapError(err))
}
