package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper/internal/middleware"
	"github.com/vancomm/minesweeper/internal/repository"
)

type RecordsHandler struct {
	log  logrus.FieldLogger
	repo repository.Repository
}

func NewRecordsHandler(log logrus.FieldLogger, repo repository.Repository) *RecordsHandler {
	return &RecordsHandler{log: log, repo: repo}
}

func (h RecordsHandler) send(
	w http.ResponseWriter, r *http.Request, options ...repository.RecordsOption,
) {
	dto, err := ParseRecordsDTO(r.URL.Query())
	if err != nil {
		sendJSONOrLog(w, h.log, http.StatusBadRequest, wrapError(err))
		return
	}
	if dto.Size != nil {
		options = append(options, repository.RecordsForParams(*dto.Size, *dto.MineCount))
	}
	records, err := h.repo.Records(r.Context(), options...)
	if err != nil {
		sendError(w, h.log, err)
		return
	}
	sendJSONOrLog(w, h.log, http.StatusOK, records)
}

func (h RecordsHandler) Records(w http.ResponseWriter, r *http.Request) {
	h.send(w, r)
}

func (h RecordsHandler) MyRecords(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PlayerClaims(r.Context())
	if !ok {
		sendJSONOrLog(w, h.log, http.StatusUnauthorized, wrapError(ErrNotLoggedIn))
		return
	}
	h.send(w, r, repository.RecordsForPlayer(claims.Username))
}
