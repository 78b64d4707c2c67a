package handlers

import (
	"net/http"

	"autonomeal/chat"

	"go.uber.org/zap"
)

type askRequest struct {
	Question string `json:"question"`
}

func AskHandler(w http.ResponseWriter, r *http.Request, svc *chat.Service, logger *zap.Logger) {
	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBareError(w, r, logger, err)
		return
	}

	answer, err := svc.Ask(r.Context(), SessionFrom(r.Context()).ID, req.Question)
	if err != nil {
		writeBareError(w, r, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func HistoryHandler(w http.ResponseWriter, r *http.Request, svc *chat.Service, logger *zap.Logger) {
	turns, err := svc.History(r.Context(), SessionFrom(r.Context()).ID)
	if err != nil {
		writeBareError(w, r, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

func ResetHandler(w http.ResponseWriter, r *http.Request, svc *chat.Service, logger *zap.Logger) {
	if err := svc.Reset(r.Context(), SessionFrom(r.Context()).ID); err != nil {
		writeBareError(w, r, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
