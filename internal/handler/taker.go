package handler

import (
	"net/http"

	"github.com/examhall/examhall/internal/model"
)

func (h *Handler) handleAvailableExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.svc.AvailableExams(r.Context(), model.UserFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exams)
}

type accessRequest struct {
	Passcode string `json:"passcode"`
}

func (h *Handler) handleAccessExam(w http.ResponseWriter, r *http.Request) {
	examID, err := urlID(r, "examID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req accessRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	exam, err := h.svc.AccessExam(r.Context(), model.UserFromContext(r.Context()), examID, req.Passcode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

type submitRequest struct {
	Passcode string              `json:"passcode"`
	Answers  []model.AnswerInput `json:"answers"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	examID, err := urlID(r, "examID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.svc.Submit(r.Context(), model.UserFromContext(r.Context()), examID, req.Passcode, req.Answers)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.History(r.Context(), model.UserFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []model.ExamHistoryInfo{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) handlePerformance(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Performance(r.Context(), model.UserFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
