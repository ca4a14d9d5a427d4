package handler

import (
	"net/http"

	"github.com/examhall/examhall/internal/model"
)

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var in model.ExamInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	exam, err := h.svc.CreateExam(r.Context(), model.UserFromContext(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exam)
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.svc.ListExams(r.Context(), model.UserFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exams)
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	examID, err := urlID(r, "examID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	exam, err := h.svc.GetExam(r.Context(), model.UserFromContext(r.Context()), examID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleUpdateExam(w http.ResponseWriter, r *http.Request) {
	examID, err := urlID(r, "examID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in model.ExamInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	exam, err := h.svc.UpdateExam(r.Context(), model.UserFromContext(r.Context()), examID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	examID, err := urlID(r, "examID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteExam(r.Context(), model.UserFromContext(r.Context()), examID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	examID, err := urlID(r, "examID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	subs, err := h.svc.ListSubmissions(r.Context(), model.UserFromContext(r.Context()), examID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	submissionID, err := urlID(r, "submissionID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.svc.GetSubmission(r.Context(), model.UserFromContext(r.Context()), submissionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

type evaluateRequest struct {
	Answers []model.EvaluatedAnswer `json:"answers"`
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	submissionID, err := urlID(r, "submissionID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req evaluateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.svc.SaveEvaluation(r.Context(), model.UserFromContext(r.Context()), submissionID, req.Answers)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleAutoEvaluate(w http.ResponseWriter, r *http.Request) {
	submissionID, err := urlID(r, "submissionID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.svc.AutoEvaluate(r.Context(), model.UserFromContext(r.Context()), submissionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
