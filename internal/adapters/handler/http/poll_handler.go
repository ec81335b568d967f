package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rankedpoll/api/internal/core/domain"
	"github.com/rankedpoll/api/internal/core/ports"
	"github.com/sirupsen/logrus"
)

type PollHandler struct {
	service ports.PollService
	log     *logrus.Logger
}

func NewPollHandler(service ports.PollService, log *logrus.Logger) *PollHandler {
	return &PollHandler{
		service: service,
		log:     log,
	}
}

type createPollRequest struct {
	Title        string   `json:"title"`
	Options      []string `json:"options"`
	CreatorToken string   `json:"creator_token"`
}

func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	input := ports.CreatePollInput{
		Title:        req.Title,
		Options:      req.Options,
		CreatorToken: req.CreatorToken,
	}

	poll, err := h.service.Create(r.Context(), input)
	if err != nil {
		if errors.Is(err, domain.ErrTitleRequired) || errors.Is(err, domain.ErrTooFewOptions) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		h.log.WithError(err).Error("failed to create poll")
		http.Error(w, domain.ErrInternal.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(poll); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing poll id", http.StatusBadRequest)
		return
	}

	details, err := h.service.GetPoll(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPollID) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, domain.ErrPollNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		h.log.WithError(err).Error("failed to get poll")
		http.Error(w, domain.ErrInternal.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(details); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing poll id", http.StatusBadRequest)
		return
	}

	result, err := h.service.ClosePoll(r.Context(), id, r.Header.Get("X-Creator-Token"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPollID) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, domain.ErrPollNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if errors.Is(err, domain.ErrForbidden) {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}

		h.log.WithError(err).Error("failed to close poll")
		http.Error(w, domain.ErrInternal.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
