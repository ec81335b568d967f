package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rankedpoll/api/internal/core/domain"
	"github.com/rankedpoll/api/internal/core/ports"
	"github.com/sirupsen/logrus"
)

type VoteHandler struct {
	service ports.VoteService
	log     *logrus.Logger
}

func NewVoteHandler(service ports.VoteService, log *logrus.Logger) *VoteHandler {
	return &VoteHandler{
		service: service,
		log:     log,
	}
}

type voteRequest struct {
	Ranking    []uuid.UUID `json:"ranking"`
	VoterToken string      `json:"voter_token"`
}

type invalidRankingResponse struct {
	Error      string      `json:"error"`
	InvalidIDs []uuid.UUID `json:"invalid_ids"`
}

func (h *VoteHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	pollIDStr := chi.URLParam(r, "id")
	pollID, err := uuid.Parse(pollIDStr)
	if err != nil {
		http.Error(w, domain.ErrInvalidPollID.Error(), http.StatusBadRequest)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	input := ports.VoteInput{
		PollID:     pollID,
		Ranking:    req.Ranking,
		VoterToken: req.VoterToken,
	}

	if err := h.service.Submit(r.Context(), input); err != nil {
		var invalidErr *domain.InvalidRankingError
		if errors.As(err, &invalidErr) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(invalidRankingResponse{
				Error:      "ranking contains invalid option ids",
				InvalidIDs: invalidErr.InvalidIDs,
			})
			return
		}
		if errors.Is(err, domain.ErrEmptyRanking) || errors.Is(err, domain.ErrMissingVoterToken) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, domain.ErrPollNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if errors.Is(err, domain.ErrPollClosed) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if errors.Is(err, domain.ErrAlreadyVoted) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		h.log.WithError(err).Error("failed to submit vote")
		http.Error(w, domain.ErrInternal.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write([]byte(`{"message":"ballot submitted successfully"}`))
}
