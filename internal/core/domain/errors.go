package domain

import "errors"

var (
	ErrPollNotFound      = errors.New("poll not found")
	ErrTitleRequired     = errors.New("poll title is required")
	ErrTooFewOptions     = errors.New("at least two valid options are required")
	ErrInvalidPollID     = errors.New("invalid poll id")
	ErrPollClosed        = errors.New("poll is closed")
	ErrAlreadyVoted      = errors.New("voter has already voted on this poll")
	ErrEmptyRanking      = errors.New("ranking must contain at least one option id")
	ErrMissingVoterToken = errors.New("voter token is required")
	ErrForbidden         = errors.New("only the poll creator can close it")
	ErrInternal          = errors.New("internal server error")
)
