package domain

import (
	"time"

	"github.com/google/uuid"
)

type Poll struct {
	ID           uuid.UUID    `json:"id"`
	Title        string       `json:"title"`
	IsOpen       bool         `json:"is_open"`
	CreatorToken string       `json:"-"`
	Options      []Option     `json:"options"`
	FinalTally   *TallyResult `json:"final_tally,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	ClosedAt     *time.Time   `json:"closed_at,omitempty"`
}

type Option struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"poll_id"`
	Text      string    `json:"text"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// OptionIDs returns the poll's option ids in creation order. Round ordering
// and the majority tie-break in the tally both follow this order.
func (p *Poll) OptionIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Options))
	for i, opt := range p.Options {
		ids[i] = opt.ID
	}
	return ids
}
