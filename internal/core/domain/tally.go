package domain

import "github.com/google/uuid"

// Round records one elimination pass: the candidates still standing when
// the round was counted and each candidate's first-preference vote count.
type Round struct {
	Remaining []uuid.UUID       `json:"remaining"`
	Counts    map[uuid.UUID]int `json:"counts"`
}

// TallyResult is the outcome of an instant-runoff count. Exactly one of
// Winner, Tie or Error is set.
type TallyResult struct {
	Winner *uuid.UUID  `json:"winner,omitempty"`
	Tie    []uuid.UUID `json:"tie,omitempty"`
	Error  string      `json:"error,omitempty"`
	Rounds []Round     `json:"rounds"`
}

// Tally runs instant-runoff voting over the given ballots. Each round every
// ballot counts one vote for its first preference still among the remaining
// candidates; a ballot whose preferences are all eliminated is exhausted and
// counts for no one. A candidate with a strict majority of the round's votes
// wins immediately. Otherwise all candidates sharing the lowest count are
// eliminated together; if that would eliminate everyone, the remaining
// candidates are tied. The result is deterministic for a fixed optionIDs
// order and ballot sequence.
func Tally(optionIDs []uuid.UUID, ballots [][]uuid.UUID) TallyResult {
	remaining := make([]uuid.UUID, len(optionIDs))
	copy(remaining, optionIDs)

	var rounds []Round

	for len(remaining) > 1 {
		counts := make(map[uuid.UUID]int, len(remaining))
		for _, id := range remaining {
			counts[id] = 0
		}

		inPlay := make(map[uuid.UUID]struct{}, len(remaining))
		for _, id := range remaining {
			inPlay[id] = struct{}{}
		}

		for _, ranking := range ballots {
			for _, id := range ranking {
				if _, ok := inPlay[id]; ok {
					counts[id]++
					break
				}
			}
		}

		totalVotes := 0
		for _, id := range remaining {
			totalVotes += counts[id]
		}

		// Strict majority ends the count immediately. Integer comparison,
		// so odd and even totals behave identically.
		for _, id := range remaining {
			if totalVotes > 0 && counts[id]*2 > totalVotes {
				winner := id
				return TallyResult{
					Winner: &winner,
					Rounds: append(rounds, Round{Remaining: remaining, Counts: counts}),
				}
			}
		}

		rounds = append(rounds, Round{Remaining: remaining, Counts: counts})

		minCount := counts[remaining[0]]
		for _, id := range remaining[1:] {
			if counts[id] < minCount {
				minCount = counts[id]
			}
		}

		var next []uuid.UUID
		for _, id := range remaining {
			if counts[id] != minCount {
				next = append(next, id)
			}
		}

		// Everyone at the minimum means everyone had the same count: the
		// poll ends in a tie among all remaining candidates.
		if len(next) == 0 {
			return TallyResult{Tie: remaining, Rounds: rounds}
		}

		remaining = next
	}

	if len(remaining) == 1 {
		winner := remaining[0]
		return TallyResult{Winner: &winner, Rounds: rounds}
	}

	return TallyResult{Error: "No winner determined", Rounds: rounds}
}
