package logic

import (
	"context"
	"errors"
	"fmt"

	"github.com/mapelo/forecast-api/internal/models"
)

var ErrFirstMoverUnknown = errors.New("first mover cannot be determined")

// FirstMoverResolver decides which team took the first veto action of a match
type FirstMoverResolver interface {
	FirstMover(ctx context.Context, match models.CompletedMatch) (int64, error)
}

// ReconcileVetoes proposes acting teams for bans and picks recorded without a
// team, alternating by order index starting with firstMover on index 1.
// Recorded team ids are never overridden.
func ReconcileVetoes(match models.CompletedMatch, firstMover int64) ([]models.VetoAssignment, error) {
	var second int64
	switch firstMover {
	case match.TeamAID:
		second = match.TeamBID
	case match.TeamBID:
		second = match.TeamAID
	default:
		return nil, fmt.Errorf("%w: team %d did not play match %d", ErrFirstMoverUnknown, firstMover, match.ID)
	}

	var out []models.VetoAssignment
	for _, v := range match.Vetoes {
		if v.TeamID != nil || v.Action == models.VetoDecider {
			continue
		}
		team := second
		if v.OrderIndex%2 == 1 {
			team = firstMover
		}
		out = append(out, models.VetoAssignment{MatchID: match.ID, OrderIndex: v.OrderIndex, TeamID: team})
	}
	return out, nil
}

// RecordedActorResolver infers the first mover from any ban or pick that has a
// recorded team, assuming strict alternation.
type RecordedActorResolver struct{}

func (RecordedActorResolver) FirstMover(_ context.Context, match models.CompletedMatch) (int64, error) {
	for _, v := range match.Vetoes {
		if v.TeamID == nil || v.Action == models.VetoDecider {
			continue
		}
		if v.OrderIndex%2 == 1 {
			return *v.TeamID, nil
		}
		if *v.TeamID == match.TeamAID {
			return match.TeamBID, nil
		}
		return match.TeamAID, nil
	}
	return 0, fmt.Errorf("%w: match %d has no attributed actions", ErrFirstMoverUnknown, match.ID)
}

// StaticFirstMover resolves from an operator-supplied match -> team table
type StaticFirstMover map[int64]int64

func (s StaticFirstMover) FirstMover(_ context.Context, match models.CompletedMatch) (int64, error) {
	team, ok := s[match.ID]
	if !ok {
		return 0, fmt.Errorf("%w: match %d", ErrFirstMoverUnknown, match.ID)
	}
	return team, nil
}

// ReconcileMatch loads a match, asks the resolver for its first mover and
// returns proposed assignments. Nothing is written.
func ReconcileMatch(ctx context.Context, vetoes VetoStore, resolver FirstMoverResolver, matchID int64) ([]models.VetoAssignment, error) {
	match, err := vetoes.CompletedMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("load match %d: %w", matchID, err)
	}
	first, err := resolver.FirstMover(ctx, *match)
	if err != nil {
		return nil, err
	}
	return ReconcileVetoes(*match, first)
}
