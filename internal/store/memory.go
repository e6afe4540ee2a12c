package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mapelo/forecast-api/internal/models"
)

// Memory is an in-process store used by tests and the CLI dry runs.
// All methods are safe for concurrent use.
type Memory struct {
	mu sync.RWMutex

	teams     map[int64]models.Team
	results   []models.MapResult
	ratings   []models.RatingRecord
	snapshots map[int64][]models.CurrentRating
	seasons   []models.Season
	matches   map[int64]models.CompletedMatch
	artifacts map[uuid.UUID][]byte
	scores    []models.OptimalityScore

	nextSeasonID int64
}

func NewMemory() *Memory {
	return &Memory{
		teams:     make(map[int64]models.Team),
		snapshots: make(map[int64][]models.CurrentRating),
		matches:   make(map[int64]models.CompletedMatch),
		artifacts: make(map[uuid.UUID][]byte),
	}
}

func (m *Memory) AddTeam(t models.Team) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[t.ID] = t
}

func (m *Memory) AddResult(r models.MapResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
}

func (m *Memory) AddMatch(match models.CompletedMatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	match.Vetoes = append([]models.VetoAction(nil), match.Vetoes...)
	m.matches[match.ID] = match
}

// Ratings returns a copy of the full rating history
func (m *Memory) Ratings() []models.RatingRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.RatingRecord(nil), m.ratings...)
}

func (m *Memory) Results() []models.MapResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.MapResult(nil), m.results...)
}

func (m *Memory) Scores() []models.OptimalityScore {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.OptimalityScore(nil), m.scores...)
}

func (m *Memory) PendingResults(_ context.Context) ([]models.MapResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.MapResult
	for _, r := range m.results {
		if !r.Processed {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CompletedAt, out[j].CompletedAt
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		if !a.Equal(*b) {
			return a.Before(*b)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) CommitResult(_ context.Context, resultID int64, records []models.RatingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.results {
		if m.results[i].ID != resultID {
			continue
		}
		if m.results[i].Processed {
			return fmt.Errorf("result %d already processed", resultID)
		}
		m.results[i].Processed = true
		m.ratings = append(m.ratings, records...)
		return nil
	}
	return fmt.Errorf("result %d: %w", resultID, ErrNotFound)
}

func (m *Memory) MarkAllUnprocessed(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for i := range m.results {
		if m.results[i].Processed {
			m.results[i].Processed = false
			n++
		}
	}
	return n, nil
}

func (m *Memory) LatestRating(_ context.Context, teamID int64, mapName string, before, notBefore time.Time) (*models.RatingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *models.RatingRecord
	for i := range m.ratings {
		r := &m.ratings[i]
		if r.TeamID != teamID || r.MapName != mapName {
			continue
		}
		if r.RatedAt.Before(notBefore) || !r.RatedAt.Before(before) {
			continue
		}
		// later insertions win ties
		if best == nil || !r.RatedAt.Before(best.RatedAt) {
			best = r
		}
	}
	if best == nil {
		return nil, nil
	}
	out := *best
	return &out, nil
}

func (m *Memory) RatingsSince(_ context.Context, since time.Time) ([]models.RatingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.RatingRecord
	for _, r := range m.ratings {
		if !r.RatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) AppendRatings(_ context.Context, records []models.RatingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratings = append(m.ratings, records...)
	return nil
}

func (m *Memory) DeleteAllRatings(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratings = nil
	m.snapshots = make(map[int64][]models.CurrentRating)
	return nil
}

func (m *Memory) ReplaceSnapshot(_ context.Context, seasonID int64, rows []models.CurrentRating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[seasonID] = append([]models.CurrentRating(nil), rows...)
	return nil
}

func (m *Memory) Snapshot(_ context.Context, seasonID int64) ([]models.CurrentRating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.CurrentRating(nil), m.snapshots[seasonID]...), nil
}

func (m *Memory) ActiveSeason(_ context.Context) (*models.Season, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.seasons {
		if s.Active {
			out := s
			return &out, nil
		}
	}
	return nil, nil
}

func (m *Memory) SwapActiveSeason(_ context.Context, expectedActiveID int64, next models.Season, endedAt time.Time) (*models.Season, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var activeID int64
	for _, s := range m.seasons {
		if s.Active {
			activeID = s.ID
		}
	}
	if activeID != expectedActiveID {
		return nil, ErrSeasonConflict
	}
	for _, s := range m.seasons {
		if s.Year == next.Year {
			return nil, fmt.Errorf("season %d already exists: %w", next.Year, ErrSeasonConflict)
		}
	}

	for i := range m.seasons {
		if m.seasons[i].Active {
			m.seasons[i].Active = false
			end := endedAt
			m.seasons[i].EndDate = &end
		}
	}

	m.nextSeasonID++
	next.ID = m.nextSeasonID
	next.Active = true
	next.EndDate = nil
	m.seasons = append(m.seasons, next)
	out := next
	return &out, nil
}

func (m *Memory) Seasons(_ context.Context) ([]models.Season, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]models.Season(nil), m.seasons...)
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}

func (m *Memory) ActiveTeams(_ context.Context) ([]models.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Team
	for _, t := range m.teams {
		if t.Active {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CompletedMatches(_ context.Context, since time.Time) ([]models.CompletedMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.CompletedMatch
	for _, match := range m.matches {
		if !match.PlayedAt.Before(since) {
			match.Vetoes = append([]models.VetoAction(nil), match.Vetoes...)
			out = append(out, match)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlayedAt.Equal(out[j].PlayedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].PlayedAt.Before(out[j].PlayedAt)
	})
	return out, nil
}

func (m *Memory) CompletedMatch(_ context.Context, id int64) (*models.CompletedMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	match, ok := m.matches[id]
	if !ok {
		return nil, fmt.Errorf("match %d: %w", id, ErrNotFound)
	}
	match.Vetoes = append([]models.VetoAction(nil), match.Vetoes...)
	return &match, nil
}

// SaveArtifact stores the JSON encoding so callers cannot mutate stored artifacts
func (m *Memory) SaveArtifact(_ context.Context, artifact *models.SimulationArtifact) error {
	raw, err := json.Marshal(artifact)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts[artifact.ID] = raw
	return nil
}

func (m *Memory) Artifact(_ context.Context, id uuid.UUID) (*models.SimulationArtifact, error) {
	m.mu.RLock()
	raw, ok := m.artifacts[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("simulation %s: %w", id, ErrNotFound)
	}
	var out models.SimulationArtifact
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *Memory) WriteScores(_ context.Context, scores []models.OptimalityScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, scores...)
	return nil
}
