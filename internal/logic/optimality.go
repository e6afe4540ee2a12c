package logic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mapelo/forecast-api/internal/models"
)

// MinVetoActions is the shortest draft the analyzer will score
const MinVetoActions = 7

var (
	ErrIncompleteVeto = errors.New("veto sequence incomplete")
	ErrMissingRatings = errors.New("ratings missing for veto map")
)

// TeamMapRatings maps team id -> map -> rating at match time
type TeamMapRatings map[int64]map[string]float64

// ScoreVeto replays a draft and returns, for both teams, the rating value lost
// against the greedy optimum: for a pick max(adv) - adv(actual), for a ban
// adv(actual) - min(adv), where adv is acting minus opponent rating.
// Actions without a usable acting team are skipped but still remove their map.
func ScoreVeto(match models.CompletedMatch, ratings TeamMapRatings) ([]models.OptimalityScore, []models.ProcessingIssue, error) {
	if len(match.Vetoes) < MinVetoActions {
		return nil, nil, fmt.Errorf("%w: match %d has %d actions", ErrIncompleteVeto, match.ID, len(match.Vetoes))
	}

	actions := append([]models.VetoAction(nil), match.Vetoes...)
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].OrderIndex < actions[j].OrderIndex })

	available := make(map[string]bool)
	var pool []string
	for _, a := range actions {
		if !available[a.MapName] {
			available[a.MapName] = true
			pool = append(pool, a.MapName)
		}
	}
	for _, team := range []int64{match.TeamAID, match.TeamBID} {
		for _, mapName := range pool {
			if _, ok := ratings[team][mapName]; !ok {
				return nil, nil, fmt.Errorf("%w: team %d map %s", ErrMissingRatings, team, mapName)
			}
		}
	}

	scores := map[int64]*models.OptimalityScore{
		match.TeamAID: {MatchID: match.ID, TeamID: match.TeamAID, PlayedAt: match.PlayedAt},
		match.TeamBID: {MatchID: match.ID, TeamID: match.TeamBID, PlayedAt: match.PlayedAt},
	}
	var issues []models.ProcessingIssue

	for _, a := range actions {
		if !available[a.MapName] {
			issues = append(issues, models.ProcessingIssue{
				Kind:     models.IssueUnavailableMap,
				EntityID: match.ID,
				Detail:   fmt.Sprintf("order %d: %s already removed", a.OrderIndex, a.MapName),
			})
			continue
		}
		if a.Action == models.VetoDecider {
			available[a.MapName] = false
			continue
		}

		if a.TeamID == nil {
			issues = append(issues, models.ProcessingIssue{
				Kind:     models.IssueNullVetoTeam,
				EntityID: match.ID,
				Detail:   fmt.Sprintf("order %d %s %s has no team", a.OrderIndex, a.Action, a.MapName),
			})
			available[a.MapName] = false
			continue
		}
		acting := *a.TeamID
		score, ok := scores[acting]
		if !ok {
			issues = append(issues, models.ProcessingIssue{
				Kind:     models.IssueUnknownVetoTeam,
				EntityID: match.ID,
				Detail:   fmt.Sprintf("order %d team %d did not play", a.OrderIndex, acting),
			})
			available[a.MapName] = false
			continue
		}
		opponent := match.TeamBID
		if acting == match.TeamBID {
			opponent = match.TeamAID
		}

		adv := func(m string) float64 { return ratings[acting][m] - ratings[opponent][m] }
		actual := adv(a.MapName)
		best, worst := actual, actual
		for _, m := range pool {
			if !available[m] {
				continue
			}
			best = max(best, adv(m))
			worst = min(worst, adv(m))
		}

		switch a.Action {
		case models.VetoPick:
			score.RatingLost += best - actual
			score.ScoredActions++
		case models.VetoBan:
			score.RatingLost += actual - worst
			score.ScoredActions++
		default:
			score.SkippedActions++
		}
		available[a.MapName] = false
	}

	return []models.OptimalityScore{*scores[match.TeamAID], *scores[match.TeamBID]}, issues, nil
}

type OptimalityAnalyzerConfig struct {
	Vetoes  VetoStore
	Ratings RatingStore
	Sink    OptimalitySink
	Logger  *zap.SugaredLogger
}

// OptimalityAnalyzer scores historical drafts against ratings at match time
type OptimalityAnalyzer struct {
	vetoes  VetoStore
	ratings RatingStore
	sink    OptimalitySink
	logger  *zap.SugaredLogger
}

func NewOptimalityAnalyzer(cfg OptimalityAnalyzerConfig) *OptimalityAnalyzer {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &OptimalityAnalyzer{
		vetoes:  cfg.Vetoes,
		ratings: cfg.Ratings,
		sink:    cfg.Sink,
		logger:  cfg.Logger,
	}
}

// Analyze scores every completed match since the given time and hands the
// scores to the sink.
func (a *OptimalityAnalyzer) Analyze(ctx context.Context, since time.Time) (*models.OptimalityReport, error) {
	matches, err := a.vetoes.CompletedMatches(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load completed matches: %w", err)
	}

	report := &models.OptimalityReport{}
	for _, m := range matches {
		if len(m.Vetoes) < MinVetoActions {
			report.MatchesSkipped++
			report.Issues = append(report.Issues, models.ProcessingIssue{
				Kind:     models.IssueIncompleteVeto,
				EntityID: m.ID,
				Detail:   fmt.Sprintf("%d veto actions recorded", len(m.Vetoes)),
			})
			continue
		}

		ratings, missing, err := a.ratingsAt(ctx, m)
		if err != nil {
			return report, err
		}
		if missing != "" {
			report.MatchesSkipped++
			report.Issues = append(report.Issues, models.ProcessingIssue{
				Kind:     models.IssueMissingRating,
				EntityID: m.ID,
				Detail:   missing,
			})
			continue
		}

		scores, issues, err := ScoreVeto(m, ratings)
		if err != nil {
			report.MatchesSkipped++
			a.logger.Warnw("Skipping veto analysis", "match", m.ID, "error", err)
			continue
		}
		for _, is := range issues {
			a.logger.Warnw("Veto data defect", "match", m.ID, "kind", is.Kind, "detail", is.Detail)
		}
		report.MatchesScored++
		report.Scores = append(report.Scores, scores...)
		report.Issues = append(report.Issues, issues...)
	}

	if a.sink != nil && len(report.Scores) > 0 {
		if err := a.sink.WriteScores(ctx, report.Scores); err != nil {
			return report, fmt.Errorf("write optimality scores: %w", err)
		}
	}

	a.logger.Infow("Veto optimality analyzed",
		"scored", report.MatchesScored,
		"skipped", report.MatchesSkipped,
		"issues", len(report.Issues),
	)
	return report, nil
}

// ratingsAt loads both teams' in-season ratings just before the match. The
// second return value describes the first missing pair, if any.
func (a *OptimalityAnalyzer) ratingsAt(ctx context.Context, m models.CompletedMatch) (TeamMapRatings, string, error) {
	out := TeamMapRatings{m.TeamAID: {}, m.TeamBID: {}}
	boundary := models.SeasonStart(m.PlayedAt.Year())
	for _, team := range []int64{m.TeamAID, m.TeamBID} {
		for _, v := range m.Vetoes {
			if _, done := out[team][v.MapName]; done {
				continue
			}
			rec, err := a.ratings.LatestRating(ctx, team, v.MapName, m.PlayedAt, boundary)
			if err != nil {
				return nil, "", fmt.Errorf("rating lookup match %d: %w", m.ID, err)
			}
			if rec == nil {
				return nil, fmt.Sprintf("team %d has no rating on %s", team, v.MapName), nil
			}
			out[team][v.MapName] = rec.Rating
		}
	}
	return out, "", nil
}
