package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/mapelo/forecast-api/internal/models"
)

// DB is the subset of *pgxpool.Pool used by Postgres
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Postgres is the primary Match/Rating Store
type Postgres struct {
	db     DB
	retry  RetryPolicy
	logger *zap.SugaredLogger
}

func NewPostgres(db DB, policy RetryPolicy, logger *zap.SugaredLogger) *Postgres {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Postgres{db: db, retry: policy, logger: logger}
}

var ratingColumns = []string{"team_id", "map_name", "rating", "rated_at", "source_result_id"}

func ratingRows(records []models.RatingRecord) pgx.CopyFromSource {
	return pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		r := records[i]
		return []any{r.TeamID, r.MapName, r.Rating, r.RatedAt, r.SourceResultID}, nil
	})
}

func (p *Postgres) PendingResults(ctx context.Context) ([]models.MapResult, error) {
	var out []models.MapResult
	err := p.retry.Do(ctx, "pending results", func(ctx context.Context) error {
		out = out[:0]
		rows, err := p.db.Query(ctx, `
			SELECT id, match_id, map_name, winner_id, loser_id, winner_rounds, loser_rounds, completed_at
			FROM map_results
			WHERE processed = false
			ORDER BY completed_at ASC NULLS FIRST, id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var r models.MapResult
			if err := rows.Scan(&r.ID, &r.MatchID, &r.MapName, &r.WinnerID, &r.LoserID,
				&r.WinnerRounds, &r.LoserRounds, &r.CompletedAt); err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

// CommitResult marks the result processed and appends its rating records in one transaction
func (p *Postgres) CommitResult(ctx context.Context, resultID int64, records []models.RatingRecord) error {
	return p.retry.Do(ctx, "commit result", func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx,
				`UPDATE map_results SET processed = true WHERE id = $1 AND processed = false`, resultID)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("result %d: %w", resultID, ErrNotFound)
			}
			_, err = tx.CopyFrom(ctx, pgx.Identifier{"team_map_ratings"}, ratingColumns, ratingRows(records))
			return err
		})
	})
}

func (p *Postgres) MarkAllUnprocessed(ctx context.Context) (int64, error) {
	var n int64
	err := p.retry.Do(ctx, "mark unprocessed", func(ctx context.Context) error {
		tag, err := p.db.Exec(ctx, `UPDATE map_results SET processed = false WHERE processed = true`)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	return n, err
}

func (p *Postgres) LatestRating(ctx context.Context, teamID int64, mapName string, before, notBefore time.Time) (*models.RatingRecord, error) {
	var rec *models.RatingRecord
	err := p.retry.Do(ctx, "latest rating", func(ctx context.Context) error {
		var r models.RatingRecord
		err := p.db.QueryRow(ctx, `
			SELECT team_id, map_name, rating, rated_at, source_result_id
			FROM team_map_ratings
			WHERE team_id = $1 AND map_name = $2 AND rated_at >= $3 AND rated_at < $4
			ORDER BY rated_at DESC, id DESC
			LIMIT 1`, teamID, mapName, notBefore, before,
		).Scan(&r.TeamID, &r.MapName, &r.Rating, &r.RatedAt, &r.SourceResultID)
		if errors.Is(err, pgx.ErrNoRows) {
			rec = nil
			return nil
		}
		if err != nil {
			return err
		}
		rec = &r
		return nil
	})
	return rec, err
}

func (p *Postgres) RatingsSince(ctx context.Context, since time.Time) ([]models.RatingRecord, error) {
	var out []models.RatingRecord
	err := p.retry.Do(ctx, "ratings since", func(ctx context.Context) error {
		out = out[:0]
		rows, err := p.db.Query(ctx, `
			SELECT team_id, map_name, rating, rated_at, source_result_id
			FROM team_map_ratings
			WHERE rated_at >= $1
			ORDER BY rated_at ASC, id ASC`, since)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var r models.RatingRecord
			if err := rows.Scan(&r.TeamID, &r.MapName, &r.Rating, &r.RatedAt, &r.SourceResultID); err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

func (p *Postgres) AppendRatings(ctx context.Context, records []models.RatingRecord) error {
	if len(records) == 0 {
		return nil
	}
	return p.retry.Do(ctx, "append ratings", func(ctx context.Context) error {
		_, err := p.db.CopyFrom(ctx, pgx.Identifier{"team_map_ratings"}, ratingColumns, ratingRows(records))
		return err
	})
}

func (p *Postgres) DeleteAllRatings(ctx context.Context) error {
	return p.retry.Do(ctx, "delete ratings", func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `DELETE FROM current_ratings`); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `DELETE FROM team_map_ratings`)
			return err
		})
	})
}

func (p *Postgres) ReplaceSnapshot(ctx context.Context, seasonID int64, rows []models.CurrentRating) error {
	return p.retry.Do(ctx, "replace snapshot", func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `DELETE FROM current_ratings WHERE season_id = $1`, seasonID); err != nil {
				return err
			}
			_, err := tx.CopyFrom(ctx,
				pgx.Identifier{"current_ratings"},
				[]string{"season_id", "team_id", "map_name", "rating", "rated_at"},
				pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
					r := rows[i]
					return []any{seasonID, r.TeamID, r.MapName, r.Rating, r.RatedAt}, nil
				}),
			)
			return err
		})
	})
}

func (p *Postgres) Snapshot(ctx context.Context, seasonID int64) ([]models.CurrentRating, error) {
	var out []models.CurrentRating
	err := p.retry.Do(ctx, "snapshot", func(ctx context.Context) error {
		out = out[:0]
		rows, err := p.db.Query(ctx, `
			SELECT season_id, team_id, map_name, rating, rated_at
			FROM current_ratings
			WHERE season_id = $1
			ORDER BY team_id, map_name`, seasonID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var r models.CurrentRating
			if err := rows.Scan(&r.SeasonID, &r.TeamID, &r.MapName, &r.Rating, &r.RatedAt); err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

func (p *Postgres) ActiveSeason(ctx context.Context) (*models.Season, error) {
	var season *models.Season
	err := p.retry.Do(ctx, "active season", func(ctx context.Context) error {
		var s models.Season
		err := p.db.QueryRow(ctx, `
			SELECT id, year, start_date, end_date, active
			FROM seasons WHERE active = true`,
		).Scan(&s.ID, &s.Year, &s.StartDate, &s.EndDate, &s.Active)
		if errors.Is(err, pgx.ErrNoRows) {
			season = nil
			return nil
		}
		if err != nil {
			return err
		}
		season = &s
		return nil
	})
	return season, err
}

// SwapActiveSeason ends the active season and inserts next in one transaction.
// It fails with ErrSeasonConflict when the active season is no longer expectedActiveID.
func (p *Postgres) SwapActiveSeason(ctx context.Context, expectedActiveID int64, next models.Season, endedAt time.Time) (*models.Season, error) {
	var created models.Season
	err := p.retry.Do(ctx, "swap season", func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
			var activeID int64
			err := tx.QueryRow(ctx, `SELECT id FROM seasons WHERE active = true FOR UPDATE`).Scan(&activeID)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			if activeID != expectedActiveID {
				return ErrSeasonConflict
			}
			if activeID != 0 {
				if _, err := tx.Exec(ctx,
					`UPDATE seasons SET active = false, end_date = $1 WHERE id = $2`, endedAt, activeID); err != nil {
					return err
				}
			}

			created = next
			created.Active = true
			created.EndDate = nil
			err = tx.QueryRow(ctx, `
				INSERT INTO seasons (year, start_date, active)
				VALUES ($1, $2, true)
				RETURNING id`, next.Year, next.StartDate,
			).Scan(&created.ID)
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("season %d: %w", next.Year, ErrSeasonConflict)
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (p *Postgres) Seasons(ctx context.Context) ([]models.Season, error) {
	var out []models.Season
	err := p.retry.Do(ctx, "seasons", func(ctx context.Context) error {
		out = out[:0]
		rows, err := p.db.Query(ctx, `
			SELECT id, year, start_date, end_date, active
			FROM seasons ORDER BY year`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s models.Season
			if err := rows.Scan(&s.ID, &s.Year, &s.StartDate, &s.EndDate, &s.Active); err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	return out, err
}

func (p *Postgres) ActiveTeams(ctx context.Context) ([]models.Team, error) {
	var out []models.Team
	err := p.retry.Do(ctx, "active teams", func(ctx context.Context) error {
		out = out[:0]
		rows, err := p.db.Query(ctx, `SELECT id, slug, name, active FROM teams WHERE active = true ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t models.Team
			if err := rows.Scan(&t.ID, &t.Slug, &t.Name, &t.Active); err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	return out, err
}

const completedMatchQuery = `
	SELECT m.id, m.team_a_id, m.team_b_id, m.played_at,
	       v.team_id, v.action, v.map_name, v.order_index
	FROM matches m
	LEFT JOIN veto_actions v ON v.match_id = m.id
	WHERE m.completed = true AND %s
	ORDER BY m.played_at, m.id, v.order_index`

func (p *Postgres) CompletedMatches(ctx context.Context, since time.Time) ([]models.CompletedMatch, error) {
	var out []models.CompletedMatch
	err := p.retry.Do(ctx, "completed matches", func(ctx context.Context) error {
		var err error
		out, err = p.queryMatches(ctx, fmt.Sprintf(completedMatchQuery, "m.played_at >= $1"), since)
		return err
	})
	return out, err
}

func (p *Postgres) CompletedMatch(ctx context.Context, id int64) (*models.CompletedMatch, error) {
	var out []models.CompletedMatch
	err := p.retry.Do(ctx, "completed match", func(ctx context.Context) error {
		var err error
		out, err = p.queryMatches(ctx, fmt.Sprintf(completedMatchQuery, "m.id = $1"), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("match %d: %w", id, ErrNotFound)
	}
	return &out[0], nil
}

// queryMatches folds joined match/veto rows into matches
func (p *Postgres) queryMatches(ctx context.Context, sql string, arg any) ([]models.CompletedMatch, error) {
	rows, err := p.db.Query(ctx, sql, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CompletedMatch
	for rows.Next() {
		var (
			m          models.CompletedMatch
			teamID     *int64
			action     *string
			mapName    *string
			orderIndex *int
		)
		if err := rows.Scan(&m.ID, &m.TeamAID, &m.TeamBID, &m.PlayedAt,
			&teamID, &action, &mapName, &orderIndex); err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1].ID != m.ID {
			out = append(out, m)
		}
		if action == nil {
			continue
		}
		cur := &out[len(out)-1]
		v := models.VetoAction{MatchID: m.ID, TeamID: teamID, Action: models.VetoKind(*action)}
		if mapName != nil {
			v.MapName = *mapName
		}
		if orderIndex != nil {
			v.OrderIndex = *orderIndex
		}
		cur.Vetoes = append(cur.Vetoes, v)
	}
	return out, rows.Err()
}

func (p *Postgres) SaveArtifact(ctx context.Context, artifact *models.SimulationArtifact) error {
	payload, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("encode simulation: %w", err)
	}
	return p.retry.Do(ctx, "save simulation", func(ctx context.Context) error {
		_, err := p.db.Exec(ctx, `
			INSERT INTO simulations (id, tournament_id, simulated_at, payload)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, simulated_at = EXCLUDED.simulated_at`,
			artifact.ID, artifact.TournamentID, artifact.SimulatedAt, payload)
		return err
	})
}

func (p *Postgres) Artifact(ctx context.Context, id uuid.UUID) (*models.SimulationArtifact, error) {
	var payload []byte
	err := p.retry.Do(ctx, "load simulation", func(ctx context.Context) error {
		return p.db.QueryRow(ctx, `SELECT payload FROM simulations WHERE id = $1`, id).Scan(&payload)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("simulation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var out models.SimulationArtifact
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode simulation %s: %w", id, err)
	}
	return &out, nil
}

// Ping checks connectivity for readiness probes
func (p *Postgres) Ping(ctx context.Context) error {
	var one int
	return p.db.QueryRow(ctx, `SELECT 1`).Scan(&one)
}
