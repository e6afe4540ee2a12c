package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config
const (
	API_URL = "http://localhost:8080/api/v1/ratings/process"
	MATCHES = 40
)

var teams = []struct{ slug, name string }{
	{"vitality", "Team Vitality"},
	{"spirit", "Team Spirit"},
	{"mouz", "MOUZ"},
	{"faze", "FaZe Clan"},
	{"navi", "Natus Vincere"},
	{"g2", "G2 Esports"},
	{"liquid", "Team Liquid"},
	{"heroic", "Heroic"},
}

var pool = []string{"ancient", "anubis", "dust2", "inferno", "mirage", "nuke", "train"}

// seeds demo teams, BO3 matches with full vetoes and their map results,
// then asks a running API to process them
func main() {
	pgURL := os.Getenv("POSTGRES_URL")
	if pgURL == "" {
		pgURL = "postgres://localhost:5432/mapelo"
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, pgURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	rng := rand.New(rand.NewPCG(7, 7))
	err = pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		ids := make([]int64, len(teams))
		for i, t := range teams {
			if err := tx.QueryRow(ctx, `
				INSERT INTO teams (slug, name) VALUES ($1, $2)
				ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
				RETURNING id`, t.slug, t.name).Scan(&ids[i]); err != nil {
				return err
			}
		}

		start := time.Now().UTC().AddDate(0, 0, -MATCHES)
		for m := 0; m < MATCHES; m++ {
			a, b := rng.IntN(len(ids)), rng.IntN(len(ids)-1)
			if b >= a {
				b++
			}
			teamA, teamB := ids[a], ids[b]
			playedAt := start.AddDate(0, 0, m)

			var matchID int64
			if err := tx.QueryRow(ctx, `
				INSERT INTO matches (team_a_id, team_b_id, played_at, completed)
				VALUES ($1, $2, $3, true) RETURNING id`, teamA, teamB, playedAt).Scan(&matchID); err != nil {
				return err
			}

			// ban A, ban B, pick A, pick B, ban A, ban B, decider
			order := rng.Perm(len(pool))
			actors := []*int64{&teamA, &teamB, &teamA, &teamB, &teamA, &teamB, nil}
			actions := []string{"ban", "ban", "pick", "pick", "ban", "ban", "decider"}
			for i, idx := range order {
				if _, err := tx.Exec(ctx, `
					INSERT INTO veto_actions (match_id, team_id, action, map_name, order_index)
					VALUES ($1, $2, $3, $4, $5)`, matchID, actors[i], actions[i], pool[idx], i+1); err != nil {
					return err
				}
			}

			played := []string{pool[order[2]], pool[order[3]], pool[order[6]]}
			winsA, winsB := 0, 0
			for i, mapName := range played {
				if winsA == 2 || winsB == 2 {
					break
				}
				winner, loser := teamA, teamB
				if rng.IntN(2) == 0 {
					winner, loser = teamB, teamA
					winsB++
				} else {
					winsA++
				}
				loserRounds := rng.IntN(12)
				completedAt := playedAt.Add(time.Duration(i+1) * time.Hour)
				if _, err := tx.Exec(ctx, `
					INSERT INTO map_results (match_id, map_name, winner_id, loser_id, winner_rounds, loser_rounds, completed_at)
					VALUES ($1, $2, $3, $4, 13, $5, $6)`,
					matchID, mapName, winner, loser, loserRounds, completedAt); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}
	fmt.Printf("Seeded %d teams and %d matches\n", len(teams), MATCHES)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(API_URL, "application/json", nil)
	if err != nil {
		log.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %s\n", resp.Status)
	fmt.Printf("Response: %s\n", string(body))

	if resp.StatusCode == http.StatusOK {
		fmt.Println("Processing Successful!")
	} else {
		fmt.Println("Processing Failed!")
	}
}
