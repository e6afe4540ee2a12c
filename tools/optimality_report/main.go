package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// prints the teams that gave away the most rating in their drafts, or with a
// team id argument that team's daily totals
func main() {
	chURL := os.Getenv("CLICKHOUSE_URL")
	if chURL == "" {
		chURL = "clickhouse://localhost:9000/mapelo"
	}

	opts, err := clickhouse.ParseDSN(chURL)
	if err != nil {
		log.Fatalf("Failed to parse DSN: %v", err)
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open connection: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	if len(os.Args) > 1 {
		teamID, err := strconv.ParseUint(os.Args[1], 10, 64)
		if err != nil {
			log.Fatalf("Invalid team id %q: %v", os.Args[1], err)
		}
		daily(ctx, conn, teamID)
		return
	}

	rows, err := conn.Query(ctx, `
		SELECT team_id, count() AS matches, avg(rating_lost) AS avg_lost, max(rating_lost) AS worst
		FROM veto_optimality FINAL
		GROUP BY team_id
		ORDER BY avg_lost DESC
		LIMIT 20
	`)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	fmt.Printf("%-8s %8s %10s %10s\n", "team", "matches", "avg_lost", "worst")
	for rows.Next() {
		var (
			teamID, matches uint64
			avgLost, worst  float64
		)
		if err := rows.Scan(&teamID, &matches, &avgLost, &worst); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		fmt.Printf("%-8d %8d %10.1f %10.1f\n", teamID, matches, avgLost, worst)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Rows failed: %v", err)
	}
}

func daily(ctx context.Context, conn driver.Conn, teamID uint64) {
	rows, err := conn.Query(ctx, `
		SELECT day, rating_lost, matches
		FROM team_optimality_daily
		WHERE team_id = ?
		ORDER BY day DESC
		LIMIT 60
	`, teamID)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	fmt.Printf("%-10s %10s %8s\n", "day", "lost", "matches")
	for rows.Next() {
		var (
			day     time.Time
			lost    float64
			matches uint64
		)
		if err := rows.Scan(&day, &lost, &matches); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		fmt.Printf("%-10s %10.1f %8d\n", day.Format(time.DateOnly), lost, matches)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Rows failed: %v", err)
	}
}
