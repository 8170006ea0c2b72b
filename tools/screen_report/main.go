// Screen Report Tool summarizes the screen log kept in Postgres.
//
// For every screen name it shows how often the screen was mounted, how often
// the deferred banner show actually fired before the screen went away, and
// how long the screen stayed mounted on average.
//
// Usage:
//
//	go run ./tools/screen_report -limit=500
//
// Configuration:
//
//	-limit: Optional. Number of most recent screen instances to include (default: 200)
//	-postgres-dsn: Optional. Postgres connection string (default: POSTGRES_DSN)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/patrickwarner/adbridge/internal/config"
	"github.com/patrickwarner/adbridge/internal/db"
)

// screenStats aggregates the log rows of one screen name.
type screenStats struct {
	Screen     string
	Mounts     int
	ShowsFired int
	StillOpen  int
	totalDwell time.Duration
	closed     int
}

// FireRate is the share of mounts whose deferred show reached the banner, in percent.
func (s screenStats) FireRate() float64 {
	if s.Mounts == 0 {
		return 0
	}
	return float64(s.ShowsFired) / float64(s.Mounts) * 100
}

// AvgDwell is the mean mounted time of screens that have been unmounted.
func (s screenStats) AvgDwell() time.Duration {
	if s.closed == 0 {
		return 0
	}
	return s.totalDwell / time.Duration(s.closed)
}

// summarize groups records by screen, busiest screen first.
func summarize(records []db.MountRecord) []screenStats {
	byScreen := make(map[string]*screenStats)
	for _, r := range records {
		st, ok := byScreen[r.Screen]
		if !ok {
			st = &screenStats{Screen: r.Screen}
			byScreen[r.Screen] = st
		}
		st.Mounts++
		if r.DeferredShowFired {
			st.ShowsFired++
		}
		if r.UnmountedAt == nil {
			st.StillOpen++
			continue
		}
		st.closed++
		st.totalDwell += r.UnmountedAt.Sub(r.MountedAt)
	}

	out := make([]screenStats, 0, len(byScreen))
	for _, st := range byScreen {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mounts != out[j].Mounts {
			return out[i].Mounts > out[j].Mounts
		}
		return out[i].Screen < out[j].Screen
	})
	return out
}

func main() {
	var (
		limit = flag.Int("limit", 200, "Number of recent screen instances to include")
		dsn   = flag.String("postgres-dsn", "", "Postgres DSN (defaults to POSTGRES_DSN)")
	)
	flag.Parse()

	cfg := config.Load()
	if *dsn == "" {
		*dsn = cfg.PostgresDSN
	}
	if *dsn == "" {
		fmt.Fprintf(os.Stderr, "Error: postgres-dsn or POSTGRES_DSN is required\n")
		flag.Usage()
		os.Exit(1)
	}

	pg, err := db.InitPostgres(*dsn, 2, 1, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to Postgres: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	records, err := pg.RecentMounts(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading screen log: %v\n", err)
		os.Exit(1)
	}

	printScreenReport(summarize(records), len(records))
}

func printScreenReport(stats []screenStats, total int) {
	fmt.Printf("═══════════════════════════════════════════════════════════════\n")
	fmt.Printf("                      SCREEN BANNER REPORT                     \n")
	fmt.Printf("═══════════════════════════════════════════════════════════════\n")
	fmt.Printf("Screen instances: %d\n", total)
	fmt.Printf("Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	if len(stats) == 0 {
		fmt.Printf("No screens have been journaled yet\n")
		return
	}

	fmt.Printf("Screen           | Mounts | Shows fired | Fire rate | Open | Avg dwell\n")
	fmt.Printf("-----------------|--------|-------------|-----------|------|----------\n")
	for _, st := range stats {
		fmt.Printf("%-16s | %6d | %11d | %8.1f%% | %4d | %s\n",
			st.Screen,
			st.Mounts,
			st.ShowsFired,
			st.FireRate(),
			st.StillOpen,
			st.AvgDwell().Round(time.Millisecond),
		)
	}
	fmt.Printf("\n")

	for _, st := range stats {
		// screens that close before the show delay never display a banner
		if st.Mounts-st.StillOpen > 0 && st.ShowsFired == 0 {
			fmt.Printf("⚠️  %s never kept a banner: every instance unmounted before the deferred show\n", st.Screen)
		}
	}
	fmt.Printf("═══════════════════════════════════════════════════════════════\n")
}
