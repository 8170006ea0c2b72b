package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/patrickwarner/adbridge/internal/analytics"
	"github.com/patrickwarner/adbridge/internal/config"
	"github.com/patrickwarner/adbridge/internal/observability"
)

func main() {
	logger, err := observability.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var limit int
	var op string
	var dsn string
	flag.IntVar(&limit, "limit", 20, "number of transitions to print")
	flag.StringVar(&op, "op", "", "only print this operation (initialize, show, hide, resume, remove)")
	flag.StringVar(&dsn, "dsn", "", "ClickHouse DSN")
	flag.Parse()

	if dsn == "" {
		cfg := config.Load()
		dsn = cfg.ClickHouseDSN
	}
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "dsn required (flag or CLICKHOUSE_DSN)")
		os.Exit(1)
	}

	a, err := analytics.InitClickHouse(dsn, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect clickhouse: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	events, err := a.RecentTransitions(ctx, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query events: %v\n", err)
		os.Exit(1)
	}
	if op != "" {
		filtered := events[:0]
		for _, ev := range events {
			if ev.Op == op {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		fmt.Fprintf(os.Stderr, "encode events: %v\n", err)
		os.Exit(1)
	}
}
