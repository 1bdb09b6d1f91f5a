package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koolihub/koolihub/internal/pkg/config"
	"github.com/koolihub/koolihub/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("koolihub-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var steps []migrations.Migration
	switch os.Args[1] {
	case "up":
		steps, err = migrations.Up()
	case "down":
		steps, err = migrations.Down()
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
	if err != nil {
		log.Fatalf("load migrations: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	for _, m := range steps {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			log.Fatalf("exec %s: %v", m.Name, err)
		}
		fmt.Printf("OK  %s %s\n", os.Args[1], m.Name)
	}

	log.Printf("%d migrations applied", len(steps))
}
