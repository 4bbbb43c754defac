package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"tokenwatch/internal/storage/migrations"
	pgstore "tokenwatch/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("TOKENWATCH_POSTGRES_DSN"), "PostgreSQL connection string")
	timeout := flag.Duration("timeout", 2*time.Minute, "Migration timeout")
	flag.Parse()

	logger := log.New(os.Stdout, "[migrate] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn or TOKENWATCH_POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Connect to postgres: %v", err)
	}
	defer pool.Close()

	logger.Println("Applying migrations...")
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Run migrations: %v", err)
	}
	logger.Println("Migrations applied")
}
