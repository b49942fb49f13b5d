// Command import loads monthly CSV exports into the riskdesk database.
//
// Usage:
//
//	go run ./cmd/import exports/2025-01.csv exports/2025-02.csv
//	go run ./cmd/import -dir exports/
//
// DATABASE_URL must point at PostgreSQL; importing into the in-memory
// store would vanish when the command exits.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/nmehra/riskdesk/internal/dataset"
)

func main() {
	dir := flag.String("dir", "", "directory of monthly CSV exports to load in name order")
	flag.Parse()

	if *dir == "" && flag.NArg() == 0 {
		fmt.Println("Usage: import [-dir <directory>] [file.csv ...]")
		os.Exit(1)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()

	store := dataset.NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	total := 0

	if *dir != "" {
		n, err := dataset.LoadDir(ctx, store, *dir)
		if err != nil {
			log.Fatalf("Failed to load %s: %v", *dir, err)
		}
		total += n
	}

	for _, path := range flag.Args() {
		n, err := importFile(ctx, store, path)
		if err != nil {
			log.Fatalf("Failed to import %s: %v", path, err)
		}
		total += n
	}

	fmt.Printf("imported %d transactions\n", total)
}

func importFile(ctx context.Context, store dataset.Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	txns, err := dataset.ReadBatch(f)
	if err != nil {
		return 0, err
	}
	if err := store.InsertBatch(ctx, txns); err != nil {
		return 0, err
	}
	return len(txns), nil
}
