package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/mealbox/orders-api/internal/db"
)

func main() {
	_ = godotenv.Load()

	sourceOnly := flag.Bool("source-only", false, "migrate only SOURCE_DATABASE_URL")
	flag.Parse()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	sourceURL := os.Getenv("SOURCE_DATABASE_URL")

	targets := []string{databaseURL}
	if *sourceOnly {
		if sourceURL == "" {
			log.Fatal("SOURCE_DATABASE_URL is required with -source-only")
		}
		targets = []string{sourceURL}
	} else if sourceURL != "" && sourceURL != databaseURL {
		targets = append(targets, sourceURL)
	}

	for _, url := range targets {
		if err := db.Migrate(url); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}
	log.Printf("migrated %d database(s)", len(targets))
}
