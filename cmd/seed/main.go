// Command seed prepares a fresh deployment: it writes the column header on
// the raw log and the working sheet, protects the raw log, and can print an
// API_TOKEN_HASH for a chosen token.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/mealbox/orders-api/internal/app"
	"github.com/mealbox/orders-api/internal/auth"
	"github.com/mealbox/orders-api/internal/config"
	"github.com/mealbox/orders-api/internal/db"
	"github.com/mealbox/orders-api/internal/sheet"
)

func main() {
	hashToken := flag.String("hash-token", "", "print the API_TOKEN_HASH value for this token and exit")
	generate := flag.Bool("generate-token", false, "generate a random API token, print it with its hash and exit")
	flag.Parse()

	switch {
	case *generate:
		token, err := auth.GenerateToken()
		if err != nil {
			log.Fatalf("generate token: %v", err)
		}
		printHash(token)
		return
	case *hashToken != "":
		printHash(*hashToken)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.SourceDatabaseURL)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := app.Bootstrap(ctx, cfg, sheet.NewPGStore(pool)); err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	log.Printf("sheets %q and %q ready, %q protected", cfg.RawSheet, cfg.WorkingSheet, cfg.RawSheet)
}

func printHash(token string) {
	hash, err := auth.HashSecret(token)
	if err != nil {
		log.Fatalf("hash token: %v", err)
	}
	fmt.Fprintf(os.Stdout, "API_TOKEN=%s\nAPI_TOKEN_HASH=%s\n", token, hash)
}
