// Package main prints a summary of a Badger (kv backend) data directory.
// It opens the database read-only, so it is safe to run next to a stopped server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"

	"github.com/talespring/talespring-server/internal/domain"
	"github.com/talespring/talespring-server/internal/store/kv"
)

const topN = 5

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(os.ExpandEnv("$HOME/.talespring"), "kv")
	}

	st, err := kv.Open(dbPath, nil, kv.Options{ReadOnly: true})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	stats, err := st.Inspect(context.Background(), topN)
	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	fmt.Println("Content by category:")
	for _, category := range domain.Categories() {
		fmt.Printf("  %-20s %d\n", category, stats.ByCategory[category])
	}
	fmt.Println()

	fmt.Printf("Top %d by reads:\n", topN)
	for i, item := range stats.TopRead {
		fmt.Printf("  [%d] %s (%s) %d reads\n", i+1, item.Title, item.ID, item.ReadCount)
	}
	fmt.Println()

	kinds := domain.RelationKinds()
	slices.Sort(kinds)
	fmt.Println("=== Summary ===")
	fmt.Printf("Total content items: %d\n", stats.ContentItems)
	fmt.Printf("Total reads: %d\n", stats.TotalReads)
	for _, kind := range kinds {
		fmt.Printf("Total %s: %d\n", kind.Plural(), stats.Relations[kind])
	}
	fmt.Printf("Dangling relations: %d\n", stats.DanglingRelation)
}
