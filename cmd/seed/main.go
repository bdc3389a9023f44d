// Package main seeds a store with demo stories and reader relations.
//
// It reads the same environment and .env file as the server:
//
//	STORE_BACKEND=sqlite DATA_PATH=~/.talespring go run ./cmd/seed
//	go run ./cmd/seed -users 5 -stories 40
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/samber/do/v2"

	"github.com/talespring/talespring-server/internal/config"
	"github.com/talespring/talespring-server/internal/di"
	"github.com/talespring/talespring-server/internal/di/providers"
	"github.com/talespring/talespring-server/internal/domain"
	"github.com/talespring/talespring-server/internal/id"
)

var (
	numUsers   = flag.Int("users", 3, "Number of demo readers")
	numStories = flag.Int("stories", 24, "Number of demo stories")
)

var (
	adjectives = []string{"Silent", "Crimson", "Last", "Hollow", "Gilded", "Drowned", "Wandering", "Forgotten"}
	nouns      = []string{"Lighthouse", "Dragon", "Orchard", "Station", "Letter", "Harbor", "Crown", "Forest"}
	authors    = []domain.Identity{
		{ID: "author-ada", DisplayName: "Ada Quill"},
		{ID: "author-bo", DisplayName: "Bo Marsh"},
		{ID: "author-cy", DisplayName: "Cy Rowan"},
	}
)

func main() {
	flag.Parse()

	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	injector := di.NewContainer(cfg)
	defer func() { _ = injector.Shutdown() }()

	storeHandle, err := do.Invoke[*providers.StoreHandle](injector)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	relations, err := do.Invoke[*providers.RelationsHandle](injector)
	if err != nil {
		log.Fatalf("Failed to open relation store: %v", err)
	}

	ctx := context.Background()
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	categories := domain.Categories()
	now := time.Now().UTC()

	fmt.Printf("Seeding %d stories into %s\n", *numStories, storeHandle.Backend)

	contentIDs := make([]string, 0, *numStories)
	for n := range *numStories {
		contentID, err := id.Generate(id.PrefixContent)
		if err != nil {
			log.Fatalf("Failed to generate id: %v", err)
		}
		title := fmt.Sprintf("The %s %s", adjectives[rng.IntN(len(adjectives))], nouns[rng.IntN(len(nouns))])
		draft := domain.ContentDraft{
			Title:       title,
			Description: fmt.Sprintf("Demo story #%d.", n+1),
			Body:        fmt.Sprintf("<h2>%s</h2><p>Once upon a time, story number <strong>%d</strong> began.</p>", title, n+1),
			Category:    categories[rng.IntN(len(categories))],
		}
		item := draft.Publish(contentID, authors[rng.IntN(len(authors))], now.Add(-time.Duration(n)*time.Hour))
		if err := storeHandle.CreateContent(ctx, item); err != nil {
			log.Fatalf("Failed to create %s: %v", contentID, err)
		}
		for range rng.IntN(20) {
			if err := storeHandle.IncrementReadCount(ctx, contentID); err != nil {
				log.Fatalf("Failed to count read of %s: %v", contentID, err)
			}
		}
		contentIDs = append(contentIDs, contentID)
	}

	for u := range *numUsers {
		userID := fmt.Sprintf("reader-%d", u+1)
		added := 0
		for _, contentID := range contentIDs {
			for _, kind := range domain.RelationKinds() {
				if rng.IntN(4) != 0 {
					continue
				}
				key := domain.RelationKey{UserID: userID, ContentID: contentID, Kind: kind}
				at := now.Add(-time.Duration(rng.IntN(72*60)) * time.Minute)
				if err := relations.AddRelation(ctx, key, at); err != nil {
					log.Fatalf("Failed to add %s: %v", key, err)
				}
				added++
			}
		}
		fmt.Printf("  %s: %d relations\n", userID, added)
	}

	fmt.Println("Done.")
}
