// Command cacheinspect dumps the contents of a skiptubed segment cache
// in read-only mode. Useful for checking what a daemon has cached
// without stopping it from the API side.
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/store"
)

func main() {
	dbPath := os.Getenv("CACHE_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/.skiptube/cache")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Segment Cache Inspection ===")
	fmt.Println()

	videoCount := 0
	totalSegments := 0
	staleCount := 0
	categories := map[string]int{}
	oldest := time.Time{}

	err = db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte("analysis:")
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			videoID := strings.TrimPrefix(string(item.Key()), "analysis:")

			err := item.Value(func(val []byte) error {
				var cached store.CachedAnalysis
				if err := json.Unmarshal(val, &cached); err != nil {
					return err
				}

				videoCount++
				if cached.SchemaVersion != store.AnalysisSchemaVersion || cached.Result == nil {
					staleCount++
					fmt.Printf("Video (STALE SCHEMA v%d): %s\n\n", cached.SchemaVersion, videoID)
					return nil
				}

				totalSegments += len(cached.Result.Segments)
				for _, seg := range cached.Result.Segments {
					categories[seg.Category]++
				}
				if oldest.IsZero() || cached.CachedAt.Before(oldest) {
					oldest = cached.CachedAt
				}

				// Show the first few entries in detail
				if videoCount <= 3 {
					fmt.Printf("Video: %s\n", videoID)
					fmt.Printf("  Cached: %s\n", cached.CachedAt.Format(time.RFC3339))
					fmt.Printf("  Model: %s\n", cached.Result.Metadata.Model)
					fmt.Printf("  Segments: %d\n", len(cached.Result.Segments))
					for i, seg := range cached.Result.Segments {
						if i < 5 {
							fmt.Printf("    [%s] %.1f - %.1f (%.2f)\n",
								seg.Category, seg.Start, seg.End, seg.Confidence)
						}
					}
					if len(cached.Result.Segments) > 5 {
						fmt.Printf("    ... and %d more segments\n", len(cached.Result.Segments)-5)
					}
					fmt.Println()
				}

				return nil
			})
			if err != nil {
				log.Printf("Error reading entry %s: %v", videoID, err)
			}
		}
		return nil
	})

	if err != nil {
		log.Fatalf("Error iterating cache: %v", err)
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Cached videos: %d\n", videoCount)
	fmt.Printf("Stale schema entries: %d\n", staleCount)
	fmt.Printf("Total segments: %d\n", totalSegments)
	if videoCount > 0 {
		fmt.Printf("Average segments per video: %.1f\n", float64(totalSegments)/float64(videoCount))
		fmt.Printf("Oldest entry: %s\n", oldest.Format(time.RFC3339))
	}
	for category, count := range categories {
		fmt.Printf("  %s: %d\n", category, count)
	}
}
