package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"rpsvision/internal/dto"
	"rpsvision/internal/game"
	"rpsvision/internal/model"
	"rpsvision/internal/repository/sqlite"
	"rpsvision/internal/service/storage"
)

func main() {
	snapshotsDir := flag.String("snapshots", "snapshots", "Directory containing round snapshots")
	dbPath := flag.String("db", "data/rounds.db", "Database path")
	flag.Parse()

	fmt.Printf("Indexing snapshots from %s into database %s\n", *snapshotsDir, *dbPath)

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	repo := sqlite.NewRoundRepository(db)

	files, err := os.ReadDir(*snapshotsDir)
	if err != nil {
		log.Fatalf("Failed to read snapshots directory: %v", err)
	}

	inserted, skipped := 0, 0
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".jpg" {
			continue
		}

		info, err := storage.ParseFilename(file.Name())
		if err != nil {
			log.Printf("⚠️  Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		winner := game.DetermineWinner(info.Player1, info.Player2)
		if winner == dto.WinnerDraw {
			log.Printf("⚠️  Skipping %s: drawn rounds are not recorded", file.Name())
			skipped++
			continue
		}

		_, err = repo.Insert(&model.Round{
			SessionID:  info.Session,
			Number:     info.Number,
			Player1:    info.Player1,
			Player2:    info.Player2,
			Winner:     winner,
			Detections: 2,
			Snapshot:   file.Name(),
			CreatedAt:  info.Timestamp.UTC(),
		})
		if err != nil {
			log.Printf("⚠️  Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}
		inserted++
	}

	if inserted == 0 {
		fmt.Println("No snapshots found to index")
	} else {
		fmt.Printf("✅ Successfully indexed %d rounds\n", inserted)
	}
	if skipped > 0 {
		fmt.Printf("⚠️  Skipped %d files (invalid format, duplicates or errors)\n", skipped)
	}

	// Show stats
	stats, err := repo.GetStats()
	if err == nil {
		fmt.Printf("\n📊 Database Statistics:\n")
		fmt.Printf("   Total rounds: %d in %d session(s)\n", stats.TotalRounds, stats.TotalSessions)
		fmt.Printf("   Player 1 wins: %d, Player 2 wins: %d\n", stats.Player1Wins, stats.Player2Wins)
		fmt.Printf("   Gestures:\n")
		for gesture, count := range stats.GestureCounts {
			fmt.Printf("      - %s: %d\n", gesture, count)
		}
	}
}
