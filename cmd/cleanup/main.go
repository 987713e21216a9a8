// Cleanup prunes stored uploads older than the retention window. Run it from
// cron; the live server keeps only URL references and never deletes files.
package main

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/homedog/backend/config"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	retentionDays := 30
	if v := os.Getenv("RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			retentionDays = n
		}
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	log.Printf("🧹 Pruning uploads older than %d days from %s", retentionDays, cfg.UploadDir)

	var removed, kept int
	err := filepath.Walk(cfg.UploadDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().After(cutoff) {
			kept++
			return nil
		}
		if err := os.Remove(path); err != nil {
			log.Printf("⚠️ Failed to remove %s: %v", path, err)
			return nil
		}
		removed++
		return nil
	})
	if err != nil {
		log.Fatalf("❌ Cleanup failed: %v", err)
	}

	log.Printf("✅ Cleanup finished: %d removed, %d kept", removed, kept)
}
