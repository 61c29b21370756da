package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"pc-build-advisor-be/internal/bootstrap"
	"pc-build-advisor-be/internal/config"
	"pc-build-advisor-be/pkg/database"
)

func main() {
	rebuild := flag.Bool("rebuild", false, "drop the existing index before ingesting")
	dumpPath := flag.String("dump", "", "path to the catalog SQL dump (overrides CATALOG_DUMP_PATH)")
	flag.Parse()

	cfg := config.Load()
	path := cfg.Ingest.DumpPath
	if *dumpPath != "" {
		path = *dumpPath
	}

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Unable to connect to GORM DB: %v", err)
	}
	container := bootstrap.NewContainer(gormDB, cfg)

	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("Unable to open catalog dump %s: %v", path, err)
	}
	defer file.Close()

	ctx := context.Background()
	if err := container.IngestService.Consume(ctx); err != nil {
		log.Fatalf("Failed to start ingest consumer: %v", err)
	}

	started := time.Now()
	report, err := container.IngestService.IngestDump(ctx, file, *rebuild)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	log.Printf("Done in %s: %d components parsed (%d bad rows skipped), %d batches, %d indexed, %d batches failed",
		time.Since(started).Round(time.Millisecond),
		report.ComponentsParsed, report.RowErrors,
		report.Batches, report.Indexed, report.Failed)
}
