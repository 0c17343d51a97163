// seed-versions populates the trino_versions and catalog_compatibility
// tables with the known release metadata the dashboard ships with.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trino-compare/dashboard/config"
	"github.com/trino-compare/dashboard/releasenotes"
	"github.com/trino-compare/dashboard/storage"
	"github.com/trino-compare/dashboard/types"
)

func date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func seedVersions() []*types.TrinoVersion {
	return []*types.TrinoVersion{
		{
			Version:         "406",
			ReleaseDate:     date(2023, time.June, 2),
			IsLTS:           true,
			SupportEndDate:  date(2024, time.June, 2),
			ReleaseNotesURL: releasenotes.ReleaseURL("406"),
		},
		{
			Version:         "405",
			ReleaseDate:     date(2023, time.May, 5),
			ReleaseNotesURL: releasenotes.ReleaseURL("405"),
		},
		{
			Version:         "404",
			ReleaseDate:     date(2023, time.April, 7),
			ReleaseNotesURL: releasenotes.ReleaseURL("404"),
		},
	}
}

func seedCompatibility() []*types.CatalogCompatibility {
	return []*types.CatalogCompatibility{
		{
			CatalogName: "hive",
			MinVersion:  "350",
			Notes:       "Core connector widely supported across versions.",
		},
		{
			CatalogName: "iceberg",
			MinVersion:  "351",
			Notes:       "Support improved significantly in versions 380+",
		},
		{
			CatalogName: "delta-lake",
			MinVersion:  "383",
			Notes:       "Experimental in early versions, stable in 393+",
		},
	}
}

func main() {
	configPath := flag.String("config", "", "Path to server YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadServerConfig(*configPath, logrus.StandardLogger())
	if err != nil {
		log.Fatalf("Failed to load server configuration: %v", err)
	}

	db, err := storage.NewDatabase(&cfg.Postgres)
	if err != nil {
		log.Fatalf("Invalid database configuration: %v", err)
	}
	if err := db.Connect(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, v := range seedVersions() {
		if err := db.UpsertVersion(ctx, v); err != nil {
			log.Fatalf("Failed to seed version %s: %v", v.Version, err)
		}
		log.Printf("Seeded version %s", v.Version)
	}

	for _, c := range seedCompatibility() {
		if err := db.UpsertCompatibility(ctx, c); err != nil {
			log.Fatalf("Failed to seed catalog %s: %v", c.CatalogName, err)
		}
		log.Printf("Seeded catalog %s", c.CatalogName)
	}

	log.Println("Seed complete")
}
