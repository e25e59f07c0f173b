package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/coursehub-backend/internal/catalog"
	"github.com/stemsi/coursehub-backend/internal/config"
	"github.com/stemsi/coursehub-backend/internal/database"
	"github.com/stemsi/coursehub-backend/internal/logger"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/repository"
)

// Prices cycle through every price bracket so each filter option has rows.
var seedPrices = []float64{0, 2500, 5000, 5001, 9999.5, 10000, 10001, 25000}

func main() {
	var perProgram int
	flag.IntVar(&perProgram, "per-program", 8, "Courses to create per program")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load program catalog")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	courseRepo := repository.NewCourseRepository(pool)

	fmt.Printf("=== Seeding %d courses per program ===\n", perProgram)

	total, successCount := 0, 0
	for _, p := range cat.Programs {
		for i := 0; i < perProgram; i++ {
			total++
			course := seedCourse(cat, p, i)
			if err := courseRepo.Create(ctx, course); err != nil {
				fmt.Printf("Error creating course %q: %v\n", course.Title, err)
				continue
			}
			successCount++
			if successCount%10 == 0 {
				fmt.Printf("Created %d courses...\n", successCount)
			}
		}
	}

	fmt.Printf("\nSeed completed! Successfully added %d/%d courses.\n", successCount, total)
}

func seedCourse(cat *catalog.Catalog, p catalog.Program, i int) *model.Course {
	tech := p.Technologies[i%len(p.Technologies)]
	branch := "Main"
	if len(cat.Branches) > 0 {
		branch = cat.Branches[i%len(cat.Branches)]
	}
	return &model.Course{
		Title:       fmt.Sprintf("%s %d", tech, i/len(p.Technologies)+1),
		Description: fmt.Sprintf("%s course offered under the %s program.", tech, p.Name),
		Price:       seedPrices[i%len(seedPrices)],
		Duration:    model.Durations[i%len(model.Durations)],
		Branch:      branch,
		Technology:  tech,
		Program:     p.Name,
	}
}
