// Command main runs the database seeder for recipebox.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"recipebox/internal/config"
	"recipebox/internal/database"
	"recipebox/internal/seed"
)

func main() {
	preset := flag.String("preset", "small", "Seeder preset to apply")
	presetFile := flag.String("presets", "", "Optional YAML file with custom presets")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	presets, err := loadPresets(*presetFile)
	if err != nil {
		log.Fatalf("Failed to load presets: %v", err)
	}
	p, ok := presets[*preset]
	if !ok {
		log.Fatalf("Unknown preset %q (available: %s)", *preset, strings.Join(seed.PresetNames(presets), ", "))
	}
	log.Printf("Applying preset %s: %d users, %d recipes each, clean=%v\n", *preset, p.Users, p.RecipesPerUser, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, seed.Options{RandSeed: *randSeed, BcryptCost: cfg.BcryptCost})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	res, err := s.Run(ctx, p)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! %d users, %d recipes, %d likes.", res.Users, res.Recipes, res.Likes)
	log.Printf("📧 All seeded users have the password: %s", seed.DefaultPassword)
}

func loadPresets(path string) (map[string]seed.Preset, error) {
	if path == "" {
		return seed.DefaultPresets()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return seed.LoadPresets(data)
}
