// Command main runs the database seeder for Crowdfund.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"crowdfund/internal/bootstrap"
	"crowdfund/internal/config"
	"crowdfund/internal/seed"
)

func main() {
	// Parse command line flags
	numUsers := flag.Int("users", 25, "Number of users to create")
	projectsPerUser := flag.Int("projects", 3, "Projects per user")
	pledgesPerProject := flag.Int("pledges", 5, "Pledges attempted per project")
	favouritesPerUser := flag.Int("favourites", 3, "Favourites per user")
	maxDays := flag.Int("max-days", 90, "Publish projects up to this many days ago")
	categoriesFile := flag.String("categories", "", "YAML category fixture (defaults to the built-in list)")
	shouldClean := flag.Bool("clean", false, "Remove users, projects, pledges and favourites first")
	fast := flag.Bool("fast", false, "Store plain-text passwords (development only)")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Printf("Target: %d users, %d projects each, clean=%v\n", *numUsers, *projectsPerUser, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatalf("Refusing to seed a production database")
	}

	categories, err := seed.BuiltInCategories()
	if *categoriesFile != "" {
		raw, readErr := os.ReadFile(*categoriesFile)
		if readErr != nil {
			log.Fatalf("Failed to read %s: %v", *categoriesFile, readErr)
		}
		categories, err = seed.ParseCategories(raw)
	}
	if err != nil {
		log.Fatalf("Invalid category fixture: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	s := seed.NewSeeder(rt.DB, seed.Options{
		NumUsers:          *numUsers,
		ProjectsPerUser:   *projectsPerUser,
		PledgesPerProject: *pledgesPerProject,
		FavouritesPerUser: *favouritesPerUser,
		MaxDays:           *maxDays,
		SkipBcrypt:        *fast,
		DryRun:            *dryRun,
		ShouldClean:       *shouldClean,
	})
	sum, err := s.Seed(ctx, categories)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ Seeded %d users, %d projects, %d pledges (%d skipped), %d favourites\n",
		sum.Users, sum.Projects, sum.Pledges, sum.Skipped, sum.Favourites)
	log.Println("📧 All test users have the password: password123")
}
