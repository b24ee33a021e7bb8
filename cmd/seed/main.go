// Command main runs the database seeder for AnimeVerse.
package main

import (
	"flag"
	"log"

	"animeverse/internal/config"
	"animeverse/internal/database"
	"animeverse/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()

	// Parse command line flags
	numOperators := flag.Int("operators", defaults.NumOperators, "Number of staff operators to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of reviews to create")
	numComments := flag.Int("comments", defaults.NumComments, "Maximum comments per published review")
	numSubscribers := flag.Int("subscribers", defaults.NumSubscribers, "Number of newsletter subscribers")
	numContacts := flag.Int("contacts", defaults.NumContacts, "Number of contact messages")
	maxDays := flag.Int("days", defaults.MaxDays, "Spread review dates over the last N days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Skip bcrypt hashing (local development only)")
	dryRun := flag.Bool("dry-run", false, "Build everything without writing to the database")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d operators, %d posts, clean=%v\n", *numOperators, *numPosts, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := seed.Options{
		NumOperators:   *numOperators,
		NumPosts:       *numPosts,
		NumComments:    *numComments,
		NumSubscribers: *numSubscribers,
		NumContacts:    *numContacts,
		ShouldClean:    *shouldClean,
		DryRun:         *dryRun,
		SkipBcrypt:     *fast,
		MaxDays:        *maxDays,
	}
	if err := seed.Seed(db, opts); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Println("📧 All seeded operators have the password: password123")
}
