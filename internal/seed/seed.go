// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"

	"animeverse/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumOperators int
	NumPosts     int
	// NumComments is the maximum number of comments generated per published post.
	NumComments    int
	NumSubscribers int
	NumContacts    int
	ShouldClean    bool

	// DryRun builds everything in memory without writing to the database.
	DryRun bool
	// SkipBcrypt stores plain passwords so large local seeds stay fast.
	SkipBcrypt bool
	// MaxDays spreads post timestamps over the last N days.
	MaxDays int
}

// DefaultOptions returns the sizes used by cmd/seed and startup seeding.
func DefaultOptions() Options {
	return Options{
		NumOperators:   2,
		NumPosts:       40,
		NumComments:    5,
		NumSubscribers: 25,
		NumContacts:    8,
		MaxDays:        180,
	}
}

type show struct {
	title  string
	jp     string
	kind   string
	studio string
}

var (
	genres = []string{
		"Shonen", "Seinen", "Shojo", "Isekai", "Mecha", "Slice of Life",
		"Sports", "Horror", "Romance", "Seasonal Reviews",
	}

	tagNames = []string{
		"Must Watch", "Hidden Gem", "Classic", "Underrated", "Overrated",
		"Great Soundtrack", "Beautiful Animation", "Manga Adaptation",
		"Original Story", "Dub Review", "Sequel", "Completed",
	}

	shows = []show{
		{"Fullmetal Alchemist: Brotherhood", "鋼の錬金術師", models.AnimeTypeTV, "Bones"},
		{"Cowboy Bebop", "カウボーイビバップ", models.AnimeTypeTV, "Sunrise"},
		{"Spirited Away", "千と千尋の神隠し", models.AnimeTypeMovie, "Studio Ghibli"},
		{"Mob Psycho 100", "モブサイコ100", models.AnimeTypeTV, "Bones"},
		{"Your Name", "君の名は。", models.AnimeTypeMovie, "CoMix Wave Films"},
		{"Hellsing Ultimate", "ヘルシング", models.AnimeTypeOVA, "Madhouse"},
		{"Frieren: Beyond Journey's End", "葬送のフリーレン", models.AnimeTypeTV, "Madhouse"},
		{"Devilman Crybaby", "デビルマン crybaby", models.AnimeTypeONA, "Science SARU"},
		{"Made in Abyss", "メイドインアビス", models.AnimeTypeTV, "Kinema Citrus"},
		{"Violet Evergarden", "ヴァイオレット・エヴァーガーデン", models.AnimeTypeTV, "Kyoto Animation"},
		{"Mushoku Tensei", "無職転生", models.AnimeTypeTV, "Studio Bind"},
		{"Haikyu!!", "ハイキュー!!", models.AnimeTypeTV, "Production I.G"},
		{"The Tatami Galaxy", "四畳半神話大系", models.AnimeTypeTV, "Madhouse"},
		{"Neon Genesis Evangelion", "新世紀エヴァンゲリオン", models.AnimeTypeTV, "Gainax"},
		{"Kizumonogatari", "傷物語", models.AnimeTypeMovie, "Shaft"},
		{"Bocchi the Rock!", "ぼっち・ざ・ろっく！", models.AnimeTypeTV, "CloverWorks"},
		{"Re:Zero Memory Snow", "Re:ゼロから始める異世界生活", models.AnimeTypeSpecial, "White Fox"},
	}

	reviewKinds = []string{"Review", "Retrospective", "First Impressions", "Season Review", "Rewatch"}
)

// Seed populates the database with operators, taxonomy, reviews and visitor activity.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("🌱 Starting database seeding with %d operators and %d posts...", opts.NumOperators, opts.NumPosts)

	if opts.ShouldClean && !opts.DryRun {
		if err := clearData(db); err != nil {
			return fmt.Errorf("clear data: %w", err)
		}
	}

	f := NewFactory(db, opts)

	operators, err := createOperators(f, opts.NumOperators)
	if err != nil {
		return err
	}
	log.Printf("✓ %d operators created", len(operators))

	categories, tags, err := createTaxonomy(f)
	if err != nil {
		return err
	}
	log.Printf("✓ %d categories and %d tags available", len(categories), len(tags))

	posts, err := createPosts(f, operators, categories, tags, opts.NumPosts)
	if err != nil {
		return err
	}
	log.Printf("✓ %d posts created", len(posts))

	comments := 0
	for _, post := range posts {
		if !post.IsPublished() || opts.NumComments <= 0 {
			continue
		}
		n := gofakeit.Number(0, opts.NumComments)
		for i := 0; i < n; i++ {
			if _, err := f.CreateComment(post); err != nil {
				return fmt.Errorf("create comment: %w", err)
			}
			comments++
		}
	}
	log.Printf("✓ %d comments created", comments)

	for i := 0; i < opts.NumSubscribers; i++ {
		if _, err := f.CreateSubscriber(); err != nil {
			return fmt.Errorf("create subscriber: %w", err)
		}
	}
	for i := 0; i < opts.NumContacts; i++ {
		if _, err := f.CreateContact(); err != nil {
			return fmt.Errorf("create contact: %w", err)
		}
	}
	log.Printf("✓ %d subscribers and %d contact messages created", opts.NumSubscribers, opts.NumContacts)

	log.Println("🎉 Database seeding completed successfully!")
	return nil
}

// clearData removes seeded rows in dependency order.
func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	if err := db.Exec("DELETE FROM post_tags").Error; err != nil {
		return err
	}
	all := db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{
		&models.Comment{}, &models.Post{}, &models.Tag{}, &models.Category{},
		&models.Newsletter{}, &models.Contact{}, &models.User{},
	} {
		if err := all.Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

func createOperators(f *Factory, count int) ([]*models.User, error) {
	if count < 1 {
		count = 1
	}
	operators := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		op, err := f.CreateOperator()
		if err != nil {
			return nil, fmt.Errorf("create operator: %w", err)
		}
		operators = append(operators, op)
	}
	return operators, nil
}

func createTaxonomy(f *Factory) ([]*models.Category, []*models.Tag, error) {
	categories := make([]*models.Category, 0, len(genres))
	for _, name := range genres {
		c, err := f.CreateCategory(name)
		if err != nil {
			return nil, nil, fmt.Errorf("create category %q: %w", name, err)
		}
		categories = append(categories, c)
	}
	tags := make([]*models.Tag, 0, len(tagNames))
	for _, name := range tagNames {
		t, err := f.CreateTag(name)
		if err != nil {
			return nil, nil, fmt.Errorf("create tag %q: %w", name, err)
		}
		tags = append(tags, t)
	}
	return categories, tags, nil
}

// createPosts writes count posts in batches of 50, each with a category and up to
// three tags.
func createPosts(f *Factory, authors []*models.User, categories []*models.Category, tags []*models.Tag, count int) ([]*models.Post, error) {
	const batchSize = 50

	created := make([]*models.Post, 0, count)
	batch := make([]*models.Post, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := f.CreatePostsBatch(batch); err != nil {
			return fmt.Errorf("create posts: %w", err)
		}
		created = append(created, batch...)
		batch = make([]*models.Post, 0, batchSize)
		return nil
	}

	for i := 0; i < count; i++ {
		author := authors[i%len(authors)]
		category := categories[gofakeit.Number(0, len(categories)-1)]
		post := f.BuildPost(author, func(p *models.Post) {
			p.CategoryID = &category.ID
			for _, idx := range pickDistinct(len(tags), gofakeit.Number(0, 3)) {
				p.Tags = append(p.Tags, *tags[idx])
			}
		})
		batch = append(batch, post)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
			log.Printf("Created %d posts...", len(created))
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return created, nil
}

// pickDistinct returns k distinct indexes in [0, n).
func pickDistinct(n, k int) []int {
	if k > n {
		k = n
	}
	picked := make([]int, 0, k)
	seen := make(map[int]bool, k)
	for len(picked) < k {
		i := gofakeit.Number(0, n-1)
		if seen[i] {
			continue
		}
		seen[i] = true
		picked = append(picked, i)
	}
	return picked
}
