package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"animeverse/internal/models"
	"animeverse/internal/slug"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	// slugs handed out during this run, per table
	slugs map[string]map[string]bool
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{db: db, opts: opts, slugs: map[string]map[string]bool{}, nextID: 1000}
}

// uniqueSlug derives a slug for table from source that is unused in this run and
// in the database.
func (f *Factory) uniqueSlug(table, source, fallback string) string {
	seen := f.slugs[table]
	if seen == nil {
		seen = map[string]bool{}
		f.slugs[table] = seen
	}
	s := slug.Unique(slug.Generate(source, fallback), func(candidate string) bool {
		if seen[candidate] {
			return true
		}
		if f.opts.DryRun || f.db == nil {
			return false
		}
		var n int64
		f.db.Table(table).Where("slug = ?", candidate).Count(&n)
		return n > 0
	})
	seen[s] = true
	return s
}

func (f *Factory) assignID(id *uint) {
	f.nextID++
	*id = f.nextID
}

// createdAt returns a timestamp spread over the last MaxDays days.
func (f *Factory) createdAt() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	// #nosec G404: acceptable for seeding
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	back := time.Duration(r.Intn(maxDays))*24*time.Hour +
		time.Duration(r.Intn(24))*time.Hour +
		time.Duration(r.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

// CreateOperator constructs and persists a staff operator with password "password123".
func (f *Factory) CreateOperator(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username: strings.ToLower(gofakeit.Username()) + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Email:    gofakeit.Email(),
		IsStaff:  true,
	}

	// Password handling: allow skipping bcrypt in dev fast mode
	if f.opts.SkipBcrypt {
		user.Password = "password123"
	} else {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.Password = string(hashedPassword)
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.assignID(&user.ID)
		log.Printf("[dry-run] CreateOperator: %s", user.Username)
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateCategory persists a category named name.
func (f *Factory) CreateCategory(name string, overrides ...func(*models.Category)) (*models.Category, error) {
	category := &models.Category{
		Name:        name,
		Slug:        f.uniqueSlug("categories", name, "category"),
		Description: gofakeit.Sentence(12),
		Color:       gofakeit.HexColor(),
	}
	for _, override := range overrides {
		override(category)
	}

	if f.opts.DryRun {
		f.assignID(&category.ID)
		return category, nil
	}
	if err := f.db.Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// CreateTag persists a tag named name.
func (f *Factory) CreateTag(name string) (*models.Tag, error) {
	tag := &models.Tag{Name: name, Slug: f.uniqueSlug("tags", name, "tag")}
	if f.opts.DryRun {
		f.assignID(&tag.ID)
		return tag, nil
	}
	if err := f.db.Create(tag).Error; err != nil {
		return nil, err
	}
	return tag, nil
}

// BuildPost constructs a published review by author without persisting it.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	show := shows[gofakeit.Number(0, len(shows)-1)]
	adjective := gofakeit.Adjective()
	title := fmt.Sprintf("%s: %s%s %s", show.title, strings.ToUpper(adjective[:1]), adjective[1:],
		reviewKinds[gofakeit.Number(0, len(reviewKinds)-1)])

	rating := decimal.NewFromFloat(gofakeit.Float64Range(5, 10)).Round(1)
	episodes := gofakeit.Number(1, 64)
	year := gofakeit.Number(1985, 2025)

	post := &models.Post{
		Title:           title,
		Slug:            f.uniqueSlug("posts", title, "post"),
		Content:         gofakeit.Paragraph(3, 4, 14, "\n\n"),
		Excerpt:         truncate(gofakeit.Sentence(20), 300),
		AnimeTitleJP:    show.jp,
		AnimeType:       show.kind,
		Rating:          decimal.NewNullDecimal(rating),
		EpisodeCount:    &episodes,
		ReleaseYear:     &year,
		Studio:          show.studio,
		AuthorID:        author.ID,
		Status:          models.StatusPublished,
		MetaDescription: truncate(gofakeit.Sentence(15), 160),
		MetaKeywords:    strings.ToLower(show.title) + ", anime, review",
		CreatedAt:       f.createdAt(),
		Views:           uint(gofakeit.Number(0, 5000)),
	}
	if gofakeit.Number(1, 10) == 1 {
		post.Status = models.StatusDraft
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists multiple posts (with their tag links) in one call.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if f.opts.DryRun {
		for _, p := range posts {
			f.assignID(&p.ID)
		}
		log.Printf("[dry-run] CreatePostsBatch: %d posts (no DB write)", len(posts))
		return nil
	}
	return f.db.Create(&posts).Error
}

// CreateComment persists a reader comment on post.
func (f *Factory) CreateComment(post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:     post.ID,
		Name:       gofakeit.Name(),
		Email:      gofakeit.Email(),
		Content:    gofakeit.Sentence(gofakeit.Number(6, 30)),
		IsApproved: gofakeit.Number(1, 8) != 1,
		CreatedAt:  post.CreatedAt.Add(time.Duration(gofakeit.Number(1, 72)) * time.Hour),
	}
	if comment.CreatedAt.After(time.Now()) {
		comment.CreatedAt = time.Now()
	}
	for _, override := range overrides {
		override(comment)
	}

	if f.opts.DryRun {
		f.assignID(&comment.ID)
		return comment, nil
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateSubscriber persists an active newsletter subscription.
func (f *Factory) CreateSubscriber() (*models.Newsletter, error) {
	sub := &models.Newsletter{Email: strings.ToLower(gofakeit.Email()), IsActive: true}
	if f.opts.DryRun {
		f.assignID(&sub.ID)
		return sub, nil
	}
	if err := f.db.Where(models.Newsletter{Email: sub.Email}).FirstOrCreate(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

// CreateContact persists an unread contact message.
func (f *Factory) CreateContact() (*models.Contact, error) {
	contact := &models.Contact{
		Name:    gofakeit.Name(),
		Email:   gofakeit.Email(),
		Subject: truncate(gofakeit.Sentence(6), 200),
		Message: gofakeit.Paragraph(1, 3, 12, " "),
	}
	if f.opts.DryRun {
		f.assignID(&contact.ID)
		return contact, nil
	}
	if err := f.db.Create(contact).Error; err != nil {
		return nil, err
	}
	return contact, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max])
}
