package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"strconv"
	"strings"
	"testing"

	"animeverse/internal/config"
	"animeverse/internal/models"
	"animeverse/internal/repository"
	"animeverse/internal/storage"
	"animeverse/internal/testutil"
	"animeverse/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const reviewBody = "This season balances its quieter character episodes with a handful of spectacular " +
	"action set pieces, and the soundtrack carries both remarkably well."

// assertCode asserts that err is an AppError with the given code.
func assertCode(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

// assertFieldError asserts a validation error naming field and returns its message.
func assertFieldError(t *testing.T, err error, field string) string {
	t.Helper()
	appErr := assertCode(t, err, models.CodeValidation)
	require.Contains(t, appErr.Fields, field, "fields: %v", appErr.Fields)
	return appErr.Fields[field]
}

type postFixture struct {
	db       *gorm.DB
	store    *storage.Local
	svc      *PostService
	taxonomy *TaxonomyService
	operator *models.User
}

func newPostFixture(t *testing.T) *postFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	store, err := storage.NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)

	images := NewImageService(store, &config.Config{}, nil)
	categories := repository.NewCategoryRepository(db)
	tags := repository.NewTagRepository(db)
	return &postFixture{
		db:       db,
		store:    store,
		svc:      NewPostService(repository.NewPostRepository(db), categories, tags, repository.NewUserRepository(db), images),
		taxonomy: NewTaxonomyService(categories, tags),
		operator: testutil.CreateOperator(t, db, "editor"),
	}
}

func postForm(title string) validation.PostForm {
	return validation.PostForm{Title: title, Content: reviewBody}
}

func (f *postFixture) create(t *testing.T, form validation.PostForm) *models.Post {
	t.Helper()
	post, err := f.svc.Create(context.Background(), SavePostInput{Form: form, AuthorID: f.operator.ID})
	require.NoError(t, err)
	return post
}

func TestPostService_CreateAssignsUniqueSlugs(t *testing.T) {
	f := newPostFixture(t)

	first := f.create(t, postForm("Frieren: Beyond Journey's End"))
	second := f.create(t, postForm("Frieren: Beyond Journey's End"))
	third := f.create(t, postForm("Frieren  Beyond Journey’s End!"))

	assert.Equal(t, "frieren-beyond-journeys-end", first.Slug)
	assert.Equal(t, "frieren-beyond-journeys-end-1", second.Slug)
	assert.Equal(t, "frieren-beyond-journeys-end-2", third.Slug)
	assert.Equal(t, "/frieren-beyond-journeys-end/", first.URL())
}

func TestPostService_CreateSlugEdgeCases(t *testing.T) {
	f := newPostFixture(t)

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"punctuation only falls back", "!!!!!!", "post"},
		{"fallback is disambiguated", "??????", "post-1"},
		{"non latin falls back", "進撃の巨人 ", "post-2"},
		{"accents are folded", "Pokémon Horizons", "pokemon-horizons"},
		{"route names are avoided", "Search", "search-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := postForm(tt.title)
			if len([]rune(tt.title)) < 5 {
				t.Fatalf("fixture title %q is shorter than the form allows", tt.title)
			}
			assert.Equal(t, tt.want, f.create(t, form).Slug)
		})
	}
}

func TestPostService_CreateExplicitSlug(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	form := postForm("Mushishi Review")
	form.Slug = "  My Custom Slug "
	assert.Equal(t, "my-custom-slug", f.create(t, form).Slug)

	form = postForm("Another Mushishi Review")
	form.Slug = "my-custom-slug"
	_, err := f.svc.Create(ctx, SavePostInput{Form: form, AuthorID: f.operator.ID})
	assert.Equal(t, "Post with this Slug already exists.", assertFieldError(t, err, "slug"))

	form.Slug = "archive"
	_, err = f.svc.Create(ctx, SavePostInput{Form: form, AuthorID: f.operator.ID})
	assertFieldError(t, err, "slug")

	form.Slug = "%%%"
	_, err = f.svc.Create(ctx, SavePostInput{Form: form, AuthorID: f.operator.ID})
	assertFieldError(t, err, "slug")
}

func TestPostService_CreateValidation(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	category := testutil.CreateCategory(t, f.db, "Shonen", "shonen")

	tests := []struct {
		name   string
		mutate func(*validation.PostForm)
		field  string
	}{
		{"short title", func(p *validation.PostForm) { p.Title = "Eva" }, "title"},
		{"short content", func(p *validation.PostForm) { p.Content = "Too short." }, "content"},
		{"rating above ten", func(p *validation.PostForm) { p.Rating = "10.5" }, "rating"},
		{"rating with two decimals", func(p *validation.PostForm) { p.Rating = "8.25" }, "rating"},
		{"release year too early", func(p *validation.PostForm) { p.ReleaseYear = "1899" }, "release_year"},
		{"unknown anime type", func(p *validation.PostForm) { p.AnimeType = "manga" }, "anime_type"},
		{"unknown category", func(p *validation.PostForm) { p.Category = strconv.Itoa(int(category.ID) + 100) }, "category"},
		{"unknown tag", func(p *validation.PostForm) { p.Tags = []uint{999} }, "tags"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := postForm("Neon Genesis Evangelion")
			tt.mutate(&form)
			_, err := f.svc.Create(ctx, SavePostInput{Form: form, AuthorID: f.operator.ID})
			assertFieldError(t, err, tt.field)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)

	_, err := f.svc.Create(ctx, SavePostInput{Form: postForm("Orphaned review"), AuthorID: 4242})
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_CreateStoresMetadataAndRelations(t *testing.T) {
	f := newPostFixture(t)
	category := testutil.CreateCategory(t, f.db, "Seinen", "seinen")
	action := testutil.CreateTag(t, f.db, "Action", "action")
	drama := testutil.CreateTag(t, f.db, "Drama", "drama")

	form := postForm("Vinland Saga Season 2")
	form.Rating = "9.5"
	form.EpisodeCount = "24"
	form.ReleaseYear = "2023"
	form.AnimeType = models.AnimeTypeTV
	form.Studio = "MAPPA"
	form.Category = strconv.Itoa(int(category.ID))
	form.Tags = []uint{drama.ID, action.ID, drama.ID}

	post := f.create(t, form)
	assert.Equal(t, models.StatusPublished, post.Status)
	assert.Equal(t, models.DefaultExcerpt, post.Excerpt)
	assert.Equal(t, "9.5", post.Rating.Decimal.String())
	require.NotNil(t, post.EpisodeCount)
	assert.Equal(t, 24, *post.EpisodeCount)
	require.NotNil(t, post.Category)
	assert.Equal(t, "seinen", post.Category.Slug)
	require.Len(t, post.Tags, 2)
	assert.Equal(t, "action", post.Tags[0].Slug)
	assert.Equal(t, f.operator.ID, post.Author.ID)
}

func TestPostService_UpdateKeepsSlugAndViews(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	tag := testutil.CreateTag(t, f.db, "Mecha", "mecha")

	form := postForm("Gurren Lagann Rewatch")
	form.Tags = []uint{tag.ID}
	post := f.create(t, form)
	require.NoError(t, f.db.Model(&models.Post{}).Where("id = ?", post.ID).UpdateColumn("views", 17).Error)

	form = postForm("Tengen Toppa Gurren Lagann, Revisited")
	form.Slug = "ignored-on-update"
	form.Status = models.StatusDraft
	updated, err := f.svc.Update(ctx, post.ID, SavePostInput{Form: form, AuthorID: f.operator.ID})
	require.NoError(t, err)

	assert.Equal(t, "gurren-lagann-rewatch", updated.Slug)
	assert.Equal(t, "Tengen Toppa Gurren Lagann, Revisited", updated.Title)
	assert.Equal(t, models.StatusDraft, updated.Status)
	assert.Equal(t, uint(17), updated.Views)
	assert.Empty(t, updated.Tags)

	_, err = f.svc.Update(ctx, 9999, SavePostInput{Form: form, AuthorID: f.operator.ID})
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_ImagesAreOptimisedAndReplaced(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	post, err := f.svc.Create(ctx, SavePostInput{
		Form:          postForm("Cyberpunk: Edgerunners"),
		AuthorID:      f.operator.ID,
		FeaturedImage: &Upload{Filename: "cover.jpg", Content: testutil.JPEG(t, 2400, 1200)},
		Thumbnail:     &Upload{Filename: "thumb.png", Content: testutil.PNG(t, 800, 800)},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(post.FeaturedImage, "full/"))
	require.True(t, strings.HasPrefix(post.Thumbnail, "thumbnail/"))

	cfg := imageConfig(t, f.store, post.FeaturedImage)
	assert.Equal(t, 1200, cfg.Width)
	assert.Equal(t, 600, cfg.Height)
	cfg = imageConfig(t, f.store, post.Thumbnail)
	assert.Equal(t, 300, cfg.Width)
	assert.Equal(t, 300, cfg.Height)

	oldThumb := post.Thumbnail
	updated, err := f.svc.Update(ctx, post.ID, SavePostInput{
		Form:          postForm("Cyberpunk: Edgerunners"),
		AuthorID:      f.operator.ID,
		Thumbnail:     &Upload{Filename: "new.gif", Content: testutil.GIF(t, 100, 50)},
		ClearFeatured: true,
	})
	require.NoError(t, err)
	assert.Empty(t, updated.FeaturedImage)
	assert.NotEqual(t, oldThumb, updated.Thumbnail)

	_, err = f.store.Open(ctx, oldThumb)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = f.store.Open(ctx, post.FeaturedImage)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = f.svc.Create(ctx, SavePostInput{
		Form:          postForm("Broken upload review"),
		AuthorID:      f.operator.ID,
		FeaturedImage: &Upload{Filename: "cover.jpg", Content: []byte("not an image")},
	})
	assertFieldError(t, err, "featured_image")
}

func imageConfig(t *testing.T, store storage.Storage, key string) image.Config {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(readRaw(t, store, key)))
	require.NoError(t, err)
	return cfg
}

func TestPostService_Delete(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	post, err := f.svc.Create(ctx, SavePostInput{
		Form:      postForm("Akira, thirty years on"),
		AuthorID:  f.operator.ID,
		Thumbnail: &Upload{Filename: "t.png", Content: testutil.PNG(t, 10, 10)},
	})
	require.NoError(t, err)
	testutil.CreateComment(t, f.db, post, "Kaneda", "Great write-up!", true, post.CreatedAt)

	require.NoError(t, f.svc.Delete(ctx, post.ID))

	var comments int64
	require.NoError(t, f.db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Zero(t, comments)
	_, err = f.store.Open(ctx, post.Thumbnail)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assertCode(t, f.svc.Delete(ctx, post.ID), models.CodeNotFound)
}

// racingPostRepo simulates another writer claiming a slug between the lookup and
// the insert.
type racingPostRepo struct {
	repository.PostRepository
	db      *gorm.DB
	races   int
	creates int
}

func (r *racingPostRepo) Create(ctx context.Context, post *models.Post) error {
	r.creates++
	if r.creates <= r.races {
		rival := &models.Post{
			Title: "rival", Slug: post.Slug, Content: reviewBody, Excerpt: models.DefaultExcerpt,
			AuthorID: post.AuthorID, Status: models.StatusPublished,
		}
		if err := r.db.Create(rival).Error; err != nil {
			return err
		}
	}
	return r.PostRepository.Create(ctx, post)
}

func TestPostService_CreateRetriesOnConcurrentSlug(t *testing.T) {
	f := newPostFixture(t)
	repo := &racingPostRepo{PostRepository: repository.NewPostRepository(f.db), db: f.db, races: 2}
	f.svc.postRepo = repo

	post := f.create(t, postForm("Lycoris Recoil"))
	assert.Equal(t, "lycoris-recoil-2", post.Slug)
	assert.Equal(t, 3, repo.creates)
}

type alwaysTakenPostRepo struct {
	repository.PostRepository
	creates int
}

func (r *alwaysTakenPostRepo) Create(context.Context, *models.Post) error {
	r.creates++
	return gorm.ErrDuplicatedKey
}

func TestPostService_CreateGivesUpAfterBoundedRetries(t *testing.T) {
	f := newPostFixture(t)
	repo := &alwaysTakenPostRepo{PostRepository: repository.NewPostRepository(f.db)}
	f.svc.postRepo = repo

	_, err := f.svc.Create(context.Background(), SavePostInput{Form: postForm("Serial Experiments Lain"), AuthorID: f.operator.ID})
	assertCode(t, err, models.CodeInternal)
	assert.Equal(t, maxSlugAttempts, repo.creates)
}

func TestTaxonomyService_CreateCategory(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	category, err := f.taxonomy.CreateCategory(ctx, validation.CategoryForm{Name: "Slice of Life"})
	require.NoError(t, err)
	assert.Equal(t, "slice-of-life", category.Slug)
	assert.Equal(t, models.DefaultCategoryColor, category.Color)

	again, err := f.taxonomy.CreateCategory(ctx, validation.CategoryForm{Name: "Slice of Life", Color: "#fff"})
	require.NoError(t, err)
	assert.Equal(t, "slice-of-life-1", again.Slug)
	assert.Equal(t, "#fff", again.Color)

	fallback, err := f.taxonomy.CreateCategory(ctx, validation.CategoryForm{Name: "日常"})
	require.NoError(t, err)
	assert.Equal(t, "category", fallback.Slug)

	_, err = f.taxonomy.CreateCategory(ctx, validation.CategoryForm{Name: "Dup", Slug: "slice-of-life"})
	assert.Equal(t, "Category with this Slug already exists.", assertFieldError(t, err, "slug"))

	_, err = f.taxonomy.CreateCategory(ctx, validation.CategoryForm{Name: "Bad color", Color: "blue"})
	assertFieldError(t, err, "color")
}

func TestTaxonomyService_CreateTag(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	slugs := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		tag, err := f.taxonomy.CreateTag(ctx, validation.TagForm{Name: "Isekai"})
		require.NoError(t, err)
		slugs = append(slugs, tag.Slug)
	}
	assert.Equal(t, []string{"isekai", "isekai-1", "isekai-2"}, slugs)

	tag, err := f.taxonomy.CreateTag(ctx, validation.TagForm{Name: "   ", Slug: ""})
	assertFieldError(t, err, "name")
	assert.Nil(t, tag)

	tag, err = f.taxonomy.CreateTag(ctx, validation.TagForm{Name: "Mahou Shoujo", Slug: "Magical Girl"})
	require.NoError(t, err)
	assert.Equal(t, "magical-girl", tag.Slug)
}
