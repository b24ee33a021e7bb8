package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"animeverse/internal/cache"
	"animeverse/internal/models"
	"animeverse/internal/repository"
	"animeverse/internal/testutil"
	"animeverse/internal/validation"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newBlogService(db *gorm.DB) *BlogService {
	return NewBlogService(
		repository.NewPostRepository(db),
		repository.NewCategoryRepository(db),
		repository.NewTagRepository(db),
		repository.NewCommentRepository(db),
	)
}

func titles(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}

// seedPosts inserts n published posts, the first one oldest.
func seedPosts(t *testing.T, db *gorm.DB, author *models.User, n int, opts ...testutil.PostOption) []*models.Post {
	t.Helper()
	base := time.Now().Add(-time.Duration(n) * time.Hour)
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		o := append([]testutil.PostOption{testutil.WithCreatedAt(base.Add(time.Duration(i) * time.Hour))}, opts...)
		posts = append(posts, testutil.CreatePost(t, db, author, fmt.Sprintf("Review %02d", i+1), fmt.Sprintf("review-%02d", i+1), o...))
	}
	return posts
}

func TestBlogService_ArchivePagination(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newBlogService(db)
	ctx := context.Background()
	seedPosts(t, db, testutil.CreateOperator(t, db, "editor"), 25)

	tests := []struct {
		name      string
		page      int
		wantPage  int
		wantCount int
		first     string
	}{
		{"first page", 1, 1, 12, "Review 25"},
		{"second page", 2, 2, 12, "Review 13"},
		{"last page is partial", 3, 3, 1, "Review 01"},
		{"beyond range clamps to last", 99, 3, 1, "Review 01"},
		{"zero clamps to first", 0, 1, 12, "Review 25"},
		{"negative clamps to first", -4, 1, 12, "Review 25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := svc.Archive(ctx, tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, view.Page.Number)
			assert.Equal(t, 3, view.Page.TotalPages)
			assert.Equal(t, int64(25), view.Page.TotalItems)
			require.Len(t, view.Posts, tt.wantCount)
			assert.Equal(t, tt.first, view.Posts[0].Title)
		})
	}
}

func TestBlogService_EmptyListingHasOnePage(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newBlogService(db)

	view, err := svc.Archive(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Page.Number)
	assert.Equal(t, 1, view.Page.TotalPages)
	assert.NotNil(t, view.Posts)
	assert.Empty(t, view.Posts)
	assert.Empty(t, view.Categories)
}

func TestBlogService_Search(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newBlogService(db)
	ctx := context.Background()
	author := testutil.CreateOperator(t, db, "editor")
	seedPosts(t, db, author, 11, testutil.WithStudio("Trigger"))
	testutil.CreatePost(t, db, author, "Unrelated", "unrelated", testutil.WithStudio("Ghibli"))

	view, err := svc.Search(ctx, validation.SearchForm{Q: "  trigger "}, 2)
	require.NoError(t, err)
	assert.Equal(t, "trigger", view.Query)
	assert.Equal(t, 2, view.Page.Number)
	assert.Equal(t, int64(11), view.Page.TotalItems)
	assert.Equal(t, []string{"Review 02", "Review 01"}, titles(view.Posts))

	view, err = svc.Search(ctx, validation.SearchForm{}, 1)
	require.NoError(t, err)
	assert.Empty(t, view.Posts)
	assert.Equal(t, int64(0), view.Page.TotalItems)

	_, err = svc.Search(ctx, validation.SearchForm{Q: strings.Repeat("a", 201)}, 1)
	assertFieldError(t, err, "q")
}

func TestBlogService_CategoryAndTagListings(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newBlogService(db)
	ctx := context.Background()
	author := testutil.CreateOperator(t, db, "editor")
	shonen := testutil.CreateCategory(t, db, "Shonen", "shonen")
	empty := testutil.CreateCategory(t, db, "Empty", "empty")
	mecha := testutil.CreateTag(t, db, "Mecha", "mecha")

	seedPosts(t, db, author, 10, testutil.WithCategory(shonen), testutil.WithTags(mecha))
	testutil.CreatePost(t, db, author, "Draft", "draft", testutil.WithCategory(shonen), testutil.WithStatus(models.StatusDraft))

	cv, err := svc.Category(ctx, "shonen", 2)
	require.NoError(t, err)
	assert.Equal(t, "Shonen", cv.Category.Name)
	assert.Equal(t, int64(10), cv.Page.TotalItems)
	assert.Equal(t, []string{"Review 01"}, titles(cv.Posts))

	cv, err = svc.Category(ctx, empty.Slug, 1)
	require.NoError(t, err)
	assert.Empty(t, cv.Posts)

	tv, err := svc.Tag(ctx, "mecha", 1)
	require.NoError(t, err)
	assert.Equal(t, mecha.ID, tv.Tag.ID)
	assert.Len(t, tv.Posts, 9)

	_, err = svc.Category(ctx, "missing", 1)
	assertCode(t, err, models.CodeNotFound)
	_, err = svc.Tag(ctx, "missing", 1)
	assertCode(t, err, models.CodeNotFound)
}

func TestBlogService_Detail(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newBlogService(db)
	ctx := context.Background()
	author := testutil.CreateOperator(t, db, "editor")
	seinen := testutil.CreateCategory(t, db, "Seinen", "seinen")

	post := testutil.CreatePost(t, db, author, "Monster", "monster", testutil.WithCategory(seinen), testutil.WithViews(4))
	testutil.CreatePost(t, db, author, "Pluto", "pluto", testutil.WithCategory(seinen))
	testutil.CreatePost(t, db, author, "Draft Sibling", "draft-sibling", testutil.WithCategory(seinen), testutil.WithStatus(models.StatusDraft))
	testutil.CreatePost(t, db, author, "Hidden", "hidden", testutil.WithStatus(models.StatusDraft))

	now := time.Now()
	testutil.CreateComment(t, db, post, "Tenma", "Older comment here", true, now.Add(-time.Hour))
	testutil.CreateComment(t, db, post, "Johan", "Newer comment here", true, now)
	testutil.CreateComment(t, db, post, "Spam", "Buy cheap watches", false, now)

	view, err := svc.Detail(ctx, "monster")
	require.NoError(t, err)
	assert.Equal(t, uint(5), view.Post.Views)
	require.Len(t, view.Comments, 2)
	assert.Equal(t, "Johan", view.Comments[0].Name)
	assert.Equal(t, []string{"Pluto"}, titles(view.RelatedPosts))

	view, err = svc.Detail(ctx, "monster")
	require.NoError(t, err)
	assert.Equal(t, uint(6), view.Post.Views)

	view, err = svc.Post(ctx, "monster")
	require.NoError(t, err)
	assert.Equal(t, uint(6), view.Post.Views, "re-rendering does not count a view")

	_, err = svc.Detail(ctx, "hidden")
	assertCode(t, err, models.CodeNotFound)
	_, err = svc.Detail(ctx, "nope")
	assertCode(t, err, models.CodeNotFound)
}

func TestBlogService_HomeIsCachedUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	db := testutil.NewTestDB(t)
	svc := newBlogService(db)
	ctx := context.Background()
	author := testutil.CreateOperator(t, db, "editor")
	shonen := testutil.CreateCategory(t, db, "Shonen", "shonen")

	seedPosts(t, db, author, 7, testutil.WithCategory(shonen))
	testutil.CreatePost(t, db, author, "Top Rated", "top-rated", testutil.WithRating("9.1"), testutil.WithViews(100),
		testutil.WithCreatedAt(time.Now().Add(-48*time.Hour)))
	testutil.CreatePost(t, db, author, "Low Rated", "low-rated", testutil.WithRating("5.0"), testutil.WithViews(500))

	home, err := svc.Home(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Top Rated"}, titles(home.FeaturedPosts))
	assert.Len(t, home.RecentPosts, 6)
	assert.Equal(t, "Low Rated", home.RecentPosts[0].Title)
	require.Len(t, home.PopularCategories, 1)
	assert.Equal(t, int64(7), home.PopularCategories[0].PostCount)
	assert.True(t, mr.Exists(cache.HomeKey))

	testutil.CreatePost(t, db, author, "Brand New", "brand-new")
	cached, err := svc.Home(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Low Rated", cached.RecentPosts[0].Title)

	cache.InvalidateListings(ctx)
	fresh, err := svc.Home(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Brand New", fresh.RecentPosts[0].Title)
}
