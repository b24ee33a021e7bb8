package validation

import (
	"strings"
	"testing"

	"animeverse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
	return appErr.Fields
}

func TestCommentForm(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		f := &CommentForm{Name: " Ann ", Email: " ann@example.com ", Content: "  Great review  "}
		require.NoError(t, Validate(f))
		assert.Equal(t, "Ann", f.Name)
		assert.Equal(t, "ann@example.com", f.Email)
		assert.Equal(t, "Great review", f.Content)
	})

	t.Run("email is required", func(t *testing.T) {
		fields := fieldErrors(t, Validate(&CommentForm{Name: "Ann", Email: "   ", Content: "Great review"}))
		assert.Equal(t, "This field is required.", fields["email"])
	})

	t.Run("short content", func(t *testing.T) {
		fields := fieldErrors(t, Validate(&CommentForm{Name: "Ann", Email: "ann@example.com", Content: "hi   "}))
		assert.Equal(t, "Comment must be at least 5 characters long.", fields["content"])
	})

	t.Run("multibyte content counts characters", func(t *testing.T) {
		assert.NoError(t, Validate(&CommentForm{Name: "Ann", Email: "ann@example.com", Content: "すごいです"}))
	})

	t.Run("missing name and bad email", func(t *testing.T) {
		fields := fieldErrors(t, Validate(&CommentForm{Email: "nope", Content: "Loved it"}))
		assert.Equal(t, "This field is required.", fields["name"])
		assert.Equal(t, "Enter a valid email address.", fields["email"])
	})

	t.Run("name too long", func(t *testing.T) {
		fields := fieldErrors(t, Validate(&CommentForm{Name: strings.Repeat("a", 256), Email: "ann@example.com", Content: "Loved it"}))
		assert.Contains(t, fields["name"], "at most 255 characters")
	})
}

func TestContactForm(t *testing.T) {
	t.Parallel()

	valid := func() *ContactForm {
		return &ContactForm{Name: "Ann", Email: "ann@example.com", Subject: "Hello", Message: "Please review Frieren next."}
	}
	require.NoError(t, Validate(valid()))

	f := valid()
	f.Message = "too short"
	fields := fieldErrors(t, Validate(f))
	assert.Equal(t, "Message must be at least 10 characters long.", fields["message"])

	f = valid()
	f.Subject = strings.Repeat("s", 201)
	f.Name = ""
	fields = fieldErrors(t, Validate(f))
	assert.Len(t, fields, 2)
	assert.Contains(t, fields, "subject")
	assert.Contains(t, fields, "name")
}

func TestNewsletterForm(t *testing.T) {
	t.Parallel()

	f := &NewsletterForm{Email: "  Fan@Example.COM "}
	require.NoError(t, Validate(f))
	assert.Equal(t, "fan@example.com", f.Email)

	fields := fieldErrors(t, Validate(&NewsletterForm{Email: "not-an-email"}))
	assert.Equal(t, "Enter a valid email address.", fields["email"])
}

func TestSearchForm(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Validate(&SearchForm{}))
	assert.NoError(t, Validate(&SearchForm{Q: strings.Repeat("q", 200)}))
	fields := fieldErrors(t, Validate(&SearchForm{Q: strings.Repeat("q", 201)}))
	assert.Contains(t, fields["q"], "at most 200 characters (it has 201)")
}

func TestCategoryForm_Color(t *testing.T) {
	t.Parallel()

	tests := []struct {
		color string
		ok    bool
	}{
		{"", true},
		{"#fff", true},
		{"#6366F1", true},
		{"6366f1", false},
		{"#6366f1ff", false},
		{"#ggg", false},
	}
	for _, tt := range tests {
		t.Run(tt.color, func(t *testing.T) {
			err := Validate(&CategoryForm{Name: "Shonen", Color: tt.color})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Contains(t, fieldErrors(t, err), "color")
			}
		})
	}
}

func validPostForm() *PostForm {
	return &PostForm{
		Title:   "Frieren Review",
		Content: strings.Repeat("A thoughtful paragraph. ", 5),
	}
}

func TestPostForm_Rules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(f *PostForm)
		field  string
	}{
		{"valid", func(*PostForm) {}, ""},
		{"short title", func(f *PostForm) { f.Title = "Hey" }, "title"},
		{"short content", func(f *PostForm) { f.Content = "Too short." }, "content"},
		{"rating above ten", func(f *PostForm) { f.Rating = "10.5" }, "rating"},
		{"negative rating", func(f *PostForm) { f.Rating = "-1" }, "rating"},
		{"two decimals", func(f *PostForm) { f.Rating = "8.25" }, "rating"},
		{"rating boundary", func(f *PostForm) { f.Rating = "10.0" }, ""},
		{"year too early", func(f *PostForm) { f.ReleaseYear = "1899" }, "release_year"},
		{"year too late", func(f *PostForm) { f.ReleaseYear = "2031" }, "release_year"},
		{"year boundary", func(f *PostForm) { f.ReleaseYear = "2030" }, ""},
		{"negative episodes", func(f *PostForm) { f.EpisodeCount = "-1" }, "episode_count"},
		{"zero episodes", func(f *PostForm) { f.EpisodeCount = "0" }, ""},
		{"unknown anime type", func(f *PostForm) { f.AnimeType = "manga" }, "anime_type"},
		{"unknown status", func(f *PostForm) { f.Status = "archived" }, "status"},
		{"long meta description", func(f *PostForm) { f.MetaDescription = strings.Repeat("m", 161) }, "meta_description"},
		{"long excerpt", func(f *PostForm) { f.Excerpt = strings.Repeat("e", 301) }, "excerpt"},
		{"bad category", func(f *PostForm) { f.Category = "shonen" }, "category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validPostForm()
			tt.mutate(f)
			err := Validate(f)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			assert.Contains(t, fieldErrors(t, err), tt.field)
		})
	}
}

func TestPostForm_Apply(t *testing.T) {
	t.Parallel()

	f := validPostForm()
	f.Rating = "8.5"
	f.EpisodeCount = "28"
	f.ReleaseYear = "2023"
	f.Category = "3"
	f.AnimeType = models.AnimeTypeTV
	require.NoError(t, Validate(f))

	var post models.Post
	f.Apply(&post)
	assert.Equal(t, models.DefaultExcerpt, post.Excerpt)
	assert.Equal(t, models.StatusPublished, post.Status)
	require.True(t, post.Rating.Valid)
	assert.Equal(t, "8.5", post.Rating.Decimal.String())
	require.NotNil(t, post.EpisodeCount)
	assert.Equal(t, 28, *post.EpisodeCount)
	require.NotNil(t, post.ReleaseYear)
	assert.Equal(t, 2023, *post.ReleaseYear)
	require.NotNil(t, post.CategoryID)
	assert.Equal(t, uint(3), *post.CategoryID)

	f.Rating, f.EpisodeCount, f.Category = "", "", ""
	f.Apply(&post)
	assert.False(t, post.Rating.Valid)
	assert.Nil(t, post.EpisodeCount)
	assert.Nil(t, post.CategoryID)
}

func TestIsReservedSlug(t *testing.T) {
	t.Parallel()
	assert.True(t, IsReservedSlug("search"))
	assert.True(t, IsReservedSlug("admin"))
	assert.True(t, IsReservedSlug("about"))
	assert.False(t, IsReservedSlug("search-1"))
	assert.False(t, IsReservedSlug("frieren-review"))
}

func TestValidateField(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateField("color", "#abc", "rgbhex"))
	assert.NoError(t, ValidateField("status", "draft", "oneof=draft published"))

	err := ValidateField("color", "red", "rgbhex")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Enter a valid hex color such as #6366f1.", appErr.Fields["color"])

	err = ValidateField("status", "archived", "oneof=draft published")
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields["status"], "archived")
}

func TestParseRating(t *testing.T) {
	t.Parallel()

	d, ok := ParseRating(" 7.5 ")
	require.True(t, ok)
	assert.Equal(t, "7.5", d.String())

	for _, raw := range []string{"-1", "10.1", "9.99", "abc", ""} {
		_, ok := ParseRating(raw)
		assert.False(t, ok, raw)
	}
}
