package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"animeverse/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Post field bounds.
const (
	MinReleaseYear = 1900
	MaxReleaseYear = 2030
	MaxRating      = 10
)

var hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields under their form names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	must := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	must("rgbhex", func(fl validator.FieldLevel) bool {
		return hexColorRegex.MatchString(fl.Field().String())
	})
	must("rating", func(fl validator.FieldLevel) bool {
		_, ok := parseRating(fl.Field().String())
		return ok
	})
	must("count", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Field().String())
		return err == nil && n >= 0
	})
	must("year", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Field().String())
		return err == nil && n >= MinReleaseYear && n <= MaxReleaseYear
	})
	return v
}

func parseRating(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(MaxRating)) {
		return decimal.Decimal{}, false
	}
	// one decimal place at most
	if !d.Equal(d.Truncate(1)) {
		return decimal.Decimal{}, false
	}
	return d, true
}

// cleaner is implemented by forms that normalise their input before validation.
type cleaner interface {
	clean()
}

// messenger is implemented by forms that override the default message of a rule.
// Keys are "<field>.<tag>".
type messenger interface {
	messages() map[string]string
}

// Validate normalises and validates a form. Failures come back as a validation
// AppError whose Fields map each form field to its first message.
func Validate(form any) error {
	if c, ok := form.(cleaner); ok {
		c.clean()
	}

	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.NewInternalError(err)
	}

	var overrides map[string]string
	if m, ok := form.(messenger); ok {
		overrides = m.messages()
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		if msg, ok := overrides[fe.Field()+"."+fe.Tag()]; ok {
			fields[fe.Field()] = msg
			continue
		}
		fields[fe.Field()] = defaultMessage(fe)
	}
	return models.NewFieldErrors(fields)
}

// ValidateField checks a single value against validator tags, reporting failures
// under field.
func ValidateField(field string, value any, tags string) error {
	err := validate.Var(value, tags)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return models.NewInternalError(err)
	}
	return models.NewFieldErrors(map[string]string{field: defaultMessage(verrs[0])})
}

// ParseRating parses a rating in [0, 10] with at most one decimal place.
func ParseRating(raw string) (decimal.Decimal, bool) {
	return parseRating(strings.TrimSpace(raw))
}

func defaultMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		if isString {
			return fmt.Sprintf("Ensure this value has at most %s characters (it has %d).",
				fe.Param(), len([]rune(fe.Value().(string))))
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Select a valid choice. %v is not one of the available choices.", fe.Value())
	case "rgbhex":
		return "Enter a valid hex color such as #6366f1."
	case "rating":
		return "Rating must be a number between 0 and 10 with at most one decimal place."
	case "count":
		return "Ensure this value is a whole number greater than or equal to 0."
	case "year":
		return fmt.Sprintf("Ensure this value is a year between %d and %d.", MinReleaseYear, MaxReleaseYear)
	case "number":
		return "Enter a whole number."
	default:
		return "Enter a valid value."
	}
}

func trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

// CommentForm is the comment box under a post. An empty email is stored as the
// anonymous default.
type CommentForm struct {
	Name    string `form:"name" json:"name" validate:"required,max=255"`
	Email   string `form:"email" json:"email" validate:"required,max=254,email"`
	Content string `form:"content" json:"content" validate:"required,min=5"`
}

func (f *CommentForm) clean() { trim(&f.Name, &f.Email, &f.Content) }

func (f *CommentForm) messages() map[string]string {
	return map[string]string{"content.min": "Comment must be at least 5 characters long."}
}

// ContactForm is the public contact page form.
type ContactForm struct {
	Name    string `form:"name" json:"name" validate:"required,max=100"`
	Email   string `form:"email" json:"email" validate:"required,max=254,email"`
	Subject string `form:"subject" json:"subject" validate:"required,max=200"`
	Message string `form:"message" json:"message" validate:"required,min=10"`
}

func (f *ContactForm) clean() { trim(&f.Name, &f.Email, &f.Subject, &f.Message) }

func (f *ContactForm) messages() map[string]string {
	return map[string]string{"message.min": "Message must be at least 10 characters long."}
}

// NewsletterForm is the footer signup box.
type NewsletterForm struct {
	Email string `form:"email" json:"email" validate:"required,max=254,email"`
}

func (f *NewsletterForm) clean() {
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
}

// SearchForm carries the free-text query of the search page.
type SearchForm struct {
	Q string `form:"q" query:"q" json:"q" validate:"max=200"`
}

func (f *SearchForm) clean() { trim(&f.Q) }

// CategoryForm creates a category from the admin API.
type CategoryForm struct {
	Name        string `form:"name" json:"name" validate:"required,max=100"`
	Slug        string `form:"slug" json:"slug" validate:"max=200"`
	Description string `form:"description" json:"description"`
	Color       string `form:"color" json:"color" validate:"omitempty,rgbhex"`
}

func (f *CategoryForm) clean() { trim(&f.Name, &f.Slug, &f.Description, &f.Color) }

// TagForm creates a tag from the admin API.
type TagForm struct {
	Name string `form:"name" json:"name" validate:"required,max=50"`
	Slug string `form:"slug" json:"slug" validate:"max=200"`
}

func (f *TagForm) clean() { trim(&f.Name, &f.Slug) }

// PostForm creates or edits a post from the admin API. Numeric fields arrive as
// text so that blank inputs mean "unset".
type PostForm struct {
	Title           string `form:"title" json:"title" validate:"required,min=5,max=255"`
	Slug            string `form:"slug" json:"slug" validate:"max=200"`
	Content         string `form:"content" json:"content" validate:"required,min=100"`
	Excerpt         string `form:"excerpt" json:"excerpt" validate:"max=300"`
	AnimeTitleJP    string `form:"anime_title_jp" json:"anime_title_jp" validate:"max=255"`
	AnimeType       string `form:"anime_type" json:"anime_type" validate:"omitempty,oneof=tv movie ova special ona"`
	Rating          string `form:"rating" json:"rating" validate:"omitempty,rating"`
	EpisodeCount    string `form:"episode_count" json:"episode_count" validate:"omitempty,count"`
	ReleaseYear     string `form:"release_year" json:"release_year" validate:"omitempty,year"`
	Studio          string `form:"studio" json:"studio" validate:"max=100"`
	Category        string `form:"category" json:"category" validate:"omitempty,number"`
	Tags            []uint `form:"tags" json:"tags"`
	Status          string `form:"status" json:"status" validate:"omitempty,oneof=draft published"`
	MetaDescription string `form:"meta_description" json:"meta_description" validate:"max=160"`
	MetaKeywords    string `form:"meta_keywords" json:"meta_keywords" validate:"max=255"`
}

func (f *PostForm) clean() {
	trim(&f.Title, &f.Slug, &f.Content, &f.Excerpt, &f.AnimeTitleJP, &f.AnimeType, &f.Rating,
		&f.EpisodeCount, &f.ReleaseYear, &f.Studio, &f.Category, &f.Status,
		&f.MetaDescription, &f.MetaKeywords)
}

func (f *PostForm) messages() map[string]string {
	return map[string]string{
		"title.min":   "Title must be at least 5 characters long.",
		"content.min": "Content must be at least 100 characters long.",
	}
}

// Apply copies the validated form onto post. Call it only after Validate succeeded.
// Images, author, tags and slug are left to the caller.
func (f *PostForm) Apply(post *models.Post) {
	post.Title = f.Title
	post.Content = f.Content
	post.Excerpt = f.Excerpt
	if post.Excerpt == "" {
		post.Excerpt = models.DefaultExcerpt
	}
	post.AnimeTitleJP = f.AnimeTitleJP
	post.AnimeType = f.AnimeType
	post.Studio = f.Studio
	post.MetaDescription = f.MetaDescription
	post.MetaKeywords = f.MetaKeywords

	post.Status = f.Status
	if post.Status == "" {
		post.Status = models.StatusPublished
	}

	post.Rating = decimal.NullDecimal{}
	if d, ok := parseRating(f.Rating); ok {
		post.Rating = decimal.NewNullDecimal(d)
	}
	post.EpisodeCount = optionalInt(f.EpisodeCount)
	post.ReleaseYear = optionalInt(f.ReleaseYear)

	post.CategoryID = nil
	if id, err := strconv.ParseUint(f.Category, 10, 64); err == nil && id > 0 {
		cid := uint(id)
		post.CategoryID = &cid
	}
}

func optionalInt(raw string) *int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}
