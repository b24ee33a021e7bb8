package service

import (
	"context"
	"fmt"
	"log/slog"

	"animeverse/internal/cache"
	"animeverse/internal/database"
	"animeverse/internal/middleware"
	"animeverse/internal/models"
	"animeverse/internal/observability"
	"animeverse/internal/repository"
	"animeverse/internal/slug"
	"animeverse/internal/storage"
	"animeverse/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// maxSlugAttempts bounds how often a generated slug is recomputed after the unique
// index rejected it.
const maxSlugAttempts = 5

const (
	invalidChoiceMessage = "Select a valid choice. That choice is not one of the available choices."
	invalidSlugMessage   = "Enter a valid “slug” consisting of letters, numbers, underscores or hyphens."
)

// SavePostInput is a post form submitted by an operator, with optional image uploads.
type SavePostInput struct {
	Form     validation.PostForm
	AuthorID uint

	FeaturedImage  *Upload
	Thumbnail      *Upload
	ClearFeatured  bool
	ClearThumbnail bool
}

type PostService struct {
	postRepo     repository.PostRepository
	categoryRepo repository.CategoryRepository
	tagRepo      repository.TagRepository
	userRepo     repository.UserRepository
	images       *ImageService
}

func NewPostService(
	postRepo repository.PostRepository,
	categoryRepo repository.CategoryRepository,
	tagRepo repository.TagRepository,
	userRepo repository.UserRepository,
	images *ImageService,
) *PostService {
	return &PostService{
		postRepo:     postRepo,
		categoryRepo: categoryRepo,
		tagRepo:      tagRepo,
		userRepo:     userRepo,
		images:       images,
	}
}

// Create validates and stores a new post. The slug is derived from the title unless
// one is given; images are optimised once the row is committed.
func (s *PostService) Create(ctx context.Context, in SavePostInput) (_ *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "post.create")
	defer func() { observability.EndSpan(span, err) }()

	if err := validation.Validate(&in.Form); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, in.AuthorID); err != nil {
		return nil, err
	}

	post := &models.Post{AuthorID: in.AuthorID}
	in.Form.Apply(post)
	if err := s.attachRelations(ctx, post, in.Form.Tags); err != nil {
		return nil, err
	}

	explicit, err := s.explicitSlug(ctx, in.Form.Slug, 0)
	if err != nil {
		return nil, err
	}

	stored, err := s.storeImages(ctx, post, in)
	if err != nil {
		return nil, err
	}

	err = saveWithSlug(ctx, "post", explicit,
		func() (string, error) { return s.generateSlug(ctx, post.Title, 0) },
		func(candidate string) error {
			post.ID = 0
			post.Slug = candidate
			return s.postRepo.Create(ctx, post)
		})
	if err != nil {
		for _, key := range stored {
			s.images.Remove(ctx, key)
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int("post.id", int(post.ID)), attribute.String("post.slug", post.Slug))

	s.afterSave(ctx, post)
	return s.postRepo.GetByID(ctx, post.ID)
}

// Update applies an edited form to an existing post. The slug only changes when the
// post has none yet.
func (s *PostService) Update(ctx context.Context, id uint, in SavePostInput) (_ *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "post.update", attribute.Int("post.id", int(id)))
	defer func() { observability.EndSpan(span, err) }()

	if err := validation.Validate(&in.Form); err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	in.Form.Apply(post)
	if post.AuthorID == 0 {
		post.AuthorID = in.AuthorID
	}
	post.Author = models.User{}
	post.Category = nil
	if err := s.attachRelations(ctx, post, in.Form.Tags); err != nil {
		return nil, err
	}

	var explicit string
	if post.Slug == "" {
		if explicit, err = s.explicitSlug(ctx, in.Form.Slug, post.ID); err != nil {
			return nil, err
		}
	}

	previous := map[string]string{"featured": post.FeaturedImage, "thumbnail": post.Thumbnail}
	stored, err := s.storeImages(ctx, post, in)
	if err != nil {
		return nil, err
	}

	if post.Slug != "" {
		err = s.postRepo.Update(ctx, post)
	} else {
		err = saveWithSlug(ctx, "post", explicit,
			func() (string, error) { return s.generateSlug(ctx, post.Title, post.ID) },
			func(candidate string) error {
				post.Slug = candidate
				return s.postRepo.Update(ctx, post)
			})
	}
	if err != nil {
		for _, key := range stored {
			s.images.Remove(ctx, key)
		}
		return nil, asAppError(err)
	}

	if previous["featured"] != post.FeaturedImage {
		s.images.Remove(ctx, previous["featured"])
	}
	if previous["thumbnail"] != post.Thumbnail {
		s.images.Remove(ctx, previous["thumbnail"])
	}

	s.afterSave(ctx, post)
	return s.postRepo.GetByID(ctx, post.ID)
}

// Delete removes a post together with its comments and stored images.
func (s *PostService) Delete(ctx context.Context, id uint) error {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.images.Remove(ctx, post.FeaturedImage)
	s.images.Remove(ctx, post.Thumbnail)
	cache.InvalidateListings(ctx)
	return nil
}

func (s *PostService) afterSave(ctx context.Context, post *models.Post) {
	s.images.ProcessPost(ctx, post)
	cache.InvalidateListings(ctx)
}

// attachRelations resolves the category and tag IDs chosen in the form.
func (s *PostService) attachRelations(ctx context.Context, post *models.Post, tagIDs []uint) error {
	fields := map[string]string{}

	if post.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *post.CategoryID); err != nil {
			if !isNotFound(err) {
				return err
			}
			fields["category"] = invalidChoiceMessage
		}
	}

	tags, err := s.tagRepo.GetByIDs(ctx, uniqueIDs(tagIDs))
	if err != nil {
		return err
	}
	if len(tags) != len(uniqueIDs(tagIDs)) {
		fields["tags"] = invalidChoiceMessage
	}
	post.Tags = tags

	if len(fields) > 0 {
		return models.NewFieldErrors(fields)
	}
	return nil
}

// explicitSlug normalises a slug typed by the operator and rejects it when another
// post or a fixed route already owns it. An empty result means "generate one".
func (s *PostService) explicitSlug(ctx context.Context, raw string, excludeID uint) (string, error) {
	if raw == "" {
		return "", nil
	}
	candidate := slug.Slugify(raw)
	if candidate == "" {
		return "", models.NewFieldErrors(map[string]string{"slug": invalidSlugMessage})
	}
	if validation.IsReservedSlug(candidate) {
		return "", slugTakenError("Post")
	}
	existing, err := s.postRepo.SlugsWithBase(ctx, candidate, excludeID)
	if err != nil {
		return "", err
	}
	for _, e := range existing {
		if e == candidate {
			return "", slugTakenError("Post")
		}
	}
	return candidate, nil
}

func (s *PostService) generateSlug(ctx context.Context, title string, excludeID uint) (string, error) {
	base := slug.Generate(title, "post")
	existing, err := s.postRepo.SlugsWithBase(ctx, base, excludeID)
	if err != nil {
		return "", err
	}
	return uniqueSlug(base, existing, validation.IsReservedSlug), nil
}

// storeImages writes new uploads and applies clear requests to post. It returns the
// keys written so a failed save can remove them again.
func (s *PostService) storeImages(ctx context.Context, post *models.Post, in SavePostInput) ([]string, error) {
	if in.ClearFeatured {
		post.FeaturedImage = ""
	}
	if in.ClearThumbnail {
		post.Thumbnail = ""
	}

	var stored []string
	fields := map[string]string{}
	put := func(field, bucket string, up *Upload, dst *string) {
		if up == nil {
			return
		}
		key, err := s.images.Store(ctx, bucket, *up)
		if err != nil {
			fields[field] = errorMessage(err)
			return
		}
		stored = append(stored, key)
		*dst = key
	}
	put("featured_image", storage.BucketFull, in.FeaturedImage, &post.FeaturedImage)
	put("thumbnail", storage.BucketThumbnail, in.Thumbnail, &post.Thumbnail)

	if len(fields) > 0 {
		for _, key := range stored {
			s.images.Remove(ctx, key)
		}
		return nil, models.NewFieldErrors(fields)
	}
	return stored, nil
}

// TaxonomyService creates categories and tags.
type TaxonomyService struct {
	categoryRepo repository.CategoryRepository
	tagRepo      repository.TagRepository
}

func NewTaxonomyService(categoryRepo repository.CategoryRepository, tagRepo repository.TagRepository) *TaxonomyService {
	return &TaxonomyService{categoryRepo: categoryRepo, tagRepo: tagRepo}
}

func (s *TaxonomyService) CreateCategory(ctx context.Context, form validation.CategoryForm) (*models.Category, error) {
	if err := validation.Validate(&form); err != nil {
		return nil, err
	}
	category := &models.Category{Name: form.Name, Description: form.Description, Color: form.Color}
	if category.Color == "" {
		category.Color = models.DefaultCategoryColor
	}

	explicit, err := explicitTaxonomySlug(ctx, "Category", form.Slug, s.categoryRepo.SlugsWithBase)
	if err != nil {
		return nil, err
	}
	err = saveWithSlug(ctx, "category", explicit,
		func() (string, error) {
			return generateTaxonomySlug(ctx, form.Name, "category", s.categoryRepo.SlugsWithBase)
		},
		func(candidate string) error {
			category.ID = 0
			category.Slug = candidate
			return s.categoryRepo.Create(ctx, category)
		})
	if err != nil {
		return nil, err
	}
	cache.InvalidateListings(ctx)
	return category, nil
}

func (s *TaxonomyService) CreateTag(ctx context.Context, form validation.TagForm) (*models.Tag, error) {
	if err := validation.Validate(&form); err != nil {
		return nil, err
	}
	tag := &models.Tag{Name: form.Name}

	explicit, err := explicitTaxonomySlug(ctx, "Tag", form.Slug, s.tagRepo.SlugsWithBase)
	if err != nil {
		return nil, err
	}
	err = saveWithSlug(ctx, "tag", explicit,
		func() (string, error) {
			return generateTaxonomySlug(ctx, form.Name, "tag", s.tagRepo.SlugsWithBase)
		},
		func(candidate string) error {
			tag.ID = 0
			tag.Slug = candidate
			return s.tagRepo.Create(ctx, tag)
		})
	if err != nil {
		return nil, err
	}
	cache.InvalidateListings(ctx)
	return tag, nil
}

type slugLookup func(ctx context.Context, base string, excludeID uint) ([]string, error)

func explicitTaxonomySlug(ctx context.Context, resource, raw string, lookup slugLookup) (string, error) {
	if raw == "" {
		return "", nil
	}
	candidate := slug.Slugify(raw)
	if candidate == "" {
		return "", models.NewFieldErrors(map[string]string{"slug": invalidSlugMessage})
	}
	existing, err := lookup(ctx, candidate, 0)
	if err != nil {
		return "", err
	}
	for _, e := range existing {
		if e == candidate {
			return "", slugTakenError(resource)
		}
	}
	return candidate, nil
}

func generateTaxonomySlug(ctx context.Context, name, fallback string, lookup slugLookup) (string, error) {
	base := slug.Generate(name, fallback)
	existing, err := lookup(ctx, base, 0)
	if err != nil {
		return "", err
	}
	return uniqueSlug(base, existing, nil), nil
}

// uniqueSlug picks the first free candidate for base among existing slugs, also
// skipping anything reserved reports.
func uniqueSlug(base string, existing []string, reserved func(string) bool) string {
	used := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		used[e] = struct{}{}
	}
	return slug.Unique(base, func(candidate string) bool {
		if _, ok := used[candidate]; ok {
			return true
		}
		return reserved != nil && reserved(candidate)
	})
}

// saveWithSlug runs save with a slug candidate. The unique index is the authority:
// when it rejects a generated candidate, a new one is computed and save runs again.
// An explicit slug is never rewritten.
func saveWithSlug(ctx context.Context, kind, explicit string, next func() (string, error), save func(candidate string) error) error {
	for attempt := 1; ; attempt++ {
		candidate := explicit
		if candidate == "" {
			var err error
			if candidate, err = next(); err != nil {
				return err
			}
		}

		err := save(candidate)
		if err == nil {
			return nil
		}
		if !database.IsUniqueViolation(err) {
			return asAppError(err)
		}
		if explicit != "" {
			return slugTakenError(capitalize(kind))
		}
		if attempt >= maxSlugAttempts {
			return models.NewInternalError(fmt.Errorf("no free %s slug after %d attempts: %w", kind, attempt, err))
		}
		middleware.Logger.WarnContext(ctx, "slug taken concurrently, retrying",
			slog.String("kind", kind), slog.String("slug", candidate), slog.Int("attempt", attempt))
	}
}

func slugTakenError(resource string) error {
	return models.NewFieldErrors(map[string]string{"slug": resource + " with this Slug already exists."})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
