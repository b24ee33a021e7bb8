package service

import (
	"context"
	"log/slog"

	"animeverse/internal/cache"
	"animeverse/internal/middleware"
	"animeverse/internal/models"
	"animeverse/internal/pagination"
	"animeverse/internal/repository"
	"animeverse/internal/validation"
)

// Listing sizes of the public pages.
const (
	HomeFeaturedLimit   = 3
	HomeRecentLimit     = 6
	HomeCategoriesLimit = 6
	RelatedPostsLimit   = 4
	SidebarCategories   = 10
	SidebarTags         = 20
)

// HomeView is the context of the home page.
type HomeView struct {
	FeaturedPosts     []models.Post     `json:"featured_posts"`
	RecentPosts       []models.Post     `json:"recent_posts"`
	PopularCategories []models.Category `json:"popular_categories"`
}

// ListingView is one page of published posts.
type ListingView struct {
	Posts []models.Post   `json:"posts"`
	Page  pagination.Page `json:"page"`
}

// SearchView is the context of the search page.
type SearchView struct {
	ListingView
	Query string `json:"query"`
}

// ArchiveView is the context of the archive page.
type ArchiveView struct {
	ListingView
	Categories []models.Category `json:"categories"`
	Tags       []models.Tag      `json:"tags"`
}

// CategoryView is the listing of one category.
type CategoryView struct {
	ListingView
	Category *models.Category `json:"category"`
}

// TagView is the listing of one tag.
type TagView struct {
	ListingView
	Tag *models.Tag `json:"tag"`
}

// DetailView is the context of a post page.
type DetailView struct {
	Post         *models.Post     `json:"post"`
	Comments     []models.Comment `json:"comments"`
	RelatedPosts []models.Post    `json:"related_posts"`
}

// BlogService serves the read side of the public site.
type BlogService struct {
	postRepo     repository.PostRepository
	categoryRepo repository.CategoryRepository
	tagRepo      repository.TagRepository
	commentRepo  repository.CommentRepository
}

func NewBlogService(
	postRepo repository.PostRepository,
	categoryRepo repository.CategoryRepository,
	tagRepo repository.TagRepository,
	commentRepo repository.CommentRepository,
) *BlogService {
	return &BlogService{
		postRepo:     postRepo,
		categoryRepo: categoryRepo,
		tagRepo:      tagRepo,
		commentRepo:  commentRepo,
	}
}

func (s *BlogService) Home(ctx context.Context) (*HomeView, error) {
	var view HomeView
	err := cache.Aside(ctx, cache.HomeKey, &view, cache.HomeTTL, func() error {
		var err error
		if view.FeaturedPosts, err = s.postRepo.Featured(ctx, HomeFeaturedLimit); err != nil {
			return err
		}
		if view.RecentPosts, _, err = s.postRepo.ListPublished(ctx, repository.PostFilter{}, HomeRecentLimit, 0); err != nil {
			return err
		}
		view.PopularCategories, err = s.categoryRepo.WithPostCounts(ctx, HomeCategoriesLimit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Search lists published posts matching the query. A blank query yields an empty page.
func (s *BlogService) Search(ctx context.Context, form validation.SearchForm, page int) (*SearchView, error) {
	if err := validation.Validate(&form); err != nil {
		return nil, err
	}
	view := &SearchView{Query: form.Q}
	if form.Q == "" {
		view.Posts = []models.Post{}
		view.Page = pagination.Paginate(0, page, pagination.ListingPerPage)
		return view, nil
	}

	listing, err := s.listPage(ctx, repository.PostFilter{Query: form.Q}, page, pagination.ListingPerPage)
	if err != nil {
		return nil, err
	}
	view.ListingView = *listing
	return view, nil
}

func (s *BlogService) Archive(ctx context.Context, page int) (*ArchiveView, error) {
	listing, err := s.listPage(ctx, repository.PostFilter{}, page, pagination.ArchivePerPage)
	if err != nil {
		return nil, err
	}
	view := &ArchiveView{ListingView: *listing}

	err = cache.Aside(ctx, cache.CategoriesSidebarKey, &view.Categories, cache.SidebarTTL, func() error {
		var err error
		view.Categories, err = s.categoryRepo.WithPostCounts(ctx, SidebarCategories)
		return err
	})
	if err != nil {
		return nil, err
	}
	err = cache.Aside(ctx, cache.TagsSidebarKey, &view.Tags, cache.SidebarTTL, func() error {
		var err error
		view.Tags, err = s.tagRepo.WithPostCounts(ctx, SidebarTags)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *BlogService) Category(ctx context.Context, slug string, page int) (*CategoryView, error) {
	category, err := s.categoryRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	listing, err := s.listPage(ctx, repository.PostFilter{CategoryID: &category.ID}, page, pagination.ListingPerPage)
	if err != nil {
		return nil, err
	}
	return &CategoryView{ListingView: *listing, Category: category}, nil
}

func (s *BlogService) Tag(ctx context.Context, slug string, page int) (*TagView, error) {
	tag, err := s.tagRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	listing, err := s.listPage(ctx, repository.PostFilter{TagID: &tag.ID}, page, pagination.ListingPerPage)
	if err != nil {
		return nil, err
	}
	return &TagView{ListingView: *listing, Tag: tag}, nil
}

// Detail loads a published post with its approved comments and related posts, and
// counts the view.
func (s *BlogService) Detail(ctx context.Context, slug string) (*DetailView, error) {
	view, err := s.Post(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.IncrementViews(ctx, view.Post); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to count post view",
			slog.String("slug", slug), slog.String("error", err.Error()))
	}
	return view, nil
}

// Post is Detail without counting a view. It re-renders the page after a rejected
// comment.
func (s *BlogService) Post(ctx context.Context, slug string) (*DetailView, error) {
	post, err := s.postRepo.GetPublishedBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListApprovedByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	related, err := s.postRepo.Related(ctx, post, RelatedPostsLimit)
	if err != nil {
		return nil, err
	}
	return &DetailView{Post: post, Comments: comments, RelatedPosts: related}, nil
}

// listPage returns the requested page, clamped into range.
func (s *BlogService) listPage(ctx context.Context, filter repository.PostFilter, page, perPage int) (*ListingView, error) {
	if page < 1 {
		page = 1
	}
	posts, total, err := s.postRepo.ListPublished(ctx, filter, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}

	p := pagination.Paginate(total, page, perPage)
	if p.Number != page {
		posts, total, err = s.postRepo.ListPublished(ctx, filter, p.Limit(), p.Offset())
		if err != nil {
			return nil, err
		}
		p = pagination.Paginate(total, p.Number, perPage)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return &ListingView{Posts: posts, Page: p}, nil
}
