package server

import (
	"time"

	"animeverse/internal/models"
	"animeverse/internal/pagination"
	"animeverse/internal/service"
)

// publicAuthor is the part of an operator account shown to visitors.
type publicAuthor struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// publicPost replaces the author with its public fields and adds image URLs.
// The outer Author field shadows the embedded one when encoded.
type publicPost struct {
	*models.Post
	Author           publicAuthor `json:"author"`
	FeaturedImageURL string       `json:"featured_image_url"`
	ThumbnailURL     string       `json:"thumbnail_url"`
}

// publicComment leaves out the commenter's email and moderation state.
type publicComment struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type publicListing struct {
	Posts []publicPost    `json:"posts"`
	Page  pagination.Page `json:"page"`
}

type publicDetail struct {
	Post         publicPost      `json:"post"`
	Comments     []publicComment `json:"comments"`
	RelatedPosts []publicPost    `json:"related_posts"`
}

func (s *Server) publicPost(p *models.Post) publicPost {
	return publicPost{
		Post:             p,
		Author:           publicAuthor{ID: p.Author.ID, Username: p.Author.Username},
		FeaturedImageURL: s.images.URL(p.FeaturedImage),
		ThumbnailURL:     s.images.URL(p.Thumbnail),
	}
}

func (s *Server) publicPosts(posts []models.Post) []publicPost {
	out := make([]publicPost, len(posts))
	for i := range posts {
		out[i] = s.publicPost(&posts[i])
	}
	return out
}

func (s *Server) publicListing(view service.ListingView) publicListing {
	return publicListing{Posts: s.publicPosts(view.Posts), Page: view.Page}
}

func (s *Server) publicDetail(view *service.DetailView) publicDetail {
	comments := make([]publicComment, len(view.Comments))
	for i, c := range view.Comments {
		comments[i] = publicComment{ID: c.ID, Name: c.Name, Content: c.Content, CreatedAt: c.CreatedAt}
	}
	return publicDetail{
		Post:         s.publicPost(view.Post),
		Comments:     comments,
		RelatedPosts: s.publicPosts(view.RelatedPosts),
	}
}
