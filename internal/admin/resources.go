package admin

import (
	"animeverse/internal/models"

	"gorm.io/gorm"
)

func defaultResources() []*Resource {
	return []*Resource{
		{
			Name:         "categories",
			Label:        "Category",
			Table:        "categories",
			ListColumns:  []string{"name", "slug", "color", "post_count"},
			SearchFields: []string{"name", "description"},
			Editable: map[string]Editable{
				"color": {Column: "color", Kind: KindString, Rules: "required,rgbhex"},
			},
			Ordering: "categories.name ASC",
			Decorate: func(db *gorm.DB) *gorm.DB {
				return db.Select("categories.*, (SELECT COUNT(*) FROM posts WHERE posts.category_id = categories.id) AS post_count")
			},
			Invalidates: true,
			newRecord:   func() any { return &models.Category{} },
			newList:     func() any { return &[]models.Category{} },
		},
		{
			Name:         "tags",
			Label:        "Tag",
			Table:        "tags",
			ListColumns:  []string{"name", "slug", "post_count"},
			SearchFields: []string{"name"},
			Ordering:     "tags.name ASC",
			Decorate: func(db *gorm.DB) *gorm.DB {
				return db.Select("tags.*, (SELECT COUNT(*) FROM post_tags WHERE post_tags.tag_id = tags.id) AS post_count")
			},
			Invalidates: true,
			newRecord:   func() any { return &models.Tag{} },
			newList:     func() any { return &[]models.Tag{} },
		},
		{
			Name:         "posts",
			Label:        "Post",
			Table:        "posts",
			ListColumns:  []string{"title", "category", "status", "rating", "views", "created_at", "author"},
			SearchFields: []string{"title", "anime_title_jp", "studio", "content"},
			Filters: []Filter{
				{Param: "status", Column: "status", Kind: KindString},
				{Param: "category", Column: "category_id", Kind: KindID},
				{Param: "anime_type", Column: "anime_type", Kind: KindString},
				{Param: "rating", Column: "rating", Kind: KindRating},
			},
			Editable: map[string]Editable{
				"status": {Column: "status", Kind: KindString, Rules: "required,oneof=draft published"},
				"rating": {Column: "rating", Kind: KindRating},
			},
			Ordering: "posts.created_at DESC, posts.id DESC",
			Preloads: []string{"Author", "Category", "Tags"},
			Decorate: func(db *gorm.DB) *gorm.DB {
				return db.Preload("Author").Preload("Category")
			},
			Invalidates: true,
			newRecord:   func() any { return &models.Post{} },
			newList:     func() any { return &[]models.Post{} },
		},
		{
			Name:         "comments",
			Label:        "Comment",
			Table:        "comments",
			ListColumns:  []string{"name", "post_title", "is_approved", "created_at"},
			SearchFields: []string{"name", "email", "content"},
			Filters: []Filter{
				{Param: "is_approved", Column: "is_approved", Kind: KindBool},
				{Param: "post", Column: "post_id", Kind: KindID},
			},
			Editable: map[string]Editable{
				"is_approved": {Column: "is_approved", Kind: KindBool},
			},
			Ordering: "comments.created_at DESC, comments.id DESC",
			Decorate: func(db *gorm.DB) *gorm.DB {
				return db.Select("comments.*, posts.title AS post_title").
					Joins("LEFT JOIN posts ON posts.id = comments.post_id")
			},
			newRecord: func() any { return &models.Comment{} },
			newList:   func() any { return &[]models.Comment{} },
		},
		{
			Name:         "newsletters",
			Label:        "Newsletter",
			Table:        "newsletters",
			ListColumns:  []string{"email", "subscribed_at", "is_active"},
			SearchFields: []string{"email"},
			Filters: []Filter{
				{Param: "is_active", Column: "is_active", Kind: KindBool},
			},
			Editable: map[string]Editable{
				"is_active": {Column: "is_active", Kind: KindBool},
			},
			Ordering:  "newsletters.subscribed_at DESC, newsletters.id DESC",
			newRecord: func() any { return &models.Newsletter{} },
			newList:   func() any { return &[]models.Newsletter{} },
		},
		{
			Name:         "contacts",
			Label:        "Contact",
			Table:        "contacts",
			ListColumns:  []string{"name", "email", "subject", "is_read", "created_at"},
			SearchFields: []string{"name", "email", "subject"},
			Filters: []Filter{
				{Param: "is_read", Column: "is_read", Kind: KindBool},
			},
			Editable: map[string]Editable{
				"is_read": {Column: "is_read", Kind: KindBool},
			},
			Ordering:  "contacts.created_at DESC, contacts.id DESC",
			newRecord: func() any { return &models.Contact{} },
			newList:   func() any { return &[]models.Contact{} },
		},
	}
}
