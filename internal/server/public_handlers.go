package server

import (
	"animeverse/internal/models"
	"animeverse/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Page payloads name the template the site front-end renders them with.
const (
	templateIndex    = "index.html"
	templateSearch   = "search.html"
	templateArchive  = "archive.html"
	templateCategory = "category_posts.html"
	templateTag      = "tag_posts.html"
	templateDetail   = "detail.html"
	templateContact  = "contact.html"
	templateAbout    = "about.html"
)

// formPage re-displays a rejected form with its field errors.
type formPage struct {
	Template string            `json:"template"`
	Form     any               `json:"form"`
	Error    string            `json:"error,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
	Sent     bool              `json:"sent,omitempty"`
}

// Home handles GET /
func (s *Server) Home(c *fiber.Ctx) error {
	view, err := s.blogService.Home(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"template":           templateIndex,
		"featured_posts":     s.publicPosts(view.FeaturedPosts),
		"recent_posts":       s.publicPosts(view.RecentPosts),
		"popular_categories": view.PopularCategories,
	})
}

// Search handles GET /search/?q=&page=
func (s *Server) Search(c *fiber.Ctx) error {
	form := validation.SearchForm{Q: c.Query("q")}
	view, err := s.blogService.Search(c.UserContext(), form, pageParam(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(struct {
		Template string `json:"template"`
		publicListing
		Query string `json:"query"`
	}{templateSearch, s.publicListing(view.ListingView), view.Query})
}

// Archive handles GET /archive/?page=
func (s *Server) Archive(c *fiber.Ctx) error {
	view, err := s.blogService.Archive(c.UserContext(), pageParam(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(struct {
		Template string `json:"template"`
		publicListing
		Categories []models.Category `json:"categories"`
		Tags       []models.Tag      `json:"tags"`
	}{templateArchive, s.publicListing(view.ListingView), view.Categories, view.Tags})
}

// CategoryPosts handles GET /category/:slug/
func (s *Server) CategoryPosts(c *fiber.Ctx) error {
	view, err := s.blogService.Category(c.UserContext(), c.Params("slug"), pageParam(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(struct {
		Template string `json:"template"`
		publicListing
		Category *models.Category `json:"category"`
	}{templateCategory, s.publicListing(view.ListingView), view.Category})
}

// TagPosts handles GET /tag/:slug/
func (s *Server) TagPosts(c *fiber.Ctx) error {
	view, err := s.blogService.Tag(c.UserContext(), c.Params("slug"), pageParam(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(struct {
		Template string `json:"template"`
		publicListing
		Tag *models.Tag `json:"tag"`
	}{templateTag, s.publicListing(view.ListingView), view.Tag})
}

// PostDetail handles GET /:slug/ and counts the view.
func (s *Server) PostDetail(c *fiber.Ctx) error {
	view, err := s.blogService.Detail(c.UserContext(), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(struct {
		Template string                 `json:"template"`
		Form     validation.CommentForm `json:"form"`
		publicDetail
	}{Template: templateDetail, publicDetail: s.publicDetail(view)})
}

// SubmitComment handles POST /:slug/. A rejected comment re-renders the post page
// with the submitted values.
func (s *Server) SubmitComment(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var form validation.CommentForm
	if err := c.BodyParser(&form); err != nil {
		return respondError(c, errInvalidBody)
	}

	_, err := s.commentService.Submit(c.UserContext(), slug, form)
	if err == nil {
		return c.Redirect("/"+slug+"/", fiber.StatusSeeOther)
	}

	appErr, ok := fieldErrors(err)
	if !ok {
		return respondError(c, err)
	}

	view, verr := s.blogService.Post(c.UserContext(), slug)
	if verr != nil {
		return respondError(c, verr)
	}
	return c.Status(fiber.StatusBadRequest).JSON(struct {
		Template string                 `json:"template"`
		Form     validation.CommentForm `json:"form"`
		Error    string                 `json:"error"`
		Errors   map[string]string      `json:"errors,omitempty"`
		publicDetail
	}{templateDetail, form, appErr.Message, appErr.Fields, s.publicDetail(view)})
}

// About handles GET /about/
func (s *Server) About(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"template": templateAbout})
}

// ContactPage handles GET /contact/
func (s *Server) ContactPage(c *fiber.Ctx) error {
	return c.JSON(formPage{
		Template: templateContact,
		Form:     validation.ContactForm{},
		Sent:     c.QueryBool("sent"),
	})
}

// SubmitContact handles POST /contact/
func (s *Server) SubmitContact(c *fiber.Ctx) error {
	var form validation.ContactForm
	if err := c.BodyParser(&form); err != nil {
		return respondError(c, errInvalidBody)
	}

	if _, err := s.contactService.Submit(c.UserContext(), form); err != nil {
		appErr, ok := fieldErrors(err)
		if !ok {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusBadRequest).JSON(formPage{
			Template: templateContact,
			Form:     form,
			Error:    appErr.Message,
			Errors:   appErr.Fields,
		})
	}
	return c.Redirect("/contact/?sent=1", fiber.StatusSeeOther)
}

// SubscribeNewsletter handles POST /newsletter/
func (s *Server) SubscribeNewsletter(c *fiber.Ctx) error {
	var form validation.NewsletterForm
	if err := c.BodyParser(&form); err != nil {
		return respondError(c, errInvalidBody)
	}

	result, err := s.newsletterService.Subscribe(c.UserContext(), form)
	if err != nil {
		return respondError(c, err)
	}

	status := fiber.StatusOK
	if result.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"message":    result.Message,
		"subscribed": result.Created,
	})
}
