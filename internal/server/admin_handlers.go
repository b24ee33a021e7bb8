package server

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"animeverse/internal/admin"
	"animeverse/internal/models"
	"animeverse/internal/service"
	"animeverse/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GetSite handles GET /admin/api/site
func (s *Server) GetSite(c *fiber.Ctx) error {
	return c.JSON(s.admin.Site())
}

// GetResources handles GET /admin/api/resources
func (s *Server) GetResources(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"resources": s.admin.Resources()})
}

// ListResource handles GET /admin/api/:resource?q=&page=&<filter>=
func (s *Server) ListResource(c *fiber.Ctx) error {
	params := admin.ListParams{
		Search:  c.Query("q"),
		Page:    pageParam(c),
		Filters: map[string]string{},
	}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		switch k := string(key); k {
		case "q", "page":
		default:
			params.Filters[k] = string(value)
		}
	})

	result, err := s.admin.List(c.UserContext(), c.Params("resource"), params)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetResource handles GET /admin/api/:resource/:id
func (s *Server) GetResource(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	record, err := s.admin.Get(c.UserContext(), c.Params("resource"), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(record)
}

// PatchResource handles PATCH /admin/api/:resource/:id with a JSON object of
// editable fields.
func (s *Server) PatchResource(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var changes map[string]any
	if err := c.BodyParser(&changes); err != nil {
		return respondError(c, errInvalidBody)
	}

	record, err := s.admin.Patch(c.UserContext(), c.Params("resource"), id, changes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(record)
}

// DeleteResource handles DELETE /admin/api/:resource/:id
func (s *Server) DeleteResource(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.admin.Delete(c.UserContext(), c.Params("resource"), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreatePost handles POST /admin/api/posts (JSON or multipart with image uploads).
// The requesting operator becomes the author.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	in, err := s.postInput(c)
	if err != nil {
		return respondError(c, err)
	}
	post, err := s.postService.Create(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /admin/api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	in, err := s.postInput(c)
	if err != nil {
		return respondError(c, err)
	}
	post, err := s.postService.Update(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /admin/api/posts/:id and removes the stored images.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateCategory handles POST /admin/api/categories
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var form validation.CategoryForm
	if err := c.BodyParser(&form); err != nil {
		return respondError(c, errInvalidBody)
	}
	category, err := s.taxonomyService.CreateCategory(c.UserContext(), form)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// CreateTag handles POST /admin/api/tags
func (s *Server) CreateTag(c *fiber.Ctx) error {
	var form validation.TagForm
	if err := c.BodyParser(&form); err != nil {
		return respondError(c, errInvalidBody)
	}
	tag, err := s.taxonomyService.CreateTag(c.UserContext(), form)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tag)
}

// postInput reads a post form and its optional image uploads.
func (s *Server) postInput(c *fiber.Ctx) (service.SavePostInput, error) {
	in := service.SavePostInput{AuthorID: operatorID(c)}
	if err := c.BodyParser(&in.Form); err != nil {
		return in, errInvalidBody
	}
	if !isMultipart(c) {
		return in, nil
	}

	var err error
	if in.FeaturedImage, err = formUpload(c, "featured_image"); err != nil {
		return in, err
	}
	if in.Thumbnail, err = formUpload(c, "thumbnail"); err != nil {
		return in, err
	}
	in.ClearFeatured = formFlag(c.FormValue("clear_featured_image"))
	in.ClearThumbnail = formFlag(c.FormValue("clear_thumbnail"))
	return in, nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// formUpload returns the first file sent as field, or nil when none was sent.
func formUpload(c *fiber.Ctx, field string) (*service.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, errInvalidBody
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, nil
	}

	f, err := files[0].Open()
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("open upload %s: %w", field, err))
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("read upload %s: %w", field, err))
	}
	return &service.Upload{Filename: files[0].Filename, Content: content}, nil
}

// formFlag accepts checkbox ("on") and boolean spellings.
func formFlag(raw string) bool {
	if raw == "on" {
		return true
	}
	v, _ := strconv.ParseBool(raw)
	return v
}
