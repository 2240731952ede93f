package server

import (
	"errors"

	"socialhub/internal/models"
	"socialhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.feedService.GlobalFeed(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts (multipart: description, media)
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()

	upload, err := formUpload(c, "media")
	if errors.Is(err, errNoUpload) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Media file is required"))
	}
	if err != nil {
		return respondServiceError(c, err)
	}

	mediaURL, _, err := s.media.SavePostMedia(ctx, upload)
	if err != nil {
		return respondServiceError(c, err)
	}

	post, err := s.postService.CreatePost(ctx, service.CreatePostInput{
		UserID:      currentUserID(c),
		Description: c.FormValue("description"),
		MediaURL:    mediaURL,
		MediaMIME:   upload.ContentType,
	})
	if err != nil {
		s.media.Discard(mediaURL)
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// ToggleLike handles POST /api/posts/:id/like
// The first call likes the post, the next one unlikes it.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	postID, ok := routeID(c, "id")
	if !ok {
		return nil
	}

	res, err := s.postService.ToggleLike(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(res)
}

// GetLikeStatus handles GET /api/posts/:id/like
func (s *Server) GetLikeStatus(c *fiber.Ctx) error {
	postID, ok := routeID(c, "id")
	if !ok {
		return nil
	}

	res, err := s.postService.LikeStatus(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(res)
}

// SharePost handles POST /api/posts/:id/share
func (s *Server) SharePost(c *fiber.Ctx) error {
	postID, ok := routeID(c, "id")
	if !ok {
		return nil
	}

	shares, err := s.postService.SharePost(c.UserContext(), postID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"post_id": postID, "shares": shares})
}
