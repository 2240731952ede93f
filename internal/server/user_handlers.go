package server

import (
	"errors"

	"socialhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetProfile(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, ok := routeID(c, "id")
	if !ok {
		return nil
	}

	user, err := s.userService.GetProfile(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me (multipart: name, birth_date,
// gender, optional photo). The stored photo is kept when none is uploaded.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()

	in := service.UpdateProfileInput{
		UserID:    currentUserID(c),
		Name:      c.FormValue("name"),
		BirthDate: c.FormValue("birth_date"),
		Gender:    c.FormValue("gender"),
	}

	upload, err := formUpload(c, "photo")
	switch {
	case errors.Is(err, errNoUpload):
	case err != nil:
		return respondServiceError(c, err)
	default:
		photo, saveErr := s.media.SaveProfilePhoto(ctx, upload)
		if saveErr != nil {
			return respondServiceError(c, saveErr)
		}
		in.Photo = photo
	}

	user, err := s.userService.UpdateProfile(ctx, in)
	if err != nil {
		s.media.Discard(in.Photo)
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// GetUserPosts handles GET /api/users/:id/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	id, ok := routeID(c, "id")
	if !ok {
		return nil
	}

	posts, err := s.feedService.UserFeed(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}
