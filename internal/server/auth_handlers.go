package server

import (
	"errors"
	"log/slog"

	"socialhub/internal/cache"
	"socialhub/internal/middleware"
	"socialhub/internal/models"
	"socialhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// authResponse is returned by register and login.
type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register handles POST /api/auth/register (multipart: email, password,
// name, birth_date, gender, photo).
func (s *Server) Register(c *fiber.Ctx) error {
	ctx := c.UserContext()

	in := service.RegisterInput{
		Email:     c.FormValue("email"),
		Password:  c.FormValue("password"),
		Name:      c.FormValue("name"),
		BirthDate: c.FormValue("birth_date"),
		Gender:    c.FormValue("gender"),
	}

	upload, err := formUpload(c, "photo")
	switch {
	case errors.Is(err, errNoUpload):
		// Register reports the missing photo together with other field errors.
	case err != nil:
		return respondServiceError(c, err)
	default:
		photo, saveErr := s.media.SaveProfilePhoto(ctx, upload)
		if saveErr != nil {
			return respondServiceError(c, saveErr)
		}
		in.Photo = photo
	}

	user, err := s.userService.Register(ctx, in)
	if err != nil {
		s.media.Discard(in.Photo)
		return respondServiceError(c, err)
	}

	token, _, err := s.auth.Issue(user.ID, user.Email)
	if err != nil {
		return respondServiceError(c, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(authResponse{Token: token, User: user})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondServiceError(c, err)
	}

	token, _, err := s.auth.Issue(user.ID, user.Email)
	if err != nil {
		return respondServiceError(c, models.NewInternalError(err))
	}

	return c.JSON(authResponse{Token: token, User: user})
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.auth.Revoke(c.UserContext(), middleware.ClaimsFrom(c)); err != nil {
		slog.ErrorContext(c.UserContext(), "failed to revoke token", slog.String("error", err.Error()))
		return respondServiceError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// IssueWSTicket handles POST /api/ws/ticket
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if !s.auth.TicketsEnabled() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "WebSocket tickets require Redis; connect with ?token= instead",
			Code:  "UNAVAILABLE",
		})
	}

	ticket, err := s.auth.IssueTicket(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(cache.WSTicketTTL.Seconds()),
	})
}
