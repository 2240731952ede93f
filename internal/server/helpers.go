package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"socialhub/internal/middleware"
	"socialhub/internal/models"
	"socialhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errNoUpload is returned by formUpload when the field is absent.
var errNoUpload = errors.New("no file uploaded")

// statusFor maps an AppError code to its HTTP status. Conflicts are reported
// as 400 like other rejected input.
func statusFor(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeValidation, models.CodeConflict:
		return fiber.StatusBadRequest
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// respondServiceError writes err with the status derived from its code.
// Internal errors are not echoed beyond the generic message.
func respondServiceError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}

// routeID returns a trimmed, non-empty route parameter. On failure it writes
// a 400 response and reports false; the caller then returns nil.
func routeID(c *fiber.Ctx, param string) (string, bool) {
	id := strings.TrimSpace(c.Params(param))
	if id == "" || strings.ContainsAny(id, "/.") {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+param))
		return "", false
	}
	return id, true
}

// currentUserID returns the id placed in locals by the auth middleware.
func currentUserID(c *fiber.Ctx) string {
	return middleware.UserID(c)
}

// formUpload reads a multipart file field into memory. A missing field
// yields errNoUpload. The request body limit bounds the read.
func formUpload(c *fiber.Ctx, field string) (service.UploadInput, error) {
	// FormFile fails both for a non-multipart body and for a missing field.
	fh, err := c.FormFile(field)
	if err != nil {
		return service.UploadInput{}, errNoUpload
	}

	f, err := fh.Open()
	if err != nil {
		return service.UploadInput{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return service.UploadInput{}, fmt.Errorf("read upload: %w", err)
	}
	if len(content) == 0 {
		return service.UploadInput{}, errNoUpload
	}

	return service.UploadInput{
		Filename:    fh.Filename,
		ContentType: uploadContentType(fh.Header.Get(fiber.HeaderContentType), content),
		Content:     content,
	}, nil
}

// uploadContentType prefers the declared part type and sniffs the bytes
// when the client sent none or a generic one.
func uploadContentType(declared string, content []byte) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
			return strings.ToLower(mt)
		}
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(content))
	return mt
}
