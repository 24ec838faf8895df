package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	ezpdf "github.com/alnah/go-ezpdf"
)

// errorResponse is the JSON body returned for failed requests.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, ezpdf.ErrEmptyURL),
		errors.Is(err, ezpdf.ErrInvalidPageSize),
		errors.Is(err, ezpdf.ErrInvalidOrientation),
		errors.Is(err, ezpdf.ErrInvalidMargin):
		return fiber.StatusBadRequest
	case errors.Is(err, ezpdf.ErrNavigation):
		return fiber.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, ezpdf.ErrRendererClosed),
		errors.Is(err, ezpdf.ErrBrowserLaunch),
		errors.Is(err, ezpdf.ErrBrowserFetch):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// handleError is the fiber error handler: every error becomes JSON.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := statusFor(err)

	entry := s.log.WithError(err).WithField("request_id", requestIDOf(c))
	if status >= fiber.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}

	return c.Status(status).JSON(errorResponse{
		Error:     err.Error(),
		RequestID: requestIDOf(c),
	})
}
