package middleware

import (
	"errors"
	"net/http"

	"exam-room/internal/domain"
	"exam-room/internal/dto"
	"exam-room/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GenericErrorMessage replaces the detail of storage and internal failures.
const GenericErrorMessage = "Server error occurred"

// ErrorHandler is a centralized error handler that renders every failure as
// the response envelope.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		logger := logger.Get()

		// Handle validation errors
		var validationErrs domain.ValidationErrors
		if errors.As(err, &validationErrs) {
			logger.Debug("Request validation failed",
				zap.String("path", c.Path()),
				zap.Int("error_count", len(validationErrs)),
				zap.String("detail", validationErrs.Error()),
			)
			return c.Status(http.StatusBadRequest).JSON(dto.Envelope{
				Success: false,
				Message: validationErrs.Error(),
				Errors:  validationErrs,
			})
		}

		// Handle domain errors
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			statusCode := MapDomainErrorToHTTPStatus(domainErr)
			message := domainErr.Message

			switch {
			case statusCode >= http.StatusInternalServerError && statusCode != http.StatusServiceUnavailable:
				logger.Error("Request failed",
					zap.String("path", c.Path()),
					zap.String("code", string(domainErr.Code)),
					zap.String("message", domainErr.Message),
					zap.Error(domainErr.Cause),
				)
				message = GenericErrorMessage
			default:
				logger.Info("Request rejected",
					zap.String("path", c.Path()),
					zap.String("code", string(domainErr.Code)),
					zap.String("message", domainErr.Message),
					zap.Int("status", statusCode),
				)
			}

			return c.Status(statusCode).JSON(dto.Envelope{
				Success: false,
				Message: message,
			})
		}

		// Handle fiber errors
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			logger.Warn("Fiber error occurred",
				zap.Int("code", fiberErr.Code),
				zap.String("message", fiberErr.Message),
			)
			return c.Status(fiberErr.Code).JSON(dto.Envelope{
				Success: false,
				Message: fiberErr.Message,
			})
		}

		// Handle unknown errors
		logger.Error("Unknown error occurred",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(http.StatusInternalServerError).JSON(dto.Envelope{
			Success: false,
			Message: GenericErrorMessage,
		})
	}
}

// MapDomainErrorToHTTPStatus maps domain errors to HTTP status codes
func MapDomainErrorToHTTPStatus(err *domain.DomainError) int {
	switch err.Code {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidInput, domain.CodeValidation, domain.CodeMissingField,
		domain.CodeInvalidFormat, domain.CodeOutOfRange:
		return http.StatusBadRequest
	case domain.CodeUnauthorized:
		return http.StatusUnauthorized
	case domain.CodeServerBusy:
		return http.StatusServiceUnavailable
	case domain.CodeInsufficientData, domain.CodeInvalidData:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
