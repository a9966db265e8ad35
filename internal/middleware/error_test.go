package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"exam-room/internal/domain"
	"exam-room/internal/dto"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler_Envelope(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
		wantErrors  int
	}{
		{
			name:        "validation errors",
			err:         domain.ValidationErrors{domain.NewMissingFieldError("title")},
			wantStatus:  http.StatusBadRequest,
			wantMessage: domain.NewMissingFieldError("title").Error(),
			wantErrors:  1,
		},
		{"not found", domain.NewExamNotFoundError("e1"), http.StatusNotFound, domain.NewExamNotFoundError("e1").Message, 0},
		{"unauthorized", domain.NewUnauthorizedError("Invalid username or password"), http.StatusUnauthorized, "Invalid username or password", 0},
		{"busy", domain.NewBusyError(), http.StatusServiceUnavailable, domain.NewBusyError().Message, 0},
		{"insufficient data", domain.NewInsufficientDataError(5, 3), http.StatusUnprocessableEntity, domain.NewInsufficientDataError(5, 3).Message, 0},
		{"storage detail hidden", domain.NewStorageError("append Attempts", errors.New("quota exceeded for sheet 123")), http.StatusInternalServerError, GenericErrorMessage, 0},
		{"unknown error hidden", errors.New("nil map write"), http.StatusInternalServerError, GenericErrorMessage, 0},
		{"fiber error", fiber.NewError(http.StatusMethodNotAllowed, "Method Not Allowed"), http.StatusMethodNotAllowed, "Method Not Allowed", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
			app.Use(RequestLogger())
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			var env dto.Envelope
			require.NoError(t, json.Unmarshal(body, &env))
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantMessage, env.Message)
			assert.Len(t, env.Errors, tt.wantErrors)
		})
	}
}
