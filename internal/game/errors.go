package game

import (
	"errors"
	"net/http"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
	"github.com/gokatarajesh/trivia-engine/internal/quiz"
	"github.com/gokatarajesh/trivia-engine/internal/testmode"
	httperrors "github.com/gokatarajesh/trivia-engine/pkg/http/errors"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrModeMismatch    = errors.New("operation does not apply to this session mode")
	ErrTooManySessions = errors.New("session limit reached")
)

// classify maps an error to an HTTP status and a response code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, catalog.ErrPackageNotFound):
		return http.StatusNotFound, httperrors.ErrCodePackageNotFound
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound, httperrors.ErrCodeSessionNotFound
	case errors.Is(err, ErrModeMismatch):
		return http.StatusConflict, httperrors.ErrCodeModeMismatch
	case errors.Is(err, ErrTooManySessions):
		return http.StatusServiceUnavailable, httperrors.ErrCodeTooManySessions
	case errors.Is(err, quiz.ErrUnknownAttribute), errors.Is(err, testmode.ErrUnknownAttribute):
		return http.StatusBadRequest, httperrors.ErrCodeUnknownAttribute
	case errors.Is(err, quiz.ErrEmptyPool), errors.Is(err, testmode.ErrEmptyPool):
		return http.StatusUnprocessableEntity, httperrors.ErrCodeEmptyPool
	case errors.Is(err, quiz.ErrNotInitialized), errors.Is(err, testmode.ErrNotInitialized):
		return http.StatusConflict, httperrors.ErrCodeNotInitialized
	default:
		return http.StatusInternalServerError, httperrors.ErrCodeInternalError
	}
}
