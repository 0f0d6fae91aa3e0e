package game

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
	"github.com/gokatarajesh/trivia-engine/internal/quiz"
	"github.com/gokatarajesh/trivia-engine/internal/stats"
	"github.com/gokatarajesh/trivia-engine/internal/testmode"
	httperrors "github.com/gokatarajesh/trivia-engine/pkg/http/errors"
)

// PackageReader is the read side of the package catalog.
type PackageReader interface {
	List(ctx context.Context) ([]catalog.Summary, error)
	Package(ctx context.Context, id string) (*catalog.Package, error)
}

type StatsReader interface {
	Summary(ctx context.Context, packageID string) (stats.Summary, error)
}

// Defaults fill in quiz settings a client leaves out.
type Defaults struct {
	TotalQuestions int
	TimeLimit      int
}

// HTTPHandlers provides REST endpoints for packages and sessions.
type HTTPHandlers struct {
	service  *Service
	packages PackageReader
	stats    StatsReader
	defaults Defaults
	logger   zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers. stats may be nil.
func NewHTTPHandlers(service *Service, packages PackageReader, statsReader StatsReader, defaults Defaults, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service:  service,
		packages: packages,
		stats:    statsReader,
		defaults: defaults,
		logger:   logger.With().Str("component", "game_http").Logger(),
	}
}

// CreateQuizRequest selects a package and quiz settings. Omitted counts use
// the server defaults; an explicit zero time limit disables the countdown.
type CreateQuizRequest struct {
	PackageID      string                 `json:"package_id"`
	QuestionAttr   string                 `json:"question_attr"`
	AnswerAttr     string                 `json:"answer_attr"`
	Division       catalog.DivisionFilter `json:"division"`
	Range          catalog.Range          `json:"range"`
	TotalQuestions *int                   `json:"total_questions"`
	TimeLimit      *int                   `json:"time_limit"`
}

type CreateTestRequest struct {
	PackageID  string                 `json:"package_id"`
	Attributes []string               `json:"attributes"`
	Division   catalog.DivisionFilter `json:"division"`
	TimeLimit  int                    `json:"time_limit"`
}

// ListPackages handles GET /v1/packages
func (h *HTTPHandlers) ListPackages(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.packages.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]any{"packages": summaries})
}

// GetPackage handles GET /v1/packages/{id}
func (h *HTTPHandlers) GetPackage(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.packages.Package(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, pkg.Summarize())
}

// PackageStats handles GET /v1/packages/{id}/stats
func (h *HTTPHandlers) PackageStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, "Statistics are disabled")
		return
	}
	summary, err := h.stats.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, summary)
}

// CreateQuiz handles POST /v1/quizzes
func (h *HTTPHandlers) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req CreateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	switch {
	case req.PackageID == "":
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "package_id is required", "package_id")
		return
	case req.QuestionAttr == "":
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "question_attr is required", "question_attr")
		return
	case req.AnswerAttr == "":
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "answer_attr is required", "answer_attr")
		return
	}

	settings := quiz.Settings{
		PackageID:      req.PackageID,
		QuestionAttr:   req.QuestionAttr,
		AnswerAttr:     req.AnswerAttr,
		Division:       req.Division,
		Range:          req.Range,
		TotalQuestions: h.defaults.TotalQuestions,
		TimeLimit:      h.defaults.TimeLimit,
	}
	if req.TotalQuestions != nil {
		settings.TotalQuestions = *req.TotalQuestions
	}
	if req.TimeLimit != nil {
		settings.TimeLimit = *req.TimeLimit
	}

	started, err := h.service.InitializeQuiz(r.Context(), settings)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusCreated, started)
}

// CreateTest handles POST /v1/tests
func (h *HTTPHandlers) CreateTest(w http.ResponseWriter, r *http.Request) {
	var req CreateTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.PackageID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "package_id is required", "package_id")
		return
	}

	started, err := h.service.InitializeTest(r.Context(), testmode.Settings{
		PackageID:  req.PackageID,
		Attributes: req.Attributes,
		Division:   req.Division,
		TimeLimit:  req.TimeLimit,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusCreated, started)
}

// GetSession handles GET /v1/sessions/{id}
func (h *HTTPHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidID, "Invalid session ID")
		return
	}
	snap, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, snap)
}

// CloseSession handles DELETE /v1/sessions/{id}
func (h *HTTPHandlers) CloseSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidID, "Invalid session ID")
		return
	}
	if err := h.service.CloseSession(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandlers) respondError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg("request failed")
	}
	switch {
	case errors.Is(err, ErrTooManySessions):
		httperrors.RespondErrorWithDetails(w, status, code, err.Error(), map[string]interface{}{"limit": h.service.maxSessions})
	case status == http.StatusInternalServerError:
		httperrors.RespondInternalError(w, "Internal server error")
	default:
		httperrors.RespondError(w, status, code, err.Error())
	}
}
