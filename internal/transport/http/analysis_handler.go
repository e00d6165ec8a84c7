package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "namerank/internal/errors"
	"namerank/internal/middleware"
	"namerank/pkg/contracts/domain"
)

// AnalysisHandler serves the analysis endpoints
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validator    *queryValidator
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger)
	}
	return &AnalysisHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "analysis_handler")),
		errorHandler: errorHandler,
		validator:    newQueryValidator(),
	}
}

// Routes returns the analysis routes, to be mounted under /api
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/totals", h.GetTotals)
	r.Get("/report", h.GetReport)
	r.Get("/top-share", h.GetTopShare)
	r.Get("/groups/{year}/{category}/top", h.GetTopNames)
	r.Get("/diversity", h.GetDiversity)
	r.Route("/letters", func(r chi.Router) {
		r.Get("/years", h.GetYearSubset)
		r.Get("/trend", h.GetLetterTrend)
	})
	r.Get("/names/trend", h.GetNameTrend)

	r.NotFound(h.errorHandler.NotFound)
	return r
}

// GetTotals handles GET /api/totals
func (h *AnalysisHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.Totals(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, totals)
}

// GetReport handles GET /api/report with the configured analysis parameters
func (h *AnalysisHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "building full report",
		slog.String("request_id", middleware.GetRequestID(r.Context())))

	report, err := h.service.Report(r.Context(), h.service.Defaults())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

// GetTopShare handles GET /api/top-share?k=
func (h *AnalysisHandler) GetTopShare(w http.ResponseWriter, r *http.Request) {
	k, err := intParam(r, "k", h.service.Defaults().TopK)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := h.validator.check(topShareQuery{K: k}); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	share, err := h.service.TopShare(r.Context(), k)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, share)
}

// GetTopNames handles GET /api/groups/{year}/{category}/top?k=
func (h *AnalysisHandler) GetTopNames(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidParameter("year", err))
		return
	}
	k, err := intParam(r, "k", h.service.Defaults().TopK)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q := topQuery{
		Year:     year,
		Category: strings.ToUpper(chi.URLParam(r, "category")),
		K:        k,
	}
	if err := h.validator.check(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	category, err := domain.ParseCategory(q.Category)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidParameter("category", err))
		return
	}

	group, err := h.service.TopNames(r.Context(), domain.GroupKey{Year: year, Category: category}, k)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, group)
}

// GetDiversity handles GET /api/diversity?q=
func (h *AnalysisHandler) GetDiversity(w http.ResponseWriter, r *http.Request) {
	q, err := floatParam(r, "q", h.service.Defaults().Quantile)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := h.validator.check(diversityQuery{Q: q}); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Diversity(r.Context(), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// GetYearSubset handles GET /api/letters/years?years=
func (h *AnalysisHandler) GetYearSubset(w http.ResponseWriter, r *http.Request) {
	years, err := intListParam(r, "years", h.service.Defaults().PivotYears)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := h.validator.check(yearsQuery{Years: years}); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	view, err := h.service.YearSubset(r.Context(), years)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// GetLetterTrend handles GET /api/letters/trend?category=&letters=
func (h *AnalysisHandler) GetLetterTrend(w http.ResponseWriter, r *http.Request) {
	defaults := h.service.Defaults()
	q := letterTrendQuery{
		Category: defaults.TrendCategory.String(),
		Letters:  defaults.TrendKeys,
	}
	if raw := r.URL.Query().Get("category"); raw != "" {
		q.Category = strings.ToUpper(strings.TrimSpace(raw))
	}
	if letters, ok := listParam(r, "letters"); ok {
		q.Letters = letters
	}
	if err := h.validator.check(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	category, err := domain.ParseCategory(q.Category)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidParameter("category", err))
		return
	}

	trend, err := h.service.LetterTrend(r.Context(), category, q.Letters)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, trend)
}

// GetNameTrend handles GET /api/names/trend?names=&category=
// Without a category the counts of both categories are summed.
func (h *AnalysisHandler) GetNameTrend(w http.ResponseWriter, r *http.Request) {
	names, _ := listParam(r, "names")
	q := namesQuery{
		Names:    names,
		Category: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("category"))),
	}
	if err := h.validator.check(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	category := domain.CategoryUnknown
	if q.Category != "" {
		parsed, err := domain.ParseCategory(q.Category)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidParameter("category", err))
			return
		}
		category = parsed
	}

	trend, err := h.service.NameTrend(r.Context(), names, category)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, trend)
}
