package handler

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"regdesk/internal/registration/models"
	rostermodels "regdesk/internal/roster/models"
	dErrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/platform/httputil"
	"regdesk/pkg/requestcontext"
)

//go:embed templates/*.html
var templateFS embed.FS

var formTemplate = template.Must(template.ParseFS(templateFS, "templates/register.html"))

// Service defines the registration operations used by the handler.
type Service interface {
	Submit(ctx context.Context, sub models.Submission) (*rostermodels.Registrant, error)
	Catalog() *models.Catalog
}

// Handler serves the public registration form and API.
type Handler struct {
	service Service
	logger  *slog.Logger
	submit  []func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithSubmitMiddleware wraps the two submission routes, typically with a
// rate limiter.
func WithSubmitMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.submit = append(h.submit, mw...)
	}
}

// New constructs a registration handler.
func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the public routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.HandleForm)
	r.Get("/register", h.HandleForm)
	r.Get("/api/regions", h.HandleRegions)
	r.With(h.submit...).Post("/register", h.HandleSubmitForm)
	r.With(h.submit...).Post("/api/registrations", h.HandleCreate)
}

// HandleForm renders an empty registration form.
func (h *Handler) HandleForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, h.page(models.Submission{}))
}

// HandleSubmitForm handles POST /register from the HTML form.
func (h *Handler) HandleSubmitForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		page := h.page(models.Submission{})
		page.Failure = "Data not submitted: the form could not be read"
		h.render(w, r, http.StatusBadRequest, page)
		return
	}

	sub := submissionFromForm(r)
	rec, err := h.service.Submit(ctx, sub)
	if err != nil {
		page := h.page(sub)
		status := dErrors.HTTPStatus(dErrors.CodeOf(err))
		var fe httputil.FieldErrorer
		if errors.As(err, &fe) {
			page.Errors = fe.FieldErrors()
		} else {
			page.Failure = failureMessage(err)
			h.logger.ErrorContext(ctx, "registration form submission failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		h.render(w, r, status, page)
		return
	}

	page := h.page(models.Submission{})
	page.Success = rec.Name
	h.render(w, r, http.StatusOK, page)
}

// HandleRegions handles GET /api/regions.
func (h *Handler) HandleRegions(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, RegionsResponse{Regions: h.service.Catalog().Regions()})
}

// HandleCreate handles POST /api/registrations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegistrationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.Submit(ctx, req.Submission)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeValidation) {
			h.logger.ErrorContext(ctx, "registration failed",
				"request_id", requestID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRegistrationResponse(rec))
}

func (h *Handler) page(sub models.Submission) formPage {
	return formPage{
		Form:              sub,
		Errors:            map[string]string{},
		Genders:           models.Genders,
		DesignationLevels: models.DesignationLevels,
		Regions:           h.service.Catalog().Regions(),
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page formPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := formTemplate.Execute(w, page); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render registration form",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	}
}

// failureMessage shows the domain message; internal errors stay generic.
func failureMessage(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) && de.Code != dErrors.CodeInternal {
		return de.Message
	}
	return "Data not submitted"
}
