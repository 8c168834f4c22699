package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/urlcheck"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

type urlUseCase interface {
	ShortURL(shortCode string) string
	ShortenURL(ctx context.Context, originalURL string) (*entity.URL, error)
	ResolveShortCode(ctx context.Context, shortCode string) (string, error)
	ModifyURL(ctx context.Context, shortCode, originalURL string) (*entity.URL, error)
	DeactivateURL(ctx context.Context, shortCode string) error
	GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error)
	Health(ctx context.Context) entity.Health
}

type codeValidator interface {
	Valid(code string) bool
}

type urlHandler struct {
	useCase  urlUseCase
	codes    codeValidator
	validate *validator.Validate
}

func newURLHandler(useCase urlUseCase, codes codeValidator, validate *validator.Validate) *urlHandler {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &urlHandler{
		useCase:  useCase,
		codes:    codes,
		validate: validate,
	}
}

// trimmer is implemented by request bodies whose URLs are trimmed before validation.
type trimmer interface {
	trim()
}

// decode reads, trims and validates the JSON body into dst. It writes the 400 response
// itself and reports false when the request must not go further.
func (h *urlHandler) decode(w http.ResponseWriter, r *http.Request, dst trimmer) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		render.Status(r, http.StatusBadRequest)
		if errors.Is(err, io.EOF) {
			render.JSON(w, r, emptyRequestBodyResponse)
			return false
		}
		render.JSON(w, r, invalidRequestBodyResponse)
		return false
	}

	dst.trim()

	if err := h.validate.Struct(dst); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(err))
		return false
	}

	return true
}

// shortCode returns the path code, answering 404 for anything the generator could not have produced.
func (h *urlHandler) shortCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	code := chi.URLParam(r, "shortCode")
	if !h.codes.Valid(code) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, urlNotFoundResponse)
		return "", false
	}
	return code, true
}

func (h *urlHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var rejectErr *urlcheck.RejectError

	switch {
	case errors.As(err, &rejectErr):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, newErrorResponse(rejectErr.Reason))
	case errors.Is(err, entity.ErrInvalidURL):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, newErrorResponse(entity.ErrInvalidURL.Error()))
	case errors.Is(err, entity.ErrURLNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, urlNotFoundResponse)
	case errors.Is(err, entity.ErrOriginalURLExists):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, urlExistsResponse)
	case errors.Is(err, entity.ErrAllocationExhausted):
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, allocationErrorResponse)
	default:
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
	}
}

func (h *urlHandler) shorten(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest
	if !h.decode(w, r, &req) {
		return
	}

	url, err := h.useCase.ShortenURL(r.Context(), req.LongURL)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, shortenResponse{ShortURL: h.useCase.ShortURL(url.ShortCode)})
}

// redirect answers with a 302 that no intermediary may cache, so every visit is counted.
func (h *urlHandler) redirect(w http.ResponseWriter, r *http.Request) {
	shortCode, ok := h.shortCode(w, r)
	if !ok {
		return
	}

	originalURL, err := h.useCase.ResolveShortCode(r.Context(), shortCode)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	http.Redirect(w, r, originalURL, http.StatusFound)
}

func (h *urlHandler) health(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, toHealthResponse(h.useCase.Health(r.Context())))
}

func (h *urlHandler) shortenURL(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !h.decode(w, r, &req) {
		return
	}

	url, err := h.useCase.ShortenURL(r.Context(), req.OriginalURL)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toURLResponse(url, h.useCase.ShortURL(url.ShortCode)))
}

func (h *urlHandler) modifyURL(w http.ResponseWriter, r *http.Request) {
	shortCode, ok := h.shortCode(w, r)
	if !ok {
		return
	}

	var req urlRequest
	if !h.decode(w, r, &req) {
		return
	}

	url, err := h.useCase.ModifyURL(r.Context(), shortCode, req.OriginalURL)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toURLResponse(url, h.useCase.ShortURL(url.ShortCode)))
}

func (h *urlHandler) deactivateURL(w http.ResponseWriter, r *http.Request) {
	shortCode, ok := h.shortCode(w, r)
	if !ok {
		return
	}

	if err := h.useCase.DeactivateURL(r.Context(), shortCode); err != nil {
		h.renderError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *urlHandler) getURLStats(w http.ResponseWriter, r *http.Request) {
	shortCode, ok := h.shortCode(w, r)
	if !ok {
		return
	}

	url, err := h.useCase.GetURLStats(r.Context(), shortCode)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toURLStatsResponse(url))
}
