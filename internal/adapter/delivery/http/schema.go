package http

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const statusError = "error"

// shortenRequest is the body of POST /shorten.
type shortenRequest struct {
	LongURL string `json:"longURL" validate:"required,max=2048,http_url"`
}

func (r *shortenRequest) trim() {
	r.LongURL = strings.TrimSpace(r.LongURL)
}

type shortenResponse struct {
	ShortURL string `json:"shortURL"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Cache     string `json:"cache"`
}

func toHealthResponse(h entity.Health) healthResponse {
	return healthResponse{
		Status:    h.Status,
		Timestamp: h.Timestamp.Format(time.RFC3339),
		Cache:     string(h.Cache),
	}
}

// urlRequest represents the structure for a request to shorten or modify a URL through the management API.
type urlRequest struct {
	OriginalURL string `json:"original_url" validate:"required,max=2048,http_url"`
}

func (r *urlRequest) trim() {
	r.OriginalURL = strings.TrimSpace(r.OriginalURL)
}

// urlResponse represents the structure for a response containing shortened URL information.
type urlResponse struct {
	ID          int64     `json:"id"`
	ShortCode   string    `json:"short_code"`
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toURLResponse(url *entity.URL, shortURL string) urlResponse {
	return urlResponse{
		ID:          url.ID,
		ShortCode:   url.ShortCode,
		ShortURL:    shortURL,
		OriginalURL: url.OriginalURL,
		CreatedAt:   url.CreatedAt,
		UpdatedAt:   url.UpdatedAt,
	}
}

// urlStatsResponse represents the structure for a response containing URL statistics.
type urlStatsResponse struct {
	ID          int64     `json:"id"`
	ShortCode   string    `json:"short_code"`
	OriginalURL string    `json:"original_url"`
	Stats       urlStats  `json:"stats"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type urlStats struct {
	AccessCount int64 `json:"access_count"`
}

func toURLStatsResponse(url *entity.URL) urlStatsResponse {
	return urlStatsResponse{
		ID:          url.ID,
		ShortCode:   url.ShortCode,
		OriginalURL: url.OriginalURL,
		Stats: urlStats{
			AccessCount: url.AccessCount,
		},
		CreatedAt: url.CreatedAt,
		UpdatedAt: url.UpdatedAt,
	}
}

type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

func newErrorResponse(msg string) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: msg,
	}
}

var (
	emptyRequestBodyResponse   = newErrorResponse("empty request body")
	invalidRequestBodyResponse = newErrorResponse("invalid request body")
	urlNotFoundResponse        = newErrorResponse("url not found")
	urlExistsResponse          = newErrorResponse("original url is already shortened")
	allocationErrorResponse    = newErrorResponse("unable to allocate short code, retry later")
	serverErrorResponse        = newErrorResponse("server error occurred")
)

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "max":
		return "url exceeds 2048 characters"
	case "http_url":
		return "only http and https urls are allowed"
	default:
		return "invalid value"
	}
}

func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	errs, ok := err.(validator.ValidationErrors)
	if ok {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

func validationErrorResponse(err error) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}
