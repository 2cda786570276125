package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/nurture/internal/auth/domain"
	checkoutdomain "github.com/smallbiznis/nurture/internal/checkout/domain"
	paymentdomain "github.com/smallbiznis/nurture/internal/payment/domain"
	profiledomain "github.com/smallbiznis/nurture/internal/profile/domain"
	"github.com/smallbiznis/nurture/internal/signup"
	signupdomain "github.com/smallbiznis/nurture/internal/signup/domain"
	subscriptiondomain "github.com/smallbiznis/nurture/internal/subscription/domain"
	"github.com/smallbiznis/nurture/internal/wizard"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// validationCodes maps domain validation errors to a field and a stable code.
var validationCodes = []struct {
	err     error
	field   string
	code    string
	message string
}{
	{ErrInvalidRequest, "request", "invalid_request", "invalid request"},
	{signup.ErrMissingClientID, "client_id", "missing_client_id", "client id is required"},
	{signupdomain.ErrInvalidEmail, "email", "invalid_email", "invalid email address"},
	{authdomain.ErrInvalidEmail, "email", "invalid_email", "invalid email address"},
	{signupdomain.ErrWeakPassword, "password", "weak_password", "password is too weak"},
	{signupdomain.ErrInvalidDetails, "details", "invalid_details", "invalid details"},
	{profiledomain.ErrInvalidProfile, "details", "invalid_details", "invalid details"},
	{signupdomain.ErrUnknownPlan, "plan", "unknown_plan", "unknown plan"},
	{checkoutdomain.ErrInvalidPrice, "priceId", "invalid_price", "unknown price"},
	{checkoutdomain.ErrMissingCustomer, "userId", "missing_customer", "userId or email is required"},
	{paymentdomain.ErrInvalidPayload, "payload", "invalid_payload", "invalid payload"},
	{paymentdomain.ErrInvalidEvent, "payload", "invalid_event", "invalid event"},
	{paymentdomain.ErrInvalidSignature, "signature", "invalid_signature", "invalid signature"},
	{paymentdomain.ErrSignatureExpired, "signature", "signature_expired", "signature expired"},
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// classifyErrorForLog feeds error_type and error_code into the request log.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	for _, v := range validationCodes {
		if errors.Is(err, v.err) {
			return http.StatusBadRequest, errorPayload{
				Type:    "validation_error",
				Message: "validation error",
				Errors:  []ValidationError{{Field: v.field, Code: v.code, Message: v.message}},
			}
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, signupdomain.ErrNoSession):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, profiledomain.ErrProfileExists):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, wizard.ErrBusy):
		return http.StatusConflict, errorPayload{
			Type:    "busy",
			Message: "a step is already in progress",
		}
	case errors.Is(err, wizard.ErrClosed),
		errors.Is(err, wizard.ErrWrongStep),
		errors.Is(err, signupdomain.ErrSuperseded):
		return http.StatusConflict, errorPayload{
			Type:    "step_conflict",
			Message: "the signup dialog has moved on",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, checkoutdomain.ErrBackendRejected),
		errors.Is(err, checkoutdomain.ErrInvalidSession):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "upstream request failed",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorPayload{
			Type:    "timeout",
			Message: "request timed out",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, paymentdomain.ErrMissingWebhookSecret),
		errors.Is(err, paymentdomain.ErrMissingSecretKey):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, profiledomain.ErrProfileNotFound),
		errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
