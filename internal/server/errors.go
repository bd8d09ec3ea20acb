package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/donasi/internal/audit/domain"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	donationdomain "github.com/smallbiznis/donasi/internal/donation/domain"
	funddomain "github.com/smallbiznis/donasi/internal/fund/domain"
	"github.com/smallbiznis/donasi/internal/observability/logger"
	paymentdomain "github.com/smallbiznis/donasi/internal/payment/domain"
	reportdomain "github.com/smallbiznis/donasi/internal/report/domain"
	transparencydomain "github.com/smallbiznis/donasi/internal/transparency/domain"
	"go.uber.org/zap"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type validationError struct {
	field   string
	code    string
	message string
}

func (e *validationError) Error() string { return e.code }

func newValidationError(field, code, message string) error {
	return &validationError{field: field, code: code, message: message}
}

func invalidRequestError() error {
	return newValidationError("", "invalid_request", "invalid request")
}

type errorMapping struct {
	err    error
	status int
	field  string
}

var errorMappings = []errorMapping{
	{ErrUnauthorized, http.StatusUnauthorized, ""},
	{ErrForbidden, http.StatusForbidden, ""},
	{ErrNotFound, http.StatusNotFound, ""},
	{ErrRateLimited, http.StatusTooManyRequests, ""},
	{ErrServiceUnavailable, http.StatusServiceUnavailable, ""},

	{causedomain.ErrNotFound, http.StatusNotFound, ""},
	{causedomain.ErrInvalidTitle, http.StatusBadRequest, "title"},
	{causedomain.ErrInvalidDescription, http.StatusBadRequest, "description"},
	{causedomain.ErrInvalidCategory, http.StatusBadRequest, "category"},
	{causedomain.ErrInvalidTargetAmount, http.StatusBadRequest, "target_amount"},
	{causedomain.ErrInvalidDeadline, http.StatusBadRequest, "deadline"},
	{causedomain.ErrInvalidStatus, http.StatusBadRequest, "status"},
	{causedomain.ErrInvalidImage, http.StatusBadRequest, "image"},
	{causedomain.ErrInvalidAuditDecision, http.StatusBadRequest, "status"},
	{causedomain.ErrAuditNotesTooLong, http.StatusBadRequest, "notes"},
	{causedomain.ErrCauseHasDonations, http.StatusConflict, ""},
	{causedomain.ErrAlreadyFinalized, http.StatusConflict, ""},
	{causedomain.ErrAuditNotPending, http.StatusConflict, ""},

	{donationdomain.ErrNotFound, http.StatusNotFound, ""},
	{donationdomain.ErrCauseNotFound, http.StatusNotFound, "cause_id"},
	{donationdomain.ErrInvalidAmount, http.StatusBadRequest, "amount"},
	{donationdomain.ErrMessageTooLong, http.StatusBadRequest, "message"},
	{donationdomain.ErrInvalidDistribution, http.StatusBadRequest, "distribution_status"},
	{donationdomain.ErrNoteTooLong, http.StatusBadRequest, "distribution_note"},
	{donationdomain.ErrInvalidOrderID, http.StatusBadRequest, "order_id"},
	{donationdomain.ErrAlreadyVerified, http.StatusConflict, ""},
	{donationdomain.ErrAlreadyFinalized, http.StatusConflict, ""},
	{donationdomain.ErrInvalidTransition, http.StatusConflict, ""},
	{donationdomain.ErrNotVerified, http.StatusConflict, ""},

	{funddomain.ErrCauseNotFound, http.StatusNotFound, "cause_id"},
	{funddomain.ErrInvalidAmount, http.StatusBadRequest, "amount"},
	{funddomain.ErrInsufficientFunds, http.StatusUnprocessableEntity, "amount"},
	{funddomain.ErrNegativeBalance, http.StatusUnprocessableEntity, "amount"},

	{transparencydomain.ErrNotFound, http.StatusNotFound, ""},
	{transparencydomain.ErrCauseNotFound, http.StatusNotFound, "cause_id"},
	{transparencydomain.ErrAttachmentNotFound, http.StatusNotFound, ""},
	{transparencydomain.ErrInvalidAmount, http.StatusBadRequest, "amount"},
	{transparencydomain.ErrInvalidDate, http.StatusBadRequest, "date"},
	{transparencydomain.ErrInvalidDescription, http.StatusBadRequest, "description"},
	{transparencydomain.ErrInvalidStatus, http.StatusBadRequest, "status"},
	{transparencydomain.ErrInvalidAttachment, http.StatusBadRequest, "attachments"},
	{transparencydomain.ErrInvalidAttachmentKind, http.StatusBadRequest, "kind"},

	{paymentdomain.ErrInvalidSignature, http.StatusForbidden, ""},
	{paymentdomain.ErrProviderNotFound, http.StatusNotFound, ""},
	{paymentdomain.ErrDonationNotFound, http.StatusNotFound, "order_id"},
	{paymentdomain.ErrInvalidProvider, http.StatusBadRequest, ""},
	{paymentdomain.ErrInvalidPayload, http.StatusBadRequest, ""},
	{paymentdomain.ErrInvalidEvent, http.StatusBadRequest, ""},
	{paymentdomain.ErrInvalidAmount, http.StatusBadRequest, "gross_amount"},
	{paymentdomain.ErrGatewayRequest, http.StatusBadGateway, ""},

	{reportdomain.ErrCauseNotFound, http.StatusNotFound, ""},
	{reportdomain.ErrInvalidDateRange, http.StatusBadRequest, "from"},
	{reportdomain.ErrInvalidStatus, http.StatusBadRequest, "status"},
	{reportdomain.ErrInvalidCategory, http.StatusBadRequest, "category"},
	{reportdomain.ErrInvalidAuditStatus, http.StatusBadRequest, "audit_status"},
	{reportdomain.ErrInvalidDonor, http.StatusBadRequest, "donor_id"},
	{reportdomain.ErrInvalidReportType, http.StatusBadRequest, "report_type"},
	{reportdomain.ErrMissingGenerator, http.StatusUnauthorized, ""},

	{auditdomain.ErrInvalidAction, http.StatusBadRequest, "action"},
	{auditdomain.ErrInvalidTargetType, http.StatusBadRequest, "target_type"},
}

// AbortWithError writes the error envelope for err. Errors that do not map to a client
// error are logged and reported as internal errors without detail.
func AbortWithError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.FromContext(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func errorResponse(err error) (int, errorBody) {
	var vErr *validationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorBody{Code: vErr.code, Message: vErr.message, Field: vErr.field}
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			code := m.err.Error()
			return m.status, errorBody{
				Code:    code,
				Message: strings.ReplaceAll(code, "_", " "),
				Field:   m.field,
			}
		}
	}

	return http.StatusInternalServerError, errorBody{Code: "internal_error", Message: "internal error"}
}

// parseOptionalTime accepts RFC3339 timestamps or plain dates. A plain date used as an
// upper bound covers the whole day.
func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		parsed = parsed.UTC()
		return &parsed, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		parsed = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return &parsed, nil
}
