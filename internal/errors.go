package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrorType is the type declared by the code that raised the error.
type ErrorType string

const (
	ErrorTypeValidation         ErrorType = "validation_error"
	ErrorTypeNotFound           ErrorType = "not_found"
	ErrorTypeUnauthorized       ErrorType = "unauthorized"
	ErrorTypeForbidden          ErrorType = "forbidden"
	ErrorTypeConflict           ErrorType = "conflict"
	ErrorTypeUnprocessable      ErrorType = "unprocessable_entity"
	ErrorTypeServiceUnavailable ErrorType = "service_unavailable"
	ErrorTypeTimeout            ErrorType = "timeout"
	ErrorTypeInternal           ErrorType = "internal_server_error"
)

// ErrorCategory is inferred from the declared type and drives retry policy.
type ErrorCategory string

const (
	CategoryValidation         ErrorCategory = "validation"
	CategoryNotFound           ErrorCategory = "not_found"
	CategoryAuthentication     ErrorCategory = "authentication"
	CategoryAuthorization      ErrorCategory = "authorization"
	CategoryConflict           ErrorCategory = "conflict"
	CategoryBusinessRule       ErrorCategory = "business_rule"
	CategoryExternalDependency ErrorCategory = "external_dependency"
	CategorySystem             ErrorCategory = "system"
)

// ErrorReason is the closed set of fine-grained failure reasons.
type ErrorReason string

const (
	ReasonAlreadyProcessed     ErrorReason = "already_processed"
	ReasonAccountInactive      ErrorReason = "account_inactive"
	ReasonAccountFrozen        ErrorReason = "account_frozen"
	ReasonAccountSuspended     ErrorReason = "account_suspended"
	ReasonUnauthorizedAccess   ErrorReason = "unauthorized_access"
	ReasonAmountTooSmall       ErrorReason = "amount_too_small"
	ReasonAmountExceedsLimit   ErrorReason = "amount_exceeds_limit"
	ReasonDescriptionRequired  ErrorReason = "description_required"
	ReasonDescriptionTooLong   ErrorReason = "description_too_long"
	ReasonInsufficientFunds    ErrorReason = "insufficient_funds"
	ReasonDailyLimitExceeded   ErrorReason = "daily_limit_exceeded"
	ReasonDuplicateTransaction ErrorReason = "duplicate_transaction"
	ReasonPaymentNotFound      ErrorReason = "payment_not_found"
	ReasonAccountNotFound      ErrorReason = "account_not_found"
	ReasonLoginNotFound        ErrorReason = "login_not_found"
	ReasonBankUnavailable      ErrorReason = "bank_unavailable"
	ReasonBankTimeout          ErrorReason = "bank_timeout"
	ReasonStorageFailure       ErrorReason = "storage_failure"
	ReasonPanic                ErrorReason = "panic"
	ReasonJobTimeout           ErrorReason = "job_timeout"
	ReasonUnknown              ErrorReason = "unknown"
)

var typeCategories = map[ErrorType]ErrorCategory{
	ErrorTypeValidation:         CategoryValidation,
	ErrorTypeNotFound:           CategoryNotFound,
	ErrorTypeUnauthorized:       CategoryAuthentication,
	ErrorTypeForbidden:          CategoryAuthorization,
	ErrorTypeConflict:           CategoryConflict,
	ErrorTypeUnprocessable:      CategoryBusinessRule,
	ErrorTypeServiceUnavailable: CategoryExternalDependency,
	ErrorTypeTimeout:            CategoryExternalDependency,
	ErrorTypeInternal:           CategorySystem,
}

// Classify maps a declared error type to its category. Unknown types are
// treated as system failures.
func Classify(t ErrorType) ErrorCategory {
	if c, ok := typeCategories[t]; ok {
		return c
	}
	return CategorySystem
}

// RetryPolicy is the per-category retry behaviour applied when the raising
// site does not override it.
type RetryPolicy struct {
	Retryable    bool
	RetryDelay   time.Duration
	MaxAttempts  int
	CircuitBreak bool
}

var categoryPolicies = map[ErrorCategory]RetryPolicy{
	CategoryExternalDependency: {Retryable: true, RetryDelay: 1000 * time.Millisecond, MaxAttempts: 3, CircuitBreak: true},
	CategorySystem:             {Retryable: true, RetryDelay: 500 * time.Millisecond, MaxAttempts: 2, CircuitBreak: true},
	CategoryValidation:         {},
	CategoryBusinessRule:       {},
	CategoryConflict:           {},
	CategoryNotFound:           {},
	CategoryAuthentication:     {},
	CategoryAuthorization:      {},
}

// PolicyFor returns the retry policy for a category. Categories without an
// entry are non-retryable.
func PolicyFor(category ErrorCategory) RetryPolicy {
	return categoryPolicies[category]
}

func IsRetryable(category ErrorCategory) bool {
	return categoryPolicies[category].Retryable
}

func RetryDelay(category ErrorCategory) time.Duration {
	return categoryPolicies[category].RetryDelay
}

func MaxAttempts(category ErrorCategory) int {
	return categoryPolicies[category].MaxAttempts
}

func ShouldCircuitBreak(category ErrorCategory) bool {
	return categoryPolicies[category].CircuitBreak
}

// AppError is a categorized error value. It is transient: logged, returned
// and emitted to telemetry but never persisted.
type AppError struct {
	Type          ErrorType              `json:"type"`
	Reason        ErrorReason            `json:"reason"`
	Category      ErrorCategory          `json:"category"`
	Message       string                 `json:"message"`
	Retryable     bool                   `json:"retryable"`
	CircuitBreak  bool                   `json:"circuit_breaker"`
	Context       map[string]interface{} `json:"context,omitempty"`
	CorrelationID string                 `json:"correlation_id"`
	Timestamp     time.Time              `json:"timestamp"`
	Cause         error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithContext attaches a key/value to the error's context map.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *AppError) WithCorrelationID(id string) *AppError {
	if id != "" {
		e.CorrelationID = id
	}
	return e
}

// WithRetryable overrides the category default. An override may only
// downgrade retryability, never upgrade past category policy.
func (e *AppError) WithRetryable(retryable bool) *AppError {
	if !retryable {
		e.Retryable = false
	}
	return e
}

// ErrorEvent is what the telemetry hook receives for every constructed error.
type ErrorEvent struct {
	Type          ErrorType
	Reason        ErrorReason
	Category      ErrorCategory
	Retryable     bool
	CircuitBreak  bool
	CorrelationID string
	Source        string
	Timestamp     time.Time
}

// errorTelemetry is installed once at startup; emission is fire-and-forget
// and must never block or fail error construction.
var errorTelemetry func(ErrorEvent)

func SetErrorTelemetry(fn func(ErrorEvent)) {
	errorTelemetry = fn
}

func newError(t ErrorType, reason ErrorReason, message string) *AppError {
	category := Classify(t)
	policy := categoryPolicies[category]

	e := &AppError{
		Type:          t,
		Reason:        reason,
		Category:      category,
		Message:       message,
		Retryable:     policy.Retryable,
		CircuitBreak:  policy.CircuitBreak,
		CorrelationID: uuid.NewString(),
		Timestamp:     time.Now().UTC(),
	}

	if errorTelemetry != nil {
		errorTelemetry(ErrorEvent{
			Type:          e.Type,
			Reason:        e.Reason,
			Category:      e.Category,
			Retryable:     e.Retryable,
			CircuitBreak:  e.CircuitBreak,
			CorrelationID: e.CorrelationID,
			Source:        "error_constructor",
			Timestamp:     e.Timestamp,
		})
	}

	return e
}

func NewValidationError(reason ErrorReason, message string) *AppError {
	return newError(ErrorTypeValidation, reason, message)
}

func NewNotFoundError(reason ErrorReason, message string) *AppError {
	return newError(ErrorTypeNotFound, reason, message)
}

func NewUnauthorizedError(reason ErrorReason, message string) *AppError {
	return newError(ErrorTypeUnauthorized, reason, message)
}

func NewForbiddenError(reason ErrorReason, message string) *AppError {
	return newError(ErrorTypeForbidden, reason, message)
}

func NewConflictError(reason ErrorReason, message string) *AppError {
	return newError(ErrorTypeConflict, reason, message)
}

func NewBusinessRuleError(reason ErrorReason, message string) *AppError {
	return newError(ErrorTypeUnprocessable, reason, message)
}

func NewExternalError(reason ErrorReason, message string, cause error) *AppError {
	return newError(ErrorTypeServiceUnavailable, reason, message).WithCause(cause)
}

func NewTimeoutError(reason ErrorReason, message string, cause error) *AppError {
	return newError(ErrorTypeTimeout, reason, message).WithCause(cause)
}

func NewSystemError(reason ErrorReason, message string, cause error) *AppError {
	return newError(ErrorTypeInternal, reason, message).WithCause(cause)
}

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

// AsAppError returns err as an AppError, wrapping anything uncategorized as
// a system error so raw failures never cross a worker boundary.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := IsAppError(err); ok {
		return appErr
	}
	return NewSystemError(ReasonUnknown, "unclassified error", err)
}

var categoryStatusCodes = map[ErrorCategory]int{
	CategoryValidation:         http.StatusBadRequest,
	CategoryNotFound:           http.StatusNotFound,
	CategoryAuthentication:     http.StatusUnauthorized,
	CategoryAuthorization:      http.StatusForbidden,
	CategoryConflict:           http.StatusConflict,
	CategoryBusinessRule:       http.StatusUnprocessableEntity,
	CategoryExternalDependency: http.StatusServiceUnavailable,
	CategorySystem:             http.StatusInternalServerError,
}

// HTTPStatus maps the error category to a response status for synchronous
// callers.
func (e *AppError) HTTPStatus() int {
	if code, ok := categoryStatusCodes[e.Category]; ok {
		return code
	}
	return http.StatusInternalServerError
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.HTTPStatus(), Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type          ErrorType              `json:"type"`
		Reason        ErrorReason            `json:"reason"`
		Category      ErrorCategory          `json:"category"`
		Message       string                 `json:"message"`
		Retryable     bool                   `json:"retryable"`
		CorrelationID string                 `json:"correlation_id"`
		Context       map[string]interface{} `json:"context,omitempty"`
	}{
		Type:          e.Type,
		Reason:        e.Reason,
		Category:      e.Category,
		Message:       e.Message,
		Retryable:     e.Retryable,
		CorrelationID: e.CorrelationID,
		Context:       e.Context,
	})
}
