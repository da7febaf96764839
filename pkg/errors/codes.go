package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes follow the MODULE_NNN convention so the module can be recovered with
// ModuleForCode.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
	ErrCodeInvalidConfig      ErrorCode = "COMMON_017"
)

// Aliases used at call sites.
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeUnauthorized   = ErrCodeUnauthorized
	CodeForbidden      = ErrCodeForbidden
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeRateLimit      = ErrCodeTooManyRequests
	CodeNotImplemented = ErrCodeNotImplemented
	CodeOK             = ErrorCode("OK")
	CodeUnknown        = ErrorCode("UNKNOWN")

	CodeCaseNotFound     = ErrCodeCaseNotFound
	CodeGroupNotFound    = ErrCodeGroupNotFound
	CodeDocumentNotFound = ErrCodeDocumentNotFound
)

// Case Module Error Codes
const (
	ErrCodeCaseNotFound      ErrorCode = "CASE_001"
	ErrCodeCaseIDRequired    ErrorCode = "CASE_002"
	ErrCodeCaseIngestFailed  ErrorCode = "CASE_003"
	ErrCodeCaseViewMalformed ErrorCode = "CASE_004"
)

// Group Module Error Codes
const (
	ErrCodeGroupNotFound   ErrorCode = "GROUP_001"
	ErrCodeGroupIDRequired ErrorCode = "GROUP_002"
	ErrCodeGroupNotLoaded  ErrorCode = "GROUP_003"
)

// Document Module Error Codes
const (
	ErrCodeDocumentNotFound    ErrorCode = "DOC_001"
	ErrCodeDocumentPageInvalid ErrorCode = "DOC_002"
	ErrCodeDocumentURLFailed   ErrorCode = "DOC_003"
)

// Audit Feed Error Codes
const (
	ErrCodeFeedUnavailable   ErrorCode = "FEED_001"
	ErrCodeFeedPublish       ErrorCode = "FEED_002"
	ErrCodeFeedFilterInvalid ErrorCode = "FEED_003"
)

// Backend Collaborator Error Codes
const (
	ErrCodeBackendUnavailable ErrorCode = "BACKEND_001"
	ErrCodeBackendRejected    ErrorCode = "BACKEND_002"
	ErrCodeBackendDecode      ErrorCode = "BACKEND_003"
	ErrCodeStreamBroken       ErrorCode = "BACKEND_004"
)

// Infrastructure aliases.
const (
	CodeDBConnectionError = ErrCodeServiceUnavailable
	CodeCacheError        = ErrCodeCacheError
	CodeMessageQueueError = ErrCodeInternal
	CodeStorageError      = ErrCodeInternal
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeNotImplemented:     http.StatusNotImplemented,
	ErrCodeInvalidConfig:      http.StatusInternalServerError,

	ErrCodeCaseNotFound:      http.StatusNotFound,
	ErrCodeCaseIDRequired:    http.StatusBadRequest,
	ErrCodeCaseIngestFailed:  http.StatusBadGateway,
	ErrCodeCaseViewMalformed: http.StatusUnprocessableEntity,

	ErrCodeGroupNotFound:   http.StatusNotFound,
	ErrCodeGroupIDRequired: http.StatusBadRequest,
	ErrCodeGroupNotLoaded:  http.StatusConflict,

	ErrCodeDocumentNotFound:    http.StatusNotFound,
	ErrCodeDocumentPageInvalid: http.StatusBadRequest,
	ErrCodeDocumentURLFailed:   http.StatusBadGateway,

	ErrCodeFeedUnavailable:   http.StatusServiceUnavailable,
	ErrCodeFeedPublish:       http.StatusInternalServerError,
	ErrCodeFeedFilterInvalid: http.StatusBadRequest,

	ErrCodeBackendUnavailable: http.StatusBadGateway,
	ErrCodeBackendRejected:    http.StatusBadGateway,
	ErrCodeBackendDecode:      http.StatusBadGateway,
	ErrCodeStreamBroken:       http.StatusBadGateway,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",
	ErrCodeInvalidConfig:      "invalid configuration",

	ErrCodeCaseNotFound:      "case not found",
	ErrCodeCaseIDRequired:    "case id is required",
	ErrCodeCaseIngestFailed:  "case ingest failed",
	ErrCodeCaseViewMalformed: "case view is malformed",

	ErrCodeGroupNotFound:   "group not found",
	ErrCodeGroupIDRequired: "group id is required",
	ErrCodeGroupNotLoaded:  "group is not loaded for the active case",

	ErrCodeDocumentNotFound:    "document not found",
	ErrCodeDocumentPageInvalid: "invalid document page",
	ErrCodeDocumentURLFailed:   "failed to resolve document page url",

	ErrCodeFeedUnavailable:   "audit feed unavailable",
	ErrCodeFeedPublish:       "failed to publish audit events",
	ErrCodeFeedFilterInvalid: "invalid audit feed filter",

	ErrCodeBackendUnavailable: "decision backend unavailable",
	ErrCodeBackendRejected:    "decision backend rejected the request",
	ErrCodeBackendDecode:      "failed to decode decision backend response",
	ErrCodeStreamBroken:       "copilot stream interrupted",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
