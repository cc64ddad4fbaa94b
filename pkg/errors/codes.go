package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
)

// Aliases
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Molecule Module Error Codes
const (
	// ErrCodeMoleculeInvalidSMILES is the InvalidStructure kind: the input did
	// not parse to a usable molecule.
	ErrCodeMoleculeInvalidSMILES ErrorCode = "MOL_001"
	ErrCodeMoleculeParsingFailed ErrorCode = "MOL_006"
	ErrCodeMoleculeTooLarge      ErrorCode = "MOL_016"
	ErrCodeMoleculeInvalidLabel  ErrorCode = "MOL_017"
)

// Featurization Module Error Codes
const (
	ErrCodeFeatureConfigInvalid ErrorCode = "FEAT_001"
	ErrCodeDatasetReadFailed    ErrorCode = "FEAT_002"
	ErrCodeDatasetExportFailed  ErrorCode = "FEAT_003"
	ErrCodeStreamPublishFailed  ErrorCode = "FEAT_004"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,

	ErrCodeMoleculeInvalidSMILES: http.StatusUnprocessableEntity,
	ErrCodeMoleculeParsingFailed: http.StatusUnprocessableEntity,
	ErrCodeMoleculeTooLarge:      http.StatusRequestEntityTooLarge,
	ErrCodeMoleculeInvalidLabel:  http.StatusUnprocessableEntity,

	ErrCodeFeatureConfigInvalid: http.StatusInternalServerError,
	ErrCodeDatasetReadFailed:    http.StatusBadRequest,
	ErrCodeDatasetExportFailed:  http.StatusBadGateway,
	ErrCodeStreamPublishFailed:  http.StatusBadGateway,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",

	ErrCodeMoleculeInvalidSMILES: "invalid molecular structure",
	ErrCodeMoleculeParsingFailed: "failed to parse molecule",
	ErrCodeMoleculeTooLarge:      "molecule exceeds atom limit",
	ErrCodeMoleculeInvalidLabel:  "invalid label",

	ErrCodeFeatureConfigInvalid: "invalid featurizer configuration",
	ErrCodeDatasetReadFailed:    "failed to read dataset",
	ErrCodeDatasetExportFailed:  "failed to export dataset",
	ErrCodeStreamPublishFailed:  "failed to publish to stream",
}

// HTTPStatus returns the HTTP status for code, defaulting to 500.
func HTTPStatus(code ErrorCode) int {
	if s, ok := ErrorCodeHTTPStatus[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// DefaultMessage returns the default message for code.
func DefaultMessage(code ErrorCode) string {
	if m, ok := ErrorCodeMessage[code]; ok {
		return m
	}
	return "unknown error"
}

// Module returns the module prefix of a code ("MOL", "FEAT", "COMMON").
func (c ErrorCode) Module() string {
	s := string(c)
	if i := strings.IndexByte(s, '_'); i > 0 {
		return s[:i]
	}
	return s
}
