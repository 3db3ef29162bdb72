package response

import (
	"errors"

	"github.com/fatflowers/coiffeur/pkg/types"
)

type APIResponseCode int

const (
	APIResponseCodeOK           APIResponseCode = 0
	APIResponseCodeBadRequest   APIResponseCode = 40000
	APIResponseCodeUnauthorized APIResponseCode = 40100
	APIResponseCodeForbidden    APIResponseCode = 40300
	APIResponseCodeNotFound     APIResponseCode = 40400
	APIResponseCodeConflict     APIResponseCode = 40900
	APIResponseCodeError        APIResponseCode = 50000
)

var codeToMsg = map[APIResponseCode]string{
	APIResponseCodeOK:           "ok",
	APIResponseCodeBadRequest:   "bad request",
	APIResponseCodeUnauthorized: "unauthorized",
	APIResponseCodeForbidden:    "forbidden",
	APIResponseCodeNotFound:     "not found",
	APIResponseCodeConflict:     "conflict",
	APIResponseCodeError:        "internal error",
}

// APIResponse is the generic response envelope used by HTTP APIs.
// Use OKT / ErrorT helpers to construct instances.
type APIResponse[T any] struct {
	Code    APIResponseCode `json:"code"`
	Message string          `json:"message"`
	Data    T               `json:"data"`
}

// OKT returns a successful response with data.
func OKT[T any](data T) *APIResponse[T] {
	return &APIResponse[T]{Code: APIResponseCodeOK, Message: codeToMsg[APIResponseCodeOK], Data: data}
}

// ErrorT returns an error response with message and optional data.
func ErrorT[T any](code APIResponseCode, data T) *APIResponse[T] {
	return &APIResponse[T]{Code: code, Message: codeToMsg[code], Data: data}
}

// CodeFor maps a service error to an envelope code.
func CodeFor(err error) APIResponseCode {
	switch {
	case err == nil:
		return APIResponseCodeOK
	case errors.Is(err, types.ErrNotFound):
		return APIResponseCodeNotFound
	case errors.Is(err, types.ErrDuplicatePending),
		errors.Is(err, types.ErrDuplicateSalon),
		errors.Is(err, types.ErrConcurrentUpdate):
		return APIResponseCodeConflict
	case errors.Is(err, types.ErrInvalidInput):
		return APIResponseCodeBadRequest
	default:
		return APIResponseCodeError
	}
}

// FromError builds the error envelope for err. Storage failures never leak
// driver details to the caller.
func FromError(err error) *APIResponse[any] {
	code := CodeFor(err)
	if code == APIResponseCodeError {
		return ErrorT[any](code, nil)
	}
	return ErrorT[any](code, err.Error())
}
