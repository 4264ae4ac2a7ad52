package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/stockledger"
)

// codeNotFound is returned by the read routes. The write operations never
// produce it; a missing product on commit is a failed precondition.
const codeNotFound = "not-found"

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the stable code and a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind stockledger.Kind) int {
	switch kind {
	case stockledger.KindInvalidArgument:
		return http.StatusBadRequest
	case stockledger.KindFailedPrecondition:
		return http.StatusPreconditionFailed
	case stockledger.KindAlreadyExists:
		return http.StatusConflict
	case stockledger.KindPermissionDenied:
		return http.StatusForbidden
	case stockledger.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes err as an ErrorBody and stops the handler chain.
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)

	if stockledger.IsNotFound(err) && !hasKind(err) {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorBody{Error: ErrorDetail{
			Code:    codeNotFound,
			Message: err.Error(),
		}})
		return
	}

	kind := stockledger.KindOf(err)
	msg := err.Error()
	if kind == stockledger.KindInternal {
		var se *stockledger.Error
		if errors.As(err, &se) && se.Message != "" {
			msg = se.Message
		} else {
			msg = "internal error"
		}
	}

	c.AbortWithStatusJSON(StatusFor(kind), ErrorBody{Error: ErrorDetail{
		Code:    string(kind),
		Message: msg,
	}})
}

func hasKind(err error) bool {
	var se *stockledger.Error
	return errors.As(err, &se) && se.Kind != ""
}

func invalid(field, message string) error {
	return stockledger.ValidationError{Field: field, Message: message}
}
