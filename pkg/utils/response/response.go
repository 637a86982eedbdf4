// Package response provides plain-text gin response helpers.
//
// The service speaks a text protocol: execution reports and error
// descriptions are human-readable text bodies, with the error taxonomy
// mapped onto HTTP status codes.
package response

import (
	"net/http"

	"wasmexec/pkg/errors"
	"wasmexec/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const contentType = "text/plain; charset=utf-8"

// Text sends a 200 response with a plain-text body.
func Text(c *gin.Context, body string) {
	c.Data(http.StatusOK, contentType, []byte(body))
}

// Error sends an error response, deriving the HTTP status from the error code.
func Error(c *gin.Context, err error) {
	customErr := errors.GetError(err)

	logger.Error(c.Request.Context(), "request error",
		zap.Int("code", int(customErr.Code)),
		zap.String("message", customErr.Error()),
		zap.Any("details", customErr.Details),
	)

	c.Data(customErr.Code.HTTPStatus(), contentType, []byte(customErr.Error()))
}

// ErrorWithCode sends an error response with a specific error code.
func ErrorWithCode(c *gin.Context, code errors.ErrorCode, message string) {
	if message == "" {
		message = code.Message()
	}

	logger.Error(c.Request.Context(), "request error",
		zap.Int("code", int(code)),
		zap.String("message", message),
	)

	c.Data(code.HTTPStatus(), contentType, []byte(message))
}

// BadRequest sends a 400 bad request error
func BadRequest(c *gin.Context, message string) {
	ErrorWithCode(c, errors.InvalidParams, message)
}

// NotFound sends a 404 not found error
func NotFound(c *gin.Context) {
	ErrorWithCode(c, errors.NotFound, "not found")
}
