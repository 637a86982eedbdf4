// Package controller exposes the HTTP surface of the exec service.
package controller

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	appErr "wasmexec/pkg/errors"
	"wasmexec/pkg/utils/logger"
	"wasmexec/pkg/utils/response"

	"wasmexec/internal/exec/sandbox"
	"wasmexec/internal/exec/sandbox/result"
	"wasmexec/internal/exec/service"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

//go:embed usage.txt
var usageText string

const defaultMaxPayloadBytes = 32 << 20

// ExecController handles usage, log and execute requests.
type ExecController struct {
	svc             *service.Service
	maxPayloadBytes int64

	diagMu sync.Mutex
	diag   io.Writer
}

// Option adjusts controller construction.
type Option func(*ExecController)

// WithDiagWriter redirects the diagnostic stream, used by tests.
func WithDiagWriter(w io.Writer) Option {
	return func(h *ExecController) { h.diag = w }
}

// WithMaxPayloadBytes caps the accepted wasm payload size.
func WithMaxPayloadBytes(n int64) Option {
	return func(h *ExecController) {
		if n > 0 {
			h.maxPayloadBytes = n
		}
	}
}

// NewExecController creates a new controller.
func NewExecController(svc *service.Service, opts ...Option) *ExecController {
	h := &ExecController{
		svc:             svc,
		maxPayloadBytes: defaultMaxPayloadBytes,
		diag:            os.Stdout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Usage returns the service usage text.
func (h *ExecController) Usage(c *gin.Context) {
	response.Text(c, usageText)
}

// Log appends one UTF-8 message to the diagnostic stream.
func (h *ExecController) Log(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "failed to read request body")
		return
	}
	if !utf8.Valid(body) {
		response.ErrorWithCode(c, appErr.InvalidEncoding, "log message is not valid UTF-8")
		return
	}

	msg := strings.TrimRight(string(body), "\n")
	h.diagMu.Lock()
	fmt.Fprintf(h.diag, "[LOG] %s\n", msg)
	h.diagMu.Unlock()

	logger.Info(c.Request.Context(), "log message received", zap.Int("bytes", len(body)))
	response.Text(c, "Log entry recorded.\n")
}

// Execute runs the request body as a wasm payload and returns the report.
func (h *ExecController) Execute(c *gin.Context) {
	payload, err := h.readPayload(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(payload) == 0 {
		response.ErrorWithCode(c, appErr.PayloadEmpty, "")
		return
	}

	out, err := h.svc.Execute(c.Request.Context(), sandbox.Request{Payload: payload})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			response.ErrorWithCode(c, appErr.ExecutionCanceled, "request canceled before execution")
			return
		}
		response.Error(c, err)
		return
	}

	report := out.Report()
	if out.Status == result.StatusFailed {
		response.ErrorWithCode(c, out.ErrorCode(), report)
		return
	}
	response.Text(c, report)
}

func (h *ExecController) readPayload(c *gin.Context) ([]byte, error) {
	var reader io.Reader = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxPayloadBytes)

	if strings.EqualFold(c.GetHeader("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, appErr.New(appErr.InvalidParams).WithMessage("invalid gzip payload")
		}
		defer gz.Close()
		// The request cap above bounds only the compressed bytes. Bound
		// the decompressed stream to the same limit.
		reader = io.LimitReader(gz, h.maxPayloadBytes+1)
	}

	payload, err := io.ReadAll(reader)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, appErr.New(appErr.PayloadTooLarge).
				WithMessage(fmt.Sprintf("payload exceeds %d bytes", maxErr.Limit))
		}
		return nil, appErr.Wrap(err, appErr.InvalidParams).WithMessage("failed to read request body")
	}
	if int64(len(payload)) > h.maxPayloadBytes {
		return nil, appErr.New(appErr.PayloadTooLarge).
			WithMessage(fmt.Sprintf("payload exceeds %d bytes", h.maxPayloadBytes))
	}
	return payload, nil
}
