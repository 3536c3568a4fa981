package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"salonbook/internal/pkg/response"
)

// ErrorLogger logs failed requests and turns panics into INTERNAL_ERROR.
// Only panics carry a stack; handled 5xx responses are logged with the
// errors attached through c.Error.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				logRequestError(c, start, "panic", fmt.Sprintf("%v", recovered))
				log.Printf("level=error msg=request_panic_stack request_id=%s stack=%q", response.RequestID(c), debug.Stack())
				response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
				return
			}

			if len(c.Errors) == 0 {
				if c.Writer.Status() >= http.StatusInternalServerError {
					logRequestError(c, start, "http_error", fmt.Sprintf("status=%d", c.Writer.Status()))
				}
				return
			}

			for _, err := range c.Errors {
				logRequestError(c, start, fmt.Sprintf("%v", err.Type), err.Error())
			}
		}()

		c.Next()
	}
}

func logRequestError(c *gin.Context, start time.Time, errType string, message string) {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	log.Printf(
		"level=error msg=request_error type=%s status=%d method=%s route=%s user_id=%d role=%s request_id=%s trace_id=%s latency=%s error=%q",
		errType,
		c.Writer.Status(),
		c.Request.Method,
		route,
		c.GetInt64("user_id"),
		c.GetString("role"),
		response.RequestID(c),
		traceID(c),
		time.Since(start),
		message,
	)
}

// traceID reads the span otelgin opened for this request.
func traceID(c *gin.Context) string {
	sc := trace.SpanContextFromContext(c.Request.Context())
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
