// Package web holds the HTTP middleware: the error-translating request
// interceptor, access logging, metrics, auth, and body limits.
package web

import (
	"fmt"
	"runtime/debug"

	"github.com/acme/user-service/internal/problem"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// ErrorHandler is the single choke point for failures escaping request
// handlers. Handlers report failures with c.Error(err) and abort; panics are
// treated as unclassified failures. Mount it before any other middleware so
// it also covers failures they raise.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Panic recovered",
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"panic", r,
					"stack", string(debug.Stack()),
				)
				writeFailure(c, fmt.Errorf("panic: %v", r))
			}
		}()
		c.Next()

		if len(c.Errors) > 0 {
			writeFailure(c, c.Errors.Last().Err)
		}
	}
}

// writeFailure translates err, logs it once at the kind's severity, and
// writes the JSON body. It must not raise: translation is pure and gin's
// JSON rendering of a plain struct cannot fail.
func writeFailure(c *gin.Context, err error) {
	resp := problem.Translate(err)

	keyvals := []any{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", resp.Status,
		"code", resp.Extensions[problem.ExtensionCode],
		"err", err,
	}
	switch problem.Severity(err) {
	case log.DebugLevel:
		log.Debug("Request failed", keyvals...)
	case log.WarnLevel:
		log.Warn("Request failed", keyvals...)
	default:
		log.Error("Request failed", keyvals...)
	}

	if RequestFailuresTotal != nil {
		if code, ok := resp.Extensions[problem.ExtensionCode].(string); ok {
			RequestFailuresTotal.WithLabelValues(code).Inc()
		}
	}

	if c.Writer.Written() {
		return
	}
	c.Abort()
	c.JSON(resp.Status, resp)
}
