package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/patient-registry/pkg/httputil"
)

// ErrorHandler renders the last error a handler attached with c.Error.
// Handlers that already wrote a response are left alone.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only handle errors if they exist
		if len(c.Errors) == 0 {
			return
		}

		requestID := GetRequestID(c)
		lastErr := c.Errors.Last()
		status, resp := httputil.ErrorResponse(lastErr.Err)

		event := log.Warn()
		if status >= 500 {
			event = log.Error()
		}
		event.
			Err(lastErr.Err).
			Str("request_id", requestID).
			Str("client_id", GetClientID(c)).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Int("status", status).
			Msg("Request error")

		if c.Writer.Written() {
			return
		}
		c.JSON(status, resp)
	}
}
