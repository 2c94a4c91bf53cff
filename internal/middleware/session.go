package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/patient-registry/pkg/httputil"
)

// SessionSource is the part of session.Provider the middleware needs.
type SessionSource interface {
	DB() (*sqlx.DB, error)
}

// RequireSession answers 503 until the database session is ready, and for
// good once it has failed.
func RequireSession(source SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := source.DB(); err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		c.Next()
	}
}
