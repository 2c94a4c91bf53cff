package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-registry/pkg/errors"
	"github.com/jwalitptl/patient-registry/pkg/httputil"
)

const (
	HeaderAcceptVersion = "Accept-Version"
	HeaderAPIVersion    = "X-API-Version"
)

// VersionConfig represents version middleware configuration
type VersionConfig struct {
	Current   string
	Supported []string
}

func DefaultVersionConfig() VersionConfig {
	return VersionConfig{
		Current:   "1.0",
		Supported: []string{"1.0"},
	}
}

// Version stamps every response with the API version and rejects requests
// asking for one this server does not speak. Requests without an
// Accept-Version header get the current version.
func Version(config VersionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header(HeaderAPIVersion, config.Current)

		requested := c.GetHeader(HeaderAcceptVersion)
		if requested != "" && !supported(config.Supported, requested) {
			httputil.RespondWithError(c, &errors.AppError{
				Code:    errors.ErrBadRequest,
				Message: "API version " + requested + " not supported",
			})
			return
		}

		c.Next()
	}
}

func supported(versions []string, v string) bool {
	for _, s := range versions {
		if s == v {
			return true
		}
	}
	return false
}
