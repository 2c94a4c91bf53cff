package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderXRequestID = "X-Request-ID"
	ContextRequestID = "request_id"

	// HeaderXClientID names the execution context a request comes from. A
	// browser tab or CLI keeps the same value for its whole lifetime.
	HeaderXClientID = "X-Client-ID"
	ContextClientID = "client_id"
)

// idHeader is an identifier a caller may supply in a request header. Values
// are echoed back and written to logs, so anything oversized or outside
// [A-Za-z0-9._:-] is replaced with a fresh uuid.
type idHeader struct {
	header string
	key    string
	maxLen int
}

var (
	requestIDHeader = idHeader{header: HeaderXRequestID, key: ContextRequestID, maxLen: 64}
	clientIDHeader  = idHeader{header: HeaderXClientID, key: ContextClientID, maxLen: 128}
)

func (h idHeader) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(h.header)
		if !validID(id, h.maxLen) {
			id = uuid.New().String()
		}
		c.Set(h.key, id)
		c.Header(h.header, id)
		c.Next()
	}
}

func validID(id string, maxLen int) bool {
	if id == "" || len(id) > maxLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		switch ch := id[i]; {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '-', ch == '_', ch == '.', ch == ':':
		default:
			return false
		}
	}
	return true
}

// RequestID tags each request with an id for log correlation.
func RequestID() gin.HandlerFunc {
	return requestIDHeader.handler()
}

// ClientID resolves the caller's execution context. Requests without one
// get a fresh id, echoed back so the caller can reuse it.
func ClientID() gin.HandlerFunc {
	return clientIDHeader.handler()
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextRequestID)
}

// GetClientID returns the id ClientID stored on the request.
func GetClientID(c *gin.Context) string {
	return c.GetString(ContextClientID)
}
