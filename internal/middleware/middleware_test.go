package middleware

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-registry/pkg/errors"
	"github.com/jwalitptl/patient-registry/pkg/httputil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSession struct {
	err error
}

func (f fakeSession) DB() (*sqlx.DB, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sqlx.DB{}, nil
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func body(t *testing.T, w *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestRequireSession(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"ready", nil, http.StatusOK, ""},
		{"initializing", errors.NewUnavailable("initializing database", nil), http.StatusServiceUnavailable, "initializing database"},
		{"failed", errors.NewUnavailable("database initialization failed: disk full", nil), http.StatusServiceUnavailable, "database initialization failed: disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := gin.New()
			engine.Use(RequireSession(fakeSession{err: tt.err}))
			engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.status, w.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, body(t, w).Message)
			}
		})
	}
}

func TestClientID(t *testing.T) {
	engine := gin.New()
	engine.Use(ClientID())
	engine.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetClientID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXClientID, "tab-1")
	w := serve(engine, req)
	assert.Equal(t, "tab-1", w.Body.String())
	assert.Equal(t, "tab-1", w.Header().Get(HeaderXClientID))

	w = serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(HeaderXClientID))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXClientID, strings.Repeat("x", 200))
	w = serve(engine, req)
	assert.Len(t, w.Body.String(), 36, "oversized ids are replaced")
}

func TestRequestID(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	tests := []struct {
		name   string
		header string
		kept   bool
	}{
		{"supplied", "req-42", true},
		{"trace style", "00f067aa0ba902b7:1", true},
		{"missing", "", false},
		{"too long", strings.Repeat("a", 65), false},
		{"unsafe characters", "abc\tdef<script>", false},
		{"spaces", "two words", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(HeaderXRequestID, tt.header)
			}
			w := serve(engine, req)
			assert.Equal(t, w.Body.String(), w.Header().Get(HeaderXRequestID))
			if tt.kept {
				assert.Equal(t, tt.header, w.Body.String())
			} else {
				assert.Len(t, w.Body.String(), 36)
				assert.NotEqual(t, tt.header, w.Body.String())
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	engine := gin.New()
	engine.Use(ErrorHandler())
	engine.GET("/missing", func(c *gin.Context) {
		_ = c.Error(errors.NotFound("patient", nil))
	})
	engine.GET("/boom", func(c *gin.Context) {
		_ = c.Error(stderrors.New("connection reset"))
	})
	engine.GET("/written", func(c *gin.Context) {
		c.String(http.StatusAccepted, "done")
		_ = c.Error(stderrors.New("late failure"))
	})

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "patient not found", body(t, w).Message)

	w = serve(engine, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", body(t, w).Message, "internal details are not leaked")

	w = serve(engine, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "done", w.Body.String())
}

func TestRecovery(t *testing.T) {
	engine := gin.New()
	engine.Use(Recovery())
	engine.GET("/", func(c *gin.Context) { panic("nil map") })

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "error", body(t, w).Status)
}

func TestRateLimiterIsPerClient(t *testing.T) {
	engine := gin.New()
	engine.Use(NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1}).RateLimit())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	from := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		return serve(engine, req).Code
	}

	assert.Equal(t, http.StatusOK, from("10.0.0.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, from("10.0.0.1:1001"))
	assert.Equal(t, http.StatusOK, from("10.0.0.2:1000"))
}

func TestSizeLimit(t *testing.T) {
	engine := gin.New()
	engine.Use(SizeLimit(SizeLimitConfig{MaxBodySize: 8}))
	engine.POST("/", func(c *gin.Context) {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.String(http.StatusOK, string(data))
	})

	w := serve(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("tiny")))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tiny", w.Body.String())

	w = serve(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("far too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, body(t, w).Message, "exceeds 8 bytes")

	// Unknown length is capped while reading.
	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader("far too large")))
	req.ContentLength = -1
	w = serve(engine, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestVersion(t *testing.T) {
	engine := gin.New()
	engine.Use(Version(DefaultVersionConfig()))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1.0", w.Header().Get(HeaderAPIVersion))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderAcceptVersion, "2.0")
	w = serve(engine, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "API version 2.0 not supported", body(t, w).Message)
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"http://localhost:3000"}

	engine := gin.New()
	engine.Use(CORS(cfg))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := serve(engine, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w = serve(engine, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
