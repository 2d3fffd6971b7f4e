package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizmaster/profile-kit/pkg/auth"
	apperrors "github.com/quizmaster/profile-kit/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Status)
	return body.Message
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(w.Body.String())
	require.NoError(t, err)
	assert.Equal(t, w.Body.String(), w.Header().Get(HeaderXRequestID))

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, id)
	assert.Equal(t, id, serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "not-a-uuid\nforged")
	assert.NotEqual(t, "not-a-uuid\nforged", serve(r, req).Body.String())
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(zerolog.Nop()))
	r.GET("/validation", func(c *gin.Context) {
		c.Error(apperrors.Validation("invalid request body", errors.New("eof")))
	})
	r.GET("/upstream", func(c *gin.Context) {
		c.Error(apperrors.Upstream("profile API", errors.New("breaker open")))
	})
	r.GET("/plain", func(c *gin.Context) { c.Error(errors.New("secret detail")) })
	r.GET("/written", func(c *gin.Context) {
		c.Error(errors.New("late"))
		c.String(http.StatusAccepted, "done")
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/validation", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", message(t, w))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/upstream", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "internal server error", message(t, w))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", message(t, w))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestID(), Recovery(zerolog.New(&buf)))
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", message(t, w))
	assert.Contains(t, buf.String(), "request panic recovered")

	var body struct {
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, w.Header().Get(HeaderXRequestID), body.RequestID)
}

func TestLoggerOmitsBody(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(Logger(zerolog.New(&buf)))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	serve(r, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"password":"hunter22"}`)))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, float64(http.StatusNoContent), entry["status"])
	assert.NotContains(t, buf.String(), "hunter22")
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 0.01, Burst: 2})
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	from := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(r, req)
	}

	assert.Equal(t, http.StatusOK, from("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, from("10.0.0.1").Code)
	w := from("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "100", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, from("10.0.0.2").Code)
}

func TestRateLimiterZeroRate(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 0, Burst: 1})
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://app.quizmaster.test"}
	r := gin.New()
	r.Use(CORS(cfg))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.quizmaster.test")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.quizmaster.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://evil.test")
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Origin", "https://evil.test")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWildcardOriginWithCredentialsEchoesOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS(DefaultCORSConfig()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", serve(r, req).Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthenticate(t *testing.T) {
	const secret = "s"
	r := gin.New()
	r.Use(Authenticate(auth.NewParser(secret)))
	r.GET("/", func(c *gin.Context) {
		claims := c.MustGet(ContextClaims).(*auth.Claims)
		c.String(http.StatusOK, claims.UserID)
	})

	req := func(header string) *httptest.ResponseRecorder {
		rq := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			rq.Header.Set("Authorization", header)
		}
		return serve(r, rq)
	}

	w := req("")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing authorization header", message(t, w))

	w = req("Token abc")
	assert.Equal(t, "invalid authorization format", message(t, w))

	w = req("Bearer not-a-jwt")
	assert.Equal(t, "invalid token", message(t, w))

	expired, err := auth.Issue(secret, auth.Claims{
		UserID:           "u-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	}, 0)
	require.NoError(t, err)
	w = req("Bearer " + expired)
	assert.Equal(t, "token expired", message(t, w))

	valid, err := auth.Issue(secret, auth.Claims{UserID: "u-1"}, time.Hour)
	require.NoError(t, err)
	w = req("bearer " + valid)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", w.Body.String())
}

func TestSizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(SizeLimit(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("tiny")))
	assert.Equal(t, http.StatusOK, w.Code)
}
