package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/storehouse/internal/config"
	"github.com/iliyamo/storehouse/internal/metrics"
	"github.com/iliyamo/storehouse/internal/model"
	"github.com/iliyamo/storehouse/internal/repository"
	"github.com/iliyamo/storehouse/internal/utils"
)

const secret = "test-secret"

type fakeUsers map[string]model.User

func (f fakeUsers) GetByPublicID(_ context.Context, id string) (model.User, error) {
	if id == "broken" {
		return model.User{}, errors.New("db down")
	}
	u, ok := f[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func token(t *testing.T, sub string, ttl time.Duration) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, sub, ttl)
	if err != nil {
		t.Fatal(err)
	}
	return at.Token
}

func TestTokenRequired(t *testing.T) {
	users := fakeUsers{"pub-1": {ID: 1, PublicID: "pub-1", Name: "ann"}}
	handler := WithUser(func(c echo.Context, u *model.User) error {
		return c.String(http.StatusOK, u.Name)
	})
	e := echo.New()
	e.DELETE("/user/:id", handler, TokenRequired(secret, "", users))
	e.DELETE("/custom/:id", handler, TokenRequired(secret, "X-Access-Token", users))

	tests := []struct {
		name     string
		path     string
		header   string
		value    string
		wantCode int
		wantBody string
	}{
		{"missing", "/user/1", "", "", http.StatusUnauthorized, "token is missing"},
		{"bearer only", "/user/1", echo.HeaderAuthorization, "Bearer ", http.StatusUnauthorized, "token is missing"},
		{"garbage", "/user/1", echo.HeaderAuthorization, "Bearer abc", http.StatusUnauthorized, "token is invalid"},
		{"expired", "/user/1", echo.HeaderAuthorization, token(t, "pub-1", -time.Minute), http.StatusUnauthorized, "token is invalid"},
		{"unknown subject", "/user/1", echo.HeaderAuthorization, token(t, "ghost", time.Minute), http.StatusUnauthorized, "token is invalid"},
		{"bare token", "/user/1", echo.HeaderAuthorization, token(t, "pub-1", time.Minute), http.StatusOK, "ann"},
		{"bearer token", "/user/1", echo.HeaderAuthorization, "Bearer " + token(t, "pub-1", time.Minute), http.StatusOK, "ann"},
		{"custom header", "/custom/1", "X-Access-Token", token(t, "pub-1", time.Minute), http.StatusOK, "ann"},
		{"custom header ignores authorization", "/custom/1", echo.HeaderAuthorization, token(t, "pub-1", time.Minute), http.StatusUnauthorized, "token is missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestTokenRequiredLookupFailure(t *testing.T) {
	e := echo.New()
	e.GET("/me", WithUser(func(c echo.Context, u *model.User) error {
		return c.NoContent(http.StatusOK)
	}), TokenRequired(secret, "", fakeUsers{}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, token(t, "broken", time.Minute))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestWithUserWithoutToken(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	called := false
	err := WithUser(func(echo.Context, *model.User) error {
		called = true
		return nil
	})(c)
	if err != nil || called {
		t.Errorf("WithUser ran handler without user: err=%v called=%v", err, called)
	}
	if c.Response().Status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", c.Response().Status)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/videos", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/videos")

	tests := map[string]string{
		"ip":         "rl:ip:10.0.0.1",
		"user":       "rl:user:anon",
		"route":      "rl:route:GET /videos",
		"ip_route":   "rl:ip:10.0.0.1:route:GET /videos",
		"user_route": "rl:user:anon:route:GET /videos",
		"":           "rl:ip:10.0.0.1:user:anon:route:GET /videos",
	}
	for strategy, want := range tests {
		got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
		if got != want {
			t.Errorf("strategy %q: key = %q, want %q", strategy, got, want)
		}
	}

	c.Set(userKey, &model.User{PublicID: "pub-9"})
	if got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c); got != "rl:user:pub-9" {
		t.Errorf("authenticated key = %q", got)
	}
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil))
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
}

// limitedEcho serves GET /ping behind the token bucket, backed by an
// in-process Redis.
func limitedEcho(t *testing.T, cfg config.RateLimitConfig) (*echo.Echo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	e := echo.New()
	e.Use(TokenSubject(secret, ""))
	e.Use(NewTokenBucket(cfg, rdb))
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	return e, mr
}

func TestTokenBucketRejectsWhenEmpty(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	e, mr := limitedEcho(t, cfg)
	hits := metrics.RateLimitHits.WithLabelValues("/ping")
	before := testutil.ToFloat64(hits)

	tests := []struct {
		wantCode      int
		wantRemaining string
	}{
		{http.StatusNoContent, "1"},
		{http.StatusNoContent, "0"},
		{http.StatusTooManyRequests, "0"},
	}
	for i, tt := range tests {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != tt.wantCode {
			t.Fatalf("request %d: status = %d, want %d", i+1, rec.Code, tt.wantCode)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
			t.Errorf("request %d: X-RateLimit-Limit = %q", i+1, got)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != tt.wantRemaining {
			t.Errorf("request %d: X-RateLimit-Remaining = %q, want %q", i+1, got, tt.wantRemaining)
		}
		if tt.wantCode != http.StatusTooManyRequests {
			continue
		}
		secs, err := strconv.Atoi(rec.Header().Get("Retry-After"))
		if err != nil || secs < 1 {
			t.Errorf("Retry-After = %q, want >= 1", rec.Header().Get("Retry-After"))
		}
		if !strings.Contains(rec.Body.String(), "rate limit exceeded") {
			t.Errorf("body = %s", rec.Body)
		}
	}

	if got := testutil.ToFloat64(hits) - before; got != 1 {
		t.Errorf("rate limit hits delta = %v, want 1", got)
	}
	key := "rl:ip:192.0.2.1"
	if !mr.Exists(key) {
		t.Fatalf("bucket %q not stored; keys = %v", key, mr.Keys())
	}
	if ttl := mr.TTL(key); ttl <= 0 || ttl > cfg.TTL {
		t.Errorf("bucket TTL = %s, want (0, %s]", ttl, cfg.TTL)
	}

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.2")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("other ip: status = %d, want 204", rec.Code)
	}
}

func TestTokenBucketFailsOpen(t *testing.T) {
	e, mr := limitedEcho(t, config.RateLimitConfig{
		Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Minute,
		TTL: 10 * time.Minute, KeyStrategy: "ip", Prefix: "rl",
	})
	mr.Close()

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d with redis down: status = %d", i+1, rec.Code)
		}
	}
}

func TestTokenBucketKeysOnTokenSubject(t *testing.T) {
	e, _ := limitedEcho(t, config.RateLimitConfig{
		Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Minute,
		TTL: 10 * time.Minute, KeyStrategy: "user", Prefix: "rl",
	})
	ann := "Bearer " + token(t, "pub-ann", time.Hour)
	bob := token(t, "pub-bob", time.Hour)
	forged, err := utils.NewAccessToken("other-secret", "pub-ann", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		name     string
		auth     string
		wantCode int
	}{
		{"ann first", ann, http.StatusNoContent},
		{"ann again", ann, http.StatusTooManyRequests},
		{"bob has his own bucket", bob, http.StatusNoContent},
		{"anonymous first", "", http.StatusNoContent},
		{"anonymous again", "", http.StatusTooManyRequests},
		{"forged token counts as anonymous", forged.Token, http.StatusTooManyRequests},
	}
	for _, st := range steps {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		if st.auth != "" {
			req.Header.Set(echo.HeaderAuthorization, st.auth)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != st.wantCode {
			t.Errorf("%s: status = %d, want %d", st.name, rec.Code, st.wantCode)
		}
	}
}

func TestTokenSubjectNeverRejects(t *testing.T) {
	e := echo.New()
	e.Use(TokenSubject(secret, ""))
	e.GET("/who", func(c echo.Context) error { return c.String(http.StatusOK, userID(c)) })

	tests := []struct {
		name, auth, want string
	}{
		{"none", "", "anon"},
		{"bare bearer", "Bearer", "anon"},
		{"garbage", "Bearer not-a-jwt", "anon"},
		{"expired", token(t, "pub-old", -time.Minute), "anon"},
		{"valid", "Bearer " + token(t, "pub-1", time.Hour), "pub-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			if tt.auth != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.auth)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK || rec.Body.String() != tt.want {
				t.Errorf("status = %d, user = %q, want %q", rec.Code, rec.Body, tt.want)
			}
		})
	}
}

func TestAsInt64(t *testing.T) {
	tests := []struct {
		in   any
		want int64
	}{
		{int64(3), 3}, {int(4), 4}, {float64(5.9), 5}, {"6", 6}, {"x", 0}, {nil, 0},
	}
	for _, tt := range tests {
		if got := asInt64(tt.in); got != tt.want {
			t.Errorf("asInt64(%#v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMetricsMiddlewareRecordsRenderedStatus(t *testing.T) {
	e := echo.New()
	e.Use(Metrics())
	e.GET("/boom/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	counter := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/boom/:id", "418")
	before := testutil.ToFloat64(counter)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom/1", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("counter delta = %v, want 1", got)
	}
}
