package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/phq9-intake/pkg/helpers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT() *helpers.JWTManager {
	return helpers.NewJWTManager("access-test", "refresh-test", time.Minute, time.Hour)
}

func TestRealIPPriority(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare", map[string]string{"CF-Connecting-IP": "203.0.113.7", "X-Forwarded-For": "198.51.100.1"}, "203.0.113.7"},
		{"forwarded left-most", map[string]string{"X-Forwarded-For": " 198.51.100.1 , 10.0.0.1"}, "198.51.100.1"},
		{"x-real-ip", map[string]string{"X-Real-IP": "198.51.100.9"}, "198.51.100.9"},
		{"garbage falls back", map[string]string{"CF-Connecting-IP": "not-an-ip"}, "192.0.2.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			var got string
			r.GET("/", RealIP(), func(c *gin.Context) { got = c.GetString("real_ip") })
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.0.2.1:4321"
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			r.ServeHTTP(httptest.NewRecorder(), req)
			if got != tc.want {
				t.Fatalf("real_ip=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.GET("/", RequestIDMiddleware(), func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Body.String() == "" || w.Header().Get(HeaderRequestID) != w.Body.String() {
		t.Fatalf("generated id not exposed: body=%q header=%q", w.Body.String(), w.Header().Get(HeaderRequestID))
	}

	const incoming = "6f9619ff-8b86-4011-b42d-00c04fc964ff"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, incoming)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != incoming {
		t.Fatalf("incoming id not kept: %q", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() == "<script>" {
		t.Fatalf("malformed id should be replaced")
	}
}

func TestAuth(t *testing.T) {
	jwt := newJWT()
	good, _, err := jwt.GenerateAccessToken("user-1", "sid-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	refresh, _, _ := jwt.GenerateRefreshToken("user-1", "sid-1")

	r := gin.New()
	r.GET("/me", Auth(nil, jwt), func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxUserIDKey)) })

	cases := []struct {
		name   string
		setup  func(*http.Request)
		status int
		body   string
	}{
		{"missing", func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"cookie", func(req *http.Request) { req.AddCookie(&http.Cookie{Name: helpers.AccessCookie, Value: good}) }, http.StatusOK, "user-1"},
		{"bearer", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+good) }, http.StatusOK, "user-1"},
		{"refresh token rejected", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+refresh) }, http.StatusUnauthorized, ""},
		{"garbage", func(req *http.Request) { req.Header.Set("Authorization", "Bearer abc") }, http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("status=%d, want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			if tc.body != "" && w.Body.String() != tc.body {
				t.Fatalf("body=%q, want %q", w.Body.String(), tc.body)
			}
		})
	}
}

func TestOptionalAuthNeverAborts(t *testing.T) {
	jwt := newJWT()
	r := gin.New()
	r.GET("/", OptionalAuth(nil, jwt), func(c *gin.Context) { c.String(http.StatusOK, "uid=%s", c.GetString(CtxUserIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "uid=" {
		t.Fatalf("unexpected %d %q", w.Code, w.Body.String())
	}

	tok, _, _ := jwt.GenerateAccessToken("user-2", "sid")
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: helpers.AccessCookie, Value: tok})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "uid=user-2" {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
}

func TestRateLimitWithoutRedisPassesThrough(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(nil, 1, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("request %d: status=%d", i, w.Code)
		}
	}
}

func TestKeyFuncs(t *testing.T) {
	r := gin.New()
	var byIP, byPath, byUser, anon string
	r.GET("/api/phq9/:id", RealIP(), func(c *gin.Context) {
		anon = KeyByUserID()(c)
		c.Set(CtxUserIDKey, "u-9")
		byIP, byPath, byUser = KeyByIP()(c), KeyByIPAndPath()(c), KeyByUserID()(c)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/phq9/42", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.3")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if byIP != "rl:ip:198.51.100.3" {
		t.Fatalf("byIP=%q", byIP)
	}
	if byPath != "rl:path:/api/phq9/:id:ip:198.51.100.3" {
		t.Fatalf("byPath=%q", byPath)
	}
	if byUser != "rl:user:u-9" || anon != "rl:user:anon:ip:198.51.100.3" {
		t.Fatalf("byUser=%q anon=%q", byUser, anon)
	}
}

func TestAllowPrivateIP(t *testing.T) {
	allow := AllowPrivateIP()
	cases := map[string]bool{"127.0.0.1": true, "10.1.2.3": true, "192.168.0.10": true, "203.0.113.5": false}
	for ip, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Set("real_ip", ip)
		if got := allow(c); got != want {
			t.Fatalf("AllowPrivateIP(%s)=%v, want %v", ip, got, want)
		}
	}
}
