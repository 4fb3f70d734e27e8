package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"pairquiz-backend/internal/middleware"
)

func TestRequestID(t *testing.T) {
	var got string
	h := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = middleware.GetRequestID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if got == "" || rec.Header().Get("X-Request-ID") != got {
			t.Errorf("got request id %q, header %q", got, rec.Header().Get("X-Request-ID"))
		}
	})

	t.Run("propagated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "abc")
		h.ServeHTTP(rec, req)
		assertEqual(t, "abc", got)
		assertEqual(t, "abc", rec.Header().Get("X-Request-ID"))
	})
}

func TestSubprotocols(t *testing.T) {
	tests := []struct {
		name     string
		protocol string
		want     string
	}{
		{name: "bearer", protocol: "json, Bearer abc", want: "Bearer abc"},
		{name: "none", protocol: "json", want: ""},
		{name: "empty", protocol: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := middleware.Subprotocols(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
			}))
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.protocol != "" {
				req.Header.Set("Sec-WebSocket-Protocol", tt.protocol)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assertEqual(t, tt.want, got)
		})
	}
}

func TestChain(t *testing.T) {
	var order []string
	mw := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := middleware.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), mw("inner"), mw("outer"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assertEqual(t, 2, len(order))
	assertEqual(t, "outer", order[0])
	assertEqual(t, "inner", order[1])
}

func assertEqual(t *testing.T, want, got any) {
	t.Helper()
	if want != got {
		t.Errorf("assert equal: got %v (type %T), want %v (type %T)", got, got, want, want)
	}
}
