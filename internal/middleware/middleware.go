package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MadAppGang/httplog"
	"github.com/google/uuid"
	"github.com/rs/cors"
)

const routerName = "PairQuiz"

type Middleware func(next http.Handler) http.Handler

// Chain wraps h with mws, the first middleware being the innermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for _, mw := range mws {
		h = mw(h)
	}
	return h
}

// Defaults returns the middlewares applied to every route. Debug mode
// allows any origin and logs request and response bodies.
func Defaults(debug bool) []Middleware {
	return []Middleware{RequestID, CORS(debug).Handler, HTTPLogger(debug)}
}

func CORS(debug bool) *cors.Cors {
	if debug {
		return cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
		})
	}
	return cors.New(cors.Options{})
}

func HTTPLogger(debug bool) Middleware {
	if debug {
		return httplog.LoggerWithConfig(httplog.LoggerConfig{
			RouterName: routerName,
			Formatter: httplog.ChainLogFormatter(
				httplog.DefaultLogFormatter,
				httplog.RequestHeaderLogFormatter, httplog.RequestBodyLogFormatter,
				httplog.ResponseHeaderLogFormatter, httplog.ResponseBodyLogFormatter),
			CaptureBody: true,
		})
	}
	return httplog.LoggerWithConfig(httplog.LoggerConfig{
		RouterName: routerName,
		Formatter:  httplog.DefaultLogFormatter,
	})
}

type ctxKeyRequestID int

const RequestIDKey ctxKeyRequestID = 0

// RequestID propagates the X-Request-ID header, generating one if absent.
func RequestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)

		w.Header().Set("X-Request-ID", requestID)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request id stored by RequestID.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// Subprotocols reads the tokens smuggled inside Sec-WebSocket-Protocol
// and assign them to the Authorization header.
//
// This is one way to overcome the Browser clients API not being able to set
// additional headers in the websocket handshake.
//
// See https://stackoverflow.com/questions/4361173/http-headers-in-websockets-client-api
func Subprotocols(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subprotocols := r.Header.Get("Sec-WebSocket-Protocol")

		for _, protocol := range strings.Split(subprotocols, ",") {
			protocol = strings.TrimSpace(protocol)
			if token, ok := strings.CutPrefix(protocol, "Bearer "); ok {
				r.Header.Set("Authorization", "Bearer "+token)
			}
		}

		h.ServeHTTP(w, r)
	})
}
