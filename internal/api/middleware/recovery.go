package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kiranshivaraju/feedbackhub/internal/api/response"
)

// Recovery turns a handler panic into the 500 envelope. http.ErrAbortHandler
// is re-raised so the server can abort the connection.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, _ := withCaller(r.Context())
		defer func() {
			rv := recover()
			if rv == nil {
				return
			}
			if rv == http.ErrAbortHandler {
				panic(rv)
			}
			attrs := append([]any{
				"panic", rv,
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", chimw.GetReqID(ctx),
				"stack", string(debug.Stack()),
			}, callerAttrs(ctx)...)
			slog.Error("handler panicked", attrs...)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "An unexpected error occurred", nil)
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
