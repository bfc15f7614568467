package main

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"autoHunterBack/internal/handlers"
)

// internalTokenTTL bounds the fast-path tokens minted after a full identity
// check, so a stolen one ages out quickly.
const internalTokenTTL = 15 * time.Minute

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Frame-Options", "deny")
		next.ServeHTTP(w, r)
	})
}

func makeResponseJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.infoLog.Printf("%s - %s %s %s", r.RemoteAddr, r.Proto, r.Method, r.URL.RequestURI())
		next.ServeHTTP(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, fmt.Errorf("%s", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (app *application) serverError(w http.ResponseWriter, err error) {
	app.errorLog.Output(2, err.Error())
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// requireAuth resolves the caller's identity. The cheap path is the internal
// x-auth-token minted by a previous request; otherwise the Firebase ID token
// in the Authorization header is verified, and a fresh internal token is
// handed back in the response headers.
func (app *application) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if internal := r.Header.Get("x-auth-token"); internal != "" {
			if uid, err := app.tokens.Parse(internal); err == nil {
				next.ServeHTTP(w, r.WithContext(withUID(r.Context(), uid)))
				return
			}
			// Fall through to the full check; the token may simply have
			// expired.
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, "Authorization header missing or invalid", http.StatusUnauthorized)
			return
		}
		idToken := strings.TrimPrefix(authHeader, "Bearer ")

		decoded, err := app.authClient.VerifyIDToken(r.Context(), idToken)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		if fresh, err := app.tokens.NewJWT(decoded.UID, internalTokenTTL); err == nil {
			w.Header().Set("x-auth-token", fresh)
		}
		next.ServeHTTP(w, r.WithContext(withUID(r.Context(), decoded.UID)))
	})
}

// requireScraperSecret gates worker endpoints behind the shared secret,
// compared in constant time.
func (app *application) requireScraperSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get("x-api-secret")
		expected := app.cfg.Internal.APISecret
		if expected == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(expected)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, handlers.ContextKeyUID, uid)
}
