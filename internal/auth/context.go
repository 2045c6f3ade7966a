// Package auth identifies browser clients with an anonymous id cookie
package auth

import (
	"context"
	"net/http"
)

type contextKey string

const (
	// ClientContextKey is the key used to store the client id in the context
	ClientContextKey contextKey = "client"

	// ClientCookieName is the name of the client id cookie
	ClientCookieName = "mediatranslate_client"
)

// WithClient stores the client id in the context
func WithClient(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ClientContextKey, id)
}

// ClientFromContext retrieves the client id from the context
func ClientFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ClientContextKey).(string)
	return id, ok && id != ""
}

// SetClientCookie sets the client id cookie
func SetClientCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400 * 30,
	})
}

// GetClientCookie gets the client id from the cookie
func GetClientCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(ClientCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
