package auth

import (
	"net/http"

	"github.com/google/uuid"
)

// RequireClient makes sure every request carries a client id. Requests
// without a valid cookie get a fresh id and the cookie is set on the response.
func RequireClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetClientCookie(r)
		if ok {
			if _, err := uuid.Parse(id); err != nil {
				ok = false
			}
		}
		if !ok {
			id = uuid.NewString()
			SetClientCookie(w, id, r.TLS != nil)
		}
		next.ServeHTTP(w, r.WithContext(WithClient(r.Context(), id)))
	})
}
