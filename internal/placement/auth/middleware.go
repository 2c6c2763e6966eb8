package auth

import (
	"net/http"
)

// publicRoutes are reachable without a token, keyed by "METHOD path".
var publicRoutes = map[string]bool{
	"POST /v1/register": true,
	"GET /healthz":      true,
	"GET /metrics":      true,
}

// HTTPMiddleware authenticates every request except the public routes and
// stores the actor in the request context.
func HTTPMiddleware(next http.Handler, jwtSecret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicRoutes[r.Method+" "+r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, err := bearerToken(r.Header.Get("Authorization"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		actor, err := validateToken(tokenString, jwtSecret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}
