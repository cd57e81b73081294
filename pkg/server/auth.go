package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// adminClaims are the bearer claims required to reach a policy-mutating
// endpoint. Only the signature and expiry are checked; this service has no
// notion of per-principal authorization beyond "holds a valid admin token".
type adminClaims struct {
	jwt.RegisteredClaims
}

// adminAuth validates an HS256 bearer token against secret. A nil/empty
// secret fails closed: every request to a wrapped handler is rejected,
// matching the teacher's "no validator configured" behavior rather than
// silently allowing admin operations when ADF_JWT_SIGNING_SECRET is unset.
func adminAuth(secret []byte, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(secret) == 0 {
			writeError(w, http.StatusUnauthorized, "admin authentication is not configured")
			return
		}

		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "missing or malformed Authorization header")
			return
		}

		claims := &adminClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid or expired admin token")
			return
		}

		next(w, r)
	}
}
