package main

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

const adminTokenHeader = "X-Admin-Token"

// adminGuard protects operator endpoints with a shared token. Only the
// token's digest is kept in memory.
type adminGuard struct {
	tokenHash []byte
}

func newAdminGuard(token string) *adminGuard {
	token = strings.TrimSpace(token)
	if token == "" {
		return &adminGuard{}
	}
	return &adminGuard{tokenHash: hashToken(token)}
}

func (a *adminGuard) enabled() bool {
	return len(a.tokenHash) > 0
}

func (a *adminGuard) authorized(r *http.Request) bool {
	provided := strings.TrimSpace(r.Header.Get(adminTokenHeader))
	if provided == "" {
		if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			provided = strings.TrimSpace(v)
		}
	}
	if provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare(a.tokenHash, hashToken(provided)) == 1
}

func (a *adminGuard) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled() {
			writeErrorJSON(w, http.StatusForbidden, "admin_disabled", "ADMIN_TOKEN is not configured")
			return
		}
		if !a.authorized(r) {
			writeErrorJSON(w, http.StatusUnauthorized, "unauthorized", "missing or invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hashToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}
