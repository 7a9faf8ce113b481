package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/auth"
)

// SecurityHandler authenticates operational requests (kitchen status advance,
// payment confirmation) via HMAC-SHA256 hashed API keys.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Require is a middleware that rejects requests without a valid api_key
// header. The key is HMAC-SHA256 hashed with the pepper, looked up in the
// repository, and re-compared in constant time.
func (s *SecurityHandler) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("api_key")
		if key == "" {
			s.unauthorized(w)
			return
		}

		mac := hmac.New(sha256.New, s.pepper)
		mac.Write([]byte(key))
		hash := mac.Sum(nil)

		info, err := s.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
		if err != nil {
			s.unauthorized(w)
			return
		}

		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil {
			s.unauthorized(w)
			return
		}
		if subtle.ConstantTimeCompare(hash, stored) != 1 {
			s.unauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *SecurityHandler) unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{
		Code:    http.StatusUnauthorized,
		Message: "unauthorized",
	})
}
