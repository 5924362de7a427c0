package frontend

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

// TokenSource returns the accepted bearer tokens. An empty list disables authentication.
type TokenSource func() []string

func bearerAuth(tokens TokenSource, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accepted := tokens()
			if len(accepted) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || !tokenAccepted(strings.TrimSpace(token), accepted) {
				logger.Debug("request rejected", zap.String("path", r.URL.Path))
				writeJSON(w, http.StatusUnauthorized, rpcError(nil, &domain.ProtocolError{
					Code:    domain.ErrCodeInvalidRequest,
					Message: domain.ErrUnauthorized.Error(),
				}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenAccepted(token string, accepted []string) bool {
	if token == "" {
		return false
	}
	found := false
	for _, candidate := range accepted {
		if subtle.ConstantTimeCompare([]byte(token), []byte(candidate)) == 1 {
			found = true
		}
	}
	return found
}
