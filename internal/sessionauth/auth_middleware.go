package sessionauth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/gaslift/gaslift-backend/internal/serve/httperror"
)

type ContextType string

const SessionClaimsContextKey ContextType = "session_claims"

func GetSessionClaims(ctx context.Context) *SessionJWTClaims {
	claims := ctx.Value(SessionClaimsContextKey)
	if claims == nil {
		return nil
	}
	return claims.(*SessionJWTClaims)
}

// BearerTokenAuthenticateMiddleware is a middleware that validates the caller
// credential carried in the Authorization header and stores its claims in the
// request context. It answers "who is calling this service" only: the
// sessionProof that authorizes spending from a wallet travels in request
// bodies and is never derived from this header.
func BearerTokenAuthenticateMiddleware(jwtManager *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			authHeader := req.Header.Get("Authorization")
			if authHeader == "" {
				log.Ctx(ctx).Error("no authorization header was provided in the request")
				httperror.Unauthorized("", nil, nil).WithErrorCode(httperror.Code401_0).Render(rw)
				return
			}

			tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || tokenString == "" {
				log.Ctx(ctx).Error("the authorization header is not a bearer token")
				httperror.Unauthorized("", nil, nil).WithErrorCode(httperror.Code401_0).Render(rw)
				return
			}

			sessionClaims, err := jwtManager.ParseSessionTokenClaims(tokenString)
			if err != nil {
				err = fmt.Errorf("parsing the token claims: %w", err)
				log.Ctx(ctx).Error(err)
				httperror.Unauthorized("", err, nil).WithErrorCode(httperror.Code401_0).Render(rw)
				return
			}

			ctx = context.WithValue(ctx, SessionClaimsContextKey, sessionClaims)
			next.ServeHTTP(rw, req.WithContext(ctx))
		})
	}
}
