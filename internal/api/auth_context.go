package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/snipstash/snipstash-server/internal/auth"
	domainerrors "github.com/snipstash/snipstash-server/internal/errors"
	"github.com/snipstash/snipstash-server/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// principalKey is the context key for the authenticated principal.
const principalKey ctxKey = "principal"

// GetPrincipal returns the authenticated principal from context.
// Returns 401 error if the request is not authenticated.
func GetPrincipal(ctx context.Context) (*auth.Principal, error) {
	p, ok := ctx.Value(principalKey).(*auth.Principal)
	if !ok || p == nil || p.UserID == "" {
		return nil, huma.Error401Unauthorized("Authentication required")
	}
	return p, nil
}

// GetUserID returns the authenticated user ID from context.
func GetUserID(ctx context.Context) (string, error) {
	p, err := GetPrincipal(ctx)
	if err != nil {
		return "", err
	}
	return p.UserID, nil
}

// RequireAdmin validates the caller is authenticated and an admin.
func RequireAdmin(ctx context.Context) (*auth.Principal, error) {
	p, err := GetPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin {
		return nil, domainerrors.Forbidden("Admin access required")
	}
	return p, nil
}

func setPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// authMiddleware resolves the caller from an X-API-Key header or a Bearer
// token and stores the principal in context. Bearer values with the sk_
// prefix are treated as API keys. Requests with missing or invalid
// credentials continue anonymously; handlers use GetPrincipal to reject them.
func authMiddleware(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := authenticate(r, authService)
			if principal == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(setPrincipal(r.Context(), principal)))
		})
	}
}

func authenticate(r *http.Request, authService *service.AuthService) *auth.Principal {
	if authService == nil {
		return nil
	}
	ctx := r.Context()

	if key := strings.TrimSpace(r.Header.Get(headerAPIKey)); key != "" {
		p, err := authService.VerifyAPIKey(ctx, key)
		if err != nil {
			return nil
		}
		return p
	}

	header := r.Header.Get(headerAuthorization)
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])

	var (
		p   *auth.Principal
		err error
	)
	if auth.LooksLikeAPIKey(token) {
		p, err = authService.VerifyAPIKey(ctx, token)
	} else {
		p, err = authService.VerifyAccessToken(ctx, token)
	}
	if err != nil {
		return nil
	}
	return p
}

// clientOrigin copies the X-Client-ID header into the request context so
// events triggered by the request name the client that caused them.
func clientOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerClientID))
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		if len(id) > 128 {
			id = id[:128]
		}
		next.ServeHTTP(w, r.WithContext(service.WithOrigin(r.Context(), id)))
	})
}
