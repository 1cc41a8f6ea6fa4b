package idp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"breeder-exchange/internal/ports/auth"
)

var ErrTokenEmpty = errors.New("token is empty")

// Verifier implementa auth.AuthVerifier usando el IdP central de la plataforma.
// No se integra automáticamente; queda listo para instanciarse desde main/router.
type Verifier struct {
	client *Client
}

func NewVerifier(client *Client) *Verifier {
	return &Verifier{client: client}
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || v.client == nil {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	claims, err := v.client.VerifyToken(ctx, token)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("idp verify failed: %w", err)
	}

	if strings.TrimSpace(claims.TenantID) == "" {
		return auth.Claims{}, errors.New("idp claims missing tenant id")
	}
	return claims, nil
}
