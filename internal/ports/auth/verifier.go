package auth

import "context"

// AuthVerifier verifica un token y devuelve los claims (usuario +
// tenant) o error.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}
