package identity

import "context"

type Repository interface {
	CreateIdentity(ctx context.Context, gi GlobalIdentity) error
	UpdateIdentity(ctx context.Context, gi GlobalIdentity) error
	GetIdentity(ctx context.Context, id string) (GlobalIdentity, error)
	GetIdentityByGAID(ctx context.Context, gaid string) (GlobalIdentity, error)

	CreateIdentifier(ctx context.Context, id Identifier) error
	UpdateIdentifier(ctx context.Context, id Identifier) error
	GetIdentifier(ctx context.Context, id string) (Identifier, error)
	// GetIdentifierByValue busca por (type, normalizedValue).
	GetIdentifierByValue(ctx context.Context, t IdentifierType, normalized string) (Identifier, error)
	ListIdentifiersByIdentity(ctx context.Context, identityID string) ([]Identifier, error)
}
