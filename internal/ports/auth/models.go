package auth

// Claims representa la información extraída del token.
// TenantID es el criadero (tenant) al que pertenece el usuario.
type Claims struct {
	UserID   string
	Email    string
	TenantID string
}
