package auth

import "context"

// User is an account row in the remote store. OAuth accounts carry an
// empty password hash and a non-local provider.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	AuthProvider string
	CreatedAt    int64
}

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// UserStore is the persistence port for accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	UserByEmail(ctx context.Context, email string) (User, error)
}
