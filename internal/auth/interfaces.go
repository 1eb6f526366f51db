package auth

import (
	"context"
	"time"

	"github.com/tasknest/tasknest-api/internal/token"
	"github.com/tasknest/tasknest-api/internal/user"
)

// IdentityStore abstracts account persistence for the auth service.
// Implemented by user.Repository.
type IdentityStore interface {
	FindByUsername(ctx context.Context, username string) (*user.Account, error)
	FindByID(ctx context.Context, id int64) (*user.Account, error)
	Create(ctx context.Context, account *user.Account) (*user.Account, error)
	Update(ctx context.Context, account *user.Account) error
	Delete(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// TokenService issues and verifies bearer tokens. Implemented by token.Service.
type TokenService interface {
	Issue(claims token.Claims, ttl time.Duration) (string, error)
	Verify(tokenStr string) (*token.Claims, error)
}

// PasswordHasher hashes and verifies credentials. Implemented by password.Hasher.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(encodedHash, plaintext string) (bool, error)
}

// EmailSender delivers the activation link. Implemented by email.Service.
type EmailSender interface {
	SendActivationEmail(ctx context.Context, toEmail, activationToken string) error
}
