package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/tasknest/tasknest-api/internal/logging"
	"github.com/tasknest/tasknest-api/internal/password"
	"github.com/tasknest/tasknest-api/internal/token"
	"github.com/tasknest/tasknest-api/internal/user"
)

var (
	// ErrInvalidCredentials is the uniform failure for every authentication
	// problem: bad password, malformed/expired/tampered token, unknown or
	// deleted user. Callers must never learn which check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInactiveAccount gates endpoints that require a fully onboarded
	// account. Login and activation confirmation bypass it.
	ErrInactiveAccount = errors.New("account is not active")

	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrInvalidEmailFormat = errors.New("invalid email format")
)

// Service implements the identity core: credential verification, session
// token issuance, current-user resolution and the activation protocol.
type Service struct {
	store         IdentityStore
	tokens        TokenService
	hasher        PasswordHasher
	mail          EmailSender
	logger        *logging.Logger
	sessionTTL    time.Duration
	activationTTL time.Duration
}

func NewService(
	store IdentityStore,
	tokens TokenService,
	hasher PasswordHasher,
	mail EmailSender,
	logger *logging.Logger,
	sessionTTL time.Duration,
	activationTTL time.Duration,
) *Service {
	return &Service{
		store:         store,
		tokens:        tokens,
		hasher:        hasher,
		mail:          mail,
		logger:        logger,
		sessionTTL:    sessionTTL,
		activationTTL: activationTTL,
	}
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	BirthDate time.Time
	Gender    string
	Password  string
}

// RegisterResult is the outcome of a registration. MailErr is non-nil when
// the account was created but the activation email could not be delivered;
// the account row persists either way.
type RegisterResult struct {
	Account *user.Account
	MailErr error
}

// Register creates an inactive account and sends the activation email.
// Delivery failure does not roll back the account; it is reported through
// RegisterResult.MailErr so the caller can surface a warning.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if len(in.Email) > 254 {
		return nil, ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if len(in.Password) < 8 {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := s.store.Create(ctx, &user.Account{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		BirthDate:    in.BirthDate,
		Gender:       in.Gender,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return nil, user.ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	result := &RegisterResult{Account: account}

	activationToken, err := s.IssueActivation(account)
	if err != nil {
		// The account exists; report the undelivered activation instead of
		// failing registration.
		s.logger.Warn("failed to issue activation token", "username", account.Username, "error", err)
		result.MailErr = err
		return result, nil
	}

	if err := s.mail.SendActivationEmail(ctx, account.Email, activationToken); err != nil {
		s.logger.Warn("failed to send activation email", "email", account.Email, "error", err)
		result.MailErr = err
	}

	return result, nil
}

// Login verifies username/password and issues a session token. Unknown
// username and wrong password are indistinguishable. An inactive account can
// log in; the active gate applies per endpoint, not at login.
func (s *Service) Login(ctx context.Context, username, plaintext string) (string, error) {
	if username == "" || plaintext == "" {
		return "", ErrInvalidCredentials
	}

	account, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to get account: %w", err)
	}

	ok, err := s.hasher.Verify(account.PasswordHash, plaintext)
	if err != nil {
		if errors.Is(err, password.ErrInvalidHash) {
			// Data-integrity alarm: a stored hash should always parse.
			s.logger.Error("corrupt password hash in store", "username", username)
		}
		return "", fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return "", ErrInvalidCredentials
	}

	sessionToken, err := s.tokens.Issue(token.Claims{Subject: account.Username}, s.sessionTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue session token: %w", err)
	}

	return sessionToken, nil
}

// ResolveAccount turns a bearer token into the account it names. Every
// resolution failure collapses into ErrInvalidCredentials: a malformed token,
// an expired token and a token for a since-deleted user all look the same to
// the caller. Store connectivity failures surface as internal errors.
func (s *Service) ResolveAccount(ctx context.Context, tokenStr string) (*user.Account, error) {
	claims, err := s.tokens.Verify(tokenStr)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if claims.Subject == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.store.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// RequireActive is the second gate layered on ResolveAccount for endpoints
// that need a fully onboarded account.
func (s *Service) RequireActive(account *user.Account) error {
	if !account.Active {
		return ErrInactiveAccount
	}
	return nil
}

// IssueActivation produces the activation token embedded in the confirmation
// email. Same signing scheme as session tokens, longer lifetime, not stored
// server-side.
func (s *Service) IssueActivation(account *user.Account) (string, error) {
	return s.tokens.Issue(token.Claims{Subject: account.Username}, s.activationTTL)
}

// Confirm activates the account named by activationToken, but only when the
// caller's own session resolves to the identical account. A mismatch or a
// failure to resolve either token is a silent no-op: the endpoint answers
// with the same generic acknowledgment regardless, so the response never
// reveals whether an activation token was valid. Store failures during the
// flag flip itself are escalated, never swallowed.
func (s *Service) Confirm(ctx context.Context, activationToken, sessionToken string) error {
	claimed, err := s.ResolveAccount(ctx, activationToken)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Warn("activation token did not resolve")
			return nil
		}
		return err
	}

	current, err := s.ResolveAccount(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Warn("session token did not resolve during activation")
			return nil
		}
		return err
	}

	if claimed.ID != current.ID {
		s.logger.Warn("activation identity mismatch",
			"claimed_id", claimed.ID,
			"session_id", current.ID,
		)
		return nil
	}

	// Idempotent: re-activating an active account sets true again.
	if err := s.store.SetActive(ctx, current.ID, true); err != nil {
		return fmt.Errorf("failed to activate account: %w", err)
	}

	s.logger.Info("account activated", "user_id", current.ID)
	return nil
}

// UpdateInput carries the mutable profile fields.
type UpdateInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// UpdateProfile rewrites the caller's own profile fields.
func (s *Service) UpdateProfile(ctx context.Context, account *user.Account, in UpdateInput) error {
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return ErrInvalidEmailFormat
	}

	updated := *account
	updated.Username = in.Username
	updated.Email = in.Email
	updated.FirstName = in.FirstName
	updated.LastName = in.LastName

	if err := s.store.Update(ctx, &updated); err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return user.ErrDuplicate
		}
		return fmt.Errorf("failed to update account: %w", err)
	}

	return nil
}

// DeleteAccount removes the caller's own account. Self-service only; there
// is no administrative delete.
func (s *Service) DeleteAccount(ctx context.Context, account *user.Account) error {
	if err := s.store.Delete(ctx, account.ID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}
