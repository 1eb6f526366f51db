package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tasknest/tasknest-api/internal/logging"
	"github.com/tasknest/tasknest-api/internal/password"
	"github.com/tasknest/tasknest-api/internal/token"
	"github.com/tasknest/tasknest-api/internal/user"
)

var testHashParams = password.Params{
	Time:    1,
	Memory:  8 * 1024,
	Threads: 1,
	KeyLen:  32,
	SaltLen: 16,
}

// fakeStore is an in-memory IdentityStore so the stateful flows
// (register, confirm, delete) can be exercised end to end.
type fakeStore struct {
	mu           sync.Mutex
	nextID       int64
	accounts     map[string]*user.Account // keyed by username
	findErr      error
	setActiveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, accounts: make(map[string]*user.Account)}
}

func (f *fakeStore) FindByUsername(_ context.Context, username string) (*user.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	a, ok := f.accounts[username]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) FindByID(_ context.Context, id int64) (*user.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeStore) Create(_ context.Context, account *user.Account) (*user.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Username == account.Username || a.Email == account.Email {
			return nil, user.ErrDuplicate
		}
	}
	cp := *account
	cp.ID = f.nextID
	cp.Active = false
	f.nextID++
	f.accounts[cp.Username] = &cp
	out := cp
	return &out, nil
}

func (f *fakeStore) Update(_ context.Context, account *user.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for username, a := range f.accounts {
		if a.ID == account.ID {
			cp := *account
			delete(f.accounts, username)
			f.accounts[cp.Username] = &cp
			return nil
		}
	}
	return user.ErrNotFound
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for username, a := range f.accounts {
		if a.ID == id {
			delete(f.accounts, username)
			return nil
		}
	}
	return user.ErrNotFound
}

func (f *fakeStore) SetActive(_ context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setActiveErr != nil {
		return f.setActiveErr
	}
	for _, a := range f.accounts {
		if a.ID == id {
			a.Active = active
			return nil
		}
	}
	return user.ErrNotFound
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendActivationEmail(ctx context.Context, toEmail, activationToken string) error {
	args := m.Called(ctx, toEmail, activationToken)
	return args.Error(0)
}

func newTestService(t *testing.T, store IdentityStore, mailer EmailSender) *Service {
	t.Helper()

	tokens, err := token.NewService([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	return NewService(
		store,
		tokens,
		password.NewHasher(testHashParams),
		mailer,
		logging.NewLogger(true),
		time.Hour,
		30*time.Minute,
	)
}

func registerInput(username, email string) RegisterInput {
	return RegisterInput{
		Username:  username,
		Email:     email,
		FirstName: "Alice",
		LastName:  "Smith",
		BirthDate: time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC),
		Gender:    "Femenino",
		Password:  "pw123secret",
	}
}

func TestRegisterCreatesInactiveAccountAndSendsMail(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	mailer := new(mockMailer)
	svc := newTestService(t, store, mailer)

	mailer.On("SendActivationEmail", mock.Anything, "alice@example.com", mock.AnythingOfType("string")).Return(nil)

	result, err := svc.Register(context.Background(), registerInput("alice", "alice@example.com"))
	require.NoError(t, err)
	require.NotNil(t, result.Account)
	assert.NoError(t, result.MailErr)
	assert.False(t, result.Account.Active)
	assert.NotEqual(t, "pw123secret", result.Account.PasswordHash, "plaintext must never be stored")

	// The emailed token must resolve back to the registered account.
	mailer.AssertExpectations(t)
	sentToken := mailer.Calls[0].Arguments.String(2)
	resolved, err := svc.ResolveAccount(context.Background(), sentToken)
	require.NoError(t, err)
	assert.Equal(t, result.Account.ID, resolved.ID)
}

func TestRegisterMailFailureIsPartialSuccess(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	mailer := new(mockMailer)
	svc := newTestService(t, store, mailer)

	mailer.On("SendActivationEmail", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp unreachable"))

	result, err := svc.Register(context.Background(), registerInput("alice", "alice@example.com"))
	require.NoError(t, err, "mail failure must not roll back the account")
	assert.Error(t, result.MailErr)

	// Account row persists.
	_, err = store.FindByUsername(context.Background(), "alice")
	assert.NoError(t, err)
}

func TestRegisterDuplicate(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	mailer := new(mockMailer)
	svc := newTestService(t, store, mailer)

	mailer.On("SendActivationEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Register(context.Background(), registerInput("alice", "alice@example.com"))
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), registerInput("alice", "other@example.com"))
	assert.ErrorIs(t, err, user.ErrDuplicate)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newFakeStore(), new(mockMailer))

	in := registerInput("alice", "not-an-email")
	_, err := svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidEmailFormat)

	in = registerInput("alice", "alice@example.com")
	in.Password = "short"
	_, err = svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestLoginIssuesResolvableSessionToken(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	mailer := new(mockMailer)
	mailer.On("SendActivationEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := newTestService(t, store, mailer)

	_, err := svc.Register(context.Background(), registerInput("alice", "alice@example.com"))
	require.NoError(t, err)

	sessionToken, err := svc.Login(context.Background(), "alice", "pw123secret")
	require.NoError(t, err)

	account, err := svc.ResolveAccount(context.Background(), sessionToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)
}

func TestLoginUniformFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	mailer := new(mockMailer)
	mailer.On("SendActivationEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := newTestService(t, store, mailer)

	_, err := svc.Register(context.Background(), registerInput("alice", "alice@example.com"))
	require.NoError(t, err)

	// Wrong password and unknown username fail identically.
	_, wrongPw := svc.Login(context.Background(), "alice", "wrong-password")
	_, unknownUser := svc.Login(context.Background(), "mallory", "pw123secret")
	assert.ErrorIs(t, wrongPw, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPw, unknownUser)
}

func TestLoginCorruptHashIsInternalError(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.accounts["alice"] = &user.Account{
		ID:           1,
		Username:     "alice",
		PasswordHash: "not-a-phc-string",
	}
	svc := newTestService(t, store, new(mockMailer))

	_, err := svc.Login(context.Background(), "alice", "pw123secret")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, password.ErrInvalidHash)
}

func TestResolveAccountUniformFailures(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	mailer := new(mockMailer)
	mailer.On("SendActivationEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := newTestService(t, store, mailer)

	result, err := svc.Register(context.Background(), registerInput("alice", "alice@example.com"))
	require.NoError(t, err)

	// Token for a user that was since deleted.
	sessionToken, err := svc.Login(context.Background(), "alice", "pw123secret")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteAccount(context.Background(), result.Account))

	cases := map[string]string{
		"malformed token":    "garbage",
		"empty token":        "",
		"deleted user token": sessionToken,
	}
	for name, tok := range cases {
		_, err := svc.ResolveAccount(context.Background(), tok)
		assert.ErrorIs(t, err, ErrInvalidCredentials, name)
		assert.Equal(t, ErrInvalidCredentials, err, name)
	}
}

func TestResolveAccountStoreFailureIsNotUniform(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	mailer := new(mockMailer)
	mailer.On("SendActivationEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := newTestService(t, store, mailer)

	_, err := svc.Register(context.Background(), registerInput("alice", "alice@example.com"))
	require.NoError(t, err)
	sessionToken, err := svc.Login(context.Background(), "alice", "pw123secret")
	require.NoError(t, err)

	store.findErr = errors.New("connection refused")
	_, err = svc.ResolveAccount(context.Background(), sessionToken)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestConfirmMatchingIdentitiesActivates(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	mailer := new(mockMailer)
	mailer.On("SendActivationEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := newTestService(t, store, mailer)

	result, err := svc.Register(context.Background(), registerInput("alice", "alice@example.com"))
	require.NoError(t, err)
	require.False(t, result.Account.Active)

	activationToken := mailer.Calls[0].Arguments.String(2)
	sessionToken, err := svc.Login(context.Background(), "alice", "pw123secret")
	require.NoError(t, err)

	// Inactive account fails the active gate before confirmation.
	require.ErrorIs(t, svc.RequireActive(result.Account), ErrInactiveAccount)

	require.NoError(t, svc.Confirm(context.Background(), activationToken, sessionToken))

	activated, err := store.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, activated.Active)
	assert.NoError(t, svc.RequireActive(activated))
}

func TestConfirmMismatchedIdentitiesIsSilentNoOp(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	mailer := new(mockMailer)
	mailer.On("SendActivationEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := newTestService(t, store, mailer)

	_, err := svc.Register(context.Background(), registerInput("alice", "alice@example.com"))
	require.NoError(t, err)
	aliceActivation := mailer.Calls[0].Arguments.String(2)

	_, err = svc.Register(context.Background(), registerInput("bob", "bob@example.com"))
	require.NoError(t, err)
	bobSession, err := svc.Login(context.Background(), "bob", "pw123secret")
	require.NoError(t, err)

	// alice's activation token against bob's session: no error, no mutation.
	require.NoError(t, svc.Confirm(context.Background(), aliceActivation, bobSession))

	alice, err := store.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	bob, err := store.FindByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.False(t, alice.Active)
	assert.False(t, bob.Active)
}

func TestConfirmUnresolvableTokensAreSilentNoOps(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	mailer := new(mockMailer)
	mailer.On("SendActivationEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := newTestService(t, store, mailer)

	_, err := svc.Register(context.Background(), registerInput("alice", "alice@example.com"))
	require.NoError(t, err)
	activationToken := mailer.Calls[0].Arguments.String(2)
	sessionToken, err := svc.Login(context.Background(), "alice", "pw123secret")
	require.NoError(t, err)

	assert.NoError(t, svc.Confirm(context.Background(), "garbage", sessionToken))
	assert.NoError(t, svc.Confirm(context.Background(), activationToken, "garbage"))

	alice, err := store.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, alice.Active)
}

func TestConfirmIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	mailer := new(mockMailer)
	mailer.On("SendActivationEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := newTestService(t, store, mailer)

	_, err := svc.Register(context.Background(), registerInput("alice", "alice@example.com"))
	require.NoError(t, err)
	activationToken := mailer.Calls[0].Arguments.String(2)
	sessionToken, err := svc.Login(context.Background(), "alice", "pw123secret")
	require.NoError(t, err)

	require.NoError(t, svc.Confirm(context.Background(), activationToken, sessionToken))
	require.NoError(t, svc.Confirm(context.Background(), activationToken, sessionToken))

	alice, err := store.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, alice.Active)
}

func TestConfirmStoreFailureEscalates(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	mailer := new(mockMailer)
	mailer.On("SendActivationEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := newTestService(t, store, mailer)

	_, err := svc.Register(context.Background(), registerInput("alice", "alice@example.com"))
	require.NoError(t, err)
	activationToken := mailer.Calls[0].Arguments.String(2)
	sessionToken, err := svc.Login(context.Background(), "alice", "pw123secret")
	require.NoError(t, err)

	store.setActiveErr = errors.New("deadlock detected")
	err = svc.Confirm(context.Background(), activationToken, sessionToken)
	assert.Error(t, err, "a failed activation write must not be swallowed")
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	mailer := new(mockMailer)
	mailer.On("SendActivationEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := newTestService(t, store, mailer)

	result, err := svc.Register(context.Background(), registerInput("alice", "alice@example.com"))
	require.NoError(t, err)

	err = svc.UpdateProfile(context.Background(), result.Account, UpdateInput{
		Username:  "alice2",
		Email:     "alice2@example.com",
		FirstName: "Alicia",
		LastName:  "Smith",
	})
	require.NoError(t, err)

	updated, err := store.FindByUsername(context.Background(), "alice2")
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.FirstName)

	err = svc.UpdateProfile(context.Background(), updated, UpdateInput{Username: "x", Email: "bad"})
	assert.ErrorIs(t, err, ErrInvalidEmailFormat)
}
