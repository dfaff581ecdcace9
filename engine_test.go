package centralhub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// testClock is a mutable clock shared with the engine. IssuePair signs
// on a second goroutine, so reads are guarded.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memDirectory is an in-memory Directory for engine tests.
type memDirectory struct {
	mu      sync.Mutex
	byID    map[string]User
	byEmail map[string]string
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (d *memDirectory) Create(_ context.Context, user *User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, taken := d.byEmail[user.Email]; taken {
		return ErrEmailTaken
	}
	d.byID[user.ID] = *user
	d.byEmail[user.Email] = user.ID
	return nil
}

func (d *memDirectory) FindByID(_ context.Context, id string) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := user
	return &out, nil
}

func (d *memDirectory) FindByEmail(_ context.Context, email string) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := d.byID[id]
	return &out, nil
}

func (d *memDirectory) FindByCredentials(_ context.Context, email, passwordDigest string) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	user := d.byID[id]
	if user.PasswordDigest != passwordDigest {
		return nil, ErrUserNotFound
	}
	out := user
	return &out, nil
}

func (d *memDirectory) SetEmailVerifyToken(_ context.Context, id, token string) error {
	return d.update(id, func(u *User) {
		u.EmailVerifyToken = token
	})
}

func (d *memDirectory) MarkVerified(_ context.Context, id string) error {
	return d.update(id, func(u *User) {
		u.Verify = VerifyStatusVerified
		u.EmailVerifyToken = ""
	})
}

func (d *memDirectory) SetPasswordResetToken(_ context.Context, id, token string) error {
	return d.update(id, func(u *User) {
		u.PasswordResetToken = token
	})
}

func (d *memDirectory) UpdatePassword(_ context.Context, id, passwordDigest string) error {
	return d.update(id, func(u *User) {
		u.PasswordDigest = passwordDigest
		u.PasswordResetToken = ""
	})
}

func (d *memDirectory) update(id string, mutate func(*User)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	mutate(&user)
	d.byID[id] = user
	return nil
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func engineTestConfig() Config {
	cfg := defaultConfig()
	cfg.Secrets = SecretsConfig{
		Access:        []byte("access-secret-for-tests-0123456789ab"),
		Refresh:       []byte("refresh-secret-for-tests-0123456789a"),
		EmailVerify:   []byte("verify-secret-for-tests-0123456789ab"),
		PasswordReset: []byte("forgot-secret-for-tests-0123456789ab"),
	}
	cfg.Password.Pepper = []byte("pepper-for-engine-tests!")
	cfg.Password.Iterations = 1000
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *memDirectory, *testClock) {
	t.Helper()

	_, rdb := newTestRedis(t)
	dir := newMemDirectory()
	clock := newTestClock()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDirectory(dir).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, dir, clock
}

func registerTestUser(t *testing.T, engine *Engine, email, password string) (*TokenPair, *User) {
	t.Helper()

	pair, user, err := engine.Register(context.Background(), RegisterRequest{
		Email:    email,
		Password: password,
		FullName: "Test User",
		Role:     RoleCustomer,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return pair, user
}

func TestRegisterOpensSession(t *testing.T) {
	engine, dir, _ := newTestEngine(t, engineTestConfig())
	ctx := context.Background()

	pair, user := registerTestUser(t, engine, "alice@example.com", "s3cret-pass")
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected a full token pair from registration")
	}
	if user.Verify != VerifyStatusUnverified {
		t.Fatalf("new accounts must start unverified, got %d", user.Verify)
	}
	if user.PasswordDigest != "" || user.EmailVerifyToken != "" {
		t.Fatal("returned user must not carry the digest or pending tokens")
	}

	// The stored row does carry the pending verification token.
	stored, err := dir.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if stored.EmailVerifyToken == "" {
		t.Fatal("expected a pending email verification token on the row")
	}

	result, err := engine.ValidateAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	if result.UserID != user.ID || result.Role != RoleCustomer || result.Status != StatusActive || result.Verify != VerifyStatusUnverified {
		t.Fatalf("unexpected identity in access token: %+v", result)
	}

	// The refresh token is live immediately.
	if _, err := engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Refresh after register failed: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig())

	registerTestUser(t, engine, "alice@example.com", "s3cret-pass")

	_, _, err := engine.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "another-pass",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if got := engine.metrics.Value(MetricRegisterDuplicate); got != 1 {
		t.Fatalf("expected 1 duplicate register counted, got %d", got)
	}
}

func TestLoginSuccess(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig())
	ctx := context.Background()

	_, registered := registerTestUser(t, engine, "alice@example.com", "s3cret-pass")

	pair, user, err := engine.Login(ctx, "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("login returned user %q, registered %q", user.ID, registered.ID)
	}
	if user.PasswordDigest != "" {
		t.Fatal("returned user must not carry the password digest")
	}

	if _, err := engine.ValidateAccess(ctx, pair.AccessToken); err != nil {
		t.Fatalf("access token from login did not validate: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig())
	ctx := context.Background()

	registerTestUser(t, engine, "alice@example.com", "s3cret-pass")

	_, _, err := engine.Login(ctx, "alice@example.com", "wrong-pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}

	// Unknown accounts are indistinguishable from wrong passwords.
	_, _, err = engine.Login(ctx, "nobody@example.com", "s3cret-pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown account, got %v", err)
	}
}

func TestLoginRateLimited(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig())
	ctx := WithClientIP(context.Background(), "10.0.0.1")

	registerTestUser(t, engine, "alice@example.com", "s3cret-pass")

	for i := 0; i < 5; i++ {
		if _, _, err := engine.Login(ctx, "alice@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	// Even the correct password is refused once the window is exhausted.
	if _, _, err := engine.Login(ctx, "alice@example.com", "s3cret-pass"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if got := engine.metrics.Value(MetricLoginRateLimited); got == 0 {
		t.Fatal("expected the rate-limited login to be counted")
	}
}

func TestLoginResetsLimiterOnSuccess(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig())
	ctx := context.Background()

	registerTestUser(t, engine, "alice@example.com", "s3cret-pass")

	for i := 0; i < 3; i++ {
		_, _, _ = engine.Login(ctx, "alice@example.com", "wrong-pass")
	}
	if _, _, err := engine.Login(ctx, "alice@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("Login within budget failed: %v", err)
	}

	// The successful login cleared the counters, so the budget is fresh.
	for i := 0; i < 5; i++ {
		if _, _, err := engine.Login(ctx, "alice@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d after reset: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
}

func TestLogoutIdempotent(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig())
	ctx := context.Background()

	pair, _ := registerTestUser(t, engine, "alice@example.com", "s3cret-pass")

	if err := engine.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if err := engine.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("second Logout failed: %v", err)
	}

	// The token still verifies cryptographically but is no longer a
	// member of the store, so refreshing it reports revocation.
	if _, err := engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after logout, got %v", err)
	}
}

func TestLogoutUnknownToken(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig())

	if err := engine.Logout(context.Background(), "never-issued"); err != nil {
		t.Fatalf("Logout of unknown token must be a no-op, got %v", err)
	}
}

func TestValidateAccessExpired(t *testing.T) {
	engine, _, clock := newTestEngine(t, engineTestConfig())
	ctx := context.Background()

	pair, _ := registerTestUser(t, engine, "alice@example.com", "s3cret-pass")

	clock.Advance(16 * time.Minute)

	if _, err := engine.ValidateAccess(ctx, pair.AccessToken); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
	if got := engine.metrics.Value(MetricAccessRejected); got != 1 {
		t.Fatalf("expected 1 rejected access counted, got %d", got)
	}
}

func TestTokensCarryAccountStatus(t *testing.T) {
	engine, dir, _ := newTestEngine(t, engineTestConfig())
	ctx := context.Background()

	_, user := registerTestUser(t, engine, "alice@example.com", "s3cret-pass")

	if err := dir.update(user.ID, func(u *User) { u.Status = StatusInactive }); err != nil {
		t.Fatalf("flipping status failed: %v", err)
	}

	pair, _, err := engine.Login(ctx, "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	result, err := engine.ValidateAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	if result.Status != StatusInactive {
		t.Fatalf("access token carries status %d, want %d", result.Status, StatusInactive)
	}

	// Rotation keeps the status riding in the successor pair.
	next, err := engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	rotated, err := engine.ValidateAccess(ctx, next.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess on rotated token failed: %v", err)
	}
	if rotated.Status != StatusInactive {
		t.Fatalf("rotated token carries status %d, want %d", rotated.Status, StatusInactive)
	}
}

func TestValidateAccessRejectsRefreshToken(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig())

	pair, _ := registerTestUser(t, engine, "alice@example.com", "s3cret-pass")

	if _, err := engine.ValidateAccess(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for a refresh token, got %v", err)
	}
}
