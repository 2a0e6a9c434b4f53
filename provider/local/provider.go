// Package local implements the ClassTrack identity provider against a local
// Bun database: bcrypt credentials, single-use email verification codes, and
// HS256 session tokens. It is the hosted-identity stand-in used by the server
// binary and the integration tests.
package local

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/classtrack/go-classtrack"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CodeSender delivers a verification code to the given address. The default
// sender only logs the code, which is what the development server wants.
type CodeSender func(ctx context.Context, email, code string) error

// Provider implements classtrack.IdentityProvider over a Bun database.
//
// Session-change handlers are invoked while the provider holds its internal
// lock. Handlers that call back into the provider synchronously will
// deadlock; consumers must defer follow-up work to their own scheduler.
type Provider struct {
	cfg        classtrack.Config
	db         *bun.DB
	profiles   classtrack.Profiles
	identities Identities
	codes      VerificationCodes
	tokens     *TokenService
	sendCode   CodeSender
	logger     classtrack.Logger
	now        func() time.Time

	mu      sync.Mutex
	session *classtrack.Session
	subs    map[int]classtrack.SessionChangeHandler
	nextSub int
}

var _ classtrack.IdentityProvider = (*Provider)(nil)

// Option customizes Provider construction.
type Option func(*Provider)

// WithLogger overrides the default logger.
func WithLogger(logger classtrack.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock injects a custom clock, used by tests to force expiry.
func WithClock(clock func() time.Time) Option {
	return func(p *Provider) {
		if clock != nil {
			p.now = clock
		}
	}
}

// WithCodeSender replaces the default log-only verification code delivery.
func WithCodeSender(sender CodeSender) Option {
	return func(p *Provider) {
		if sender != nil {
			p.sendCode = sender
		}
	}
}

// WithProfiles overrides the profiles repository, used by tests.
func WithProfiles(profiles classtrack.Profiles) Option {
	return func(p *Provider) {
		if profiles != nil {
			p.profiles = profiles
		}
	}
}

// New builds a Provider on top of the given database.
func New(cfg classtrack.Config, db *bun.DB, opts ...Option) *Provider {
	p := &Provider{
		cfg:        cfg,
		db:         db,
		profiles:   classtrack.NewProfilesRepository(db),
		identities: NewIdentitiesRepository(db),
		codes:      NewVerificationCodesRepository(db),
		tokens:     NewTokenService(cfg),
		logger:     &defLogger{},
		now:        time.Now,
		subs:       map[int]classtrack.SessionChangeHandler{},
	}

	p.sendCode = func(_ context.Context, email, code string) error {
		p.logger.Info("verification code issued email=%s code=%s", email, code)
		return nil
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	p.tokens.now = p.now

	return p
}

// Setup creates the provider-owned tables if they do not exist yet.
func (p *Provider) Setup(ctx context.Context) error {
	models := []any{
		(*Identity)(nil),
		(*VerificationCode)(nil),
	}

	for _, model := range models {
		if _, err := p.db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create identity tables")
		}
	}

	return nil
}

// Profiles exposes the profile repository backing FetchProfile so the rest of
// the application shares one source of profile truth.
func (p *Provider) Profiles() classtrack.Profiles {
	return p.profiles
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*classtrack.Session, error) {
	identity, err := p.identities.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, classtrack.ErrInvalidCredentials
		}
		return nil, p.unavailable(err, "sign in lookup failed")
	}

	if err := classtrack.ComparePasswordAndHash(password, identity.PasswordHash); err != nil {
		return nil, err
	}

	if !identity.Verified() {
		p.logger.Info("sign in rejected, email not verified email=%s", identity.Email)
		return nil, classtrack.ErrInvalidCredentials
	}

	profile, err := p.FetchProfile(ctx, identity.ID.String())
	if err != nil {
		// An identity with no profile is not a usable account; surfacing
		// the missing record would leak which emails exist.
		if classtrack.IsProfileNotFound(err) {
			p.logger.Info("sign in rejected, identity has no profile email=%s", identity.Email)
			return nil, classtrack.ErrInvalidCredentials
		}
		return nil, err
	}

	session, err := p.mintSession(identity, profile.Role)
	if err != nil {
		return nil, err
	}

	p.setSession(session, classtrack.SessionSignedIn)

	return session, nil
}

func (p *Provider) SignUp(ctx context.Context, email, password string, meta classtrack.SignUpMetadata) (*classtrack.PendingIdentity, error) {
	hash, err := classtrack.HashPassword(password)
	if err != nil {
		return nil, err
	}

	role := meta.Role
	if role == "" {
		role = classtrack.RoleStudent
	}
	if !role.IsValid() {
		return nil, goerrors.New(
			fmt.Sprintf("invalid role: %s", role),
			goerrors.CategoryValidation,
		).WithCode(goerrors.CodeBadRequest)
	}

	id := uuid.New()
	code, err := generateCode()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
	}

	expires := p.now().Add(p.cfg.GetCodeExpiration())

	err = p.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, lookupErr := p.identities.GetByEmailTx(ctx, tx, email); lookupErr == nil {
			return classtrack.ErrEmailTaken
		} else if !repository.IsRecordNotFound(lookupErr) {
			return lookupErr
		}

		identity := &Identity{
			ID:           id,
			Email:        normalizeEmail(email),
			PasswordHash: hash,
		}
		if _, createErr := p.identities.CreateTx(ctx, tx, identity); createErr != nil {
			return createErr
		}

		profile := &classtrack.Profile{
			ID:    id,
			Email: normalizeEmail(email),
			Name:  meta.Name,
			Role:  role,
		}
		if _, createErr := p.profiles.CreateTx(ctx, tx, profile); createErr != nil {
			return createErr
		}

		record := &VerificationCode{
			ID:         uuid.New(),
			IdentityID: id,
			Code:       code,
			ExpiresAt:  &expires,
		}
		_, createErr := p.codes.CreateTx(ctx, tx, record)
		return createErr
	})

	if err != nil {
		if goerrors.Is(err, classtrack.ErrEmailTaken) ||
			goerrors.Is(err, classtrack.ErrWeakPassword) {
			return nil, err
		}
		var rich *goerrors.Error
		if goerrors.As(err, &rich) && rich.Category == goerrors.CategoryValidation {
			return nil, err
		}
		return nil, p.unavailable(err, "sign up failed")
	}

	if sendErr := p.sendCode(ctx, email, code); sendErr != nil {
		p.logger.Error("failed to deliver verification code email=%s error=%v", email, sendErr)
	}

	return &classtrack.PendingIdentity{
		ID:    id.String(),
		Email: normalizeEmail(email),
	}, nil
}

func (p *Provider) VerifyOneTimeCode(ctx context.Context, code string) (*classtrack.Session, error) {
	record, err := p.codes.GetActive(ctx, code)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, classtrack.ErrInvalidOrExpiredCode
		}
		return nil, p.unavailable(err, "code lookup failed")
	}

	now := p.now()
	if !record.Usable(now) {
		return nil, classtrack.ErrInvalidOrExpiredCode
	}

	err = p.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if consumeErr := p.codes.ConsumeTx(ctx, tx, record.ID, now); consumeErr != nil {
			return consumeErr
		}
		if markErr := p.identities.MarkVerifiedTx(ctx, tx, record.IdentityID, now); markErr != nil {
			return markErr
		}
		return p.profiles.MarkEmailVerifiedTx(ctx, tx, record.IdentityID)
	})
	if err != nil {
		return nil, p.unavailable(err, "code verification failed")
	}

	identity, err := p.identities.GetByID(ctx, record.IdentityID.String())
	if err != nil {
		return nil, p.unavailable(err, "identity lookup failed")
	}

	profile, err := p.FetchProfile(ctx, record.IdentityID.String())
	if err != nil {
		return nil, err
	}

	session, err := p.mintSession(identity, profile.Role)
	if err != nil {
		return nil, err
	}

	p.setSession(session, classtrack.SessionSignedIn)

	return session, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	p.setSession(nil, classtrack.SessionSignedOut)
	return nil
}

// CurrentSession returns the active session, clearing it first when the token
// window has passed. Returns (nil, nil) when signed out.
func (p *Provider) CurrentSession(ctx context.Context) (*classtrack.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return nil, nil
	}

	if p.session.Expired(p.now()) {
		p.session = nil
		p.emitLocked(classtrack.SessionSignedOut, nil)
		return nil, nil
	}

	session := *p.session
	return &session, nil
}

func (p *Provider) OnSessionChange(handler classtrack.SessionChangeHandler) classtrack.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	p.subs[id] = handler

	return subscription{cancel: func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}}
}

func (p *Provider) FetchProfile(ctx context.Context, identityID string) (*classtrack.Profile, error) {
	if _, err := uuid.Parse(identityID); err != nil {
		return nil, classtrack.ErrProfileNotFound
	}

	profile, err := p.profiles.GetByID(ctx, identityID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, classtrack.ErrProfileNotFound
		}
		return nil, p.unavailable(err, "profile lookup failed")
	}

	return profile, nil
}

func (p *Provider) mintSession(identity *Identity, role classtrack.Role) (*classtrack.Session, error) {
	token, issued, expires, err := p.tokens.Generate(identity, role)
	if err != nil {
		return nil, err
	}

	return &classtrack.Session{
		IdentityID: identity.ID.String(),
		Token:      token,
		IssuedAt:   &issued,
		ExpiresAt:  &expires,
	}, nil
}

func (p *Provider) setSession(session *classtrack.Session, event classtrack.SessionEventType) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = session
	p.emitLocked(event, session)
}

// emitLocked dispatches to every subscriber. Callers must hold p.mu.
func (p *Provider) emitLocked(event classtrack.SessionEventType, session *classtrack.Session) {
	for _, handler := range p.subs {
		if handler != nil {
			handler(event, session)
		}
	}
}

func (p *Provider) unavailable(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, msg).
		WithTextCode("NETWORK_ERROR").
		WithCode(goerrors.CodeInternal)
}

type subscription struct {
	cancel func()
}

func (s subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

func generateCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

type defLogger struct{}

func (defLogger) Debug(format string, args ...any) { fmt.Printf("[DBG] IDP "+format+"\n", args...) }

func (defLogger) Info(format string, args ...any) { fmt.Printf("[INF] IDP "+format+"\n", args...) }

func (defLogger) Warn(format string, args ...any) { fmt.Printf("[WRN] IDP "+format+"\n", args...) }

func (defLogger) Error(format string, args ...any) { fmt.Printf("[ERR] IDP "+format+"\n", args...) }
