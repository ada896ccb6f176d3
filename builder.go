package authcore

import (
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/webstack/authcore/internal/audit"
	"github.com/webstack/authcore/password"
	"github.com/webstack/authcore/session"
)

// Builder assembles a Manager. Obtain one with New, chain the With*
// methods, then call Build once.
type Builder struct {
	cfg       Config
	store     CredentialStore
	cache     session.Cache
	hasher    PasswordHasher
	logger    *zap.Logger
	auditSink audit.Sink

	built bool
}

// New starts a Builder with DefaultConfig.
func New() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// WithConfig replaces the whole configuration. Zero fields are filled with
// defaults at Build time.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithStore sets the credential store. Required.
func (b *Builder) WithStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithCache sets the session cache. Defaults to an in-process MemoryCache.
func (b *Builder) WithCache(cache session.Cache) *Builder {
	b.cache = cache
	return b
}

// WithHasher overrides the password hasher. Defaults to argon2id with the
// configured parameters.
func (b *Builder) WithHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithLogger sets the structured logger. Defaults to zap.NewNop.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit event consumer. Without one, audit events
// are dropped.
func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the wiring and returns the Manager.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, ErrManagerNotReady
	}
	if b.store == nil {
		return nil, ErrManagerNotReady
	}
	b.built = true

	cfg := b.cfg
	cfg.Normalize()

	cache := b.cache
	if cache == nil {
		cache = session.NewMemoryCache()
	}
	hasher := b.hasher
	if hasher == nil {
		hasher = password.NewHasher(cfg.Password.Argon2)
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		cfg:    cfg,
		store:  b.store,
		cache:  cache,
		hasher: hasher,
		logger: logger,
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled && b.auditSink != nil,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics:  NewMetrics(cfg.Metrics.Enabled),
		validate: validator.New(),
		now:      time.Now,
	}, nil
}
