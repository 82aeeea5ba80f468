package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Source tells where the current credential came from.
type Source string

const (
	SourceNone   Source = "none"
	SourceConfig Source = "config"
	SourceStored Source = "stored"
	SourceUser   Source = "user"
)

var (
	ErrEmpty  = errors.New("credential: empty value")
	ErrLocked = errors.New("credential: configured key cannot be replaced")
)

// Provider holds the credential for the process. Configuration wins over a
// stored value at startup and over later user entries unless AllowOverride
// was called.
type Provider struct {
	mu          sync.RWMutex
	value       Credential
	source      Source
	overridable bool
	store       Store
	log         *zap.Logger
}

// NewProvider resolves the startup credential. A store failure is logged and
// treated as "nothing stored" so a broken store never blocks startup.
func NewProvider(ctx context.Context, configured string, store Store, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{store: store, source: SourceNone, log: logger}

	if v := strings.TrimSpace(configured); v != "" {
		p.value, p.source = Credential(v), SourceConfig
		logger.Info("credential resolved", zap.String("source", string(SourceConfig)), zap.String("fingerprint", p.value.Fingerprint()))
		return p
	}
	if store != nil {
		stored, err := store.Load(ctx)
		if err != nil {
			logger.Warn("credential store load failed", zap.Error(err))
		} else if !stored.Empty() {
			p.value, p.source = stored, SourceStored
			logger.Info("credential resolved", zap.String("source", string(SourceStored)), zap.String("fingerprint", p.value.Fingerprint()))
			return p
		}
	}
	logger.Info("no credential configured; waiting for user entry")
	return p
}

// Current returns the credential in effect, possibly empty.
func (p *Provider) Current() Credential {
	if p == nil {
		return ""
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

func (p *Provider) Source() Source {
	if p == nil {
		return SourceNone
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.source
}

// AllowOverride lets Save replace a configured key. Used for single-user
// local setups.
func (p *Provider) AllowOverride() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overridable = true
}

// Locked reports whether Save refuses new keys.
func (p *Provider) Locked() bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lockedLocked()
}

func (p *Provider) lockedLocked() bool {
	return p.source == SourceConfig && !p.overridable
}

// Save stores a user-entered key. The in-memory value is updated even when
// persisting fails; the error is still returned so the caller can warn.
func (p *Provider) Save(ctx context.Context, value string) error {
	c := Credential(strings.TrimSpace(value))
	if c.Empty() {
		return ErrEmpty
	}
	p.mu.Lock()
	if p.lockedLocked() {
		p.mu.Unlock()
		p.log.Warn("credential entry refused; configured key is in effect", zap.String("fingerprint", c.Fingerprint()))
		return ErrLocked
	}
	p.value, p.source = c, SourceUser
	p.mu.Unlock()

	p.log.Info("credential saved", zap.String("fingerprint", c.Fingerprint()))
	if p.store == nil {
		return nil
	}
	if err := p.store.Save(ctx, c); err != nil {
		p.log.Warn("credential persist failed", zap.Error(err))
		return fmt.Errorf("credential: persist: %w", err)
	}
	return nil
}
