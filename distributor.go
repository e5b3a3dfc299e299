package abac

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oarkflow/abac/logger"
)

// BundleSubscriber receives freshly signed policy bundles, typically to
// replicate a PolicyManager's state to a remote AuthEngine replica.
type BundleSubscriber interface {
	OnBundle(ctx context.Context, pub ed25519.PublicKey, bundle *SignedPolicyBundle) error
}

// BundleSubscriberFunc adapts a plain function to BundleSubscriber.
type BundleSubscriberFunc func(ctx context.Context, pub ed25519.PublicKey, bundle *SignedPolicyBundle) error

func (f BundleSubscriberFunc) OnBundle(ctx context.Context, pub ed25519.PublicKey, bundle *SignedPolicyBundle) error {
	return f(ctx, pub, bundle)
}

// PolicyBundleDistributor watches a single PolicyManager and pushes
// signed snapshots of its policy set to subscribers, either on demand
// (NotifyChange) or on a rotation timer that also re-keys the signer.
type PolicyBundleDistributor struct {
	manager          *PolicyManager
	log              logger.Logger
	pub              ed25519.PublicKey
	priv             ed25519.PrivateKey
	rotationInterval time.Duration
	notifyCh         chan struct{}
	stopCh           chan struct{}
	subscribers      []BundleSubscriber
	mu               sync.RWMutex
	started          bool
	wg               sync.WaitGroup
}

// DistributorOption configures a PolicyBundleDistributor.
type DistributorOption func(*PolicyBundleDistributor)

// WithDistributorSigningKey installs a caller-supplied ed25519 key
// pair instead of the one generated by NewPolicyBundleDistributor.
func WithDistributorSigningKey(priv ed25519.PrivateKey) DistributorOption {
	return func(d *PolicyBundleDistributor) {
		if len(priv) == ed25519.PrivateKeySize {
			d.priv = append(ed25519.PrivateKey{}, priv...)
			d.pub = priv.Public().(ed25519.PublicKey)
		}
	}
}

// WithDistributorRotationInterval sets the signing-key rotation period.
func WithDistributorRotationInterval(interval time.Duration) DistributorOption {
	return func(d *PolicyBundleDistributor) {
		if interval > 0 {
			d.rotationInterval = interval
		}
	}
}

// WithDistributorLogger installs a logger for background errors.
func WithDistributorLogger(log logger.Logger) DistributorOption {
	return func(d *PolicyBundleDistributor) {
		if log != nil {
			d.log = log
		}
	}
}

// NewPolicyBundleDistributor builds a distributor over manager,
// generating a fresh ed25519 signing key unless overridden.
func NewPolicyBundleDistributor(manager *PolicyManager, opts ...DistributorOption) (*PolicyBundleDistributor, error) {
	if manager == nil {
		return nil, fmt.Errorf("abac: policy manager is required")
	}
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("abac: generating distributor signing key: %w", err)
	}
	d := &PolicyBundleDistributor{
		manager:          manager,
		log:              logger.NewNullLogger(),
		priv:             priv,
		pub:              pub,
		rotationInterval: 24 * time.Hour,
		notifyCh:         make(chan struct{}, 1),
		stopCh:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start begins the background loop that reacts to NotifyChange and to
// the rotation timer. It is a no-op if already started.
func (d *PolicyBundleDistributor) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.rotationInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-d.stopCh:
				return
			case <-d.notifyCh:
				if err := d.distribute(ctx); err != nil {
					d.log.Error("abac bundle distribution failed", "error", err.Error())
				}
			case <-ticker.C:
				if err := d.RotateSigningKey(); err != nil {
					d.log.Error("abac bundle key rotation failed", "error", err.Error())
				}
				if err := d.distribute(ctx); err != nil {
					d.log.Error("abac bundle distribution failed", "error", err.Error())
				}
			}
		}
	}()
}

// Stop halts the background loop, waiting for it to exit or ctx to
// expire, whichever comes first.
func (d *PolicyBundleDistributor) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil
	}
	d.started = false
	d.mu.Unlock()

	close(d.stopCh)
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// NotifyChange requests a bundle redistribution on the next loop tick.
// Safe to call before Start; the request is dropped only if one is
// already pending.
func (d *PolicyBundleDistributor) NotifyChange() {
	select {
	case d.notifyCh <- struct{}{}:
	default:
	}
}

// RegisterSubscriber adds sub to the set notified on every distribution.
func (d *PolicyBundleDistributor) RegisterSubscriber(sub BundleSubscriber) {
	if sub == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, sub)
}

// RotateSigningKey replaces the distributor's ed25519 key pair.
func (d *PolicyBundleDistributor) RotateSigningKey() error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.priv, d.pub = priv, pub
	d.mu.Unlock()
	return nil
}

// CurrentPublicKey returns the distributor's active verification key.
func (d *PolicyBundleDistributor) CurrentPublicKey() ed25519.PublicKey {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append(ed25519.PublicKey(nil), d.pub...)
}

func (d *PolicyBundleDistributor) distribute(ctx context.Context) error {
	d.mu.RLock()
	priv := d.priv
	pub := d.pub
	subs := append([]BundleSubscriber(nil), d.subscribers...)
	d.mu.RUnlock()

	flat := make([]*Policy, 0)
	for _, ps := range d.manager.GetPolicies() {
		flat = append(flat, ps...)
	}
	bundle, err := SignBundle(priv, flat)
	if err != nil {
		return err
	}
	if bundle.Meta == nil {
		bundle.Meta = map[string]any{}
	}
	bundle.Meta["signing_key"] = pub

	for _, sub := range subs {
		if err := sub.OnBundle(ctx, pub, bundle); err != nil {
			d.log.Error("abac bundle subscriber error", "error", err.Error())
		}
	}
	return nil
}
