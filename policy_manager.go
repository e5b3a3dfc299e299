package abac

import (
	"fmt"
	"sync"
)

// PolicyManager owns the resource-type universe and the append-only
// policy index built against it. Policies and resources are only ever
// added through it, never removed; once an AuthEngine borrows its
// index the PolicyManager itself may keep growing, but the index
// snapshot the engine reads must not be mutated in place (see
// AuthEngine's own copy in NewAuthEngine).
type PolicyManager struct {
	mu       sync.RWMutex
	universe ResourceTypeUniverse
	index    map[PolicyKey][]*Policy
	byID     map[string]*Policy
}

// NewPolicyManager builds an empty PolicyManager over the given
// resource-type universe.
func NewPolicyManager(universe ResourceTypeUniverse) *PolicyManager {
	return &PolicyManager{
		universe: universe,
		index:    make(map[PolicyKey][]*Policy),
		byID:     make(map[string]*Policy),
	}
}

// Universe returns the resource-type universe this manager validates
// against.
func (m *PolicyManager) Universe() ResourceTypeUniverse {
	return m.universe
}

// AddPolicy validates and appends a single policy, assigning it a
// fresh ID if it has none. It rejects duplicate IDs.
func (m *PolicyManager) AddPolicy(p *Policy) error {
	if err := validatePolicy(m.universe, p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = NewPolicyID()
	}
	if _, dup := m.byID[p.ID]; dup {
		return schemaErrorf("id", "policy id %q already registered", p.ID)
	}
	key := p.Key()
	m.index[key] = append(m.index[key], p)
	m.byID[p.ID] = p
	return nil
}

// AddPolicies adds policies one at a time, in order, stopping at the
// first failure. Policies preceding the failure remain registered:
// this is a sequential, partial-success operation, not a transaction.
func (m *PolicyManager) AddPolicies(policies []*Policy) error {
	for i, p := range policies {
		if err := m.AddPolicy(p); err != nil {
			return fmt.Errorf("abac: adding policy at index %d: %w", i, err)
		}
	}
	return nil
}

// GetPolicies returns a shallow copy of the current policy index,
// keyed by "<resourceType>:<action>". Safe to retain and read
// concurrently with further additions to the manager.
func (m *PolicyManager) GetPolicies() map[PolicyKey][]*Policy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[PolicyKey][]*Policy, len(m.index))
	for k, v := range m.index {
		out[k] = append([]*Policy(nil), v...)
	}
	return out
}

// PolicyByID looks up a previously registered policy by its ID.
func (m *PolicyManager) PolicyByID(id string) (*Policy, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	return p, ok
}

// CreateResource validates and constructs a Resource of a type drawn
// from the manager's universe. It does not retain the resource; the
// manager indexes policies, not resource instances.
func (m *PolicyManager) CreateResource(id, resourceType string, attrs Attributes) (*Resource, error) {
	if err := validateResourceInput(m.universe, id, resourceType); err != nil {
		return nil, err
	}
	if attrs == nil {
		attrs = Attributes{}
	}
	return &Resource{ID: id, Type: resourceType, Attributes: attrs}, nil
}
