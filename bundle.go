package abac

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Checksum returns a deterministic hash of the policy's authorization
// semantics (action, resource type, conditions) — not its ID, so that
// re-signing after a round trip through a store produces the same
// checksum regardless of storage-assigned metadata.
func (p *Policy) Checksum() string {
	data, _ := json.Marshal(struct {
		Action     Action
		Resource   string
		Conditions Condition
	}{
		Action:     p.Action,
		Resource:   p.Resource,
		Conditions: p.Conditions,
	})
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// SignedPolicyBundle is a set of policies together with one ed25519
// signature per policy ID, as produced by SignBundle.
type SignedPolicyBundle struct {
	Policies   []*Policy         `json:"policies"`
	Signatures map[string]string `json:"signatures"`
	Meta       map[string]any    `json:"meta,omitempty"`
}

func signingPayload(p *Policy) ([]byte, error) {
	return json.Marshal(struct {
		ID       string
		Checksum string
	}{
		ID:       p.ID,
		Checksum: p.Checksum(),
	})
}

// SignPolicy returns a base64 ed25519 signature binding a policy's ID
// to its current Checksum.
func SignPolicy(priv ed25519.PrivateKey, p *Policy) (string, error) {
	data, err := signingPayload(p)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(priv, data)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyPolicySignature reports whether sigB64 is a valid signature
// over p's current ID/Checksum pair.
func VerifyPolicySignature(pub ed25519.PublicKey, p *Policy, sigB64 string) (bool, error) {
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false, err
	}
	data, err := signingPayload(p)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(pub, data, sig), nil
}

// SignBundle signs every policy in policies with priv, producing one
// SignedPolicyBundle with a per-policy signature map.
func SignBundle(priv ed25519.PrivateKey, policies []*Policy) (*SignedPolicyBundle, error) {
	b := &SignedPolicyBundle{Policies: policies, Signatures: make(map[string]string, len(policies))}
	for _, p := range policies {
		sig, err := SignPolicy(priv, p)
		if err != nil {
			return nil, err
		}
		b.Signatures[p.ID] = sig
	}
	return b, nil
}

// VerifyBundle verifies every policy in b against pub, failing closed
// at the first missing or invalid signature.
func VerifyBundle(pub ed25519.PublicKey, b *SignedPolicyBundle) (bool, error) {
	for _, p := range b.Policies {
		sig, ok := b.Signatures[p.ID]
		if !ok {
			return false, fmt.Errorf("abac: missing signature for policy %s", p.ID)
		}
		valid, err := VerifyPolicySignature(pub, p, sig)
		if err != nil {
			return false, fmt.Errorf("abac: verifying signature for policy %s: %w", p.ID, err)
		}
		if !valid {
			return false, fmt.Errorf("abac: invalid signature for policy %s", p.ID)
		}
	}
	return true, nil
}
