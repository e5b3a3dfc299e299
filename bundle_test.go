package abac

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
)

func TestSignAndVerifyPolicy(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("unexpected error generating key: %v", err)
	}
	p := &Policy{ID: "p1", Action: ActionRead, Resource: "document"}

	sig, err := SignPolicy(priv, p)
	if err != nil {
		t.Fatalf("unexpected error signing policy: %v", err)
	}
	ok, err := VerifyPolicySignature(pub, p, sig)
	if err != nil || !ok {
		t.Fatalf("expected valid signature to verify, ok=%v err=%v", ok, err)
	}

	p.Action = ActionDelete
	ok, err = VerifyPolicySignature(pub, p, sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected signature to no longer verify after the policy changed")
	}
}

func TestSignAndVerifyBundle(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("unexpected error generating key: %v", err)
	}
	pub := priv.Public().(ed25519.PublicKey)

	policies := []*Policy{
		{ID: "p1", Action: ActionRead, Resource: "document"},
		{ID: "p2", Action: ActionUpdate, Resource: "document"},
	}
	bundle, err := SignBundle(priv, policies)
	if err != nil {
		t.Fatalf("unexpected error signing bundle: %v", err)
	}
	ok, err := VerifyBundle(pub, bundle)
	if err != nil || !ok {
		t.Fatalf("expected bundle to verify, ok=%v err=%v", ok, err)
	}

	delete(bundle.Signatures, "p2")
	if _, err := VerifyBundle(pub, bundle); err == nil {
		t.Fatalf("expected error for a bundle missing a policy signature")
	}
}

func TestPolicyChecksumStableAcrossIdentity(t *testing.T) {
	a := &Policy{ID: "a", Action: ActionRead, Resource: "document"}
	b := &Policy{ID: "b", Action: ActionRead, Resource: "document"}
	if a.Checksum() != b.Checksum() {
		t.Fatalf("expected checksum to depend on semantics, not ID")
	}

	c := &Policy{ID: "a", Action: ActionDelete, Resource: "document"}
	if a.Checksum() == c.Checksum() {
		t.Fatalf("expected checksum to change when the action changes")
	}
}
