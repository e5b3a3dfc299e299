package abac

import (
	"testing"
	"time"
)

func TestCachedAuthorizerCachesDecisions(t *testing.T) {
	source := SourceResource
	cond := AttributeCondition{Op: OpEq, AttributeKey: "$status", ReferenceValue: StringValue("public"), CompareSource: &source}
	e := buildEngine(t, &Policy{ID: "p1", Action: ActionRead, Resource: "document", Conditions: cond})

	cached, err := NewCachedAuthorizer(e, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	subject := &Resource{ID: "u1", Type: "user"}
	resource := &Resource{ID: "d1", Type: "document", Attributes: Attributes{"status": StringValue("public")}}

	ok, err := cached.IsAuthorized(subject, resource, ActionRead)
	if err != nil || !ok {
		t.Fatalf("unexpected first-call result ok=%v err=%v", ok, err)
	}

	cached.cache.Wait()
	ok, err = cached.IsAuthorized(subject, resource, ActionRead)
	if err != nil || !ok {
		t.Fatalf("unexpected cached-call result ok=%v err=%v", ok, err)
	}
}

func TestCachedAuthorizerInvalidate(t *testing.T) {
	e := buildEngine(t, &Policy{ID: "p1", Action: ActionRead, Resource: "document"})
	cached, err := NewCachedAuthorizer(e, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	subject := &Resource{ID: "u1", Type: "user"}
	resource := &Resource{ID: "d1", Type: "document"}

	if _, err := cached.IsAuthorized(subject, resource, ActionRead); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cached.cache.Wait()
	cached.Invalidate(subject, resource, ActionRead)
	cached.InvalidateAll()
}

func TestNewCachedAuthorizerRejectsNilEngine(t *testing.T) {
	if _, err := NewCachedAuthorizer(nil, time.Minute); err == nil {
		t.Fatalf("expected error for a nil engine")
	}
}
