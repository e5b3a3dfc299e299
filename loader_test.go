package abac

import (
	"strings"
	"testing"
)

func TestLoadJSONPolicyDocument(t *testing.T) {
	u := mustUniverse(t, "document")
	loader := NewPolicyDocumentLoader(u)

	doc := `{
		"id": "p1",
		"action": "read",
		"resource": "document",
		"conditions": {
			"op": "eq",
			"attributeKey": "$status",
			"referenceValue": "public",
			"compareSource": "resource"
		}
	}`
	p, err := loader.LoadJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cond, ok := p.Conditions.(AttributeCondition)
	if !ok {
		t.Fatalf("expected AttributeCondition, got %T", p.Conditions)
	}
	if cond.AttributeKey != "$status" {
		t.Fatalf("unexpected attribute key %q", cond.AttributeKey)
	}
}

func TestLoadJSONRejectsUnknownField(t *testing.T) {
	u := mustUniverse(t, "document")
	loader := NewPolicyDocumentLoader(u)

	doc := `{"id": "p1", "action": "read", "resource": "document", "unexpected": true}`
	if _, err := loader.LoadJSON(strings.NewReader(doc)); err == nil {
		t.Fatalf("expected error for an unrecognized top-level field")
	}
}

func TestLoadJSONRejectsForeignConditionField(t *testing.T) {
	u := mustUniverse(t, "document")
	loader := NewPolicyDocumentLoader(u)

	doc := `{
		"id": "p1",
		"action": "read",
		"resource": "document",
		"conditions": {
			"op": "eq",
			"attributeKey": "$status",
			"referenceValue": "public",
			"subjectKey": "$id"
		}
	}`
	if _, err := loader.LoadJSON(strings.NewReader(doc)); err == nil {
		t.Fatalf("expected error mixing attribute and entity-key fields")
	}
}

func TestLoadYAMLPolicyDocument(t *testing.T) {
	u := mustUniverse(t, "document")
	loader := NewPolicyDocumentLoader(u)

	doc := `
id: p1
action: read
resource: document
conditions:
  op: in
  targetKey: "$id"
  collectionKey: "$allowedUserIds"
  collectionSource: resource
`
	p, err := loader.LoadYAML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cond, ok := p.Conditions.(EntityKeyCondition)
	if !ok {
		t.Fatalf("expected EntityKeyCondition, got %T", p.Conditions)
	}
	if cond.CollectionSource != CollectionResource {
		t.Fatalf("unexpected collection source %q", cond.CollectionSource)
	}
}

func TestLoadJSONNestedLogical(t *testing.T) {
	u := mustUniverse(t, "document")
	loader := NewPolicyDocumentLoader(u)

	doc := `{
		"id": "p1",
		"action": "read",
		"resource": "document",
		"conditions": {
			"op": "or",
			"children": [
				{"op": "eq", "attributeKey": "$status", "referenceValue": "public", "compareSource": "resource"},
				{"op": "eq", "subjectKey": "$id", "resourceKey": "$ownerId"}
			]
		}
	}`
	p, err := loader.LoadJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logical, ok := p.Conditions.(Logical)
	if !ok || len(logical.Children) != 2 {
		t.Fatalf("expected a 2-child Logical, got %#v", p.Conditions)
	}
}
