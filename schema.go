package abac

import "fmt"

// validateDynamicKey enforces the DynamicKey lexical rule at path.
func validateDynamicKey(path string, k DynamicKey) error {
	if !k.valid() {
		return schemaErrorf(path, "key %q must start with '$' and have at least one character after it", string(k))
	}
	return nil
}

// validateCondition recursively descends a Condition tree, enforcing
// the invariants of spec §3/§4.1: operator membership per variant, the
// DynamicKey lexical rule, referenceValue shape per operator, and
// non-empty/singleton children for Logical nodes.
func validateCondition(path string, c Condition) error {
	if c == nil {
		return schemaErrorf(path, "condition must not be nil")
	}
	switch n := c.(type) {
	case Logical:
		return validateLogical(path, n)
	case AttributeCondition:
		return validateAttributeCondition(path, n)
	case EntityKeyCondition:
		return validateEntityKeyCondition(path, n)
	default:
		return schemaErrorf(path, "unrecognized condition variant %T", c)
	}
}

func validateLogical(path string, n Logical) error {
	switch n.Op {
	case OpAnd, OpOr:
		if len(n.Children) == 0 {
			return schemaErrorf(path, "%q requires at least one child condition", n.Op)
		}
		for i, child := range n.Children {
			if err := validateCondition(fmt.Sprintf("%s.children[%d]", path, i), child); err != nil {
				return err
			}
		}
		return nil
	case OpNot:
		if len(n.Children) != 1 {
			return schemaErrorf(path, "\"not\" requires exactly one child condition, got %d", len(n.Children))
		}
		return validateCondition(path+".children[0]", n.Children[0])
	default:
		return schemaErrorf(path, "unknown logical operator %q", n.Op)
	}
}

func validateAttributeCondition(path string, n AttributeCondition) error {
	if err := validateDynamicKey(path+".attributeKey", n.AttributeKey); err != nil {
		return err
	}
	switch n.Op {
	case OpEq, OpNe:
		if n.ReferenceValue.IsArray() {
			return schemaErrorf(path+".referenceValue", "%q requires a scalar string, number, or bool reference value", n.Op)
		}
	case OpGt, OpGte, OpLt, OpLte:
		if n.ReferenceValue.Kind() != KindNumber {
			return schemaErrorf(path+".referenceValue", "%q requires a numeric reference value", n.Op)
		}
	case OpIn, OpNin:
		kind := n.ReferenceValue.Kind()
		if kind != KindStringArray && kind != KindNumberArray {
			return schemaErrorf(path+".referenceValue", "%q requires an array<string> or array<number> reference value", n.Op)
		}
	default:
		return schemaErrorf(path+".op", "unknown attribute operator %q", n.Op)
	}
	if n.CompareSource != nil {
		switch *n.CompareSource {
		case SourceSubject, SourceResource:
		default:
			return schemaErrorf(path+".compareSource", "must be %q or %q", SourceSubject, SourceResource)
		}
	}
	return nil
}

func validateEntityKeyCondition(path string, n EntityKeyCondition) error {
	switch n.Op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		if n.SubjectKey == "" || n.ResourceKey == "" {
			return schemaErrorf(path, "%q requires subjectKey and resourceKey", n.Op)
		}
		if n.TargetKey != "" || n.CollectionKey != "" || n.CollectionSource != "" {
			return schemaErrorf(path, "%q must not carry targetKey/collectionKey/collectionSource", n.Op)
		}
		if err := validateDynamicKey(path+".subjectKey", n.SubjectKey); err != nil {
			return err
		}
		return validateDynamicKey(path+".resourceKey", n.ResourceKey)
	case OpIn, OpNin:
		if n.TargetKey == "" || n.CollectionKey == "" {
			return schemaErrorf(path, "%q requires targetKey and collectionKey", n.Op)
		}
		if n.SubjectKey != "" || n.ResourceKey != "" {
			return schemaErrorf(path, "%q must not carry subjectKey/resourceKey", n.Op)
		}
		switch n.CollectionSource {
		case CollectionSubject, CollectionResource:
		default:
			return schemaErrorf(path+".collectionSource", "must be %q or %q", CollectionSubject, CollectionResource)
		}
		if err := validateDynamicKey(path+".targetKey", n.TargetKey); err != nil {
			return err
		}
		return validateDynamicKey(path+".collectionKey", n.CollectionKey)
	default:
		return schemaErrorf(path+".op", "unknown entity-key operator %q", n.Op)
	}
}

// validatePolicy checks a policy's resource type against the universe
// and recursively validates its conditions, if any.
func validatePolicy(universe ResourceTypeUniverse, p *Policy) error {
	if p == nil {
		return schemaErrorf("", "policy must not be nil")
	}
	if !p.Action.valid() {
		return schemaErrorf("action", "unknown action %q", p.Action)
	}
	if !universe.Contains(p.Resource) {
		return schemaErrorf("resource", "resource type %q is not in the configured universe", p.Resource)
	}
	if p.Conditions == nil {
		return nil
	}
	return validateCondition("conditions", p.Conditions)
}

// validateResourceInput checks an about-to-be-created resource's type
// membership; attribute values are already shaped correctly by
// construction (AttributeValue's constructors are the only way to
// produce one), so no further per-attribute validation is needed here.
func validateResourceInput(universe ResourceTypeUniverse, id, resourceType string) error {
	if id == "" {
		return schemaErrorf("id", "resource id must not be empty")
	}
	if !universe.Contains(resourceType) {
		return schemaErrorf("type", "resource type %q is not in the configured universe", resourceType)
	}
	return nil
}
