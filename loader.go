package abac

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// PolicyDocumentLoader parses policy documents from JSON or YAML
// (one policy per document), rejecting unrecognized fields so a typo'd key fails loudly
// at load time instead of being silently ignored.
type PolicyDocumentLoader struct {
	universe ResourceTypeUniverse
}

func NewPolicyDocumentLoader(universe ResourceTypeUniverse) *PolicyDocumentLoader {
	return &PolicyDocumentLoader{universe: universe}
}

// policyDoc is the wire shape of a single policy document.
type policyDoc struct {
	ID         string          `json:"id"`
	Action     Action          `json:"action"`
	Resource   string          `json:"resource"`
	Conditions json.RawMessage `json:"conditions,omitempty"`
}

// LoadJSON decodes and validates one policy document from r.
func (l *PolicyDocumentLoader) LoadJSON(r io.Reader) (*Policy, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var doc policyDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("abac: decoding policy document: %w", err)
	}
	return l.buildPolicy(doc)
}

// LoadYAML decodes and validates one policy document from r. YAML is
// first normalized to a generic value tree and re-marshaled to JSON so
// the same strict, unknown-field-rejecting path handles both formats.
func (l *PolicyDocumentLoader) LoadYAML(r io.Reader) (*Policy, error) {
	var generic any
	if err := yaml.NewDecoder(r).Decode(&generic); err != nil {
		return nil, fmt.Errorf("abac: decoding policy document: %w", err)
	}
	jsonBytes, err := json.Marshal(normalizeYAML(generic))
	if err != nil {
		return nil, fmt.Errorf("abac: normalizing policy document: %w", err)
	}
	return l.LoadJSON(bytes.NewReader(jsonBytes))
}

func (l *PolicyDocumentLoader) buildPolicy(doc policyDoc) (*Policy, error) {
	p := &Policy{ID: doc.ID, Action: doc.Action, Resource: doc.Resource}
	if len(doc.Conditions) > 0 {
		cond, err := decodeConditionNode(doc.Conditions, "conditions")
		if err != nil {
			return nil, err
		}
		p.Conditions = cond
	}
	if err := validatePolicy(l.universe, p); err != nil {
		return nil, err
	}
	return p, nil
}

// normalizeYAML converts map[string]interface{} (yaml.v3's default for
// mapping nodes) into map[string]any recursively so json.Marshal
// handles nested structures the same way it would for a native map.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return t
	}
}

var conditionFieldsByVariant = map[string][]string{
	"logical":    {"op", "children"},
	"attribute":  {"op", "attributeKey", "referenceValue", "compareSource"},
	"entityKey":  {"op", "subjectKey", "resourceKey"},
	"collection": {"op", "targetKey", "collectionKey", "collectionSource"},
}

// decodeConditionNode decodes one condition node, discriminating among
// the four wire shapes by which optional fields are present rather
// than an explicit "kind" tag, then rejects any field that doesn't
// belong to the shape it picked.
func decodeConditionNode(raw json.RawMessage, path string) (Condition, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("abac: decoding condition at %s: %w", path, err)
	}

	opRaw, ok := fields["op"]
	if !ok {
		return nil, schemaErrorf(path, "condition is missing \"op\"")
	}
	var op string
	if err := json.Unmarshal(opRaw, &op); err != nil {
		return nil, schemaErrorf(path+".op", "must be a string")
	}

	switch AttributeOp(op) {
	case AttributeOp(OpAnd), AttributeOp(OpOr), AttributeOp(OpNot):
		return decodeLogical(fields, LogicalOp(op), path)
	}

	_, hasAttrKey := fields["attributeKey"]
	_, hasSubjectKey := fields["subjectKey"]
	_, hasTargetKey := fields["targetKey"]

	switch {
	case hasAttrKey:
		if err := rejectForeignFields(fields, conditionFieldsByVariant["attribute"], path); err != nil {
			return nil, err
		}
		return decodeAttributeCondition(fields, AttributeOp(op), path)
	case hasSubjectKey:
		if err := rejectForeignFields(fields, conditionFieldsByVariant["entityKey"], path); err != nil {
			return nil, err
		}
		return decodeEntityKeyPrimitive(fields, AttributeOp(op), path)
	case hasTargetKey:
		if err := rejectForeignFields(fields, conditionFieldsByVariant["collection"], path); err != nil {
			return nil, err
		}
		return decodeEntityKeyCollection(fields, AttributeOp(op), path)
	default:
		return nil, schemaErrorf(path, "condition has no recognizable field set for op %q", op)
	}
}

func rejectForeignFields(fields map[string]json.RawMessage, allowed []string, path string) error {
	allowedSet := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = true
	}
	for k := range fields {
		if !allowedSet[k] {
			return schemaErrorf(path+"."+k, "field not valid for this condition shape")
		}
	}
	return nil
}

func decodeLogical(fields map[string]json.RawMessage, op LogicalOp, path string) (Condition, error) {
	if err := rejectForeignFields(fields, conditionFieldsByVariant["logical"], path); err != nil {
		return nil, err
	}
	var rawChildren []json.RawMessage
	if err := json.Unmarshal(fields["children"], &rawChildren); err != nil {
		return nil, schemaErrorf(path+".children", "must be an array of conditions")
	}
	children := make([]Condition, len(rawChildren))
	for i, rc := range rawChildren {
		c, err := decodeConditionNode(rc, fmt.Sprintf("%s.children[%d]", path, i))
		if err != nil {
			return nil, err
		}
		children[i] = c
	}
	n := Logical{Op: op, Children: children}
	if err := validateLogical(path, n); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeAttributeCondition(fields map[string]json.RawMessage, op AttributeOp, path string) (Condition, error) {
	var key DynamicKey
	if err := json.Unmarshal(fields["attributeKey"], &key); err != nil {
		return nil, schemaErrorf(path+".attributeKey", "must be a string")
	}
	ref, err := decodeAttributeValue(fields["referenceValue"], path+".referenceValue")
	if err != nil {
		return nil, err
	}
	n := AttributeCondition{Op: op, AttributeKey: key, ReferenceValue: ref}
	if rawSrc, ok := fields["compareSource"]; ok {
		var src string
		if err := json.Unmarshal(rawSrc, &src); err != nil {
			return nil, schemaErrorf(path+".compareSource", "must be a string")
		}
		cs := CompareSource(src)
		n.CompareSource = &cs
	}
	if err := validateAttributeCondition(path, n); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeEntityKeyPrimitive(fields map[string]json.RawMessage, op AttributeOp, path string) (Condition, error) {
	var subjectKey, resourceKey DynamicKey
	if err := json.Unmarshal(fields["subjectKey"], &subjectKey); err != nil {
		return nil, schemaErrorf(path+".subjectKey", "must be a string")
	}
	if err := json.Unmarshal(fields["resourceKey"], &resourceKey); err != nil {
		return nil, schemaErrorf(path+".resourceKey", "must be a string")
	}
	n := EntityKeyCondition{Op: op, SubjectKey: subjectKey, ResourceKey: resourceKey}
	if err := validateEntityKeyCondition(path, n); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeEntityKeyCollection(fields map[string]json.RawMessage, op AttributeOp, path string) (Condition, error) {
	var targetKey, collectionKey DynamicKey
	if err := json.Unmarshal(fields["targetKey"], &targetKey); err != nil {
		return nil, schemaErrorf(path+".targetKey", "must be a string")
	}
	if err := json.Unmarshal(fields["collectionKey"], &collectionKey); err != nil {
		return nil, schemaErrorf(path+".collectionKey", "must be a string")
	}
	var source string
	if err := json.Unmarshal(fields["collectionSource"], &source); err != nil {
		return nil, schemaErrorf(path+".collectionSource", "must be a string")
	}
	n := EntityKeyCondition{Op: op, TargetKey: targetKey, CollectionKey: collectionKey, CollectionSource: CollectionSource(source)}
	if err := validateEntityKeyCondition(path, n); err != nil {
		return nil, err
	}
	return n, nil
}

// decodeAttributeValue decodes a JSON reference/attribute value into
// an AttributeValue, inferring its kind from the JSON shape itself
// (string, number, bool, or homogeneous array of string/number).
func decodeAttributeValue(raw json.RawMessage, path string) (AttributeValue, error) {
	if len(raw) == 0 {
		return AttributeValue{}, schemaErrorf(path, "value is required")
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return AttributeValue{}, schemaErrorf(path, "invalid JSON value")
	}
	switch t := generic.(type) {
	case string:
		return StringValue(t), nil
	case float64:
		return NumberValue(t), nil
	case bool:
		return BoolValue(t), nil
	case []any:
		if len(t) == 0 {
			return AttributeValue{}, schemaErrorf(path, "array value must not be empty")
		}
		switch t[0].(type) {
		case string:
			out := make([]string, len(t))
			for i, e := range t {
				s, ok := e.(string)
				if !ok {
					return AttributeValue{}, schemaErrorf(path, "array elements must all be strings")
				}
				out[i] = s
			}
			return StringArrayValue(out), nil
		case float64:
			out := make([]float64, len(t))
			for i, e := range t {
				n, ok := e.(float64)
				if !ok {
					return AttributeValue{}, schemaErrorf(path, "array elements must all be numbers")
				}
				out[i] = n
			}
			return NumberArrayValue(out), nil
		default:
			return AttributeValue{}, schemaErrorf(path, "array elements must be strings or numbers")
		}
	default:
		return AttributeValue{}, schemaErrorf(path, "value must be a string, number, bool, or array")
	}
}
