package abac

import (
	"fmt"
	"regexp"
)

// Action is one of the four operations a policy may authorize.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func (a Action) valid() bool {
	switch a {
	case ActionRead, ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// CompareSource selects which entity supplies the probed value in an
// AttributeCondition.
type CompareSource string

const (
	SourceSubject  CompareSource = "subject"
	SourceResource CompareSource = "resource"
)

// CollectionSource selects which entity holds the collection in a
// membership-style EntityKeyCondition.
type CollectionSource string

const (
	CollectionSubject  CollectionSource = "subject"
	CollectionResource CollectionSource = "resource"
)

// ValueKind tags the concrete shape carried by an AttributeValue.
type ValueKind uint8

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindStringArray
	KindNumberArray
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindStringArray:
		return "string[]"
	case KindNumberArray:
		return "number[]"
	default:
		return "unknown"
	}
}

// AttributeValue is the tagged union carried by Resource/subject
// attributes: string, number, bool, array<string>, array<number>.
// Arrays of booleans are intentionally not representable.
type AttributeValue struct {
	kind   ValueKind
	str    string
	num    float64
	b      bool
	strArr []string
	numArr []float64
}

func StringValue(s string) AttributeValue { return AttributeValue{kind: KindString, str: s} }
func NumberValue(n float64) AttributeValue { return AttributeValue{kind: KindNumber, num: n} }
func BoolValue(b bool) AttributeValue      { return AttributeValue{kind: KindBool, b: b} }

func StringArrayValue(vs []string) AttributeValue {
	cp := append([]string(nil), vs...)
	return AttributeValue{kind: KindStringArray, strArr: cp}
}

func NumberArrayValue(vs []float64) AttributeValue {
	cp := append([]float64(nil), vs...)
	return AttributeValue{kind: KindNumberArray, numArr: cp}
}

func (v AttributeValue) Kind() ValueKind { return v.kind }
func (v AttributeValue) IsArray() bool {
	return v.kind == KindStringArray || v.kind == KindNumberArray
}

func (v AttributeValue) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

func (v AttributeValue) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

func (v AttributeValue) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v AttributeValue) AsStringArray() ([]string, bool) {
	if v.kind != KindStringArray {
		return nil, false
	}
	return v.strArr, true
}

func (v AttributeValue) AsNumberArray() ([]float64, bool) {
	if v.kind != KindNumberArray {
		return nil, false
	}
	return v.numArr, true
}

// equalPrimitive reports strict equality for non-array values of the
// same kind. Cross-kind comparisons are the caller's problem.
func (v AttributeValue) equalPrimitive(o AttributeValue) bool {
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	}
	return false
}

// compareNumeric returns -1/0/1 for ordered comparisons; both values
// must already be confirmed numeric by the caller.
func (v AttributeValue) compareNumeric(o AttributeValue) int {
	switch {
	case v.num < o.num:
		return -1
	case v.num > o.num:
		return 1
	default:
		return 0
	}
}

// Attributes maps an attribute name to its value. Keys are non-empty
// strings; insertion order is irrelevant.
type Attributes map[string]AttributeValue

// ResourceTypeUniverse is the fixed, ordered, duplicate-free tuple of
// resource type names a PolicyManager accepts.
type ResourceTypeUniverse struct {
	members []string
	index   map[string]int
}

// NewResourceTypeUniverse validates and builds a universe. It fails if
// empty or if any member repeats.
func NewResourceTypeUniverse(types ...string) (ResourceTypeUniverse, error) {
	if len(types) == 0 {
		return ResourceTypeUniverse{}, fmt.Errorf("abac: resource type universe must not be empty")
	}
	index := make(map[string]int, len(types))
	for i, t := range types {
		if t == "" {
			return ResourceTypeUniverse{}, fmt.Errorf("abac: resource type at position %d is empty", i)
		}
		if _, dup := index[t]; dup {
			return ResourceTypeUniverse{}, fmt.Errorf("abac: duplicate resource type %q", t)
		}
		index[t] = i
	}
	return ResourceTypeUniverse{members: append([]string(nil), types...), index: index}, nil
}

func (u ResourceTypeUniverse) Contains(t string) bool {
	_, ok := u.index[t]
	return ok
}

func (u ResourceTypeUniverse) Members() []string {
	return append([]string(nil), u.members...)
}

// dynamicKeyPattern matches a leading '$' followed by at least one
// character, e.g. "$ownerId".
var dynamicKeyPattern = regexp.MustCompile(`^\$.+$`)

// DynamicKey is a policy-side identifier of the form "$name" denoting
// an attribute lookup on subject or resource.
type DynamicKey string

func (k DynamicKey) valid() bool {
	return dynamicKeyPattern.MatchString(string(k))
}

// Resolved strips the leading '$', returning the attribute name it
// references.
func (k DynamicKey) Resolved() string {
	return string(k)[1:]
}

// Resource is a subject or an object of an authorization query.
type Resource struct {
	ID         string
	Type       string
	Attributes Attributes
}
