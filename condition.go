package abac

// LogicalOp is the operator of a Logical condition.
type LogicalOp string

const (
	OpAnd LogicalOp = "and"
	OpOr  LogicalOp = "or"
	OpNot LogicalOp = "not"
)

// AttributeOp is the operator of an AttributeCondition.
type AttributeOp string

const (
	OpEq  AttributeOp = "eq"
	OpNe  AttributeOp = "ne"
	OpGt  AttributeOp = "gt"
	OpGte AttributeOp = "gte"
	OpLt  AttributeOp = "lt"
	OpLte AttributeOp = "lte"
	OpIn  AttributeOp = "in"
	OpNin AttributeOp = "nin"
)

// Condition is the recursive sum type at the heart of the condition
// algebra: Logical | AttributeCondition | EntityKeyCondition. It is a
// closed set — the marker method keeps it non-implementable outside
// this package.
type Condition interface {
	conditionNode()
}

// Logical composes child conditions with and/or/not.
//
// Children holds exactly one element for Not and one-or-more for
// And/Or; the schema validator enforces this at registration time, so
// the evaluator may assume it holds.
type Logical struct {
	Op       LogicalOp
	Children []Condition
}

func (Logical) conditionNode() {}

// AttributeCondition compares a single attribute (on subject, on
// resource, or both) against a literal reference value.
type AttributeCondition struct {
	Op             AttributeOp
	AttributeKey   DynamicKey
	ReferenceValue AttributeValue
	// CompareSource is nil when absent: both sides are probed and
	// ANDed together (see spec §9 open question 2).
	CompareSource *CompareSource
}

func (AttributeCondition) conditionNode() {}

// EntityKeyCondition compares one attribute of the subject against one
// attribute of the resource. eq/ne/gt/gte/lt/lte use the primitive
// form (SubjectKey/ResourceKey); in/nin use the collection form
// (TargetKey/CollectionKey/CollectionSource).
type EntityKeyCondition struct {
	Op AttributeOp

	// Primitive form.
	SubjectKey  DynamicKey
	ResourceKey DynamicKey

	// Collection form.
	TargetKey        DynamicKey
	CollectionKey    DynamicKey
	CollectionSource CollectionSource
}

func (EntityKeyCondition) conditionNode() {}

// isCollectionOp reports whether op uses the collection form of
// EntityKeyCondition.
func isCollectionOp(op AttributeOp) bool {
	return op == OpIn || op == OpNin
}
