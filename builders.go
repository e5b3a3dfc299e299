package abac

// PolicyBuilder builds a Policy.
type PolicyBuilder struct {
	p *Policy
}

func NewPolicyBuilder() *PolicyBuilder {
	return &PolicyBuilder{p: &Policy{}}
}

func (b *PolicyBuilder) ID(id string) *PolicyBuilder             { b.p.ID = id; return b }
func (b *PolicyBuilder) Action(a Action) *PolicyBuilder          { b.p.Action = a; return b }
func (b *PolicyBuilder) Resource(resType string) *PolicyBuilder  { b.p.Resource = resType; return b }
func (b *PolicyBuilder) Conditions(c Condition) *PolicyBuilder   { b.p.Conditions = c; return b }
func (b *PolicyBuilder) Build() *Policy                          { return b.p }

// ConditionBuilder assembles Condition trees without requiring the
// caller to spell out the Logical/AttributeCondition/EntityKeyCondition
// struct literals by hand.
type ConditionBuilder struct{}

func Cond() ConditionBuilder { return ConditionBuilder{} }

func (ConditionBuilder) And(children ...Condition) Condition {
	return Logical{Op: OpAnd, Children: children}
}

func (ConditionBuilder) Or(children ...Condition) Condition {
	return Logical{Op: OpOr, Children: children}
}

func (ConditionBuilder) Not(child Condition) Condition {
	return Logical{Op: OpNot, Children: []Condition{child}}
}

// Attr builds an AttributeCondition with no CompareSource: both
// subject and resource are probed and their results ANDed together; if
// either side lacks the attribute the condition is false.
func (ConditionBuilder) Attr(op AttributeOp, key DynamicKey, ref AttributeValue) Condition {
	return AttributeCondition{Op: op, AttributeKey: key, ReferenceValue: ref}
}

// AttrOn builds an AttributeCondition pinned to a single side.
func (ConditionBuilder) AttrOn(op AttributeOp, key DynamicKey, ref AttributeValue, source CompareSource) Condition {
	s := source
	return AttributeCondition{Op: op, AttributeKey: key, ReferenceValue: ref, CompareSource: &s}
}

// EntityKey builds the primitive (non-membership) form of an
// EntityKeyCondition, comparing subjectKey on the subject against
// resourceKey on the resource.
func (ConditionBuilder) EntityKey(op AttributeOp, subjectKey, resourceKey DynamicKey) Condition {
	return EntityKeyCondition{Op: op, SubjectKey: subjectKey, ResourceKey: resourceKey}
}

// EntityKeyIn builds the collection (membership) form of an
// EntityKeyCondition: targetKey is resolved on the subject and
// collectionKey on the resource, and source selects which of the two
// values is the array searched. With source=subject the array is the
// subject's targetKey value and the probed scalar is the resource's
// collectionKey value; with source=resource it is the other way round.
func (ConditionBuilder) EntityKeyIn(op AttributeOp, targetKey, collectionKey DynamicKey, source CollectionSource) Condition {
	return EntityKeyCondition{Op: op, TargetKey: targetKey, CollectionKey: collectionKey, CollectionSource: source}
}
