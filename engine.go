package abac

// EvalOption configures a single IsAuthorized/Explain call.
type EvalOption func(*evalConfig)

type evalConfig struct {
	sink DebugSink
}

// WithDebugSink attaches a DebugSink to receive trace Records for this
// evaluation only.
func WithDebugSink(sink DebugSink) EvalOption {
	return func(c *evalConfig) {
		c.sink = sink
	}
}

// AuthEngine is a stateless evaluator over a fixed, read-only policy
// index. It performs no caching or memoization of its own; wrap it in
// CachedAuthorizer for that.
type AuthEngine struct {
	index map[PolicyKey][]*Policy
}

// NewAuthEngine builds an AuthEngine from a policy index snapshot,
// typically obtained from PolicyManager.GetPolicies. The engine takes
// its own copy so later mutation of the caller's map cannot affect it.
func NewAuthEngine(index map[PolicyKey][]*Policy) *AuthEngine {
	cp := make(map[PolicyKey][]*Policy, len(index))
	for k, v := range index {
		cp[k] = append([]*Policy(nil), v...)
	}
	return &AuthEngine{index: cp}
}

// IsAuthorized reports whether any policy registered for
// resource.Type/action grants access, given subject and resource. A
// resource is granted access as soon as one matching policy's
// condition evaluates true; policies are tried in registration order.
func (e *AuthEngine) IsAuthorized(subject, resource *Resource, action Action, opts ...EvalOption) (bool, error) {
	cfg := evalConfig{sink: NoopSink{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	key := policyKey(resource.Type, action)
	policies := e.index[key]

	for _, p := range policies {
		cfg.sink.Record(Record{Stage: StagePolicyConsidered, PolicyID: p.ID})
		ok, err := e.evaluatePolicy(subject, resource, p, cfg.sink)
		if err != nil {
			cfg.sink.Record(Record{Stage: StageOutcome, PolicyID: p.ID, Err: err})
			return false, err
		}
		cfg.sink.Record(Record{Stage: StageOutcome, PolicyID: p.ID, Outcome: &ok})
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Explain runs the same evaluation as IsAuthorized with a collecting
// DebugSink and returns the full trace of Records alongside the
// outcome.
func (e *AuthEngine) Explain(subject, resource *Resource, action Action) (bool, []Record, error) {
	var trace []Record
	collector := collectorSink{records: &trace}
	ok, err := e.IsAuthorized(subject, resource, action, WithDebugSink(collector))
	return ok, trace, err
}

type collectorSink struct {
	records *[]Record
}

func (c collectorSink) Record(r Record) {
	*c.records = append(*c.records, r)
}

func (e *AuthEngine) evaluatePolicy(subject, resource *Resource, p *Policy, sink DebugSink) (bool, error) {
	if p.Conditions == nil {
		return true, nil
	}
	return evaluateCondition(subject, resource, p.Conditions, sink)
}

func evaluateCondition(subject, resource *Resource, c Condition, sink DebugSink) (bool, error) {
	switch n := c.(type) {
	case Logical:
		return evaluateLogical(subject, resource, n, sink)
	case AttributeCondition:
		return evaluateAttributeCondition(subject, resource, n, sink)
	case EntityKeyCondition:
		return evaluateEntityKeyCondition(subject, resource, n, sink)
	default:
		return false, invalidOperand("", KindString, "unrecognized condition variant %T", c)
	}
}

func evaluateLogical(subject, resource *Resource, n Logical, sink DebugSink) (bool, error) {
	sink.Record(Record{Stage: StageConditionEnter, Detail: string(n.Op)})
	switch n.Op {
	case OpAnd:
		for _, child := range n.Children {
			ok, err := evaluateCondition(subject, resource, child, sink)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case OpOr:
		for _, child := range n.Children {
			ok, err := evaluateCondition(subject, resource, child, sink)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case OpNot:
		ok, err := evaluateCondition(subject, resource, n.Children[0], sink)
		if err != nil {
			return false, err
		}
		return !ok, nil
	default:
		return false, invalidOperand(AttributeOp(n.Op), KindString, "unknown logical operator")
	}
}

func evaluateAttributeCondition(subject, resource *Resource, n AttributeCondition, sink DebugSink) (bool, error) {
	name := n.AttributeKey.Resolved()

	var sides []*Resource
	switch {
	case n.CompareSource == nil:
		sides = []*Resource{subject, resource}
	case *n.CompareSource == SourceSubject:
		sides = []*Resource{subject}
	default:
		sides = []*Resource{resource}
	}

	result := true
	for _, side := range sides {
		actual, present := side.Attributes[name]
		sink.Record(Record{Stage: StageValueResolved, Detail: name})
		if !present {
			return false, nil
		}
		ok, err := attributeMatches(n.Op, actual, n.ReferenceValue)
		if err != nil {
			return false, err
		}
		result = result && ok
	}
	return result, nil
}

func evaluateEntityKeyCondition(subject, resource *Resource, n EntityKeyCondition, sink DebugSink) (bool, error) {
	if isCollectionOp(n.Op) {
		return evaluateCollectionKeyCondition(subject, resource, n, sink)
	}

	subjectVal, sOk := subject.Attributes[n.SubjectKey.Resolved()]
	resourceVal, rOk := resource.Attributes[n.ResourceKey.Resolved()]
	sink.Record(Record{Stage: StageValueResolved, Detail: n.SubjectKey.Resolved() + "/" + n.ResourceKey.Resolved()})
	if !sOk || !rOk {
		return false, nil
	}
	return attributeMatches(n.Op, subjectVal, resourceVal)
}

// evaluateCollectionKeyCondition resolves the collection-form
// EntityKeyCondition. TargetKey always resolves on the subject and
// CollectionKey always resolves on the resource; CollectionSource only
// selects which of those two resolved values is treated as the array
// being searched and which is the scalar searched for. This is
// counter-intuitive by name but pinned by spec: for
// CollectionSource=subject, the array is subject[TargetKey] and the
// probed scalar is resource[CollectionKey].
func evaluateCollectionKeyCondition(subject, resource *Resource, n EntityKeyCondition, sink DebugSink) (bool, error) {
	subjectVal, sOk := subject.Attributes[n.TargetKey.Resolved()]
	resourceVal, rOk := resource.Attributes[n.CollectionKey.Resolved()]
	sink.Record(Record{Stage: StageValueResolved, Detail: n.TargetKey.Resolved() + "/" + n.CollectionKey.Resolved()})
	if !sOk || !rOk {
		return false, nil
	}

	var collection, target AttributeValue
	switch n.CollectionSource {
	case CollectionSubject:
		collection, target = subjectVal, resourceVal
	default:
		collection, target = resourceVal, subjectVal
	}

	member, err := collectionContains(collection, target)
	if err != nil {
		return false, err
	}
	if n.Op == OpNin {
		return !member, nil
	}
	return member, nil
}

func collectionContains(collection, target AttributeValue) (bool, error) {
	switch collection.Kind() {
	case KindStringArray:
		s, ok := target.AsString()
		if !ok {
			return false, invalidOperand(OpIn, target.Kind(), "target must be a string to probe a string[] collection")
		}
		arr, _ := collection.AsStringArray()
		for _, v := range arr {
			if v == s {
				return true, nil
			}
		}
		return false, nil
	case KindNumberArray:
		n, ok := target.AsNumber()
		if !ok {
			return false, invalidOperand(OpIn, target.Kind(), "target must be a number to probe a number[] collection")
		}
		arr, _ := collection.AsNumberArray()
		for _, v := range arr {
			if v == n {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, invalidOperand(OpIn, collection.Kind(), "collection attribute must be string[] or number[]")
	}
}

// attributeMatches evaluates op against (actual, reference). Absence
// is handled by callers before this is reached; every call here
// concerns two present values, so any shape mismatch is a genuine
// InvalidOperandError rather than a false result.
func attributeMatches(op AttributeOp, actual, reference AttributeValue) (bool, error) {
	switch op {
	case OpEq, OpNe:
		if actual.Kind() != reference.Kind() {
			return false, invalidOperand(op, actual.Kind(), "cannot compare against reference of type %s", reference.Kind())
		}
		if actual.IsArray() {
			return false, invalidOperand(op, actual.Kind(), "eq/ne do not accept array operands")
		}
		eq := actual.equalPrimitive(reference)
		if op == OpNe {
			return !eq, nil
		}
		return eq, nil
	case OpGt, OpGte, OpLt, OpLte:
		if actual.Kind() != KindNumber || reference.Kind() != KindNumber {
			return false, invalidOperand(op, actual.Kind(), "ordering operators require numeric operands")
		}
		cmp := actual.compareNumeric(reference)
		switch op {
		case OpGt:
			return cmp > 0, nil
		case OpGte:
			return cmp >= 0, nil
		case OpLt:
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}
	case OpIn, OpNin:
		member, err := collectionContains(reference, actual)
		if err != nil {
			return false, err
		}
		if op == OpNin {
			return !member, nil
		}
		return member, nil
	default:
		return false, invalidOperand(op, actual.Kind(), "unknown attribute operator")
	}
}
