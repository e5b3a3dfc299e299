package abac

import "github.com/oarkflow/abac/logger"

// Stage identifies the point in evaluation a Record was emitted from.
type Stage string

const (
	StagePolicyConsidered Stage = "policy_considered"
	StageConditionEnter   Stage = "condition_enter"
	StageValueResolved    Stage = "value_resolved"
	StageOutcome          Stage = "outcome"
)

// Record is a single trace event emitted during IsAuthorized/Explain
// evaluation. Fields not meaningful for a given Stage are left zero.
type Record struct {
	Stage     Stage
	PolicyID  string
	Detail    string
	Outcome   *bool
	Err       error
}

// DebugSink receives Records as evaluation proceeds. Implementations
// must be safe for concurrent use if the same sink is shared across
// concurrent IsAuthorized calls.
type DebugSink interface {
	Record(r Record)
}

// NoopSink discards every record. It is the default sink.
type NoopSink struct{}

func (NoopSink) Record(Record) {}

// LoggingDebugSink adapts a logger.Logger into a DebugSink, writing one
// log line per Record: at Debug level, or at Error level when the
// Record carries an error.
type LoggingDebugSink struct {
	log logger.Logger
}

func NewLoggingDebugSink(log logger.Logger) *LoggingDebugSink {
	return &LoggingDebugSink{log: log}
}

func (s *LoggingDebugSink) Record(r Record) {
	keyvals := []any{"stage", string(r.Stage)}
	if r.PolicyID != "" {
		keyvals = append(keyvals, "policy_id", r.PolicyID)
	}
	if r.Detail != "" {
		keyvals = append(keyvals, "detail", r.Detail)
	}
	if r.Outcome != nil {
		keyvals = append(keyvals, "outcome", *r.Outcome)
	}
	if r.Err != nil {
		s.log.Error("abac evaluation", append(keyvals, "error", r.Err.Error())...)
		return
	}
	s.log.Debug("abac evaluation", keyvals...)
}
