package ability

// Outcome classifies why the engine reached its verdict.
type Outcome string

// Decision outcomes.
const (
	OutcomeInvalidRequest Outcome = "invalid_request"
	OutcomeUnknownRole    Outcome = "unknown_role"
	OutcomeManage         Outcome = "manage_grant"
	OutcomeNoRule         Outcome = "no_matching_rule"
	OutcomeConditions     Outcome = "conditions_not_met"
	OutcomeInverted       Outcome = "inverted_rule"
	OutcomeGranted        Outcome = "rule_granted"
)

// Decision is the engine's verdict with the reason for it.
type Decision struct {
	Allowed bool
	Outcome Outcome
}

// Engine evaluates requests against a Registry. It holds no mutable state.
type Engine struct {
	registry *Registry
}

// NewEngine returns an engine over r.
func NewEngine(r *Registry) *Engine {
	return &Engine{registry: r}
}

// Can reports whether role may perform action on subject. data is the entity
// snapshot for conditional rules and may be nil; cross references in it must
// already be resolved by the caller.
func (e *Engine) Can(role Role, action Action, subject Subject, data Snapshot) bool {
	return e.Decide(role, action, subject, data).Allowed
}

// Decide is Can with the reason attached.
//
// A manage rule on the requested subject (or on all) grants unconditionally.
// Otherwise the rules covering action and subject are collected; any one of them
// whose conditions all hold grants. A matching inverted rule whose conditions
// hold denies regardless of grants.
func (e *Engine) Decide(role Role, action Action, subject Subject, data Snapshot) Decision {
	if role == "" || action == "" || subject.IsZero() {
		return Decision{Outcome: OutcomeInvalidRequest}
	}
	ab, ok := e.registry.Ability(role)
	if !ok {
		return Decision{Outcome: OutcomeUnknownRole}
	}

	for _, r := range ab.rules {
		if !r.Inverted && r.Action == ActionManage && r.coversSubject(subject) {
			return Decision{Allowed: true, Outcome: OutcomeManage}
		}
	}

	matched, granted := false, false
	for _, r := range ab.rules {
		if !r.coversAction(action) || !r.coversSubject(subject) {
			continue
		}
		matched = true
		if !r.satisfiedBy(data) {
			continue
		}
		if r.Inverted {
			return Decision{Outcome: OutcomeInverted}
		}
		granted = true
	}

	switch {
	case !matched:
		return Decision{Outcome: OutcomeNoRule}
	case !granted:
		return Decision{Outcome: OutcomeConditions}
	}
	return Decision{Allowed: true, Outcome: OutcomeGranted}
}
