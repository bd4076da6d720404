package ability

import "slices"

// Rule grants (or, when Inverted, withholds) Action on Subject. Conditions must
// all hold for the rule to apply. Fields, when set, scopes a resource-level rule
// to the listed attributes only.
type Rule struct {
	Action     Action
	Subject    Subject
	Conditions []Condition
	Fields     []string
	Inverted   bool
}

// Allow builds an unconditional rule.
func Allow(action Action, subject Subject) Rule {
	return Rule{Action: action, Subject: subject}
}

// When returns a copy of r guarded by the given conditions.
func (r Rule) When(conds ...Condition) Rule {
	r.Conditions = append(slices.Clone(r.Conditions), conds...)
	return r
}

// Conditional reports whether the rule carries any condition.
func (r Rule) Conditional() bool {
	return len(r.Conditions) > 0
}

func (r Rule) coversSubject(s Subject) bool {
	if r.Subject.IsAll() {
		return true
	}
	if len(r.Fields) > 0 {
		return r.Subject.Resource == s.Resource && slices.Contains(r.Fields, s.Attribute)
	}
	return r.Subject == s
}

func (r Rule) coversAction(a Action) bool {
	return r.Action == a || r.Action == ActionManage
}

func (r Rule) satisfiedBy(data Snapshot) bool {
	for _, c := range r.Conditions {
		if !c.holds(data) {
			return false
		}
	}
	return true
}

func (r Rule) clone() Rule {
	r.Conditions = slices.Clone(r.Conditions)
	r.Fields = slices.Clone(r.Fields)
	return r
}

// Ability is the ordered rule set of one role.
type Ability struct {
	rules []Rule
}

// Rules returns a copy of the ability's rules in declaration order.
func (a Ability) Rules() []Rule {
	out := make([]Rule, len(a.rules))
	for i, r := range a.rules {
		out[i] = r.clone()
	}
	return out
}

// Len is the number of rules in the ability.
func (a Ability) Len() int {
	return len(a.rules)
}
