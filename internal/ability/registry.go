package ability

import (
	"errors"
	"fmt"
)

// OrderStatusNotProcessed is the only order status in which a customer may still
// change or cancel their order.
const OrderStatusNotProcessed = "not processed"

// ErrInvalidPolicy is returned by NewRegistry when a policy set is incomplete or
// malformed.
var ErrInvalidPolicy = errors.New("invalid ability policy")

// Policies maps each role to the rules it is granted.
type Policies map[Role][]Rule

// Registry is the immutable role to Ability mapping consulted by the Engine.
type Registry struct {
	abilities map[Role]Ability
}

// NewRegistry validates p and freezes a copy of it. Every enumerated role must
// have an entry, no unknown role may appear, and every rule needs a valid action
// and a subject.
func NewRegistry(p Policies) (*Registry, error) {
	abilities := make(map[Role]Ability, len(Roles))
	for role, rules := range p {
		if !role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidPolicy, role)
		}
		frozen := make([]Rule, 0, len(rules))
		for i, r := range rules {
			if !r.Action.Valid() {
				return nil, fmt.Errorf("%w: role %s rule %d: unknown action %q", ErrInvalidPolicy, role, i, r.Action)
			}
			if r.Subject.IsZero() {
				return nil, fmt.Errorf("%w: role %s rule %d: missing subject", ErrInvalidPolicy, role, i)
			}
			for _, c := range r.Conditions {
				if c.Field == "" {
					return nil, fmt.Errorf("%w: role %s rule %d: condition without field", ErrInvalidPolicy, role, i)
				}
			}
			frozen = append(frozen, r.clone())
		}
		abilities[role] = Ability{rules: frozen}
	}
	for _, role := range Roles {
		if _, ok := abilities[role]; !ok {
			return nil, fmt.Errorf("%w: role %q has no ability", ErrInvalidPolicy, role)
		}
	}
	return &Registry{abilities: abilities}, nil
}

// BuildRegistry returns the storefront's built-in policy. It panics if the
// built-in policy ever fails validation, which can only be a programming error.
func BuildRegistry() *Registry {
	r, err := NewRegistry(DefaultPolicies())
	if err != nil {
		panic(err)
	}
	return r
}

// Ability returns the rules granted to role.
func (r *Registry) Ability(role Role) (Ability, bool) {
	if r == nil {
		return Ability{}, false
	}
	a, ok := r.abilities[role]
	return a, ok
}

// DefaultPolicies is the storefront's authorization policy.
func DefaultPolicies() Policies {
	order := On(ResourceOrder)
	user := On(ResourceUser)

	return Policies{
		RoleAdmin: {
			Allow(ActionManage, All),
		},
		RoleEditor: {
			Allow(ActionManage, On(ResourceProduct)),
			Allow(ActionManage, On(ResourceCategory)),
			Allow(ActionManage, order),
			Allow(ActionRead, All),
			Allow(ActionUpdate, user.Attr("role")),
			Allow(ActionUpdate, user.Attr("status")),
		},
		RoleUser: {
			Allow(ActionRead, On(ResourceProduct)),
			Allow(ActionRead, On(ResourceCategory)),
			Allow(ActionRead, order),
			Allow(ActionCreate, order),
			Allow(ActionUpdate, order).When(Eq("status", OrderStatusNotProcessed)),
			Allow(ActionDelete, order).When(Eq("status", OrderStatusNotProcessed)),
			Allow(ActionRead, user).When(SameAs("id", RefUserID)),
			Allow(ActionUpdate, user).When(SameAs("id", RefUserID)),
		},
	}
}
