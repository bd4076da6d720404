package ability

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(BuildRegistry())
}

func TestManageGrantIgnoresData(t *testing.T) {
	e := newTestEngine(t)
	data := []Snapshot{nil, {}, {"status": "shipped"}, {"id": "nope"}}

	for _, role := range Roles {
		ab, _ := e.registry.Ability(role)
		for _, subject := range []Subject{On(ResourceProduct), On(ResourceOrder), On(ResourceUser), On(ResourceUser).Attr("role")} {
			want := false
			for _, r := range ab.rules {
				if r.Action == ActionManage && (r.Subject.IsAll() || r.Subject == subject) {
					want = true
				}
			}
			for _, d := range data {
				if got := e.Can(role, ActionManage, subject, d); got != want {
					t.Fatalf("Can(%s, manage, %s, %v) = %v, want %v", role, subject, d, got, want)
				}
			}
		}
	}
}

func TestAdminCanDoAnything(t *testing.T) {
	e := newTestEngine(t)
	actions := []Action{ActionManage, ActionCreate, ActionRead, ActionUpdate, ActionDelete}
	subjects := []Subject{All, On(ResourceUser), On(ResourceUser).Attr("role"), On(ResourceReview), On("Invoice")}
	for _, a := range actions {
		for _, s := range subjects {
			if !e.Can(RoleAdmin, a, s, Snapshot{"status": "shipped"}) {
				t.Fatalf("admin denied %s on %s", a, s)
			}
		}
	}
}

func TestEditorAttributeRulesDoNotGrantParent(t *testing.T) {
	e := newTestEngine(t)
	if e.Can(RoleEditor, ActionUpdate, On(ResourceUser), Snapshot{}) {
		t.Fatalf("editor must not update the whole User resource")
	}
	if !e.Can(RoleEditor, ActionUpdate, ParseSubject("User.role"), Snapshot{}) {
		t.Fatalf("editor should update User.role")
	}
	if !e.Can(RoleEditor, ActionUpdate, ParseSubject("User.status"), nil) {
		t.Fatalf("editor should update User.status")
	}
	if e.Can(RoleEditor, ActionDelete, On(ResourceUser), nil) {
		t.Fatalf("editor must not delete users")
	}
	if !e.Can(RoleEditor, ActionRead, On(ResourceReview), nil) {
		t.Fatalf("editor reads everything")
	}
	if !e.Can(RoleEditor, ActionDelete, On(ResourceOrder), nil) {
		t.Fatalf("editor manages orders")
	}
}

func TestUserOrderStatusCondition(t *testing.T) {
	e := newTestEngine(t)
	tests := []struct {
		action Action
		data   Snapshot
		want   bool
	}{
		{ActionUpdate, Snapshot{"status": "not processed"}, true},
		{ActionUpdate, Snapshot{"status": "shipped"}, false},
		{ActionDelete, Snapshot{"status": "pending"}, false},
		{ActionDelete, Snapshot{"status": "not processed"}, true},
		{ActionDelete, nil, false},
		{ActionUpdate, Snapshot{"id": 3}, false},
		{ActionRead, nil, true},
		{ActionCreate, nil, true},
	}
	for _, tt := range tests {
		if got := e.Can(RoleUser, tt.action, On(ResourceOrder), tt.data); got != tt.want {
			t.Errorf("Can(user, %s, Order, %v) = %v, want %v", tt.action, tt.data, got, tt.want)
		}
	}
}

func TestUserOwnershipResolvedByCaller(t *testing.T) {
	e := newTestEngine(t)
	user := On(ResourceUser)

	if !e.Can(RoleUser, ActionRead, user, Snapshot{"id": "42"}.WithPrincipal(42)) {
		t.Fatalf("owner should read own user record")
	}
	if e.Can(RoleUser, ActionRead, user, Snapshot{"id": "43"}.WithPrincipal(42)) {
		t.Fatalf("user must not read another user record")
	}
	if e.Can(RoleUser, ActionUpdate, user, Snapshot{"id": "42"}) {
		t.Fatalf("unresolved principal reference must fail closed")
	}
	if e.Can(RoleUser, ActionDelete, user, Snapshot{"id": "42"}.WithPrincipal("42")) {
		t.Fatalf("user has no delete rule on User")
	}
}

func TestLiteralConditionEquality(t *testing.T) {
	reg, err := NewRegistry(Policies{
		RoleAdmin:  {},
		RoleEditor: {},
		RoleUser:   {Allow(ActionRead, On(ResourceUser)).When(Eq("id", "42"))},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := NewEngine(reg)
	if !e.Can(RoleUser, ActionRead, On(ResourceUser), Snapshot{"id": "42"}) {
		t.Fatalf("expected literal match to allow")
	}
	if e.Can(RoleUser, ActionRead, On(ResourceUser), Snapshot{"id": "43"}) {
		t.Fatalf("expected literal mismatch to deny")
	}
	if !e.Can(RoleUser, ActionRead, On(ResourceUser), Snapshot{"id": int64(42)}) {
		t.Fatalf("expected numeric id to match its string form")
	}
	if !e.Can(RoleUser, ActionRead, On(ResourceUser), Snapshot{"id": json.Number("42")}) {
		t.Fatalf("expected json number to match")
	}
}

func TestIdentifierEqualityIsRepresentationIndependent(t *testing.T) {
	id := uuid.New()
	reg, err := NewRegistry(Policies{
		RoleAdmin:  {},
		RoleEditor: {},
		RoleUser:   {Allow(ActionRead, On(ResourceOrder)).When(Eq("user_id", strings.ToUpper(id.String())))},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := NewEngine(reg)
	if !e.Can(RoleUser, ActionRead, On(ResourceOrder), Snapshot{"user_id": id}) {
		t.Fatalf("uuid value should equal its textual form")
	}
	if !e.Can(RoleUser, ActionRead, On(ResourceOrder), Snapshot{"user_id": &id}) {
		t.Fatalf("uuid pointer should equal its textual form")
	}
	if e.Can(RoleUser, ActionRead, On(ResourceOrder), Snapshot{"user_id": uuid.New()}) {
		t.Fatalf("different uuid must not match")
	}
}

func TestMissingArgumentsDeny(t *testing.T) {
	e := newTestEngine(t)
	if e.Can("", ActionRead, On(ResourceProduct), nil) {
		t.Fatalf("missing role must deny")
	}
	if e.Can(RoleUser, "", On(ResourceProduct), nil) {
		t.Fatalf("missing action must deny")
	}
	if e.Can(RoleUser, ActionRead, Subject{}, nil) {
		t.Fatalf("missing subject must deny")
	}
	if d := e.Decide("guest", ActionRead, On(ResourceProduct), nil); d.Allowed || d.Outcome != OutcomeUnknownRole {
		t.Fatalf("unknown role: got %+v", d)
	}
}

func TestEmptyRuleSetAlwaysDenies(t *testing.T) {
	reg, err := NewRegistry(Policies{RoleAdmin: nil, RoleEditor: nil, RoleUser: nil})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := NewEngine(reg)
	for _, role := range Roles {
		for _, a := range []Action{ActionManage, ActionRead, ActionUpdate} {
			d := e.Decide(role, a, On(ResourceProduct), Snapshot{"status": "not processed"})
			if d.Allowed || d.Outcome != OutcomeNoRule {
				t.Fatalf("empty ability for %s: got %+v", role, d)
			}
		}
	}
	if d := newTestEngine(t).Decide(RoleUser, ActionDelete, On(ResourceProduct), nil); d.Outcome != OutcomeNoRule {
		t.Fatalf("expected no_matching_rule, got %s", d.Outcome)
	}
}

func TestDecideIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	data := Snapshot{"status": "not processed"}
	first := e.Decide(RoleUser, ActionUpdate, On(ResourceOrder), data)
	for i := 0; i < 5; i++ {
		if got := e.Decide(RoleUser, ActionUpdate, On(ResourceOrder), data); got != first {
			t.Fatalf("decision changed between calls: %+v vs %+v", got, first)
		}
	}
	if len(data) != 1 {
		t.Fatalf("snapshot was mutated: %v", data)
	}
}

func TestEndToEndOrderDelete(t *testing.T) {
	e := newTestEngine(t)
	if e.Can(RoleUser, ActionDelete, ParseSubject("Order"), Snapshot{"status": "pending"}) {
		t.Fatalf("pending order delete must be denied")
	}
	if !e.Can(RoleUser, ActionDelete, ParseSubject("Order"), Snapshot{"status": "not processed"}) {
		t.Fatalf("unprocessed order delete must be allowed")
	}
}

func TestInvertedRuleDenies(t *testing.T) {
	reg, err := NewRegistry(Policies{
		RoleAdmin:  {},
		RoleEditor: {},
		RoleUser: {
			Allow(ActionRead, On(ResourceProduct)),
			{Action: ActionRead, Subject: On(ResourceProduct), Conditions: []Condition{Eq("hidden", true)}, Inverted: true},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := NewEngine(reg)
	if !e.Can(RoleUser, ActionRead, On(ResourceProduct), Snapshot{"hidden": false}) {
		t.Fatalf("visible product should be readable")
	}
	if d := e.Decide(RoleUser, ActionRead, On(ResourceProduct), Snapshot{"hidden": true}); d.Allowed || d.Outcome != OutcomeInverted {
		t.Fatalf("hidden product: got %+v", d)
	}
}

func TestFieldScopedRule(t *testing.T) {
	reg, err := NewRegistry(Policies{
		RoleAdmin:  {},
		RoleEditor: {{Action: ActionUpdate, Subject: On(ResourceUser), Fields: []string{"role", "status"}}},
		RoleUser:   {},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := NewEngine(reg)
	if !e.Can(RoleEditor, ActionUpdate, On(ResourceUser).Attr("status"), nil) {
		t.Fatalf("listed field should be covered")
	}
	if e.Can(RoleEditor, ActionUpdate, On(ResourceUser).Attr("email"), nil) {
		t.Fatalf("unlisted field must not be covered")
	}
	if e.Can(RoleEditor, ActionUpdate, On(ResourceUser), nil) {
		t.Fatalf("field scoped rule must not cover the resource")
	}
}

type orderState string

type accountID int64

func TestNamedKindsCompareByValue(t *testing.T) {
	if !Same(orderState("not processed"), "not processed") {
		t.Fatalf("named string should equal its literal")
	}
	if !Same(accountID(42), "42") || !Same(accountID(42), 42) {
		t.Fatalf("named integer should equal its literal")
	}
	id := accountID(7)
	if !Same(&id, int64(7)) {
		t.Fatalf("pointer to named integer should equal its value")
	}
	var missing *accountID
	if Same(missing, "") || Same(missing, 0) {
		t.Fatalf("nil pointer must not match")
	}

	e := newTestEngine(t)
	if !e.Can(RoleUser, ActionDelete, On(ResourceOrder), Snapshot{"status": orderState("not processed")}) {
		t.Fatalf("order status of a named type should satisfy the condition")
	}
	data := Snapshot{"id": accountID(42)}.WithPrincipal("42")
	if !e.Can(RoleUser, ActionRead, On(ResourceUser), data) {
		t.Fatalf("named id should match the principal")
	}
}

func TestEmptyValuesNeverMatch(t *testing.T) {
	if Same("", "") || Same(" ", "") {
		t.Fatalf("empty values must not compare equal")
	}
	e := newTestEngine(t)
	if e.Can(RoleUser, ActionRead, On(ResourceUser), Snapshot{"id": ""}.WithPrincipal("")) {
		t.Fatalf("unresolved principal id must not grant ownership")
	}
}

func TestConcurrentDecisions(t *testing.T) {
	e := newTestEngine(t)
	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := "not processed"
			if i%2 == 1 {
				status = "shipped"
			}
			for j := 0; j < 100; j++ {
				got := e.Can(RoleUser, ActionUpdate, On(ResourceOrder), Snapshot{"status": status})
				if got != (i%2 == 0) {
					errs <- status
					return
				}
				if !e.Can(RoleAdmin, ActionDelete, On(ResourceUser), nil) {
					errs <- "admin"
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for status := range errs {
		t.Errorf("unexpected decision under concurrency for %s", status)
	}
}
