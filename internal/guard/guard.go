// Package guard enforces ability decisions at the HTTP boundary.
//
// Every route declares a Policy. Public policies pass unconditionally, policies
// without requirements defer to authentication alone, and the rest are
// evaluated against the request's principal by the ability engine. Requirements
// flagged CheckData are evaluated against a snapshot of the entity named by the
// route's :id parameter.
package guard

import (
	"context"
	"errors"

	"github.com/dhawalhost/storefront/internal/ability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/dhawalhost/storefront/internal/guard"

// Requirement is one (action, subject) pair a route demands. CheckData asks the
// guard to evaluate it against the target entity's snapshot.
type Requirement struct {
	Action    ability.Action
	Subject   ability.Subject
	CheckData bool
}

// Need builds a requirement on the whole resource.
func Need(action ability.Action, resource ability.Resource) Requirement {
	return Requirement{Action: action, Subject: ability.On(resource)}
}

// NeedSubject builds a requirement on an arbitrary subject, e.g. User.role.
func NeedSubject(action ability.Action, subject ability.Subject) Requirement {
	return Requirement{Action: action, Subject: subject}
}

// WithData marks the requirement as needing the entity snapshot.
func (r Requirement) WithData() Requirement {
	r.CheckData = true
	return r
}

// Policy is what a route declares about its authorization.
type Policy struct {
	Public       bool
	Requirements []Requirement
}

// Public declares a route open to anyone.
func Public() Policy {
	return Policy{Public: true}
}

// Check declares the requirements a route's principal must satisfy.
func Check(reqs ...Requirement) Policy {
	return Policy{Requirements: reqs}
}

func (p Policy) needsEntity() bool {
	for _, r := range p.Requirements {
		if r.CheckData {
			return true
		}
	}
	return false
}

// Verdict is the terminal state of a guarded request.
type Verdict string

// Verdicts.
const (
	VerdictPublic   Verdict = "public"
	VerdictNoPolicy Verdict = "no_policy"
	VerdictAllowed  Verdict = "allowed"
	VerdictDenied   Verdict = "denied"
	VerdictError    Verdict = "error"
)

// SnapshotLoader fetches the fields of entity id that conditional rules look at.
// Implementations return ErrEntityNotFound when the entity does not exist.
type SnapshotLoader interface {
	Snapshot(ctx context.Context, id string) (ability.Snapshot, error)
}

// SnapshotLoaderFunc adapts a function to SnapshotLoader.
type SnapshotLoaderFunc func(ctx context.Context, id string) (ability.Snapshot, error)

// Snapshot calls f.
func (f SnapshotLoaderFunc) Snapshot(ctx context.Context, id string) (ability.Snapshot, error) {
	return f(ctx, id)
}

// DecisionRecorder observes guard verdicts, typically for metrics.
type DecisionRecorder interface {
	ObserveDecision(verdict string)
}

// Guard evaluates route policies. It is safe for concurrent use once built.
type Guard struct {
	engine   *ability.Engine
	loaders  map[ability.Resource]SnapshotLoader
	logger   *zap.Logger
	recorder DecisionRecorder
	tracer   trace.Tracer
}

// Option configures a Guard.
type Option func(*Guard)

// WithLoader registers the snapshot loader for a resource.
func WithLoader(resource ability.Resource, l SnapshotLoader) Option {
	return func(g *Guard) {
		g.loaders[resource] = l
	}
}

// WithRecorder attaches a decision recorder.
func WithRecorder(r DecisionRecorder) Option {
	return func(g *Guard) {
		g.recorder = r
	}
}

// New creates a guard over engine.
func New(engine *ability.Engine, logger *zap.Logger, opts ...Option) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Guard{
		engine:  engine,
		loaders: make(map[ability.Resource]SnapshotLoader),
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate decides one request. principal is nil when the request carries no
// authenticated identity; entityID is empty when the route names no entity.
//
// A denial returns ErrForbidden, a missing principal ErrUnauthenticated, and a
// snapshot loader failure is returned unchanged with VerdictError.
func (g *Guard) Evaluate(ctx context.Context, policy Policy, principal *Principal, entityID string) (Verdict, error) {
	if policy.Public {
		g.record(VerdictPublic)
		return VerdictPublic, nil
	}
	if len(policy.Requirements) == 0 {
		g.record(VerdictNoPolicy)
		return VerdictNoPolicy, nil
	}

	ctx, span := g.tracer.Start(ctx, "guard.Evaluate")
	defer span.End()

	if principal == nil {
		g.logger.Error("principal not found on guarded request, make sure the authentication middleware runs first")
		span.SetStatus(codes.Error, "missing principal")
		g.record(VerdictDenied)
		return VerdictDenied, ErrUnauthenticated
	}
	span.SetAttributes(
		attribute.String("principal.id", principal.ID),
		attribute.String("principal.role", string(principal.Role)),
	)

	verdict, err := g.evaluate(ctx, policy, *principal, entityID)
	span.SetAttributes(attribute.String("guard.verdict", string(verdict)))
	if err != nil && verdict == VerdictError {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	g.record(verdict)
	return verdict, err
}

func (g *Guard) evaluate(ctx context.Context, policy Policy, p Principal, entityID string) (Verdict, error) {
	if !policy.needsEntity() || entityID == "" {
		// Entity scoped requirements without an id in the route are left to the
		// handler; only the remaining ones are enforced here.
		for _, req := range policy.Requirements {
			if req.CheckData {
				continue
			}
			if !g.allowed(p, req, nil) {
				return VerdictDenied, ErrForbidden
			}
		}
		return VerdictAllowed, nil
	}

	for _, req := range policy.Requirements {
		var data ability.Snapshot
		if req.CheckData {
			snap, err := g.snapshot(ctx, req.Subject.Resource, entityID, p)
			if err != nil {
				if !errors.Is(err, ErrEntityNotFound) {
					g.logger.Error("failed to load entity snapshot",
						zap.String("subject", req.Subject.String()),
						zap.String("entity_id", entityID),
						zap.Error(err))
				}
				return VerdictError, err
			}
			data = snap
		}
		if !g.allowed(p, req, data) {
			return VerdictDenied, ErrForbidden
		}
	}
	return VerdictAllowed, nil
}

func (g *Guard) snapshot(ctx context.Context, resource ability.Resource, entityID string, p Principal) (ability.Snapshot, error) {
	loader, ok := g.loaders[resource]
	if !ok {
		return ability.Snapshot{"id": entityID, "createdBy": p.ID}.WithPrincipal(p.ID), nil
	}
	snap, err := loader.Snapshot(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if _, ok := snap["id"]; !ok {
		snap = snap.With("id", entityID)
	}
	return snap.WithPrincipal(p.ID), nil
}

func (g *Guard) allowed(p Principal, req Requirement, data ability.Snapshot) bool {
	d := g.engine.Decide(p.Role, req.Action, req.Subject, data)
	if !d.Allowed {
		g.logger.Debug("ability denied",
			zap.String("principal", p.ID),
			zap.String("role", string(p.Role)),
			zap.String("action", string(req.Action)),
			zap.String("subject", req.Subject.String()),
			zap.String("outcome", string(d.Outcome)))
	}
	return d.Allowed
}

func (g *Guard) record(v Verdict) {
	if g.recorder != nil {
		g.recorder.ObserveDecision(string(v))
	}
}
