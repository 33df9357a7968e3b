package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/graph"
	"github.com/iota-uz/orghierarchy/pkg/composables"
	"github.com/iota-uz/orghierarchy/pkg/configuration"
)

var tracer = otel.Tracer("github.com/iota-uz/orghierarchy/modules/hierarchy/services")

type ReconcilerOptions struct {
	Marker                graph.Marker
	CallTimeout           time.Duration
	UnresolvedPolicy      string
	SelfLoopPolicy        string
	DuplicateParentPolicy string
	SimilarNameThreshold  int
	Logger                *logrus.Entry
	Notifier              Notifier
	Authorizer            Authorizer
}

func ReconcilerOptionsFromConfig(h configuration.HierarchyOptions) ReconcilerOptions {
	return ReconcilerOptions{
		Marker:                graph.Marker(h.PlaceholderPrefix),
		CallTimeout:           h.CallTimeout,
		UnresolvedPolicy:      h.UnresolvedPolicy,
		SelfLoopPolicy:        h.SelfLoopPolicy,
		DuplicateParentPolicy: h.DuplicateParentPolicy,
		SimilarNameThreshold:  h.SimilarNameThreshold,
	}
}

// Reconciler turns an edited hierarchy graph into designation store writes.
// It keeps no state between runs; every run starts from a fresh snapshot.
type Reconciler struct {
	store Store
	opts  ReconcilerOptions
}

func NewReconciler(store Store, opts ReconcilerOptions) *Reconciler {
	if opts.Authorizer == nil {
		opts.Authorizer = AllowAll()
	}
	if opts.UnresolvedPolicy == "" {
		opts.UnresolvedPolicy = configuration.UnresolvedPolicyError
	}
	if opts.SelfLoopPolicy == "" {
		opts.SelfLoopPolicy = configuration.SelfLoopPolicyReject
	}
	if opts.DuplicateParentPolicy == "" {
		opts.DuplicateParentPolicy = configuration.DuplicateParentLastWins
	}
	return &Reconciler{store: store, opts: opts}
}

type Action string

const (
	ActionCreate Action = "create"
	ActionAlias  Action = "alias"
)

// Materialization decides what happens to one new node.
type Materialization struct {
	NodeID string `json:"node_id"`
	Label  string `json:"label"`
	Level  int    `json:"level"`
	Action Action `json:"action"`
	// DesignationID is the existing designation an alias points at.
	DesignationID string `json:"designation_id,omitempty"`
	// SameAs is the new node, earlier in the run, whose designation an alias reuses.
	SameAs string `json:"same_as,omitempty"`
}

// ParentUpdate sets the parent of NodeID. A nil ParentNodeID makes it a root.
type ParentUpdate struct {
	NodeID       string  `json:"node_id"`
	ParentNodeID *string `json:"parent_node_id"`
}

type Skipped struct {
	NodeID       string  `json:"node_id"`
	ParentNodeID *string `json:"parent_node_id"`
	Reason       string  `json:"reason"`
}

type Warning struct {
	NodeID        string `json:"node_id"`
	Label         string `json:"label"`
	SimilarTo     string `json:"similar_to"`
	DesignationID string `json:"designation_id"`
	Distance      int    `json:"distance"`
}

type Plan struct {
	Graph            graph.Graph               `json:"-"`
	Snapshot         []designation.Designation `json:"-"`
	Materializations []Materialization         `json:"materializations"`
	Updates          []ParentUpdate            `json:"updates"`
	Skipped          []Skipped                 `json:"skipped"`
	Warnings         []Warning                 `json:"warnings"`
}

type Result struct {
	Created  []designation.Designation `json:"created"`
	Aliased  map[string]string         `json:"aliased"`
	Resolved map[string]string         `json:"resolved"`
	Updated  int                       `json:"updated"`
	Skipped  []Skipped                 `json:"skipped"`
	Warnings []Warning                 `json:"warnings"`
}

func (r *Reconciler) logger(ctx context.Context) *logrus.Entry {
	l := r.opts.Logger
	if l == nil {
		l = composables.UseLogger(ctx)
	}
	return l.WithField("component", "hierarchy-reconciler")
}

func (r *Reconciler) skipUnresolved() bool {
	return r.opts.UnresolvedPolicy == configuration.UnresolvedPolicySkip
}

// Reconcile plans and applies g, notifying the configured Notifier either way.
func (r *Reconciler) Reconcile(ctx context.Context, g graph.Graph) (*Result, error) {
	start := time.Now()
	res, err := r.reconcile(ctx, g)
	recordRun("apply", err, time.Since(start).Seconds())
	if r.opts.Notifier != nil {
		if err != nil {
			r.opts.Notifier.Failed(ctx, err)
		} else {
			r.opts.Notifier.Reconciled(ctx, res)
		}
	}
	return res, err
}

func (r *Reconciler) reconcile(ctx context.Context, g graph.Graph) (*Result, error) {
	plan, err := r.Plan(ctx, g)
	if err != nil {
		return nil, err
	}
	return r.Apply(ctx, plan)
}

// DryRun computes the plan without issuing any write.
func (r *Reconciler) DryRun(ctx context.Context, g graph.Graph) (*Plan, error) {
	start := time.Now()
	plan, err := r.Plan(ctx, g)
	recordRun("dry_run", err, time.Since(start).Seconds())
	return plan, err
}

// Plan validates g, fetches the snapshot and decides every write. Only the
// snapshot read touches the store.
func (r *Reconciler) Plan(ctx context.Context, g graph.Graph) (plan *Plan, err error) {
	ctx, span := tracer.Start(ctx, "hierarchy.plan", trace.WithAttributes(
		attribute.Int("hierarchy.nodes", len(g.Nodes)),
		attribute.Int("hierarchy.edges", len(g.Edges)),
	))
	defer func() { endSpan(span, err) }()
	log := r.logger(ctx)

	if err := r.opts.Authorizer.Authorize(ctx, PermissionRead); err != nil {
		return nil, err
	}
	if err := g.Validate(graph.ValidateOptions{
		Marker:                 r.opts.Marker,
		AllowSelfLoops:         r.opts.SelfLoopPolicy == configuration.SelfLoopPolicyApply,
		RejectDuplicateParents: r.opts.DuplicateParentPolicy == configuration.DuplicateParentReject,
	}); err != nil {
		return nil, &ReconciliationError{Op: OpValidate, Cause: err}
	}

	snapshot, timedOut, err := storeCall(ctx, r.opts.CallTimeout, OpFetch, r.store.ListDesignations)
	if err != nil {
		log.WithError(err).Warn("aborting reconciliation: snapshot fetch failed")
		return nil, &ReconciliationError{Op: OpFetch, Timeout: timedOut, Cause: err}
	}
	log.WithField("designations", len(snapshot)).Debug("snapshot fetched")

	byName := make(map[string]designation.Designation, len(snapshot))
	for _, d := range snapshot {
		key := designation.NameKey(d.Name)
		if _, ok := byName[key]; !ok {
			byName[key] = d
		}
	}

	plan = &Plan{Graph: g, Snapshot: snapshot}
	newNodes := make(map[string]struct{})
	createdByName := make(map[string]string)
	for _, n := range g.Nodes {
		if !r.opts.Marker.IsPlaceholder(n.ID) {
			continue
		}
		newNodes[n.ID] = struct{}{}
		label := strings.TrimSpace(n.Label)
		key := designation.NameKey(label)
		m := Materialization{NodeID: n.ID, Label: label, Level: n.Level}
		switch existing, ok := byName[key]; {
		case ok:
			m.Action = ActionAlias
			m.DesignationID = existing.ID
		case createdByName[key] != "":
			m.Action = ActionAlias
			m.SameAs = createdByName[key]
		default:
			m.Action = ActionCreate
			createdByName[key] = n.ID
			if w, ok := r.similarName(n.ID, label, snapshot); ok {
				plan.Warnings = append(plan.Warnings, w)
			}
		}
		plan.Materializations = append(plan.Materializations, m)
	}
	log.WithField("materializations", len(plan.Materializations)).Debug("new nodes planned")

	resolvable := func(id string) bool {
		if !r.opts.Marker.IsPlaceholder(id) {
			return true
		}
		_, ok := newNodes[id]
		return ok
	}

	for _, e := range g.Edges {
		source := e.Source
		if resolvable(e.Source) && resolvable(e.Target) {
			plan.Updates = append(plan.Updates, ParentUpdate{NodeID: e.Target, ParentNodeID: &source})
			continue
		}
		unresolved := e.Source
		if resolvable(e.Source) {
			unresolved = e.Target
		}
		if !r.skipUnresolved() {
			log.WithField("placeholder", unresolved).Warn("aborting reconciliation: unresolved placeholder")
			return nil, &ReconciliationError{Op: OpResolve, NodeID: unresolved}
		}
		plan.Skipped = append(plan.Skipped, Skipped{
			NodeID:       e.Target,
			ParentNodeID: &source,
			Reason:       "unresolved placeholder " + unresolved,
		})
	}

	for _, n := range g.Roots() {
		plan.Updates = append(plan.Updates, ParentUpdate{NodeID: n.ID})
	}
	log.WithFields(logrus.Fields{
		"updates": len(plan.Updates),
		"skipped": len(plan.Skipped),
	}).Debug("parent updates planned")

	return plan, nil
}

func (r *Reconciler) similarName(nodeID, label string, snapshot []designation.Designation) (Warning, bool) {
	if r.opts.SimilarNameThreshold <= 0 {
		return Warning{}, false
	}
	key := designation.NameKey(label)
	best := Warning{Distance: -1}
	for _, d := range snapshot {
		dist := fuzzy.LevenshteinDistance(key, designation.NameKey(d.Name))
		if dist == 0 || dist > r.opts.SimilarNameThreshold {
			continue
		}
		if best.Distance < 0 || dist < best.Distance {
			best = Warning{NodeID: nodeID, Label: label, SimilarTo: d.Name, DesignationID: d.ID, Distance: dist}
		}
	}
	return best, best.Distance > 0
}

// Apply executes plan one store call at a time and stops at the first failure.
func (r *Reconciler) Apply(ctx context.Context, plan *Plan) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "hierarchy.apply", trace.WithAttributes(
		attribute.Int("hierarchy.materializations", len(plan.Materializations)),
		attribute.Int("hierarchy.updates", len(plan.Updates)),
	))
	defer func() { endSpan(span, err) }()
	log := r.logger(ctx)

	if err := r.opts.Authorizer.Authorize(ctx, PermissionReconcile); err != nil {
		return nil, err
	}

	res = &Result{
		Aliased:  map[string]string{},
		Resolved: map[string]string{},
		Skipped:  append([]Skipped(nil), plan.Skipped...),
		Warnings: plan.Warnings,
	}
	applied := 0
	abort := func(rerr *ReconciliationError) (*Result, error) {
		rerr.Applied = applied
		log.WithError(rerr).WithField("applied", applied).Warn("aborting reconciliation")
		return nil, rerr
	}

	for _, m := range plan.Materializations {
		switch m.Action {
		case ActionCreate:
			created, timedOut, err := storeCall(ctx, r.opts.CallTimeout, OpCreate, func(ctx context.Context) (designation.Designation, error) {
				return r.store.CreateDesignation(ctx, m.Label, m.Level)
			})
			if err != nil {
				return abort(&ReconciliationError{Op: OpCreate, NodeID: m.NodeID, Timeout: timedOut, Cause: err})
			}
			res.Created = append(res.Created, created)
			res.Resolved[m.NodeID] = created.ID
		case ActionAlias:
			id := m.DesignationID
			if m.SameAs != "" {
				id = res.Resolved[m.SameAs]
			}
			if id == "" {
				return abort(&ReconciliationError{Op: OpResolve, NodeID: m.NodeID})
			}
			_, timedOut, err := storeCall(ctx, r.opts.CallTimeout, OpUpdateLevel, func(ctx context.Context) (designation.Designation, error) {
				return r.store.UpdateDesignation(ctx, id, designation.Patch{}.WithLevel(m.Level))
			})
			if err != nil {
				return abort(&ReconciliationError{Op: OpUpdateLevel, NodeID: m.NodeID, DesignationID: id, Timeout: timedOut, Cause: err})
			}
			res.Aliased[m.NodeID] = id
			res.Resolved[m.NodeID] = id
		}
		applied++
	}
	log.WithFields(logrus.Fields{
		"created": len(res.Created),
		"aliased": len(res.Aliased),
	}).Debug("new nodes materialized")

	resolve := func(id string) (string, bool) {
		if !r.opts.Marker.IsPlaceholder(id) {
			return id, true
		}
		resolved, ok := res.Resolved[id]
		return resolved, ok
	}

	for _, u := range plan.Updates {
		target, ok := resolve(u.NodeID)
		var parent *string
		if ok && u.ParentNodeID != nil {
			var p string
			p, ok = resolve(*u.ParentNodeID)
			parent = &p
		}
		if !ok {
			if !r.skipUnresolved() {
				return abort(&ReconciliationError{Op: OpResolve, NodeID: u.NodeID})
			}
			res.Skipped = append(res.Skipped, Skipped{NodeID: u.NodeID, ParentNodeID: u.ParentNodeID, Reason: "unresolved placeholder"})
			continue
		}
		_, timedOut, err := storeCall(ctx, r.opts.CallTimeout, OpUpdateParent, func(ctx context.Context) (designation.Designation, error) {
			return r.store.UpdateDesignation(ctx, target, designation.Patch{}.WithParent(parent))
		})
		if err != nil {
			return abort(&ReconciliationError{Op: OpUpdateParent, NodeID: u.NodeID, DesignationID: target, Timeout: timedOut, Cause: err})
		}
		applied++
		res.Updated++
	}
	log.WithField("updated", res.Updated).Debug("parent updates applied")

	return res, nil
}

// storeCall runs fn with a per-call deadline. A store that ignores its
// context still releases the caller once the deadline passes, unless ctx
// carries a transaction: then the caller waits for fn to return so the
// connection is not used concurrently.
func storeCall[T any](ctx context.Context, timeout time.Duration, op Operation, fn func(context.Context) (T, error)) (T, bool, error) {
	callCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(callCtx)
		done <- outcome{v: v, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-callCtx.Done():
		if composables.HasTx(ctx) {
			// fn shares the transaction's connection, which must be idle
			// before the caller rolls back.
			out = <-done
			if out.err == nil {
				out.err = callCtx.Err()
			}
			break
		}
		select {
		case out = <-done:
		default:
			out.err = callCtx.Err()
		}
	}

	timedOut := out.err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	recordStoreCall(op, out.err, timedOut)
	return out.v, timedOut, out.err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
