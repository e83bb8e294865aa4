package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jasper-tms/the-BANC-fly-connectome/internal/annotations"
	"github.com/jasper-tms/the-BANC-fly-connectome/internal/config"
	"github.com/jasper-tms/the-BANC-fly-connectome/internal/metrics"
	"github.com/jasper-tms/the-BANC-fly-connectome/internal/rules"
	"github.com/jasper-tms/the-BANC-fly-connectome/internal/store"
	"go.uber.org/zap"
)

// AnnotationStore is the persistence the annotator needs.
type AnnotationStore interface {
	annotations.Lookup
	Post(ctx context.Context, p store.PostParams, check store.CheckFunc) (annotations.Record, error)
	PostChain(ctx context.Context, p store.ChainParams, plan store.PlanFunc) ([]annotations.Record, error)
	Delete(ctx context.Context, p store.DeleteParams, check store.DeleteCheckFunc) (annotations.Record, error)
	EntitiesWith(ctx context.Context, table string, pair annotations.Pair) ([]int64, error)
	Stats(ctx context.Context) ([]store.TableStats, error)
}

// Options tune an Annotator.
type Options struct {
	// Tables are tried in order when a post names no table. Empty means
	// every registered table.
	Tables []string
	// DefaultTable is used by reads that name no table. Empty means the
	// registry default.
	DefaultTable string
	DryRun       bool
	// Recursive posts missing parent annotations along with the requested
	// one. Requests may override it.
	Recursive bool
}

// Annotator carries out annotation requests: it applies the rules, checks
// permissions, writes through the store and records metrics. All tools
// share one.
type Annotator struct {
	engine       *annotations.Engine
	store        AnnotationStore
	perms        config.Permissions
	tables       []string
	defaultTable string
	dryRun       bool
	recursive    bool
	metrics      *metrics.Metrics
	log          *zap.Logger
}

// NewAnnotator creates an Annotator. The store doubles as the engine's
// Lookup. m and log may be nil.
func NewAnnotator(reg *rules.Registry, st AnnotationStore, perms config.Permissions, opts Options, m *metrics.Metrics, log *zap.Logger) (*Annotator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	tables := opts.Tables
	if len(tables) == 0 {
		tables = reg.Names()
	}
	for _, name := range tables {
		if _, err := reg.Table(name); err != nil {
			return nil, err
		}
	}
	def := opts.DefaultTable
	if def == "" {
		def = reg.DefaultTable()
	}
	if _, err := reg.Table(def); err != nil {
		return nil, err
	}
	return &Annotator{
		engine:       annotations.NewEngine(reg, st),
		store:        st,
		perms:        perms,
		tables:       tables,
		defaultTable: def,
		dryRun:       opts.DryRun,
		recursive:    opts.Recursive,
		metrics:      m,
		log:          log,
	}, nil
}

// Tables returns the tables posts are tried against, in order.
func (a *Annotator) Tables() []string { return append([]string(nil), a.tables...) }

// Registry returns the rules the annotator enforces.
func (a *Annotator) Registry() *rules.Registry { return a.engine.Registry() }

// DryRun reports whether writes are simulated.
func (a *Annotator) DryRun() bool { return a.dryRun }

// Recursive reports whether posts add missing parents by default.
func (a *Annotator) Recursive() bool { return a.recursive }

func (a *Annotator) source(table string) rules.Source {
	if table == "" {
		table = a.defaultTable
	}
	return rules.Named(table)
}

func (a *Annotator) table(name string) (*rules.Table, error) {
	return a.engine.Registry().Resolve(a.source(name))
}

func (a *Annotator) candidates(table string) []string {
	if table != "" {
		return []string{table}
	}
	return a.tables
}

// ─── Validate ────────────────────────────────────────────────────────────────

// Validation is the outcome of a successful validity check.
type Validation struct {
	Table string
	Pair  annotations.Pair
	// Checked is true when the posting policy was also run against a
	// segment's current annotations.
	Checked bool
}

// Validate checks raw against a table. With a non-zero segment the full
// posting policy is run against that segment's current annotations too.
func (a *Annotator) Validate(ctx context.Context, raw, table string, segment int64) (Validation, error) {
	p := annotations.Proposal{Source: a.source(table), Entity: segment, Raw: raw}
	if segment == 0 {
		t, pair, err := a.engine.Prepare(p)
		if err != nil {
			return Validation{}, err
		}
		return Validation{Table: t.Name, Pair: pair}, nil
	}
	t, err := a.table(table)
	if err != nil {
		return Validation{}, err
	}
	pair, err := a.engine.Check(ctx, p)
	if err != nil {
		return Validation{}, err
	}
	return Validation{Table: t.Name, Pair: pair, Checked: true}, nil
}

// GuessClass returns the class a bare label would be posted under.
func (a *Annotator) GuessClass(label, table string) (string, error) {
	t, err := a.table(table)
	if err != nil {
		return "", err
	}
	if t.Kind != rules.KindHierarchy {
		return "", &annotations.NotPairedError{Table: t.Name, Kind: t.Kind}
	}
	return annotations.GuessClass(t.Tree, strings.TrimSpace(label))
}

// ─── Post ────────────────────────────────────────────────────────────────────

// PostRequest asks to add an annotation to a segment.
type PostRequest struct {
	Segment    int64
	Annotation string
	User       string
	Table      string // empty: try every configured table in order
	// Recursive posts whatever parents the segment is missing first.
	Recursive bool
}

// PostResult describes a post that went through, or would have in dry-run
// mode.
type PostResult struct {
	Table  string
	Pair   annotations.Pair
	Record annotations.Record // zero in dry-run mode
	// Parents are the missing parents posted ahead of Pair, root first.
	Parents []annotations.Pair
	DryRun  bool
}

// NoValidTableError is returned when an annotation is invalid for every
// table a post was tried against.
type NoValidTableError struct {
	Annotation string
	Tables     []string
	Errs       []error
}

func (e *NoValidTableError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "annotation %q is not valid for any of the tables I know how to post to:", e.Annotation)
	for i, t := range e.Tables {
		fmt.Fprintf(&b, "\n- %s: %v", t, e.Errs[i])
	}
	return b.String()
}

// Unwrap exposes the per-table errors.
func (e *NoValidTableError) Unwrap() []error { return e.Errs }

// Post validates the annotation against each candidate table and posts it
// to the first one it is valid for. Policy failures in that table are
// final; the remaining tables are not tried.
func (a *Annotator) Post(ctx context.Context, req PostRequest) (PostResult, error) {
	log := a.log.With(zap.Int64("segment_id", req.Segment), zap.String("user", req.User))
	tables := a.candidates(req.Table)

	var errs []error
	for _, name := range tables {
		table, pair, err := a.engine.Prepare(annotations.Proposal{Source: rules.Named(name), Entity: req.Segment, Raw: req.Annotation})
		if err != nil {
			if !annotations.IsRuleError(err) {
				return PostResult{}, err
			}
			errs = append(errs, err)
			continue
		}
		log := log.With(zap.String("table", table.Name), zap.Stringer("pair", pair))

		if !a.perms.Lists(table.Name) {
			a.metrics.Decision(table.Name, metrics.ResultDenied)
			log.Warn("table missing from permissions file")
			return PostResult{}, userErrorf("`%s` not listed in permissions file", table.Name)
		}
		author, ok := a.perms.Allowed(table.Name, req.User)
		if !ok {
			a.metrics.Decision(table.Name, metrics.ResultDenied)
			log.Info("post denied")
			return PostResult{}, userErrorf("you have not yet been given permissions to post to `%s`", table.Name)
		}

		plan := func(existing []annotations.Record) ([]annotations.Pair, error) {
			if req.Recursive {
				return annotations.PlanPost(table, req.Segment, pair, existing)
			}
			if err := annotations.CheckPost(table, req.Segment, pair, existing); err != nil {
				return nil, err
			}
			return []annotations.Pair{pair}, nil
		}

		if a.dryRun {
			existing, err := a.store.Annotations(ctx, table.Name, req.Segment)
			if err != nil {
				a.metrics.Decision(table.Name, metrics.ResultError)
				return PostResult{}, fmt.Errorf("fetching annotations for segment %d: %w", req.Segment, err)
			}
			chain, err := plan(existing)
			if err != nil {
				a.reject(log, table.Name, err)
				return PostResult{}, err
			}
			a.metrics.Decision(table.Name, metrics.ResultDryRun)
			log.Info("dry run: would post", zap.Int("parents", len(chain)-1))
			return PostResult{Table: table.Name, Pair: pair, Parents: chain[:len(chain)-1], DryRun: true}, nil
		}

		recs, err := a.store.PostChain(ctx, store.ChainParams{Table: table.Name, Entity: req.Segment, Author: author}, plan)
		if err != nil {
			if annotations.IsRuleError(err) {
				a.reject(log, table.Name, err)
				return PostResult{}, err
			}
			a.metrics.Decision(table.Name, metrics.ResultError)
			return PostResult{}, fmt.Errorf("posting to %s: %w", table.Name, err)
		}
		rec := recs[len(recs)-1]
		var parents []annotations.Pair
		for _, r := range recs[:len(recs)-1] {
			parents = append(parents, r.Pair())
		}
		a.metrics.Decision(table.Name, metrics.ResultPosted)
		log.Info("annotation posted", zap.String("id", rec.ID), zap.String("author", author), zap.Int("parents", len(parents)))
		return PostResult{Table: table.Name, Pair: pair, Record: rec, Parents: parents}, nil
	}

	for i, err := range errs {
		a.reject(log, tables[i], err)
	}
	if len(errs) == 1 {
		return PostResult{}, errs[0]
	}
	return PostResult{}, &NoValidTableError{Annotation: req.Annotation, Tables: tables, Errs: errs}
}

func (a *Annotator) reject(log *zap.Logger, table string, err error) {
	kind := annotations.Kind(err)
	a.metrics.Decision(table, metrics.ResultRejected)
	a.metrics.Rejection(kind)
	log.Debug("annotation rejected", zap.String("table", table), zap.String("kind", kind), zap.Error(err))
}

// ─── Delete ──────────────────────────────────────────────────────────────────

// DeleteRequest asks to remove an annotation from a segment.
type DeleteRequest struct {
	Segment    int64
	Annotation string // "value" or "class: value"
	User       string
	Table      string // empty: every configured table the user may edit
}

// DeleteResult describes a deletion that happened, or would have.
type DeleteResult struct {
	Record annotations.Record
	DryRun bool
}

// Delete removes the newest matching annotation from the first table, in
// configured order, that has it and that the user may edit.
func (a *Annotator) Delete(ctx context.Context, req DeleteRequest) (DeleteResult, error) {
	pair, err := annotations.SplitPair(req.Annotation)
	if err != nil {
		return DeleteResult{}, err
	}
	log := a.log.With(zap.Int64("segment_id", req.Segment), zap.String("user", req.User), zap.Stringer("pair", pair))

	permitted := false
	for _, name := range a.candidates(req.Table) {
		table, err := a.table(name)
		if err != nil {
			return DeleteResult{}, err
		}
		if _, ok := a.perms.Allowed(table.Name, req.User); !ok {
			continue
		}
		permitted = true

		check := func(target annotations.Record, existing []annotations.Record) error {
			return annotations.CheckDelete(table, req.Segment, target, existing)
		}

		if a.dryRun {
			rec, err := a.dryRunDelete(ctx, table, req.Segment, pair, check)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return DeleteResult{}, err
			}
			a.metrics.Decision(table.Name, metrics.ResultDryRun)
			log.Info("dry run: would delete", zap.String("table", table.Name), zap.String("id", rec.ID))
			return DeleteResult{Record: rec, DryRun: true}, nil
		}

		rec, err := a.store.Delete(ctx, store.DeleteParams{Table: table.Name, Entity: req.Segment, Pair: pair}, check)
		switch {
		case errors.Is(err, store.ErrNotFound):
			continue
		case annotations.IsRuleError(err):
			a.reject(log, table.Name, err)
			return DeleteResult{}, err
		case err != nil:
			a.metrics.Decision(table.Name, metrics.ResultError)
			return DeleteResult{}, fmt.Errorf("deleting from %s: %w", table.Name, err)
		}
		log.Info("annotation deleted", zap.String("table", table.Name), zap.String("id", rec.ID))
		return DeleteResult{Record: rec}, nil
	}

	if !permitted {
		return DeleteResult{}, userErrorf("you have not yet been given permissions to delete annotations")
	}
	return DeleteResult{}, fmt.Errorf("%w: segment %d has no annotation %q", store.ErrNotFound, req.Segment, pair.String())
}

func (a *Annotator) dryRunDelete(ctx context.Context, table *rules.Table, segment int64, pair annotations.Pair, check store.DeleteCheckFunc) (annotations.Record, error) {
	existing, err := a.store.Annotations(ctx, table.Name, segment)
	if err != nil {
		return annotations.Record{}, fmt.Errorf("fetching annotations for segment %d: %w", segment, err)
	}
	var (
		target annotations.Record
		found  bool
	)
	for _, r := range existing {
		if store.Matches(r, pair) {
			target, found = r, true
		}
	}
	if !found {
		return annotations.Record{}, store.ErrNotFound
	}
	if err := check(target, existing); err != nil {
		return annotations.Record{}, err
	}
	return target, nil
}

// ─── Reads ───────────────────────────────────────────────────────────────────

// List returns a segment's live annotations in table, or in every
// configured table when table is empty.
func (a *Annotator) List(ctx context.Context, segment int64, table string) ([]annotations.Record, error) {
	var out []annotations.Record
	for _, name := range a.candidates(table) {
		t, err := a.table(name)
		if err != nil {
			return nil, err
		}
		recs, err := a.store.Annotations(ctx, t.Name, segment)
		if err != nil {
			return nil, fmt.Errorf("fetching annotations for segment %d: %w", segment, err)
		}
		out = append(out, recs...)
	}
	return out, nil
}

// Find returns the segments carrying an annotation in table. A bare value
// matches it under any class. Terms joined by "and" must all be present.
func (a *Annotator) Find(ctx context.Context, raw, table string) ([]int64, error) {
	t, err := a.table(table)
	if err != nil {
		return nil, err
	}

	var ids []int64
	for i, term := range splitConjunction(raw) {
		pair, err := annotations.SplitPair(term)
		if err != nil {
			return nil, err
		}
		if t.Kind == rules.KindList && pair.Class != "" {
			return nil, &annotations.NotPairedError{Table: t.Name, Kind: t.Kind}
		}
		matched, err := a.store.EntitiesWith(ctx, t.Name, pair)
		if err != nil {
			return nil, fmt.Errorf("searching %s: %w", t.Name, err)
		}
		if i == 0 {
			ids = matched
		} else {
			ids = intersectSorted(ids, matched)
		}
		if len(ids) == 0 {
			break
		}
	}
	return ids, nil
}

// splitConjunction splits a search on " and ", ignoring case. Free-text
// values may not contain " and ", so the split never cuts a value.
func splitConjunction(raw string) []string {
	const sep = " and "
	var terms []string
	start := 0
	for i := 0; i+len(sep) <= len(raw); i++ {
		if strings.EqualFold(raw[i:i+len(sep)], sep) {
			terms = append(terms, raw[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	return append(terms, raw[start:])
}

// intersectSorted returns the ids present in both ascending lists.
func intersectSorted(a, b []int64) []int64 {
	var out []int64
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// Stats returns per-table counts for every registered table, including
// empty ones.
func (a *Annotator) Stats(ctx context.Context) ([]store.TableStats, error) {
	counted, err := a.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	byTable := make(map[string]store.TableStats, len(counted))
	for _, s := range counted {
		byTable[s.Table] = s
	}
	names := a.engine.Registry().Names()
	sort.Strings(names)
	out := make([]store.TableStats, 0, len(names))
	for _, name := range names {
		s := byTable[name]
		s.Table = name
		out = append(out, s)
	}
	return out, nil
}
