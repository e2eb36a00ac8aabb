package engine

import (
	"context"
	"fmt"

	"github.com/surrealkit/surrealdb.go/internal/rand"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

// executor runs the statements of one Execute call. LET bindings live in
// its evaluator and vanish with it.
type executor struct {
	ds       *Datastore
	ctx      context.Context
	sess     *Session
	eval     *evaluator
	readOnly bool
}

// target is one resolved statement target: a whole table, a record range or a single record.
type target struct {
	table string
	id    any
	rng   *models.Range
}

func (t target) single() bool {
	return t.id != nil
}

func (x *executor) execute(stmt Statement) (any, error) {
	if err := x.ctx.Err(); err != nil {
		return nil, err
	}

	switch s := stmt.(type) {
	case CreateStatement:
		return x.create(s)
	case UpdateStatement:
		return x.update(s)
	case SelectStatement:
		return x.selectRecords(s)
	case DeleteStatement:
		return x.deleteRecords(s)
	case ReturnStatement:
		return x.eval.eval(s.Value)
	case LetStatement:
		v, err := x.eval.eval(s.Value)
		if err != nil {
			return nil, err
		}
		x.eval.vars[s.Name] = v
		return none, nil
	case LiveStatement:
		return x.liveSelect(s)
	case KillStatement:
		return x.kill(s)
	}
	return nil, fmt.Errorf("%w: unsupported statement %T", ErrParse, stmt)
}

func (x *executor) writable() error {
	if x.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (x *executor) targets(exprs []Expr) ([]target, error) {
	var out []target
	for _, expr := range exprs {
		v, err := x.eval.eval(expr)
		if err != nil {
			return nil, err
		}
		ts, err := toTargets(v, true)
		if err != nil {
			return nil, err
		}
		out = append(out, ts...)
	}
	return out, nil
}

func toTargets(v any, allowList bool) ([]target, error) {
	switch t := v.(type) {
	case models.Table:
		if t == "" {
			return nil, fmt.Errorf("%w: empty table name", ErrInvalidTarget)
		}
		return []target{{table: string(t)}}, nil
	case string:
		if t == "" {
			return nil, fmt.Errorf("%w: empty table name", ErrInvalidTarget)
		}
		return []target{{table: t}}, nil
	case models.RecordID:
		switch id := t.ID.(type) {
		case models.Range:
			return []target{{table: t.Table, rng: &id}}, nil
		case nil, models.CustomNil:
			return nil, fmt.Errorf("%w: record %s has no id", ErrInvalidTarget, t.Table)
		}
		return []target{{table: t.Table, id: normalize(t.ID)}}, nil
	case []any:
		if !allowList {
			break
		}
		var out []target
		for _, item := range t {
			ts, err := toTargets(item, false)
			if err != nil {
				return nil, err
			}
			out = append(out, ts...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: can not use %s as a target", ErrInvalidTarget, render(v))
}

// records loads the existing records a target selects.
func (x *executor) records(ks Keyspace, t target) ([]map[string]any, error) {
	if t.single() {
		rec, ok, err := x.ds.store.Get(x.ctx, ks, t.table, t.id)
		if err != nil || !ok {
			return nil, err
		}
		return []map[string]any{rec}, nil
	}

	all, err := x.ds.store.Scan(x.ctx, ks, t.table)
	if err != nil || t.rng == nil {
		return all, err
	}

	inRange := all[:0]
	for _, rec := range all {
		id, _ := rec["id"].(models.RecordID)
		if t.rng.Contains(normalize(id.ID), compare) {
			inRange = append(inRange, rec)
		}
	}
	return inRange, nil
}

func (x *executor) data(clause DataClause) (any, error) {
	if clause.Kind == DataNone {
		return nil, nil
	}
	return x.eval.eval(clause.Value)
}

func object(v any, what string) (map[string]any, error) {
	switch o := v.(type) {
	case nil, models.CustomNil:
		return map[string]any{}, nil
	case map[string]any:
		return cloneObject(o), nil
	}
	return nil, fmt.Errorf("%w: %s must be an object, got %s", ErrEval, what, render(v))
}

func output(mode, fallback Output, before, after map[string]any) (any, bool) {
	if mode == OutputDefault {
		mode = fallback
	}
	switch mode {
	case OutputNone:
		return nil, false
	case OutputBefore:
		if before == nil {
			return nil, false
		}
		return cloneObject(before), true
	case OutputDiff:
		return diff(before, after), true
	}
	if after == nil {
		return nil, false
	}
	return cloneObject(after), true
}

func (x *executor) create(s CreateStatement) (any, error) {
	if err := x.writable(); err != nil {
		return nil, err
	}
	ks, err := x.sess.keyspace()
	if err != nil {
		return nil, err
	}
	targets, err := x.targets(s.Targets)
	if err != nil {
		return nil, err
	}
	value, err := x.data(s.Data)
	if err != nil {
		return nil, err
	}
	content, err := object(value, "CONTENT")
	if err != nil {
		return nil, err
	}

	results := []any{}
	for _, t := range targets {
		if t.rng != nil {
			return nil, fmt.Errorf("%w: can not CREATE a record range", ErrInvalidTarget)
		}

		id := t.id
		if id == nil {
			id = contentID(t.table, content["id"])
		}
		rid := models.RecordID{Table: t.table, ID: id}

		_, exists, err := x.ds.store.Get(x.ctx, ks, t.table, id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: database record `%s` already exists", ErrRecordExists, rid.String())
		}

		after := cloneObject(content)
		after["id"] = rid
		if err := x.ds.store.Put(x.ctx, ks, t.table, id, after); err != nil {
			return nil, err
		}
		x.ds.notify(ks, t.table, models.CreateAction, nil, after)

		if out, ok := output(s.Output, OutputAfter, nil, after); ok {
			results = append(results, out)
		}
	}
	return results, nil
}

// contentID picks the id of a record created on a whole table.
func contentID(table string, v any) any {
	switch id := v.(type) {
	case nil, models.CustomNil:
		return rand.NewRecordKey()
	case models.RecordID:
		if id.Table == table {
			return normalize(id.ID)
		}
	}
	return normalize(v)
}

func (x *executor) update(s UpdateStatement) (any, error) {
	if err := x.writable(); err != nil {
		return nil, err
	}
	ks, err := x.sess.keyspace()
	if err != nil {
		return nil, err
	}
	targets, err := x.targets(s.Targets)
	if err != nil {
		return nil, err
	}
	value, err := x.data(s.Data)
	if err != nil {
		return nil, err
	}

	results := []any{}
	for _, t := range targets {
		existing, err := x.records(ks, t)
		if err != nil {
			return nil, err
		}

		// Updating a missing record creates it.
		action := models.UpdateAction
		if t.single() && len(existing) == 0 {
			action = models.CreateAction
			existing = []map[string]any{{"id": models.RecordID{Table: t.table, ID: t.id}}}
		}

		for _, before := range existing {
			rid := before["id"].(models.RecordID)
			after, err := apply(s.Data.Kind, before, value)
			if err != nil {
				return nil, err
			}
			after["id"] = rid

			if err := x.ds.store.Put(x.ctx, ks, t.table, rid.ID, after); err != nil {
				return nil, err
			}

			var prev map[string]any
			if action == models.UpdateAction {
				prev = before
			}
			x.ds.notify(ks, t.table, action, prev, after)

			if out, ok := output(s.Output, OutputAfter, prev, after); ok {
				results = append(results, out)
			}
		}
	}
	return results, nil
}

// apply computes a record's new content from its current content.
func apply(kind DataKind, before map[string]any, value any) (map[string]any, error) {
	switch kind {
	case DataContent:
		return object(value, "CONTENT")
	case DataMerge:
		patch, err := object(value, "MERGE")
		if err != nil {
			return nil, err
		}
		return merge(cloneObject(before), patch), nil
	case DataPatch:
		ops, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: PATCH must be an array of operations, got %s", ErrEval, render(value))
		}
		return applyPatch(cloneObject(before), ops)
	}
	return cloneObject(before), nil
}

// merge copies patch into doc, descending into objects present in both.
func merge(doc, patch map[string]any) map[string]any {
	for k, v := range patch {
		if k == "id" {
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			if cur, ok := doc[k].(map[string]any); ok {
				doc[k] = merge(cur, sub)
				continue
			}
		}
		if _, isNone := v.(models.CustomNil); isNone {
			delete(doc, k)
			continue
		}
		doc[k] = clone(v)
	}
	return doc
}

func (x *executor) selectRecords(s SelectStatement) (any, error) {
	ks, err := x.sess.keyspace()
	if err != nil {
		return nil, err
	}
	targets, err := x.targets(s.Targets)
	if err != nil {
		return nil, err
	}

	results := []any{}
	for _, t := range targets {
		records, err := x.records(ks, t)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			results = append(results, rec)
		}
	}
	return results, nil
}

func (x *executor) deleteRecords(s DeleteStatement) (any, error) {
	if err := x.writable(); err != nil {
		return nil, err
	}
	ks, err := x.sess.keyspace()
	if err != nil {
		return nil, err
	}
	targets, err := x.targets(s.Targets)
	if err != nil {
		return nil, err
	}

	results := []any{}
	for _, t := range targets {
		records, err := x.records(ks, t)
		if err != nil {
			return nil, err
		}
		for _, before := range records {
			rid := before["id"].(models.RecordID)
			if err := x.ds.store.Delete(x.ctx, ks, t.table, rid.ID); err != nil {
				return nil, err
			}
			x.ds.notify(ks, t.table, models.DeleteAction, before, nil)

			if out, ok := output(s.Output, OutputNone, before, nil); ok {
				results = append(results, out)
			}
		}
	}
	return results, nil
}

func (x *executor) liveSelect(s LiveStatement) (any, error) {
	ks, err := x.sess.keyspace()
	if err != nil {
		return nil, err
	}
	v, err := x.eval.eval(s.Target)
	if err != nil {
		return nil, err
	}

	var table string
	switch tb := v.(type) {
	case models.Table:
		table = string(tb)
	case string:
		table = tb
	default:
		return nil, fmt.Errorf("%w: LIVE SELECT needs a table, got %s", ErrInvalidTarget, render(v))
	}

	id, err := models.NewUUID()
	if err != nil {
		return nil, err
	}
	x.ds.live[id.String()] = &liveQuery{id: id, ks: ks, table: table, diff: s.Diff, session: x.sess}
	return id, nil
}

func (x *executor) kill(s KillStatement) (any, error) {
	v, err := x.eval.eval(s.ID)
	if err != nil {
		return nil, err
	}

	var key string
	switch id := v.(type) {
	case models.UUID:
		key = id.String()
	case string:
		u, err := models.ParseUUID(id)
		if err != nil {
			return nil, fmt.Errorf("%w: '%s' is not a live query id", ErrLiveNotFound, id)
		}
		key = u.String()
	default:
		return nil, fmt.Errorf("%w: can not KILL %s", ErrLiveNotFound, render(v))
	}

	lq, ok := x.ds.live[key]
	if !ok {
		return nil, fmt.Errorf("%w: can not execute KILL statement using id '%s'", ErrLiveNotFound, key)
	}
	delete(x.ds.live, key)
	x.ds.sendKilled(lq)
	return none, nil
}
