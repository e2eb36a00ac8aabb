package router

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/logger"
	"github.com/surrealkit/surrealdb.go/pkg/statement"
)

// loop is the state private to a connection's processing goroutine.
type loop struct {
	backend Backend
	vars    *Vars
	live    *liveRegistry
	logger  logger.Logger
}

func (l *loop) run(q queue) {
	for {
		e, ok := q.pop()
		if !ok {
			break
		}

		l.logger.Debug("dispatching command", "id", e.id, "method", e.cmd.Method.String())
		resp, err := l.handle(context.Background(), e.cmd)

		// The channel has room for exactly this reply, so an abandoned caller never blocks the loop.
		e.ch <- response{resp: resp, err: err}
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultWSTimeout)
	defer cancel()
	if err := l.backend.Close(ctx); err != nil {
		l.logger.Error("failed to close backend", "error", err)
	}
	l.live.closeAll()
}

func (l *loop) handle(ctx context.Context, cmd Command) (DbResponse, error) {
	p := cmd.Param

	switch cmd.Method {
	case MethodQuery:
		text := p.At(0).(string)
		overlay, _ := p.At(1).(map[string]any)
		results, err := l.backend.Execute(ctx, text, l.vars.Merged(overlay))
		if err != nil {
			return DbResponse{}, err
		}
		return DbResponse{Query: queryResults(results)}, nil

	case MethodSet:
		return DbResponse{}, l.set(ctx, p.At(0).(string), p.At(1))

	case MethodUnset:
		l.vars.Delete(p.At(0).(string))
		return DbResponse{}, nil

	case MethodUse:
		return DbResponse{}, l.backend.Use(ctx, p.At(0).(string), p.At(1).(string))

	case MethodHealth:
		return DbResponse{}, l.backend.Health(ctx)

	case MethodVersion:
		v, err := l.backend.Version(ctx)
		return DbResponse{Other: v}, err

	case MethodLive:
		return l.liveQuery(ctx, p)

	case MethodKill:
		return l.kill(ctx, p)

	case MethodSignin, MethodSignup, MethodAuthenticate, MethodInvalidate:
		return l.auth(ctx, cmd.Method, p)

	case MethodExport, MethodImport:
		porter, ok := l.backend.(Porter)
		if !ok {
			return DbResponse{}, fmt.Errorf("%s: %w", cmd.Method, constants.ErrMethodNotAvailable)
		}
		if cmd.Method == MethodExport {
			return DbResponse{}, porter.Export(ctx, p.File.(io.Writer))
		}
		return DbResponse{}, porter.Import(ctx, p.File.(io.Reader))

	case MethodReset:
		resetter, ok := l.backend.(Resetter)
		if !ok {
			return DbResponse{}, fmt.Errorf("%s: %w", cmd.Method, constants.ErrMethodNotAvailable)
		}
		return DbResponse{}, resetter.Reset(ctx)
	}

	stmt, err := translate(cmd.Method, p)
	if err != nil {
		return DbResponse{}, err
	}
	value, err := l.exec(ctx, stmt)
	return DbResponse{Other: value}, err
}

// exec executes a single statement with the session variables bound.
func (l *loop) exec(ctx context.Context, stmt statement.Statement) (any, error) {
	results, err := l.backend.Execute(ctx, stmt.Text, l.vars.Merged(stmt.Vars))
	if err != nil {
		return nil, err
	}
	return take(stmt.One, results)
}

// set checks that value can be bound as $name before storing it.
func (l *loop) set(ctx context.Context, name string, value any) error {
	stmt, err := statement.Return(name)
	if err != nil {
		return err
	}
	results, err := l.backend.Execute(ctx, stmt.Text, l.vars.Merged(map[string]any{name: value}))
	if err != nil {
		return err
	}
	for _, res := range results {
		if res.Err != nil {
			return asQueryError(res.Err)
		}
	}
	l.vars.Set(name, value)
	return nil
}

func (l *loop) liveQuery(ctx context.Context, p Param) (DbResponse, error) {
	if _, ok := l.backend.(LiveNotifier); !ok {
		return DbResponse{}, fmt.Errorf("%s: %w", MethodLive, constants.ErrMethodNotAvailable)
	}

	diff, _ := p.At(1).(bool)
	stmt, err := statement.Live(p.At(0), diff)
	if err != nil {
		return DbResponse{}, err
	}
	value, err := l.exec(ctx, stmt)
	if err != nil {
		return DbResponse{}, err
	}
	id, err := toUUID(value)
	if err != nil {
		return DbResponse{}, err
	}
	l.live.register(id)
	return DbResponse{Other: id}, nil
}

func (l *loop) kill(ctx context.Context, p Param) (DbResponse, error) {
	id, err := toUUID(p.At(0))
	if err != nil {
		return DbResponse{}, fmt.Errorf("%w: %w", constants.ErrInvalidParams, err)
	}
	stmt, err := statement.Kill(id)
	if err != nil {
		return DbResponse{}, err
	}
	if _, err := l.exec(ctx, stmt); err != nil {
		return DbResponse{}, err
	}
	l.live.remove(id)
	return DbResponse{}, nil
}

func (l *loop) auth(ctx context.Context, method Method, p Param) (DbResponse, error) {
	a, ok := l.backend.(Authenticator)
	if !ok {
		return DbResponse{}, fmt.Errorf("%s: %w", method, constants.ErrMethodNotAvailable)
	}

	switch method {
	case MethodSignin:
		token, err := a.SignIn(ctx, p.At(0))
		return DbResponse{Other: token}, err
	case MethodSignup:
		token, err := a.SignUp(ctx, p.At(0))
		return DbResponse{Other: token}, err
	case MethodAuthenticate:
		return DbResponse{}, a.Authenticate(ctx, p.At(0).(string))
	default:
		return DbResponse{}, a.Invalidate(ctx)
	}
}

// translate maps the statement producing methods to their SurrealQL.
func translate(method Method, p Param) (statement.Statement, error) {
	switch method {
	case MethodCreate:
		return statement.Create(p.At(0), p.At(1))
	case MethodUpdate:
		return statement.Update(p.At(0), p.At(1))
	case MethodMerge:
		return statement.Merge(p.At(0), p.At(1))
	case MethodPatch:
		return statement.Patch(p.At(0), p.At(1))
	case MethodSelect:
		return statement.Select(p.At(0))
	case MethodDelete:
		return statement.Delete(p.At(0))
	}
	return statement.Statement{}, fmt.Errorf("%s: %w", method, ErrNoStatement)
}

// ErrNoStatement is returned by translate for methods the backend handles directly.
var ErrNoStatement = errors.New("method does not translate to a statement")
