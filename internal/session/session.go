// Package session wires the frontend, evaluator, caches and observer chain
// into one long-lived evaluation session, the unit an editor integration
// holds on to across incremental re-runs.
package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lumelang/lume/internal/analyzer"
	"github.com/lumelang/lume/internal/config"
	"github.com/lumelang/lume/internal/dispatch"
	"github.com/lumelang/lume/internal/evaluator"
	"github.com/lumelang/lume/internal/exprcache"
	"github.com/lumelang/lume/internal/ident"
	"github.com/lumelang/lume/internal/instrument"
	"github.com/lumelang/lume/internal/parser"
	"github.com/lumelang/lume/internal/persist"
	"github.com/lumelang/lume/internal/pipeline"
)

// Session owns everything that survives between runs: the global
// environment, the method registry with its epoch, the dispatch cache, the
// expression cache and the observer chain. Re-running a changed unit reuses
// all of them; stable expression ids make the cached state carry over.
type Session struct {
	Config    *config.Config
	Out       io.Writer
	Registry  *evaluator.MethodRegistry
	Dispatch  *dispatch.Cache[ident.ID, evaluator.Object]
	Cache     *exprcache.Cache[evaluator.Object]
	Observers *instrument.Chain[evaluator.Object]

	eval          *evaluator.Evaluator
	env           *evaluator.Environment
	cachingHandle *instrument.Handle
}

func New(cfg *config.Config) *Session {
	return NewWith(cfg, evaluator.NewRuntimeRegistry())
}

// NewWith builds a session over a shared method registry. Sessions sharing a
// registry see each other's extension methods, so a background re-evaluation
// session stays consistent with the interactive one; the dispatch sites,
// expression cache and observers remain per-session, and stale sites
// re-resolve through the registry's epoch.
func NewWith(cfg *config.Config, registry *evaluator.MethodRegistry) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	eval := evaluator.NewWith(registry)
	dispatchCache := dispatch.NewCache[ident.ID, evaluator.Object](
		registry, registry.Epoch(),
		dispatch.WithSiteArity(cfg.Dispatch.SiteArity),
		dispatch.Disabled(cfg.Dispatch.Disabled),
	)
	eval.Dispatch = dispatchCache
	if cfg.MaxEvalDepth > 0 {
		eval.MaxDepth = cfg.MaxEvalDepth
	}
	return &Session{
		Config:    cfg,
		Out:       os.Stdout,
		Registry:  registry,
		Dispatch:  dispatchCache,
		Cache:     exprcache.New[evaluator.Object](cfg.Cache.Capacity),
		Observers: eval.Observers,
		eval:      eval,
		env:       evaluator.NewEnvironment(),
	}
}

// SetOutput redirects program output (println and friends).
func (s *Session) SetOutput(w io.Writer) {
	s.Out = w
	s.eval.Out = w
}

// Bind attaches an observer for subsequent evaluations.
func (s *Session) Bind(b instrument.Binding[evaluator.Object]) *instrument.Handle {
	return s.Observers.Bind(b)
}

// EnableCaching installs the session's own caching observer: admitted
// results short-circuit re-evaluation on the next run, and every computed
// result is offered back together with its type tag and call descriptor.
// Idempotent.
func (s *Session) EnableCaching() {
	if s.cachingHandle != nil {
		return
	}
	s.cachingHandle = s.Observers.Bind(instrument.Binding[evaluator.Object]{
		OnEnter: func(id ident.ID) (evaluator.Object, bool) {
			return s.Cache.Get(id)
		},
		OnReturn: func(id ident.ID, value evaluator.Object, _ time.Duration, isError bool) {
			s.OfferReturn(id, value, isError)
		},
		OnCall: func(id ident.ID, fn evaluator.Object, args []evaluator.Object) (evaluator.Object, bool) {
			s.Cache.PutCall(id, describeCall(fn, args))
			return nil, false
		},
	})
}

// OfferReturn feeds one computed result into the cache the way the caching
// observer does. Observers that override the onReturn slot call this to keep
// results flowing into the cache.
func (s *Session) OfferReturn(id ident.ID, value evaluator.Object, isError bool) {
	if isError || value == nil {
		return
	}
	if s.Cache.Offer(id, value) {
		s.Cache.PutType(id, string(value.TypeKey()))
	}
}

// DisableCaching removes the caching observer. Cached state stays resident.
func (s *Session) DisableCaching() {
	if s.cachingHandle != nil {
		s.cachingHandle.Dispose()
		s.cachingHandle = nil
	}
}

func describeCall(fn evaluator.Object, args []evaluator.Object) *exprcache.CallDescriptor {
	desc := &exprcache.CallDescriptor{
		ArgTypes: make([]dispatch.TypeKey, len(args)),
	}
	for i, arg := range args {
		desc.ArgTypes[i] = arg.TypeKey()
	}
	switch fn := fn.(type) {
	case *evaluator.Function:
		desc.Function = fn.DeclID
		desc.Name = fn.Name
	case *evaluator.Builtin:
		desc.Name = fn.Name
	case *evaluator.BoundMethod:
		desc.Name = fn.Name
		if method, ok := fn.Method.(*evaluator.Function); ok {
			desc.Function = method.DeclID
		}
	default:
		desc.Name = fn.Inspect()
	}
	return desc
}

// Invalidate drops all cached state for one expression id: its value, type
// tag and call descriptor. Weights are left alone.
func (s *Session) Invalidate(id ident.ID) {
	s.Cache.Remove(id)
	s.Cache.RemoveType(id)
	s.Cache.PutCall(id, nil)
}

// Compile runs the frontend and returns the pipeline context. Evaluation is
// the caller's choice; ctx.Errors carries any diagnostics.
func (s *Session) Compile(source, filePath string) *pipeline.Context {
	ctx := pipeline.NewContext(source, filePath)
	p := pipeline.New(&parser.Processor{}, &analyzer.Processor{})
	p.Run(ctx)
	return ctx
}

// RunSource compiles and evaluates one unit inside the session's persistent
// environment. Frontend diagnostics abort evaluation; a runtime error comes
// back as the error value with its rendered message.
func (s *Session) RunSource(ctx context.Context, source, filePath string) (evaluator.Object, error) {
	pctx := s.Compile(source, filePath)
	if len(pctx.Errors) > 0 {
		msgs := make([]string, len(pctx.Errors))
		for i, d := range pctx.Errors {
			msgs[i] = d.Error()
		}
		return nil, fmt.Errorf("%s", strings.Join(msgs, "\n"))
	}
	s.eval.Context = ctx
	s.eval.CurrentFile = filePath
	result := s.eval.Eval(pctx.AstRoot, s.env)
	if err, ok := result.(*evaluator.Error); ok {
		return result, fmt.Errorf("%s", err.Inspect())
	}
	return result, nil
}

// RunFile reads and runs a source file.
func (s *Session) RunFile(ctx context.Context, path string) (evaluator.Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.RunSource(ctx, string(data), path)
}

// SaveState snapshots weights and type tags to the configured state file.
// A session without a state path saves nothing.
func (s *Session) SaveState() error {
	if s.Config.StatePath == "" {
		return nil
	}
	store, err := persist.Open(s.Config.StatePath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SaveWeights(s.Cache.Weights()); err != nil {
		return err
	}
	return store.SaveTypes(s.Cache.Types())
}

// LoadState restores weights and type tags from the configured state file.
func (s *Session) LoadState() error {
	if s.Config.StatePath == "" {
		return nil
	}
	store, err := persist.Open(s.Config.StatePath)
	if err != nil {
		return err
	}
	defer store.Close()
	weights, err := store.LoadWeights()
	if err != nil {
		return err
	}
	s.Cache.SetWeights(weights)
	types, err := store.LoadTypes()
	if err != nil {
		return err
	}
	for id, tag := range types {
		s.Cache.PutType(id, tag)
	}
	return nil
}
