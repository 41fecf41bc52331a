package thoughtflow

import (
	"context"
	"sync"

	"github.com/mindfold/thoughtflow/pkg/thoughtflow/config"
)

// CallContext carries per-invocation context supplied by the caller
// (debate id, participant id, prior conversation material). Processors
// read it, never write it.
type CallContext map[string]any

// Processor implements one reasoning strategy.
//
// Process never returns an error: any LLM or pipeline failure is
// converted into a terminal FlowResult with Metrics["error"]=true and
// the failure message embedded in the result. Configuration problems
// detectable without a model call must be caught by callers through
// ValidateConfiguration before invoking Process.
type Processor interface {
	// Process runs the strategy against one prompt.
	Process(ctx context.Context, prompt string, cfg config.Config, callCtx CallContext) *FlowResult

	// ValidateConfiguration reports whether cfg is acceptable for this
	// strategy. Pure and side-effect free; missing parameters are
	// valid because defaults apply.
	ValidateConfiguration(cfg config.Config) bool

	// FlowType identifies the enumeration value this processor
	// implements, used for registry dispatch.
	FlowType() FlowType
}

// Registry is an explicit FlowType -> Processor map populated at
// startup. Dispatch is a map lookup; there is no reflection and no
// scanning. Safe for concurrent use; registration normally happens
// once before serving.
type Registry struct {
	mu         sync.RWMutex
	processors map[FlowType]Processor
}

// NewRegistry creates an empty processor registry.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[FlowType]Processor)}
}

// Register adds a processor under its own FlowType.
// Returns ErrDuplicateProcessor if the type is already taken.
func (r *Registry) Register(p Processor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ft := p.FlowType()
	if _, exists := r.processors[ft]; exists {
		return &DispatchError{Op: "register", Err: ErrDuplicateProcessor, FlowID: ft.String()}
	}
	r.processors[ft] = p
	return nil
}

// MustRegister registers a processor, panicking on duplicates.
// Intended for startup wiring where a duplicate is a programming error.
func (r *Registry) MustRegister(p Processor) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Get returns the processor for a flow type and whether it exists.
func (r *Registry) Get(ft FlowType) (Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[ft]
	return p, ok
}

// Types returns the registered flow types. Order is not guaranteed.
func (r *Registry) Types() []FlowType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]FlowType, 0, len(r.processors))
	for ft := range r.processors {
		types = append(types, ft)
	}
	return types
}

// Len returns the number of registered processors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.processors)
}
