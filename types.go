package patcher

// Action is the request shape that flows through a dispatch pipeline. Type is
// the only lookup key; Error and Meta are carried through untouched unless a
// patcher rewrites them.
type Action struct {
	Type    string         `json:"type"`
	Payload any            `json:"payload,omitempty"`
	Error   bool           `json:"error,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// TypedAction is an Action whose payload has been resolved to P.
type TypedAction[P any] struct {
	Type    string
	Payload P
	Error   bool
	Meta    map[string]any
}

// Untyped converts the typed view back into a wire Action.
func (a TypedAction[P]) Untyped() Action {
	return Action{
		Type:    a.Type,
		Payload: a.Payload,
		Error:   a.Error,
		Meta:    a.Meta,
	}
}

// TypedActionOf resolves action.Payload to P. Payloads that are already P are
// used as-is; JSON-shaped payloads (maps, slices) are decoded into P.
func TypedActionOf[P any](action Action) (TypedAction[P], error) {
	payload, err := PayloadAs[P](action)
	if err != nil {
		return TypedAction[P]{}, err
	}
	return TypedAction[P]{
		Type:    action.Type,
		Payload: payload,
		Error:   action.Error,
		Meta:    action.Meta,
	}, nil
}

// Patcher is the erased transformation stored in a Registry. The returned
// Action holds the patched fields; its Type is always replaced with the type
// of the intercepted action.
type Patcher[S any] func(action Action, state S) (Action, error)

// ActionPatcher receives the whole typed action and returns the patched fields.
type ActionPatcher[S, P any] func(action TypedAction[P], state S) (Action, error)

// PayloadPatcher only sees the payload; everything else on the action is kept.
type PayloadPatcher[S, P, R any] func(payload P, state S) (R, error)

// ActionCreator builds plain actions for a single type. It never consults a
// registry; interception happens in the middleware.
type ActionCreator[P any] struct {
	typ string
}

// Type returns the action type produced by the creator.
func (c ActionCreator[P]) Type() string {
	return c.typ
}

// New returns {Type, Payload}.
func (c ActionCreator[P]) New(payload P) Action {
	return Action{Type: c.typ, Payload: payload}
}

// Match reports whether action carries the creator's type.
func (c ActionCreator[P]) Match(action Action) bool {
	return c.typ != "" && action.Type == c.typ
}

// Store is the handle a pipeline stage receives from the host store.
type Store[S any] interface {
	GetState() S
}

// StoreFunc adapts a function to Store.
type StoreFunc[S any] func() S

// GetState implements Store.
func (f StoreFunc[S]) GetState() S {
	return f()
}

// Dispatch forwards an action to the next stage and returns its result.
type Dispatch func(action Action) (any, error)

// Stage is the curried store -> next -> action middleware shape used by the
// host pipeline.
type Stage[S any] func(store Store[S]) func(next Dispatch) Dispatch
