package patcher

// Factory binds the state type and the target registry for action-creator
// factories. Binding once and registering many types is the curried form:
//
//	f := patcher.Bind(global)
//	increment := patcher.Must(patcher.RegisterPayload(f, "increment", incrementPatcher))
//	reset := patcher.Must(patcher.RegisterAction(f, "reset", resetPatcher))
type Factory[S any] struct {
	registry *Registry[S]
}

// Bind returns a Factory that registers into registry.
func Bind[S any](registry *Registry[S]) Factory[S] {
	return Factory[S]{registry: registry}
}

// Registry returns the registry the factory registers into.
func (f Factory[S]) Registry() *Registry[S] {
	return f.registry
}

// RegisterAction registers fn for typ in the factory's registry and returns the
// creator for typ. Registration happens now, not at dispatch time.
func RegisterAction[S, P any](f Factory[S], typ string, fn ActionPatcher[S, P]) (ActionCreator[P], error) {
	if f.registry == nil {
		return ActionCreator[P]{}, ErrRegistryRequired
	}
	if typ == "" {
		return ActionCreator[P]{}, ErrTypeRequired
	}
	if fn == nil {
		return ActionCreator[P]{}, ErrPatcherRequired
	}
	erased := func(action Action, state S) (Action, error) {
		typed, err := TypedActionOf[P](action)
		if err != nil {
			return Action{}, err
		}
		return fn(typed, state)
	}
	if err := f.registry.Register(typ, erased); err != nil {
		return ActionCreator[P]{}, err
	}
	return ActionCreator[P]{typ: typ}, nil
}

// RegisterPayload registers a payload-only patcher. The derived action patcher
// keeps every field of the original action and replaces Payload with the
// result of fn.
func RegisterPayload[S, P, R any](f Factory[S], typ string, fn PayloadPatcher[S, P, R]) (ActionCreator[P], error) {
	if fn == nil {
		return ActionCreator[P]{}, ErrPatcherRequired
	}
	return RegisterAction(f, typ, ActionPatcher[S, P](func(action TypedAction[P], state S) (Action, error) {
		payload, err := fn(action.Payload, state)
		if err != nil {
			return Action{}, err
		}
		out := action.Untyped()
		out.Payload = payload
		return out, nil
	}))
}

// CreatePatchedAction is the direct form of RegisterAction.
func CreatePatchedAction[S, P any](registry *Registry[S], typ string, fn ActionPatcher[S, P]) (ActionCreator[P], error) {
	return RegisterAction(Bind(registry), typ, fn)
}

// CreatePatchedPayloadAction is the direct form of RegisterPayload.
func CreatePatchedPayloadAction[S, P, R any](registry *Registry[S], typ string, fn PayloadPatcher[S, P, R]) (ActionCreator[P], error) {
	return RegisterPayload(Bind(registry), typ, fn)
}

// Must panics when a factory call failed. It is intended for package-level
// setup where a failure is a programming error.
func Must[P any](creator ActionCreator[P], err error) ActionCreator[P] {
	if err != nil {
		panic(err)
	}
	return creator
}

// DefineActionPatcher returns fn unchanged. It pins the type parameters so a
// reusable patcher can be declared ahead of registration.
func DefineActionPatcher[S, P any](fn ActionPatcher[S, P]) ActionPatcher[S, P] {
	return fn
}

// DefinePayloadPatcher returns fn unchanged.
func DefinePayloadPatcher[S, P, R any](fn PayloadPatcher[S, P, R]) PayloadPatcher[S, P, R] {
	return fn
}
