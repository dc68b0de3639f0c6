package patcher_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	patcher "github.com/goliatone/go-patcher"
	"github.com/goliatone/go-patcher/pkg/activity"
	"github.com/goliatone/go-patcher/pkg/store"
)

type counterState struct {
	Amount int
	Extra  int
}

type amountPayload struct {
	Amount int `json:"amount"`
}

// recordNext captures what reaches the stage after the middleware.
type recordNext struct {
	seen []patcher.Action
}

func (r *recordNext) dispatch(action patcher.Action) (any, error) {
	r.seen = append(r.seen, action)
	return action, nil
}

func stageFor[S any](m *patcher.Middleware[S], state S, next *recordNext) patcher.Dispatch {
	return m.Stage()(patcher.StoreFunc[S](func() S { return state }))(next.dispatch)
}

func applyAmount(state counterState, action patcher.Action) (counterState, error) {
	if action.Type != "increment" {
		return state, nil
	}
	payload, err := patcher.PayloadAs[amountPayload](action)
	if err != nil {
		return state, err
	}
	state.Amount = payload.Amount
	return state, nil
}

func TestUnregisteredActionPassesThrough(t *testing.T) {
	global := patcher.NewRegistry[counterState]("")
	patcher.Must(patcher.RegisterPayload(patcher.Bind(global), "increment", func(p amountPayload, _ counterState) (amountPayload, error) {
		return amountPayload{Amount: p.Amount + 100}, nil
	}))

	next := &recordNext{}
	dispatch := stageFor(patcher.NewMiddleware(global), counterState{}, next)

	action := patcher.Action{Type: "unknown", Payload: map[string]any{"k": "v"}, Error: true, Meta: map[string]any{"m": 1}}
	result, err := dispatch(action)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if diff := cmp.Diff([]patcher.Action{action}, next.seen); diff != "" {
		t.Fatalf("passthrough mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(action, result); diff != "" {
		t.Fatalf("next result not returned (-want +got):\n%s", diff)
	}
}

func TestActionPatcherTypeIsReimposed(t *testing.T) {
	global := patcher.NewRegistry[counterState]("")
	var events []patcher.PatchLogEvent
	logger := patcher.PatchLoggerFunc(func(e patcher.PatchLogEvent) { events = append(events, e) })

	patcher.Must(patcher.RegisterAction(patcher.Bind(global), "rename", func(action patcher.TypedAction[string], _ counterState) (patcher.Action, error) {
		return patcher.Action{Type: "hijacked", Payload: action.Payload + "!", Meta: map[string]any{"patched": true}}, nil
	}))

	next := &recordNext{}
	dispatch := stageFor(patcher.NewMiddleware(global, patcher.WithPatchLogger(logger)), counterState{}, next)
	if _, err := dispatch(patcher.Action{Type: "rename", Payload: "hi"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	want := []patcher.Action{{Type: "rename", Payload: "hi!", Meta: map[string]any{"patched": true}}}
	if diff := cmp.Diff(want, next.seen); diff != "" {
		t.Fatalf("patched action mismatch (-want +got):\n%s", diff)
	}
	if len(events) != 1 || events[0].Kind != patcher.PatchApplied || events[0].Discarded != "hijacked" || events[0].Scope != patcher.ScopeGlobal {
		t.Fatalf("expected applied event with discarded type, got %+v", events)
	}
}

func TestPayloadPatcherKeepsOtherFields(t *testing.T) {
	global := patcher.NewRegistry[counterState]("")
	patcher.Must(patcher.CreatePatchedPayloadAction(global, "increment", func(p amountPayload, s counterState) (amountPayload, error) {
		return amountPayload{Amount: p.Amount * s.Extra}, nil
	}))

	next := &recordNext{}
	dispatch := stageFor(patcher.NewMiddleware(global), counterState{Extra: 3}, next)
	meta := map[string]any{"origin": "ui"}
	if _, err := dispatch(patcher.Action{Type: "increment", Payload: amountPayload{Amount: 2}, Meta: meta}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	want := []patcher.Action{{Type: "increment", Payload: amountPayload{Amount: 6}, Meta: meta}}
	if diff := cmp.Diff(want, next.seen); diff != "" {
		t.Fatalf("patched action mismatch (-want +got):\n%s", diff)
	}
}

func TestInstanceRegistryTakesPrecedence(t *testing.T) {
	global := patcher.NewRegistry[counterState]("")
	patcher.Must(patcher.RegisterPayload(patcher.Bind(global), "x", func(string, counterState) (string, error) {
		return "global", nil
	}))
	patcher.Must(patcher.RegisterPayload(patcher.Bind(global), "y", func(string, counterState) (string, error) {
		return "global", nil
	}))

	scoped := patcher.NewScopedMiddleware(global)
	patcher.Must(patcher.RegisterPayload(scoped.Factory(), "x", func(string, counterState) (string, error) {
		return "instance", nil
	}))

	if diff := cmp.Diff([]string{patcher.ScopeInstance, patcher.ScopeGlobal}, scoped.Scopes()); diff != "" {
		t.Fatalf("scope order mismatch (-want +got):\n%s", diff)
	}

	next := &recordNext{}
	dispatch := stageFor(scoped.Middleware, counterState{}, next)
	_, _ = dispatch(patcher.Action{Type: "x", Payload: ""})
	_, _ = dispatch(patcher.Action{Type: "y", Payload: ""})

	want := []patcher.Action{{Type: "x", Payload: "instance"}, {Type: "y", Payload: "global"}}
	if diff := cmp.Diff(want, next.seen); diff != "" {
		t.Fatalf("precedence mismatch (-want +got):\n%s", diff)
	}
	if _, ok := global.Lookup("x"); !ok {
		t.Fatalf("instance registration must not touch the global registry entry")
	}
}

func TestReRegistrationReplacesPatcher(t *testing.T) {
	scoped := patcher.NewScopedMiddleware[counterState](nil)
	f := scoped.Factory()
	patcher.Must(patcher.RegisterPayload(f, "x", func(int, counterState) (int, error) { return 1, nil }))
	patcher.Must(patcher.RegisterPayload(f, "x", func(int, counterState) (int, error) { return 2, nil }))

	out, found, err := scoped.Patch(patcher.Action{Type: "x", Payload: 0}, counterState{})
	if err != nil || !found {
		t.Fatalf("patch: found=%v err=%v", found, err)
	}
	if out.Payload != 2 {
		t.Fatalf("expected second registration to win, got %v", out.Payload)
	}
}

func TestIncrementScenarioReadsFreshState(t *testing.T) {
	global := patcher.NewRegistry[counterState]("")
	increment := patcher.Must(patcher.RegisterPayload(patcher.Bind(global), "increment", func(p amountPayload, s counterState) (amountPayload, error) {
		return amountPayload{Amount: p.Amount + s.Extra + s.Amount}, nil
	}))

	s := store.New(counterState{Amount: 0, Extra: 2}, applyAmount, patcher.NewMiddleware(global).Stage())

	var results []int
	for range 2 {
		result, err := s.Dispatch(increment.New(amountPayload{Amount: 2}))
		if err != nil {
			t.Fatalf("dispatch: %v", err)
		}
		action := result.(patcher.Action)
		results = append(results, action.Payload.(amountPayload).Amount)
	}

	if diff := cmp.Diff([]int{4, 8}, results); diff != "" {
		t.Fatalf("patched amounts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(counterState{Amount: 8, Extra: 2}, s.GetState()); diff != "" {
		t.Fatalf("final state mismatch (-want +got):\n%s", diff)
	}
}

func TestScopedMiddlewaresAreIsolated(t *testing.T) {
	a := patcher.NewScopedMiddleware[counterState](nil)
	b := patcher.NewScopedMiddleware[counterState](nil)
	patcher.Must(patcher.RegisterPayload(a.Factory(), "x", func(string, counterState) (string, error) { return "a", nil }))
	patcher.Must(patcher.RegisterPayload(b.Factory(), "x", func(string, counterState) (string, error) { return "b", nil }))

	outA, _, _ := a.Patch(patcher.Action{Type: "x"}, counterState{})
	outB, _, _ := b.Patch(patcher.Action{Type: "x"}, counterState{})
	if outA.Payload != "a" || outB.Payload != "b" {
		t.Fatalf("expected isolated registries, got a=%v b=%v", outA.Payload, outB.Payload)
	}
	if a.Registry() == b.Registry() {
		t.Fatalf("each scoped middleware must own its registry")
	}
}

func TestPatcherErrorPropagatesUnchanged(t *testing.T) {
	boom := errors.New("boom")
	global := patcher.NewRegistry[counterState]("")
	patcher.Must(patcher.RegisterPayload(patcher.Bind(global), "explode", func(int, counterState) (int, error) {
		return 0, boom
	}))

	next := &recordNext{}
	dispatch := stageFor(patcher.NewMiddleware(global), counterState{}, next)
	result, err := dispatch(patcher.Action{Type: "explode", Payload: 1})
	if err != boom {
		t.Fatalf("expected the patcher error itself, got %v", err)
	}
	if result != nil || len(next.seen) != 0 {
		t.Fatalf("failed patch must not forward, got result=%v seen=%d", result, len(next.seen))
	}
}

func TestNilStoreYieldsZeroState(t *testing.T) {
	global := patcher.NewRegistry[counterState]("")
	patcher.Must(patcher.RegisterPayload(patcher.Bind(global), "extra", func(_ int, s counterState) (int, error) {
		return s.Extra, nil
	}))

	next := &recordNext{}
	dispatch := patcher.NewMiddleware(global).Stage()(nil)(next.dispatch)
	if _, err := dispatch(patcher.Action{Type: "extra", Payload: 9}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if next.seen[0].Payload != 0 {
		t.Fatalf("expected zero state, got %v", next.seen[0].Payload)
	}
}

func TestActivityEventsEmitted(t *testing.T) {
	global := patcher.NewRegistry[counterState]("")
	patcher.Must(patcher.RegisterPayload(patcher.Bind(global), "ok", func(p int, _ counterState) (int, error) { return p, nil }))
	patcher.Must(patcher.RegisterPayload(patcher.Bind(global), "bad", func(int, counterState) (int, error) {
		return 0, errors.New("bad input")
	}))

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	capture := &activity.CaptureHook{}
	m := patcher.NewMiddleware(global,
		patcher.WithActivityHooks(activity.Hooks{capture, nil}),
		patcher.WithActivityChannel("checkout"),
		patcher.WithClock(func() time.Time { return now }),
		patcher.WithDispatchIDs(func() string { return "dispatch-1" }),
	)
	if got := len(m.ActivityHooks()); got != 1 {
		t.Fatalf("expected nil hooks dropped, got %d", got)
	}

	_, _, _ = m.Patch(patcher.Action{Type: "ok", Payload: 1}, counterState{})
	_, _, _ = m.Patch(patcher.Action{Type: "bad", Payload: 1}, counterState{})
	_, _, _ = m.Patch(patcher.Action{Type: "ignored"}, counterState{})

	events := capture.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Verb != activity.VerbActionPatched || events[0].ObjectID != "ok" || events[0].CorrelationID != "dispatch-1" {
		t.Fatalf("unexpected applied event: %+v", events[0])
	}
	if events[1].Verb != activity.VerbActionPatchFailed || events[1].Metadata["error"] != "bad input" {
		t.Fatalf("unexpected failed event: %+v", events[1])
	}
	for _, event := range events {
		if event.Channel != "checkout" || !event.OccurredAt.Equal(now) {
			t.Fatalf("expected channel and clock applied, got %+v", event)
		}
	}
}

func TestActivityHookFailureIsLoggedNotReturned(t *testing.T) {
	global := patcher.NewRegistry[counterState]("")
	patcher.Must(patcher.RegisterPayload(patcher.Bind(global), "ok", func(p int, _ counterState) (int, error) { return p, nil }))

	var kinds []patcher.PatchEventKind
	m := patcher.NewMiddleware(global,
		patcher.WithActivityHooks(activity.Hooks{&activity.CaptureHook{Err: errors.New("sink down")}}),
		patcher.WithPatchLogger(patcher.PatchLoggerFunc(func(e patcher.PatchLogEvent) { kinds = append(kinds, e.Kind) })),
	)

	if _, _, err := m.Patch(patcher.Action{Type: "ok", Payload: 1}, counterState{}); err != nil {
		t.Fatalf("hook failure leaked into dispatch: %v", err)
	}
	if diff := cmp.Diff([]patcher.PatchEventKind{patcher.PatchApplied, patcher.ActivityFailed}, kinds); diff != "" {
		t.Fatalf("log kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestChainMiddlewareConsultsEveryScope(t *testing.T) {
	user := patcher.NewRegistry[counterState]("user")
	tenant := patcher.NewRegistry[counterState]("tenant")
	global := patcher.NewRegistry[counterState]("")
	patcher.Must(patcher.RegisterPayload(patcher.Bind(tenant), "x", func(string, counterState) (string, error) { return "tenant", nil }))
	patcher.Must(patcher.RegisterPayload(patcher.Bind(global), "x", func(string, counterState) (string, error) { return "global", nil }))

	chain, err := patcher.NewChain(user, tenant, global)
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	m := patcher.NewChainMiddleware(chain)

	out, found, err := m.Patch(patcher.Action{Type: "x"}, counterState{})
	if err != nil || !found || out.Payload != "tenant" {
		t.Fatalf("expected tenant patcher, got %v found=%v err=%v", out.Payload, found, err)
	}

	patcher.Must(patcher.RegisterPayload(patcher.Bind(user), "x", func(string, counterState) (string, error) { return "user", nil }))
	out, _, _ = m.Patch(patcher.Action{Type: "x"}, counterState{})
	if out.Payload != "user" {
		t.Fatalf("expected later user registration to take precedence, got %v", out.Payload)
	}

	out, found, _ = patcher.NewChainMiddleware[counterState](nil).Patch(patcher.Action{Type: "x", Payload: "raw"}, counterState{})
	if found || out.Payload != "raw" {
		t.Fatalf("empty chain must pass through, got %v found=%v", out.Payload, found)
	}
}
