package hydrate

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type amountPayload struct {
	Amount int    `json:"amount"`
	Note   string `json:"note,omitempty"`
}

func TestDecodeFromGenericMap(t *testing.T) {
	got, err := Decode[amountPayload](Context{Type: "increment"}, map[string]any{
		"amount": float64(4),
		"note":   "patched",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := amountPayload{Amount: 4, Note: "patched"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("decoded payload mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeErrorsCarryActionType(t *testing.T) {
	_, err := Decode[amountPayload](Context{Type: "increment"}, map[string]any{"amount": "two"})
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if !strings.Contains(err.Error(), `"increment"`) {
		t.Fatalf("expected action type in error, got %v", err)
	}
}

func TestDecoderHooksAndOptions(t *testing.T) {
	cases := []struct {
		name      string
		options   []DecoderOption[amountPayload]
		input     any
		expect    amountPayload
		expectErr string
	}{
		{
			name: "pre hook rewrites input",
			options: []DecoderOption[amountPayload]{
				WithPreHook[amountPayload](func(_ Context, value any) (any, error) {
					if n, ok := value.(float64); ok {
						return map[string]any{"amount": n}, nil
					}
					return value, nil
				}),
			},
			input:  float64(7),
			expect: amountPayload{Amount: 7},
		},
		{
			name: "post hook fills defaults",
			options: []DecoderOption[amountPayload]{
				WithPostHook[amountPayload](func(ctx Context, p *amountPayload) error {
					if p.Note == "" {
						p.Note = ctx.Type
					}
					return nil
				}),
			},
			input:  map[string]any{"amount": 1},
			expect: amountPayload{Amount: 1, Note: "increment"},
		},
		{
			name:      "unknown fields rejected",
			options:   []DecoderOption[amountPayload]{WithDisallowUnknownFields[amountPayload]()},
			input:     map[string]any{"amount": 1, "extra": true},
			expectErr: "unknown field",
		},
		{
			name: "custom decoder replaces json",
			options: []DecoderOption[amountPayload]{
				WithCustomDecoder[amountPayload](func(_ Context, value any) (amountPayload, error) {
					s, ok := value.(string)
					if !ok {
						return amountPayload{}, errors.New("want string")
					}
					return amountPayload{Note: s}, nil
				}),
			},
			input:  "raw",
			expect: amountPayload{Note: "raw"},
		},
		{
			name: "post hook failure",
			options: []DecoderOption[amountPayload]{
				WithPostHook[amountPayload](func(Context, *amountPayload) error { return errors.New("invalid") }),
			},
			input:     map[string]any{"amount": 1},
			expectErr: "post-hook",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewDecoder(tc.options...).Decode(Context{Type: "increment"}, tc.input)
			if tc.expectErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.expect, got); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToMap(t *testing.T) {
	type state struct {
		Amount int `json:"amount"`
		Extra  int `json:"extra"`
	}

	got, err := ToMap(state{Amount: 3, Extra: 2})
	if err != nil {
		t.Fatalf("to map: %v", err)
	}
	want := map[string]any{"amount": float64(3), "extra": float64(2)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	empty, err := ToMap(nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty map for nil, got %v err=%v", empty, err)
	}

	if _, err := ToMap(42); err == nil {
		t.Fatalf("expected error for scalar value")
	}
}
