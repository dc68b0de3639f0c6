package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context identifies the action a value belongs to.
type Context struct {
	Type  string
	Scope string
}

// PreHook lets callers normalise the JSON-shaped value before decoding.
type PreHook func(Context, any) (any, error)

// PostHook lets callers adjust or validate the decoded value.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces the default JSON decoding when provided.
type CustomDecoder[T any] func(Context, any) (T, error)

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts loosely typed payloads into T.
type Decoder[T any] struct {
	preHooks     []PreHook
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
	custom       CustomDecoder[T]
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber enables json.Decoder.UseNumber during decoding.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

// WithDisallowUnknownFields invokes json.Decoder.DisallowUnknownFields.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

// WithCustomDecoder replaces the default JSON decoding path.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts value into T applying configured hooks. The value is routed
// through its JSON encoding, so maps produced by expression engines or JSON
// input decode into tagged structs.
func (d *Decoder[T]) Decode(ctx Context, value any) (T, error) {
	var zero T

	current := value
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx.Type, err)
		}
		if next != nil {
			current = next
		}
	}

	var result T
	if d.custom != nil {
		decoded, err := d.custom(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: custom decoder for %q failed: %w", ctx.Type, err)
		}
		result = decoded
	} else {
		buffer, err := json.Marshal(current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: marshal %q: %w", ctx.Type, err)
		}
		decoder := json.NewDecoder(bytes.NewReader(buffer))
		for _, configure := range d.configureDec {
			if configure != nil {
				configure(decoder)
			}
		}
		if err := decoder.Decode(&result); err != nil {
			return zero, fmt.Errorf("hydrate: decode %q: %w", ctx.Type, err)
		}
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx.Type, err)
		}
	}

	return result, nil
}

// Decode is a shorthand for NewDecoder[T]().Decode.
func Decode[T any](ctx Context, value any) (T, error) {
	return NewDecoder[T]().Decode(ctx, value)
}

// Normalize returns the generic JSON form of value (maps, slices, float64,
// string, bool, nil).
func Normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	buffer, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("hydrate: marshal %T: %w", value, err)
	}
	var out any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, fmt.Errorf("hydrate: unmarshal %T: %w", value, err)
	}
	return out, nil
}

// ToMap normalises value and requires an object at the top level. A nil value
// yields an empty map. Maps are normalised too, so numbers always come back as
// float64.
func ToMap(value any) (map[string]any, error) {
	if value == nil {
		return map[string]any{}, nil
	}
	normalized, err := Normalize(value)
	if err != nil {
		return nil, err
	}
	switch typed := normalized.(type) {
	case map[string]any:
		return typed, nil
	case nil:
		return map[string]any{}, nil
	default:
		return nil, fmt.Errorf("hydrate: %T does not encode to an object", value)
	}
}
