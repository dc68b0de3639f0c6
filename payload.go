package patcher

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-patcher/internal/hydrate"
)

// PayloadAs resolves action.Payload to P. A payload that already has type P is
// returned as-is, a nil payload yields the zero value, and anything else is
// decoded through its JSON form.
func PayloadAs[P any](action Action) (P, error) {
	var zero P
	if action.Payload == nil {
		return zero, nil
	}
	if payload, ok := action.Payload.(P); ok {
		return payload, nil
	}
	decoded, err := hydrate.Decode[P](hydrate.Context{Type: action.Type}, action.Payload)
	if err != nil {
		return zero, &PayloadError{
			Type: action.Type,
			Want: reflect.TypeFor[P]().String(),
			Got:  fmt.Sprintf("%T", action.Payload),
			Err:  err,
		}
	}
	return decoded, nil
}
