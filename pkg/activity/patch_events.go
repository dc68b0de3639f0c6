package activity

import (
	"strings"
	"time"
)

const (
	// VerbActionPatched marks an action rewritten by a patcher.
	VerbActionPatched = "action.patched"
	// VerbActionPatchFailed marks a patcher that returned an error.
	VerbActionPatchFailed = "action.patch_failed"
	// ObjectTypeAction is the object type of every patch event.
	ObjectTypeAction = "action"
)

// PatchEventInput describes one interception.
type PatchEventInput struct {
	DispatchID    string
	Type          string
	Scope         string
	DiscardedType string
	ActorID       string
	UserID        string
	TenantID      string
	Channel       string
	Metadata      map[string]any
	Err           error
	OccurredAt    time.Time
}

// BuildActionPatchedEvent constructs the event for an applied patch.
func BuildActionPatchedEvent(input PatchEventInput) Event {
	return buildPatchEvent(VerbActionPatched, input)
}

// BuildActionPatchFailedEvent constructs the event for a failed patch. The
// error text is recorded under the "error" metadata key.
func BuildActionPatchFailedEvent(input PatchEventInput) Event {
	return buildPatchEvent(VerbActionPatchFailed, input)
}

func buildPatchEvent(verb string, input PatchEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Scope != "" {
		metadata = ensureMetadata(metadata)
		metadata["scope"] = input.Scope
	}
	if input.DiscardedType != "" {
		metadata = ensureMetadata(metadata)
		metadata["discarded_type"] = input.DiscardedType
	}
	if input.Err != nil {
		metadata = ensureMetadata(metadata)
		metadata["error"] = input.Err.Error()
	}

	objectID := strings.TrimSpace(input.Type)
	if objectID == "" {
		objectID = strings.TrimSpace(input.DispatchID)
	}
	if objectID == "" {
		objectID = ObjectTypeAction
	}

	return Event{
		Verb:          verb,
		ActorID:       strings.TrimSpace(input.ActorID),
		UserID:        strings.TrimSpace(input.UserID),
		TenantID:      strings.TrimSpace(input.TenantID),
		ObjectType:    ObjectTypeAction,
		ObjectID:      objectID,
		Channel:       strings.TrimSpace(input.Channel),
		CorrelationID: strings.TrimSpace(input.DispatchID),
		Metadata:      metadata,
		OccurredAt:    input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
