package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Parse outcomes that are not events. ErrInvalidJSON is the only one the
// endpoint surfaces to the sender; the rest are accepted-and-dropped.
var (
	ErrInvalidJSON   = errors.New("invalid JSON payload")
	ErrMissingFields = errors.New("payload missing type, action or data")
	// ErrIgnored marks Taiga's "test" payload, sent when an operator pokes
	// the webhook from the project settings page. Deliberately a no-op.
	ErrIgnored = errors.New("test payload ignored")
)

// UnknownTypeError reports a payload type outside the five recognized kinds.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown payload type %q", e.Type)
}

// UnknownActionError reports an action outside create/delete/change.
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown payload action %q", e.Action)
}

// Parse decodes and validates a raw webhook body into an Event.
//
// An Event is produced only when the envelope carries all of type, action
// and data, the type is one of the five recognized kinds, and the action is
// recognized. Every other outcome is one of the sentinel errors above; none
// of them is fatal to the caller.
func Parse(raw []byte) (*Event, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ErrInvalidJSON
	}

	typeVal, hasType := payload["type"].(string)
	actionVal, hasAction := payload["action"].(string)
	data, hasData := payload["data"].(map[string]any)
	if !hasType || !hasAction || !hasData {
		return nil, ErrMissingFields
	}

	if typeVal == "test" {
		return nil, ErrIgnored
	}

	kind, ok := KindFromString(typeVal)
	if !ok {
		return nil, &UnknownTypeError{Type: typeVal}
	}

	action, ok := ActionFromString(actionVal)
	if !ok {
		return nil, &UnknownActionError{Action: actionVal}
	}

	ev := &Event{
		Kind:      kind,
		Action:    action,
		ProjectID: projectID(data),
		Data:      data,
	}

	if change, ok := payload["change"].(map[string]any); ok {
		ev.Change = change
	}

	return ev, nil
}

// projectID normalizes data.project to a string. Taiga has sent both a bare
// id and an embedded project object over the years; accept either.
func projectID(data map[string]any) string {
	switch p := data["project"].(type) {
	case map[string]any:
		return Stringify(p["id"])
	default:
		return Stringify(p)
	}
}
