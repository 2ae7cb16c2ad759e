// Package event defines the normalized representation of one Taiga webhook
// notification and the parser that produces it from a raw payload.
package event

import (
	"fmt"
	"math"
	"strings"
)

// Kind is the category of the changed entity.
type Kind int

const (
	KindMilestone Kind = iota
	KindUserStory
	KindTask
	KindIssue
	KindWikiPage
)

var kindNames = map[Kind]string{
	KindMilestone: "milestone",
	KindUserStory: "userstory",
	KindTask:      "task",
	KindIssue:     "issue",
	KindWikiPage:  "wikipage",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// KindFromString maps a payload type string to a Kind.
func KindFromString(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Action is what happened to the entity.
type Action int

const (
	ActionCreated Action = iota
	ActionDeleted
	ActionChanged
)

// String returns the wire form of the action ("create", "delete", "change").
func (a Action) String() string {
	switch a {
	case ActionCreated:
		return "create"
	case ActionDeleted:
		return "delete"
	case ActionChanged:
		return "change"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ActionFromString maps a payload action string to an Action.
func ActionFromString(s string) (Action, bool) {
	switch s {
	case "create":
		return ActionCreated, true
	case "delete":
		return ActionDeleted, true
	case "change":
		return ActionChanged, true
	}
	return 0, false
}

// Event is one normalized webhook notification.
type Event struct {
	Kind      Kind
	Action    Action
	ProjectID string
	Data      map[string]any
	// Change carries the extra diff fields present only on change actions.
	Change map[string]any
}

// TemplateKey returns the message template lookup key for this event.
// The key space is fixed: "<kind>-<action>d", e.g. "milestone-created",
// "task-changed". The literal "d" suffix is part of the naming convention
// used by existing per-channel configuration and must not change.
func (e *Event) TemplateKey() string {
	return e.Kind.String() + "-" + e.Action.String() + "d"
}

// DeepLink builds the URL pointing at the changed entity under baseURL.
//
//	milestone -> taskboard/<slug>
//	userstory -> us/<id>
//	task      -> us/<user_story>
//	issue     -> issue/<id>
//	wikipage  -> wiki/<slug>
func (e *Event) DeepLink(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	var path string
	switch e.Kind {
	case KindMilestone:
		path = "taskboard/" + FieldString(e.Data, "slug")
	case KindUserStory:
		path = "us/" + FieldString(e.Data, "id")
	case KindTask:
		path = "us/" + FieldString(e.Data, "user_story")
	case KindIssue:
		path = "issue/" + FieldString(e.Data, "id")
	case KindWikiPage:
		path = "wiki/" + FieldString(e.Data, "slug")
	}
	return base + "/" + path
}

// FieldString stringifies a payload field. JSON numbers arrive as float64;
// integral values must not render with a trailing ".0".
func FieldString(m map[string]any, key string) string {
	return Stringify(m[key])
}

// Stringify renders a decoded JSON value the way it appeared on the wire.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return fmt.Sprintf("%.0f", t)
		}
		return fmt.Sprintf("%v", t)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
