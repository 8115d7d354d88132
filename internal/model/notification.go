package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Type classifies what a notification is about.
type Type string

const (
	TypeDuplicateWorker Type = "worker_duplicate"
	TypeExitRequest     Type = "worker_exit_request"
	TypeExitConfirmed   Type = "worker_exit_confirmed"
	TypeGeneral         Type = "general"
)

// Types lists every known notification type in display order.
var Types = []Type{TypeGeneral, TypeDuplicateWorker, TypeExitRequest, TypeExitConfirmed}

// Valid reports whether t is a known notification type.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Label returns a short human-readable name for the type.
func (t Type) Label() string {
	switch t {
	case TypeDuplicateWorker:
		return "Duplicate worker"
	case TypeExitRequest:
		return "Exit request"
	case TypeExitConfirmed:
		return "Exit confirmed"
	default:
		return "General"
	}
}

// Status is the lifecycle state of a notification.
type Status string

const (
	StatusUnread       Status = "unread"
	StatusRead         Status = "read"
	StatusAcknowledged Status = "acknowledged"
)

// Rank orders statuses along the lifecycle. Unknown statuses rank lowest.
func (s Status) Rank() int {
	switch s {
	case StatusUnread:
		return 1
	case StatusRead:
		return 2
	case StatusAcknowledged:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.Rank() > 0
}

// CanAdvanceTo reports whether moving from s to next moves forward in the
// lifecycle. Status never regresses.
func (s Status) CanAdvanceTo(next Status) bool {
	return next.Valid() && next.Rank() > s.Rank()
}

// Predecessors returns the statuses from which s can be reached.
func (s Status) Predecessors() []Status {
	var out []Status
	for _, from := range []Status{StatusUnread, StatusRead, StatusAcknowledged} {
		if from.CanAdvanceTo(s) {
			out = append(out, from)
		}
	}
	return out
}

// Priority ranks how urgently a notification needs attention.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists every known priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	for _, known := range Priorities {
		if p == known {
			return true
		}
	}
	return false
}

// IsHigh reports whether p is high or urgent.
func (p Priority) IsHigh() bool {
	return p == PriorityHigh || p == PriorityUrgent
}

// ActionData carries the optional structured payload of a notification.
type ActionData struct {
	// WorkerID identifies the worker the notification is about.
	WorkerID string `json:"worker_id,omitempty"`

	// WorkerName is the display name of that worker.
	WorkerName string `json:"worker_name,omitempty"`

	// WorkerCIN is the worker's identity-document number.
	WorkerCIN string `json:"worker_cin,omitempty"`

	// RequesterGroupID identifies the group that raised the request.
	RequesterGroupID string `json:"requester_group_id,omitempty"`

	// RequesterGroupName is the display name of that group.
	RequesterGroupName string `json:"requester_group_name,omitempty"`

	// ActionRequired is a free-form tag naming what the recipient must do.
	ActionRequired string `json:"action_required,omitempty"`

	// ActionURL is where the recipient should go to act on the notification.
	ActionURL string `json:"action_url,omitempty"`
}

// Empty reports whether no payload field is set.
func (a ActionData) Empty() bool {
	return a == ActionData{}
}

// Notification is a message addressed to a single recipient.
type Notification struct {
	// ID is assigned by the backend and never changes.
	ID string `json:"id"`

	// Type classifies the notification.
	Type Type `json:"type"`

	// Title is the one-line summary.
	Title string `json:"title"`

	// Message is the body text.
	Message string `json:"message"`

	// RecipientID is the only user allowed to see this notification.
	RecipientID string `json:"recipient_id"`

	// RecipientGroupID is the group the recipient belongs to, if any.
	RecipientGroupID string `json:"recipient_group_id,omitempty"`

	// Status moves unread -> read -> acknowledged and never regresses.
	Status Status `json:"status"`

	// Priority drives whether the notification raises a popup.
	Priority Priority `json:"priority"`

	// CreatedAt is the backend write time. Zero until the backend resolves it.
	CreatedAt time.Time `json:"created_at"`

	// ReadAt is stamped by the backend on the read transition.
	ReadAt *time.Time `json:"read_at,omitempty"`

	// AcknowledgedAt is stamped by the backend on acknowledgement.
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`

	// Action is the optional structured payload.
	Action *ActionData `json:"action_data,omitempty"`
}

// IsUnread reports whether the notification has not been read yet.
func (n Notification) IsUnread() bool {
	return n.Status == StatusUnread
}

// NeedsAttention reports whether n is unread with high or urgent priority.
func (n Notification) NeedsAttention() bool {
	return n.IsUnread() && n.Priority.IsHigh()
}

// ActionURL returns the payload's action URL, or "" when there is none.
func (n Notification) ActionURL() string {
	if n.Action == nil {
		return ""
	}
	return n.Action.ActionURL
}

// Draft is a notification that has not been written yet.
type Draft struct {
	Type             Type
	Title            string
	Message          string
	RecipientID      string
	RecipientGroupID string
	Priority         Priority
	Action           *ActionData
}

// ErrInvalidDraft is returned by Draft.Validate.
var ErrInvalidDraft = errors.New("invalid notification")

// Validate checks that d can be written.
func (d Draft) Validate() error {
	var problems []string
	if strings.TrimSpace(d.RecipientID) == "" {
		problems = append(problems, "recipient is required")
	}
	if strings.TrimSpace(d.Title) == "" {
		problems = append(problems, "title is required")
	}
	if !d.Type.Valid() {
		problems = append(problems, fmt.Sprintf("unknown type %q", d.Type))
	}
	if !d.Priority.Valid() {
		problems = append(problems, fmt.Sprintf("unknown priority %q", d.Priority))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDraft, strings.Join(problems, ", "))
	}
	return nil
}

// WithDefaults fills an empty type and priority.
func (d Draft) WithDefaults() Draft {
	if d.Type == "" {
		d.Type = TypeGeneral
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if d.Action != nil && d.Action.Empty() {
		d.Action = nil
	}
	return d
}
