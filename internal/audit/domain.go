package audit

import (
	"time"

	"github.com/staffhub/staffhub/internal/shared"
)

// EventType classifies an audit event.
type EventType string

// Event types recorded by the platform.
const (
	EventPermissionGranted  EventType = "permission_granted"
	EventUnauthorizedAccess EventType = "unauthorized_access"
	EventRoleChanged        EventType = "role_changed"
	EventMatrixReloaded     EventType = "matrix_reloaded"
	EventResourceCreated    EventType = "resource_created"
	EventResourceUpdated    EventType = "resource_updated"
	EventResourceDeleted    EventType = "resource_deleted"
)

// SecurityLevel grades how sensitive an event is.
type SecurityLevel string

const (
	LevelLow      SecurityLevel = "low"
	LevelMedium   SecurityLevel = "medium"
	LevelHigh     SecurityLevel = "high"
	LevelCritical SecurityLevel = "critical"
)

// Event is an immutable record of a permission-relevant action or decision.
type Event struct {
	ID            string         `json:"id"`
	EventType     EventType      `json:"event_type"`
	ActorID       string         `json:"actor_id"`
	ActorRoles    []shared.Role  `json:"actor_roles"`
	Timestamp     time.Time      `json:"timestamp"`
	ResourceType  string         `json:"resource_type,omitempty"`
	ResourceID    string         `json:"resource_id,omitempty"`
	Action        string         `json:"action"`
	Details       map[string]any `json:"details,omitempty"`
	Success       bool           `json:"success"`
	SecurityLevel SecurityLevel  `json:"security_level"`
}

// Filters narrows an audit query. Zero values do not filter.
type Filters struct {
	EventType    EventType
	UserID       string
	ResourceType string
	ResourceID   string
	DateFrom     time.Time
	DateTo       time.Time
	Page         int
	PageSize     int
}

// Result wraps a page of events.
type Result struct {
	Events []Event    `json:"events"`
	Paging PagingInfo `json:"paging"`
}

// PagingInfo carries simple pagination metadata.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Matches reports whether e satisfies f, ignoring paging.
func (f Filters) Matches(e Event) bool {
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.UserID != "" && e.ActorID != f.UserID {
		return false
	}
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if f.ResourceID != "" && e.ResourceID != f.ResourceID {
		return false
	}
	if !f.DateFrom.IsZero() && e.Timestamp.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && e.Timestamp.After(f.DateTo) {
		return false
	}
	return true
}
