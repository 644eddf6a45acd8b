package domain

import "time"

type AuditAction string

const (
	AuditActionCreated       AuditAction = "created"
	AuditActionAssigned      AuditAction = "assigned"
	AuditActionStatusChanged AuditAction = "status_changed"
	AuditActionNoteAdded     AuditAction = "note_added"
)

// AuditEntry is an append-only record of one action taken against an order.
type AuditEntry struct {
	ID          uint
	OrderID     uint
	ActorID     uint
	Action      AuditAction
	Description string
	CreatedAt   time.Time
}

type NotificationKind string

const (
	NotificationOrderCreated     NotificationKind = "order_created"
	NotificationOrderAssigned    NotificationKind = "order_assigned"
	NotificationOrderCompleted   NotificationKind = "order_completed"
	NotificationVerificationCode NotificationKind = "verification_code"
)

// NotificationEvent is produced once per qualifying transition and never stored.
type NotificationEvent struct {
	Phone   string
	Kind    NotificationKind
	Payload map[string]string
}
