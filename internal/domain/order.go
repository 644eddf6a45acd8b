package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAssigned   OrderStatus = "assigned"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAssigned,
	OrderStatusInProgress,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// ParseOrderStatus reports whether s is one of the enumerated lifecycle states.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range orderStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// AllowsAssignee reports whether an order in this state may carry a technician.
func (s OrderStatus) AllowsAssignee() bool {
	switch s {
	case OrderStatusAssigned, OrderStatusInProgress, OrderStatusCompleted:
		return true
	}
	return false
}

type Order struct {
	ID                   uint
	OwnerID              uint
	AssignedTechnicianID *uint
	Status               OrderStatus
	DeviceType           string
	DeviceBrand          string
	DeviceModel          string
	ServiceType          string
	Description          string
	ContactName          string
	ContactPhone         string
	Address              string
	IsUrgent             bool
	Images               []string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (o *Order) IsOwnedBy(userID uint) bool {
	return o.OwnerID == userID
}

func (o *Order) IsAssignedTo(userID uint) bool {
	return o.AssignedTechnicianID != nil && *o.AssignedTechnicianID == userID
}

// CheckAssigneeInvariant fails when a technician is attached to an order whose
// state does not allow one.
func (o *Order) CheckAssigneeInvariant() error {
	if o.AssignedTechnicianID != nil && !o.Status.AllowsAssignee() {
		return fmt.Errorf("order %d: status %s cannot have an assigned technician", o.ID, o.Status)
	}
	return nil
}

// DeviceLabel joins the descriptive device fields for human-facing messages.
func (o *Order) DeviceLabel() string {
	label := o.DeviceType
	for _, part := range []string{o.DeviceBrand, o.DeviceModel} {
		if part == "" {
			continue
		}
		if label != "" {
			label += " "
		}
		label += part
	}
	return label
}

// OrderFilter narrows a listing. Nil fields are not applied.
type OrderFilter struct {
	Status     *OrderStatus
	OwnerID    *uint
	AssigneeID *uint
	Limit      int
	Offset     int
}
