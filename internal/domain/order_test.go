package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func uintPtr(v uint) *uint {
	return &v
}

func TestOrder_Creation(t *testing.T) {
	createdAt := time.Now()
	updatedAt := time.Now()

	order := Order{
		ID:           1,
		OwnerID:      10,
		Status:       OrderStatusPending,
		DeviceType:   "phone",
		DeviceBrand:  "Acme",
		DeviceModel:  "X2",
		Description:  "cracked screen",
		ContactName:  "John",
		ContactPhone: "13800000000",
		IsUrgent:     true,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}

	assert.Equal(t, uint(1), order.ID)
	assert.True(t, order.IsOwnedBy(10))
	assert.False(t, order.IsOwnedBy(11))
	assert.False(t, order.IsAssignedTo(10))
	assert.Nil(t, order.AssignedTechnicianID)
	assert.Equal(t, "phone Acme X2", order.DeviceLabel())
	assert.Equal(t, createdAt, order.CreatedAt)
	assert.Equal(t, updatedAt, order.UpdatedAt)
}

func TestOrder_DeviceLabel_SkipsEmptyParts(t *testing.T) {
	assert.Equal(t, "laptop", (&Order{DeviceType: "laptop"}).DeviceLabel())
	assert.Equal(t, "Acme", (&Order{DeviceBrand: "Acme"}).DeviceLabel())
	assert.Equal(t, "", (&Order{}).DeviceLabel())
}

func TestParseOrderStatus(t *testing.T) {
	for _, s := range []string{"pending", "assigned", "in_progress", "completed", "cancelled"} {
		st, ok := ParseOrderStatus(s)
		assert.True(t, ok, s)
		assert.Equal(t, s, string(st))
	}

	_, ok := ParseOrderStatus("shipped")
	assert.False(t, ok)
	_, ok = ParseOrderStatus("")
	assert.False(t, ok)
	_, ok = ParseOrderStatus("PENDING")
	assert.False(t, ok)
}

func TestOrderStatus_TerminalAndAssignee(t *testing.T) {
	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusInProgress.IsTerminal())

	assert.False(t, OrderStatusPending.AllowsAssignee())
	assert.True(t, OrderStatusAssigned.AllowsAssignee())
	assert.True(t, OrderStatusInProgress.AllowsAssignee())
	assert.True(t, OrderStatusCompleted.AllowsAssignee())
	assert.False(t, OrderStatusCancelled.AllowsAssignee())
}

func TestOrder_CheckAssigneeInvariant(t *testing.T) {
	tests := []struct {
		name     string
		status   OrderStatus
		assignee *uint
		wantErr  bool
	}{
		{"pending without technician", OrderStatusPending, nil, false},
		{"pending with technician", OrderStatusPending, uintPtr(5), true},
		{"assigned with technician", OrderStatusAssigned, uintPtr(5), false},
		{"in progress with technician", OrderStatusInProgress, uintPtr(5), false},
		{"completed with technician", OrderStatusCompleted, uintPtr(5), false},
		{"completed without technician", OrderStatusCompleted, nil, false},
		{"cancelled with technician", OrderStatusCancelled, uintPtr(5), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Order{ID: 1, Status: tt.status, AssignedTechnicianID: tt.assignee}
			err := o.CheckAssigneeInvariant()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
