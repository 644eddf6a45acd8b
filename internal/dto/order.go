package dto

import (
	"time"

	"repairdesk/internal/domain"
)

type CreateOrderRequest struct {
	DeviceType   string   `json:"deviceType"`
	DeviceBrand  string   `json:"deviceBrand"`
	DeviceModel  string   `json:"deviceModel"`
	ServiceType  string   `json:"serviceType"`
	Description  string   `json:"description"`
	ContactName  string   `json:"contactName"`
	ContactPhone string   `json:"contactPhone"`
	Address      string   `json:"address"`
	IsUrgent     bool     `json:"isUrgent"`
	Images       []string `json:"images"`
}

func (r CreateOrderRequest) ToDomain() domain.Order {
	return domain.Order{
		DeviceType:   r.DeviceType,
		DeviceBrand:  r.DeviceBrand,
		DeviceModel:  r.DeviceModel,
		ServiceType:  r.ServiceType,
		Description:  r.Description,
		ContactName:  r.ContactName,
		ContactPhone: r.ContactPhone,
		Address:      r.Address,
		IsUrgent:     r.IsUrgent,
		Images:       r.Images,
	}
}

type AssignOrderRequest struct {
	TechnicianID uint `json:"technicianId"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type AddNoteRequest struct {
	Note string `json:"note"`
}

type OrderDTO struct {
	ID                   uint      `json:"id"`
	OwnerID              uint      `json:"ownerId"`
	AssignedTechnicianID *uint     `json:"assignedTechnicianId"`
	Status               string    `json:"status"`
	DeviceType           string    `json:"deviceType"`
	DeviceBrand          string    `json:"deviceBrand"`
	DeviceModel          string    `json:"deviceModel"`
	ServiceType          string    `json:"serviceType"`
	Description          string    `json:"description"`
	ContactName          string    `json:"contactName"`
	ContactPhone         string    `json:"contactPhone"`
	Address              string    `json:"address"`
	IsUrgent             bool      `json:"isUrgent"`
	Images               []string  `json:"images"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func NewOrderDTO(o *domain.Order) OrderDTO {
	images := o.Images
	if images == nil {
		images = []string{}
	}
	return OrderDTO{
		ID:                   o.ID,
		OwnerID:              o.OwnerID,
		AssignedTechnicianID: o.AssignedTechnicianID,
		Status:               string(o.Status),
		DeviceType:           o.DeviceType,
		DeviceBrand:          o.DeviceBrand,
		DeviceModel:          o.DeviceModel,
		ServiceType:          o.ServiceType,
		Description:          o.Description,
		ContactName:          o.ContactName,
		ContactPhone:         o.ContactPhone,
		Address:              o.Address,
		IsUrgent:             o.IsUrgent,
		Images:               images,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

type AuditEntryDTO struct {
	ID          uint      `json:"id"`
	OrderID     uint      `json:"orderId"`
	ActorID     uint      `json:"actorId"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func NewAuditEntryDTO(e *domain.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:          e.ID,
		OrderID:     e.OrderID,
		ActorID:     e.ActorID,
		Action:      string(e.Action),
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
}
