// Package policy decides whether an actor may perform an action on an order.
package policy

import (
	"repairdesk/internal/domain"
)

type Action string

const (
	ActionCreateOrder      Action = "create_order"
	ActionReadOrder        Action = "read_order"
	ActionUpdateStatus     Action = "update_status"
	ActionAddNote          Action = "add_note"
	ActionReadLogs         Action = "read_logs"
	ActionAssignTechnician Action = "assign_technician"
	ActionListOrders       Action = "list_orders"
)

type DenyReason string

const (
	ReasonNone            DenyReason = ""
	ReasonUnauthenticated DenyReason = "unauthenticated"
	ReasonInactive        DenyReason = "inactive"
	ReasonRole            DenyReason = "role"
	ReasonNotRelated      DenyReason = "not_related"
)

type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason DenyReason) Decision { return Decision{Reason: reason} }

// orderScoped actions fall back to the owner/assignee check for roles that
// do not get them unconditionally.
var orderScoped = map[Action]bool{
	ActionReadOrder:    true,
	ActionUpdateStatus: true,
	ActionAddNote:      true,
	ActionReadLogs:     true,
}

// grants lists what each role may do on any order regardless of ownership.
var grants = map[domain.Role]map[Action]bool{
	domain.RoleAdmin: {
		ActionCreateOrder:      true,
		ActionReadOrder:        true,
		ActionUpdateStatus:     true,
		ActionAddNote:          true,
		ActionReadLogs:         true,
		ActionAssignTechnician: true,
		ActionListOrders:       true,
	},
	domain.RoleService: {
		ActionCreateOrder:  true,
		ActionReadOrder:    true,
		ActionUpdateStatus: true,
		ActionAddNote:      true,
		ActionReadLogs:     true,
		ActionListOrders:   true,
	},
	domain.RoleTechnician: {
		ActionCreateOrder: true,
		ActionListOrders:  true,
	},
	domain.RoleUser: {
		ActionCreateOrder: true,
		ActionListOrders:  true,
	},
}

// CheckActor applies the rules that do not depend on the action.
func CheckActor(actor *domain.Actor) Decision {
	if actor == nil {
		return deny(ReasonUnauthenticated)
	}
	if !actor.Active {
		return deny(ReasonInactive)
	}
	return allow()
}

// Can evaluates the rules in order: identity, activity, role grants, then
// ownership or assignment for order-scoped actions. order may be nil for
// actions that are not about one order.
func Can(actor *domain.Actor, action Action, order *domain.Order) Decision {
	if d := CheckActor(actor); !d.Allowed {
		return d
	}

	if grants[actor.Role][action] {
		return allow()
	}

	if orderScoped[action] && order != nil {
		if order.IsOwnedBy(actor.ID) || order.IsAssignedTo(actor.ID) {
			return allow()
		}
		return deny(ReasonNotRelated)
	}

	return deny(ReasonRole)
}

// Scope restricts a listing query. Nil fields mean unrestricted.
type Scope struct {
	OwnerID    *uint
	AssigneeID *uint
}

func (s Scope) Unrestricted() bool {
	return s.OwnerID == nil && s.AssigneeID == nil
}

// ListScope returns the filter that bounds what actor may list. The result
// is applied inside the query so totals are scoped too. A denied decision
// comes with an empty Scope that callers must not use.
func ListScope(actor *domain.Actor) (Scope, Decision) {
	if d := Can(actor, ActionListOrders, nil); !d.Allowed {
		return Scope{}, d
	}
	if actor.IsPrivileged() {
		return Scope{}, allow()
	}
	id := actor.ID
	if actor.Role == domain.RoleTechnician {
		return Scope{AssigneeID: &id}, allow()
	}
	return Scope{OwnerID: &id}, allow()
}
