package model

import (
	"strings"
	"time"
)

// TicketType is fixed at creation.
type TicketType string

const (
	TicketRefund      TicketType = "Refund"
	TicketReplacement TicketType = "Replacement"
)

// ReturnStatus is the state of a return ticket.
type ReturnStatus string

const (
	ReturnAwaiting        ReturnStatus = "AwaitingReturn"
	ReturnReceived        ReturnStatus = "ReturnReceived"
	ReturnRefundInitiated ReturnStatus = "RefundInitiated"
)

// ReturnAction names a transition request on a ticket.
type ReturnAction string

const (
	ActionReceive ReturnAction = "receive"
	ActionRefund  ReturnAction = "refund"
)

// ReturnTicket is a post-sale refund or replacement request.
type ReturnTicket struct {
	ID            string       `json:"id" db:"id"`
	OrderID       string       `json:"orderId" db:"order_id"`
	CustomerName  string       `json:"customerName" db:"customer_name"`
	CustomerEmail string       `json:"customerEmail" db:"customer_email"`
	CustomerPhone string       `json:"customerPhone" db:"customer_phone"`
	TicketType    TicketType   `json:"ticketType" db:"ticket_type"`
	Reason        string       `json:"reason,omitempty" db:"reason"`
	Status        ReturnStatus `json:"status" db:"status"`
	CreatedAt     time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time    `json:"updatedAt" db:"updated_at"`
}

// ParseReturnAction accepts an action name or the name of its target state.
func ParseReturnAction(s string) (ReturnAction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "receive", "received", strings.ToLower(string(ReturnReceived)):
		return ActionReceive, true
	case "refund", strings.ToLower(string(ReturnRefundInitiated)):
		return ActionRefund, true
	}
	return "", false
}

// Next returns the state the ticket moves to under action, or
// ErrInvalidTransition when the action is not legal from the current state.
func (t *ReturnTicket) Next(action ReturnAction) (ReturnStatus, error) {
	switch action {
	case ActionReceive:
		if t.Status == ReturnAwaiting {
			return ReturnReceived, nil
		}
	case ActionRefund:
		if t.Status == ReturnReceived && t.TicketType == TicketRefund {
			return ReturnRefundInitiated, nil
		}
	}
	return "", ErrInvalidTransition
}
