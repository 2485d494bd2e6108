package model

import "time"

type TicketStatus string

const (
    TicketOpen     TicketStatus = "Open"
    TicketResolved TicketStatus = "Resolved"
)

// SupportTicket mirrors the `support_tickets` table.
type SupportTicket struct {
    ID          uint64       // support_tickets.id
    UserID      uint64       // support_tickets.user_id
    Subject     string       // support_tickets.subject
    Description string       // support_tickets.description
    Status      TicketStatus // support_tickets.status
    CreatedAt   time.Time    // support_tickets.created_at
    UpdatedAt   time.Time    // support_tickets.updated_at
}

type TicketPatch struct {
    Subject     *string
    Description *string
    Status      *TicketStatus
}

func (p TicketPatch) Empty() bool {
    return p.Subject == nil && p.Description == nil && p.Status == nil
}
