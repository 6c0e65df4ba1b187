// Package crm holds the firm's bread-and-butter records: clients, cases,
// contracts and payments. It is deliberately thin CRUD over the shared
// database; access control happens at the HTTP layer through rbac
// permissions (clients:read, cases:write, ...).
package crm

import "time"

// Client is a person or company the firm represents.
type Client struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255" json:"email,omitempty"`
	Phone     string    `gorm:"size:32" json:"phone,omitempty"`
	Address   string    `gorm:"size:512" json:"address,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Case is a legal matter opened for a client.
type Case struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	ClientID    string     `gorm:"size:36;index;not null" json:"client_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `gorm:"size:32;not null;default:open" json:"status"`
	OpenedAt    time.Time  `json:"opened_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Contract is an engagement agreement, optionally tied to a case.
type Contract struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	ClientID  string     `gorm:"size:36;index;not null" json:"client_id"`
	CaseID    string     `gorm:"size:36;index" json:"case_id,omitempty"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	Terms     string     `json:"terms,omitempty"`
	SignedAt  *time.Time `json:"signed_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Payment is money received against a contract.
type Payment struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	ClientID    string    `gorm:"size:36;index;not null" json:"client_id"`
	ContractID  string    `gorm:"size:36;index" json:"contract_id,omitempty"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"`
	Currency    string    `gorm:"size:3;not null;default:USD" json:"currency"`
	Method      string    `gorm:"size:32" json:"method,omitempty"`
	Reference   string    `gorm:"size:128" json:"reference,omitempty"`
	PaidAt      time.Time `json:"paid_at"`
	CreatedAt   time.Time `json:"created_at"`
}
