package models

import (
	"time"

	"gorm.io/gorm"
)

type AdoptionStatus string

const (
	AdoptionPending        AdoptionStatus = "pending"
	AdoptionApproved       AdoptionStatus = "approved"
	AdoptionWaitingPayment AdoptionStatus = "waiting_payment"
	AdoptionPayment        AdoptionStatus = "payment"
	AdoptionShipping       AdoptionStatus = "shipping"
	AdoptionCompleted      AdoptionStatus = "completed"
	AdoptionCancelled      AdoptionStatus = "cancelled"
	AdoptionRejected       AdoptionStatus = "rejected"
)

// adoptionTransitions is the single source of truth for legal status moves.
// Every transition request goes through CanTransitionTo; call sites never
// decide legality themselves.
var adoptionTransitions = map[AdoptionStatus][]AdoptionStatus{
	AdoptionPending:        {AdoptionApproved, AdoptionRejected, AdoptionCancelled},
	AdoptionApproved:       {AdoptionWaitingPayment, AdoptionPayment, AdoptionRejected, AdoptionCancelled},
	AdoptionWaitingPayment: {AdoptionPayment, AdoptionRejected, AdoptionCancelled},
	AdoptionPayment:        {AdoptionShipping, AdoptionCompleted, AdoptionCancelled},
	AdoptionShipping:       {AdoptionCompleted, AdoptionCancelled},
	AdoptionCompleted:      {},
	AdoptionCancelled:      {},
	AdoptionRejected:       {},
}

func (s AdoptionStatus) CanTransitionTo(next AdoptionStatus) bool {
	for _, allowed := range adoptionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the adoption can no longer change state.
func (s AdoptionStatus) IsTerminal() bool {
	return len(adoptionTransitions[s]) == 0
}

// ChatEnabled reports whether the in-app chat is open for this status.
// Chat opens on approval and closes once payment locks the adoption in.
func (s AdoptionStatus) ChatEnabled() bool {
	return s == AdoptionApproved || s == AdoptionWaitingPayment
}

type Adoption struct {
	ID                uint           `gorm:"primarykey" json:"id"`
	AdopterID         uint           `gorm:"not null;index" json:"adopter_id"`
	CatID             uint           `gorm:"not null;index" json:"cat_id"`
	Status            AdoptionStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Notes             string         `gorm:"type:text" json:"notes,omitempty"`
	RejectionReason   string         `gorm:"type:text" json:"rejection_reason,omitempty"`
	AdopterAddress    string         `gorm:"type:text" json:"adopter_address,omitempty"`
	AdopterPhone      string         `gorm:"type:varchar(20)" json:"adopter_phone,omitempty"`
	FinalPrice        *float64       `json:"final_price,omitempty"`
	PriceNegotiatedAt *time.Time     `json:"price_negotiated_at,omitempty"`
	ShippingDeadline  *time.Time     `json:"shipping_deadline,omitempty"`
	TrackingNumber    string         `gorm:"type:varchar(100)" json:"tracking_number,omitempty"`
	ShippingProof     string         `gorm:"type:text" json:"shipping_proof,omitempty"`
	ShippedAt         *time.Time     `json:"shipped_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	Adopter           User               `gorm:"foreignKey:AdopterID" json:"adopter,omitempty"`
	Cat               Cat                `gorm:"foreignKey:CatID" json:"cat,omitempty"`
	EscrowTransaction *EscrowTransaction `gorm:"foreignKey:AdoptionID" json:"escrow_transaction,omitempty"`
	Messages          []Message          `gorm:"foreignKey:AdoptionID" json:"messages,omitempty"`
}

func (Adoption) TableName() string {
	return "adoptions"
}

func (a *Adoption) IsShippingOverdue(now time.Time) bool {
	return a.Status == AdoptionPayment &&
		a.ShippingDeadline != nil &&
		a.ShippingDeadline.Before(now) &&
		a.ShippedAt == nil
}
