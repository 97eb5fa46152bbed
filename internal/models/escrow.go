package models

import (
	"time"

	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentReleased  PaymentStatus = "released"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentExpired   PaymentStatus = "expired"
	PaymentCancelled PaymentStatus = "cancelled"
)

type EscrowTransaction struct {
	ID                    uint           `gorm:"primarykey" json:"id"`
	AdoptionID            uint           `gorm:"not null;uniqueIndex" json:"adoption_id"`
	Amount                float64        `gorm:"not null" json:"amount"`
	PlatformFee           float64        `gorm:"not null;default:0" json:"platform_fee"`
	PaymentMethod         string         `gorm:"type:varchar(50)" json:"payment_method,omitempty"`
	PaymentReference      string         `gorm:"type:varchar(100)" json:"payment_reference,omitempty"`
	PaymentStatus         PaymentStatus  `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	MidtransOrderID       string         `gorm:"type:varchar(100);index" json:"midtrans_order_id,omitempty"`
	MidtransTransactionID string         `gorm:"type:varchar(100)" json:"midtrans_transaction_id,omitempty"`
	SnapToken             string         `gorm:"type:text" json:"snap_token,omitempty"`
	PaidAt                *time.Time     `json:"paid_at,omitempty"`
	ReleasedAt            *time.Time     `json:"released_at,omitempty"`
	ExpiresAt             *time.Time     `json:"expires_at,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`

	Adoption Adoption `gorm:"foreignKey:AdoptionID" json:"adoption,omitempty"`
}

func (EscrowTransaction) TableName() string {
	return "escrow_transactions"
}

func (t *EscrowTransaction) IsPaid() bool {
	return t.PaymentStatus == PaymentPaid
}

func (t *EscrowTransaction) IsReleased() bool {
	return t.PaymentStatus == PaymentReleased
}

// MarkAsPaid records the payment exactly once. Duplicate calls (the payment
// provider delivers webhooks at least once) leave method, reference and
// paid_at untouched: the guard is a conditional UPDATE so two concurrent
// deliveries cannot both win the write.
func (t *EscrowTransaction) MarkAsPaid(db *gorm.DB, method, reference string) error {
	now := time.Now()
	res := db.Model(&EscrowTransaction{}).
		Where("id = ? AND payment_status <> ?", t.ID, PaymentPaid).
		Updates(map[string]interface{}{
			"payment_status":    PaymentPaid,
			"payment_method":    method,
			"payment_reference": reference,
			"paid_at":           now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		t.PaymentStatus = PaymentPaid
		t.PaymentMethod = method
		t.PaymentReference = reference
		t.PaidAt = &now
	}
	return nil
}

// Release hands the held funds to the shelter. The caller is responsible for
// only releasing a paid transaction; no guard is applied here.
func (t *EscrowTransaction) Release(db *gorm.DB) error {
	now := time.Now()
	if err := db.Model(&EscrowTransaction{}).
		Where("id = ?", t.ID).
		Updates(map[string]interface{}{
			"payment_status": PaymentReleased,
			"released_at":    now,
		}).Error; err != nil {
		return err
	}
	t.PaymentStatus = PaymentReleased
	t.ReleasedAt = &now
	return nil
}

// SetStatus overwrites payment_status directly, for webhook-driven states
// (pending/failed/expired/cancelled) and admin refunds.
func (t *EscrowTransaction) SetStatus(db *gorm.DB, status PaymentStatus) error {
	if err := db.Model(&EscrowTransaction{}).
		Where("id = ?", t.ID).
		Update("payment_status", status).Error; err != nil {
		return err
	}
	t.PaymentStatus = status
	return nil
}
