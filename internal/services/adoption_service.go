package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/jharrvis/mangoyen-api/internal/models"
)

var (
	ErrCatUnavailable    = errors.New("cat is not available for adoption")
	ErrIllegalTransition = errors.New("adoption status does not allow this action")
	ErrNotOwner          = errors.New("user does not own this resource")
	ErrAlreadyPaid       = errors.New("escrow has already been paid")
	ErrDuplicateRequest  = errors.New("user already has an active adoption for this cat")
)

// AdoptionConfig tunes the lifecycle rules.
type AdoptionConfig struct {
	PlatformFeeRate float64       // fraction of the fee kept by the platform
	ShippingWindow  time.Duration // time the shelter has to ship after payment
	Now             func() time.Time
}

func DefaultAdoptionConfig() AdoptionConfig {
	return AdoptionConfig{
		PlatformFeeRate: 0.05,
		ShippingWindow:  72 * time.Hour,
		Now:             time.Now,
	}
}

// settledStatuses are the states in which an adoption holds the cat for good:
// money has landed and only fulfilment (or a refunding cancel) remains. At
// most one adoption per cat may ever be in one of these states.
var settledStatuses = []models.AdoptionStatus{
	models.AdoptionPayment, models.AdoptionShipping, models.AdoptionCompleted,
}

// AdoptionService owns the adoption lifecycle and its coordination with the
// escrow record and cat availability. Every transition is validated against
// the status table in models before any write happens.
type AdoptionService struct {
	db       *gorm.DB
	cfg      AdoptionConfig
	notifier *NotificationService
	emails   *EmailService
	whatsapp *WhatsAppService
}

func NewAdoptionService(db *gorm.DB, cfg AdoptionConfig, notifier *NotificationService, emails *EmailService, whatsapp *WhatsAppService) *AdoptionService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &AdoptionService{db: db, cfg: cfg, notifier: notifier, emails: emails, whatsapp: whatsapp}
}

// Request creates a pending adoption with its escrow record and books the
// cat. The escrow amount starts at the listed adoption fee; negotiation can
// change it until payment.
func (s *AdoptionService) Request(adopterID, catID uint, notes, address, phone string) (*models.Adoption, error) {
	var adoption models.Adoption

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var cat models.Cat
		if err := tx.Preload("Shelter").First(&cat, catID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCatUnavailable
			}
			return err
		}
		// A booked cat still accepts competing requests until somebody pays;
		// only payment picks the winner. Adopted cats are off the market, and
		// so is a cat whose winning adoption already holds the money.
		if cat.Status == models.CatAdopted {
			return ErrCatUnavailable
		}
		if cat.Shelter.UserID == adopterID {
			return ErrNotOwner
		}

		var settled int64
		if err := tx.Model(&models.Adoption{}).
			Where("cat_id = ? AND status IN ?", catID, settledStatuses).
			Count(&settled).Error; err != nil {
			return err
		}
		if settled > 0 {
			return ErrCatUnavailable
		}

		var existing int64
		if err := tx.Model(&models.Adoption{}).
			Where("adopter_id = ? AND cat_id = ? AND status IN ?", adopterID, catID,
				[]models.AdoptionStatus{models.AdoptionPending, models.AdoptionApproved, models.AdoptionWaitingPayment, models.AdoptionPayment, models.AdoptionShipping}).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateRequest
		}

		adoption = models.Adoption{
			AdopterID:      adopterID,
			CatID:          catID,
			Status:         models.AdoptionPending,
			Notes:          notes,
			AdopterAddress: address,
			AdopterPhone:   phone,
		}
		if err := tx.Create(&adoption).Error; err != nil {
			return err
		}

		escrow := models.EscrowTransaction{
			AdoptionID:  adoption.ID,
			Amount:      cat.AdoptionFee,
			PlatformFee: cat.AdoptionFee * s.cfg.PlatformFeeRate,
		}
		if err := tx.Create(&escrow).Error; err != nil {
			return err
		}

		// Book the cat so the listing drops out of search.
		if cat.Status == models.CatAvailable {
			if err := tx.Model(&models.Cat{}).Where("id = ?", catID).
				Update("status", models.CatBooked).Error; err != nil {
				return err
			}
		}

		return tx.Create(&models.ActivityLog{
			CauserID:    &adopterID,
			SubjectType: "adoption",
			SubjectID:   adoption.ID,
			Event:       "requested",
			Description: fmt.Sprintf("Adoption requested for cat %d", catID),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.afterRequest(&adoption)
	return &adoption, nil
}

// Approve moves a pending adoption to approved, opening the chat.
func (s *AdoptionService) Approve(shelterUserID, adoptionID uint) (*models.Adoption, error) {
	adoption, err := s.loadForShelter(shelterUserID, adoptionID)
	if err != nil {
		return nil, err
	}

	if err := s.transition(adoption, models.AdoptionApproved, &shelterUserID, "approved", nil); err != nil {
		return nil, err
	}

	s.afterApprove(adoption)
	return adoption, nil
}

// Reject declines an adoption. A paid escrow is refunded and the cat goes
// back to available unless another active adoption still books it.
func (s *AdoptionService) Reject(shelterUserID, adoptionID uint, reason string) (*models.Adoption, error) {
	adoption, err := s.loadForShelter(shelterUserID, adoptionID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.transitionTx(tx, adoption, models.AdoptionRejected, &shelterUserID, "rejected",
			map[string]interface{}{"reason": reason}); err != nil {
			return err
		}
		if err := tx.Model(&models.Adoption{}).Where("id = ?", adoption.ID).
			Update("rejection_reason", reason).Error; err != nil {
			return err
		}
		adoption.RejectionReason = reason
		if err := s.refundIfPaidTx(tx, adoption.ID); err != nil {
			return err
		}
		return s.releaseCatTx(tx, adoption.CatID)
	})
	if err != nil {
		return nil, err
	}

	s.afterReject(adoption, reason)
	return adoption, nil
}

// MarkPaid records a confirmed payment and resolves the first-payer-wins
// race. The status move, the escrow write and the competing-adoption
// auto-cancel all run in one transaction; legality is enforced with a
// conditional update so two concurrent confirmations for the same cat
// cannot both win.
func (s *AdoptionService) MarkPaid(adoptionID uint, method, reference string) (*models.Adoption, error) {
	var adoption models.Adoption
	if err := s.db.Preload("Cat.Shelter.User").Preload("Adopter").Preload("EscrowTransaction").
		First(&adoption, adoptionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdoptionNotFound
		}
		return nil, err
	}
	if adoption.EscrowTransaction == nil {
		return nil, fmt.Errorf("adoption %d has no escrow transaction", adoptionID)
	}

	// Duplicate webhook delivery for the winner is a success no-op.
	if adoption.Status == models.AdoptionPayment || adoption.Status == models.AdoptionShipping || adoption.Status == models.AdoptionCompleted {
		return &adoption, nil
	}

	now := s.cfg.Now()
	deadline := now.Add(s.cfg.ShippingWindow)
	won := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// The winning update is doubly conditional: this adoption must still
		// be payable, and no other adoption for the cat may already hold a
		// settled status. The second clause closes the window where a loser
		// slips in after the winner paid but was never force-cancelled.
		res := tx.Model(&models.Adoption{}).
			Where("id = ? AND status IN ?", adoptionID,
				[]models.AdoptionStatus{models.AdoptionApproved, models.AdoptionWaitingPayment}).
			Where("NOT EXISTS (SELECT 1 FROM adoptions other WHERE other.cat_id = ? AND other.id <> ? AND other.deleted_at IS NULL AND other.status IN ?)",
				adoption.CatID, adoptionID, settledStatuses).
			Updates(map[string]interface{}{
				"status":            models.AdoptionPayment,
				"shipping_deadline": deadline,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race: another adoption for this cat already won.
			// The money is real, so refund.
			return adoption.EscrowTransaction.SetStatus(tx, models.PaymentRefunded)
		}
		won = true
		adoption.Status = models.AdoptionPayment
		adoption.ShippingDeadline = &deadline

		if err := adoption.EscrowTransaction.MarkAsPaid(tx, method, reference); err != nil {
			return err
		}

		// First payer wins: force-cancel every other non-terminal adoption
		// for this cat, scoped by cat id inside the winning transaction.
		reason := fmt.Sprintf("Dibatalkan otomatis: adopter lain sudah menyelesaikan pembayaran untuk adopsi #%d", adoption.ID)
		if err := tx.Model(&models.Adoption{}).
			Where("cat_id = ? AND id <> ? AND status IN ?", adoption.CatID, adoption.ID,
				[]models.AdoptionStatus{models.AdoptionPending, models.AdoptionApproved, models.AdoptionWaitingPayment}).
			Updates(map[string]interface{}{
				"status":           models.AdoptionCancelled,
				"rejection_reason": reason,
			}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Cat{}).Where("id = ?", adoption.CatID).
			Update("status", models.CatBooked).Error; err != nil {
			return err
		}

		return tx.Create(&models.ActivityLog{
			SubjectType: "adoption",
			SubjectID:   adoption.ID,
			Event:       "paid",
			Description: fmt.Sprintf("Payment confirmed via %s (%s)", method, reference),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	if !won {
		log.Printf("💸 Late payment for cancelled adoption %d refunded", adoptionID)
		return nil, ErrIllegalTransition
	}

	s.afterPaid(&adoption)
	return &adoption, nil
}

// ConfirmShipping records the tracking number and proof, moving the
// adoption from payment to shipping.
func (s *AdoptionService) ConfirmShipping(shelterUserID, adoptionID uint, trackingNumber, proofURL string) (*models.Adoption, error) {
	adoption, err := s.loadForShelter(shelterUserID, adoptionID)
	if err != nil {
		return nil, err
	}
	if trackingNumber == "" {
		return nil, fmt.Errorf("tracking number is required")
	}

	now := s.cfg.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.transitionTx(tx, adoption, models.AdoptionShipping, &shelterUserID, "shipped",
			map[string]interface{}{"tracking_number": trackingNumber}); err != nil {
			return err
		}
		if err := tx.Model(&models.Adoption{}).Where("id = ?", adoption.ID).
			Updates(map[string]interface{}{
				"tracking_number": trackingNumber,
				"shipping_proof":  proofURL,
				"shipped_at":      now,
			}).Error; err != nil {
			return err
		}
		adoption.TrackingNumber = trackingNumber
		adoption.ShippingProof = proofURL
		adoption.ShippedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterShipped(adoption)
	return adoption, nil
}

// ConfirmReceived completes the adoption: funds release to the shelter, the
// cat is marked adopted and the shelter's tally goes up.
func (s *AdoptionService) ConfirmReceived(adopterID, adoptionID uint) (*models.Adoption, error) {
	adoption, err := s.load(adoptionID)
	if err != nil {
		return nil, err
	}
	if adoption.AdopterID != adopterID {
		return nil, ErrNotOwner
	}
	if adoption.EscrowTransaction == nil {
		return nil, fmt.Errorf("adoption %d has no escrow transaction", adoptionID)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.transitionTx(tx, adoption, models.AdoptionCompleted, &adopterID, "completed", nil); err != nil {
			return err
		}
		if err := adoption.EscrowTransaction.Release(tx); err != nil {
			return err
		}
		if err := tx.Model(&models.Cat{}).Where("id = ?", adoption.CatID).
			Update("status", models.CatAdopted).Error; err != nil {
			return err
		}
		return tx.Model(&models.Shelter{}).Where("id = ?", adoption.Cat.ShelterID).
			Update("total_adopted", gorm.Expr("total_adopted + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	s.afterCompleted(adoption)
	return adoption, nil
}

// Cancel aborts an active adoption. causerID is nil for system cancels.
func (s *AdoptionService) Cancel(causerID *uint, adoptionID uint, reason string) (*models.Adoption, error) {
	adoption, err := s.load(adoptionID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.transitionTx(tx, adoption, models.AdoptionCancelled, causerID, "cancelled",
			map[string]interface{}{"reason": reason}); err != nil {
			return err
		}
		if err := tx.Model(&models.Adoption{}).Where("id = ?", adoption.ID).
			Update("rejection_reason", reason).Error; err != nil {
			return err
		}
		adoption.RejectionReason = reason
		if err := s.refundIfPaidTx(tx, adoption.ID); err != nil {
			return err
		}
		return s.releaseCatTx(tx, adoption.CatID)
	})
	if err != nil {
		return nil, err
	}

	s.afterCancelled(adoption, reason)
	return adoption, nil
}

// UpdateFinalPrice renegotiates the fee before payment. The escrow amount
// is immutable once paid.
func (s *AdoptionService) UpdateFinalPrice(shelterUserID, adoptionID uint, newPrice float64) (*models.Adoption, error) {
	adoption, err := s.loadForShelter(shelterUserID, adoptionID)
	if err != nil {
		return nil, err
	}
	if newPrice < 0 {
		return nil, fmt.Errorf("price cannot be negative")
	}
	if !adoption.Cat.IsNegotiable {
		return nil, fmt.Errorf("adoption fee for this cat is not negotiable")
	}
	if adoption.Status != models.AdoptionApproved && adoption.Status != models.AdoptionWaitingPayment {
		return nil, ErrIllegalTransition
	}
	if adoption.EscrowTransaction != nil && adoption.EscrowTransaction.IsPaid() {
		return nil, ErrAlreadyPaid
	}

	oldPrice := adoption.Cat.AdoptionFee
	if adoption.FinalPrice != nil {
		oldPrice = *adoption.FinalPrice
	}
	now := s.cfg.Now()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Adoption{}).Where("id = ?", adoption.ID).
			Updates(map[string]interface{}{
				"final_price":         newPrice,
				"price_negotiated_at": now,
			}).Error; err != nil {
			return err
		}
		adoption.FinalPrice = &newPrice
		adoption.PriceNegotiatedAt = &now

		return tx.Model(&models.EscrowTransaction{}).
			Where("adoption_id = ? AND payment_status = ?", adoption.ID, models.PaymentPending).
			Updates(map[string]interface{}{
				"amount":       newPrice,
				"platform_fee": newPrice * s.cfg.PlatformFeeRate,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyPriceUpdated(adoption.AdopterID, adoption.Cat.Name, oldPrice, newPrice, adoption.ID); err != nil {
			log.Printf("⚠️  Failed to notify price update: %v", err)
		}
	}
	return adoption, nil
}

// SweepShippingDeadlines cancels every paid adoption whose shipping deadline
// passed without a shipment, refunding the escrow. Idempotent: an adoption
// already swept is no longer in payment status and will not match again.
func (s *AdoptionService) SweepShippingDeadlines() (int, error) {
	now := s.cfg.Now()

	var overdue []models.Adoption
	if err := s.db.Preload("Cat.Shelter.User").Preload("Adopter").Preload("EscrowTransaction").
		Where("status = ? AND shipping_deadline < ? AND shipped_at IS NULL", models.AdoptionPayment, now).
		Find(&overdue).Error; err != nil {
		return 0, err
	}

	swept := 0
	for i := range overdue {
		adoption := &overdue[i]
		reason := "Dibatalkan otomatis: shelter tidak mengirim anabul dalam batas waktu 3 hari"
		if _, err := s.Cancel(nil, adoption.ID, reason); err != nil {
			if errors.Is(err, ErrIllegalTransition) {
				continue
			}
			log.Printf("❌ Failed to sweep adoption %d: %v", adoption.ID, err)
			continue
		}
		swept++
	}

	if swept > 0 {
		log.Printf("🧹 Shipping deadline sweep cancelled %d overdue adoptions", swept)
	}
	return swept, nil
}

func (s *AdoptionService) load(adoptionID uint) (*models.Adoption, error) {
	var adoption models.Adoption
	err := s.db.Preload("Cat.Shelter.User").Preload("Adopter").Preload("EscrowTransaction").
		First(&adoption, adoptionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAdoptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &adoption, nil
}

func (s *AdoptionService) loadForShelter(shelterUserID, adoptionID uint) (*models.Adoption, error) {
	adoption, err := s.load(adoptionID)
	if err != nil {
		return nil, err
	}
	if adoption.Cat.Shelter.UserID != shelterUserID {
		return nil, ErrNotOwner
	}
	return adoption, nil
}

// transition performs a single guarded status move in its own transaction.
func (s *AdoptionService) transition(adoption *models.Adoption, next models.AdoptionStatus, causerID *uint, event string, props map[string]interface{}) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.transitionTx(tx, adoption, next, causerID, event, props)
	})
}

// transitionTx validates the move against the transition table, then applies
// it with a conditional update so a concurrent writer cannot slip a second
// move past the guard.
func (s *AdoptionService) transitionTx(tx *gorm.DB, adoption *models.Adoption, next models.AdoptionStatus, causerID *uint, event string, props map[string]interface{}) error {
	if !adoption.Status.CanTransitionTo(next) {
		return ErrIllegalTransition
	}

	res := tx.Model(&models.Adoption{}).
		Where("id = ? AND status = ?", adoption.ID, adoption.Status).
		Update("status", next)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrIllegalTransition
	}

	prev := adoption.Status
	adoption.Status = next

	entry := models.NewActivityLog(causerID, "adoption", adoption.ID, event,
		fmt.Sprintf("Status changed from %s to %s", prev, next), props)
	return tx.Create(&entry).Error
}

func (s *AdoptionService) refundIfPaidTx(tx *gorm.DB, adoptionID uint) error {
	return tx.Model(&models.EscrowTransaction{}).
		Where("adoption_id = ? AND payment_status = ?", adoptionID, models.PaymentPaid).
		Update("payment_status", models.PaymentRefunded).Error
}

// releaseCatTx returns the cat to available unless another active adoption
// still books it.
func (s *AdoptionService) releaseCatTx(tx *gorm.DB, catID uint) error {
	var active int64
	if err := tx.Model(&models.Adoption{}).
		Where("cat_id = ? AND status IN ?", catID,
			[]models.AdoptionStatus{models.AdoptionPending, models.AdoptionApproved, models.AdoptionWaitingPayment, models.AdoptionPayment, models.AdoptionShipping}).
		Count(&active).Error; err != nil {
		return err
	}
	if active > 0 {
		return nil
	}
	return tx.Model(&models.Cat{}).
		Where("id = ? AND status = ?", catID, models.CatBooked).
		Update("status", models.CatAvailable).Error
}

func (s *AdoptionService) afterRequest(adoption *models.Adoption) {
	full, err := s.load(adoption.ID)
	if err != nil {
		return
	}
	*adoption = *full
	if s.notifier != nil {
		if err := s.notifier.NotifyAdoptionRequest(full.Cat.Shelter.UserID, full.Adopter.Name, full.Cat.Name, full.ID); err != nil {
			log.Printf("⚠️  Failed to notify adoption request: %v", err)
		}
	}
	if s.emails != nil && full.Cat.Shelter.User.Email != "" {
		if err := s.emails.SendAdoptionRequestEmail(full.Cat.Shelter.User.Email, full.Cat.Shelter.Name, full.Adopter.Name, full.Cat.Name, full.ID); err != nil {
			log.Printf("⚠️  Failed to email adoption request: %v", err)
		}
	}
}

func (s *AdoptionService) afterApprove(adoption *models.Adoption) {
	if s.notifier != nil {
		if err := s.notifier.NotifyAdoptionApproved(adoption.AdopterID, adoption.Cat.Name, adoption.ID); err != nil {
			log.Printf("⚠️  Failed to notify approval: %v", err)
		}
	}
	if s.emails != nil && adoption.Adopter.Email != "" {
		if err := s.emails.SendAdoptionApprovedEmail(adoption.Adopter.Email, adoption.Adopter.Name, adoption.Cat.Name, adoption.ID); err != nil {
			log.Printf("⚠️  Failed to email approval: %v", err)
		}
	}
	if s.whatsapp != nil {
		s.whatsapp.NotifyAdoptionApproved(adoption.Adopter.Phone, adoption.Adopter.Name, adoption.Cat.Name)
	}
}

func (s *AdoptionService) afterReject(adoption *models.Adoption, reason string) {
	if s.notifier != nil {
		if err := s.notifier.NotifyAdoptionRejected(adoption.AdopterID, adoption.Cat.Name, reason, adoption.ID); err != nil {
			log.Printf("⚠️  Failed to notify rejection: %v", err)
		}
	}
}

func (s *AdoptionService) afterPaid(adoption *models.Adoption) {
	amount := adoption.EscrowTransaction.Amount
	shelterUser := adoption.Cat.Shelter.User
	if s.notifier != nil {
		if err := s.notifier.NotifyPaymentReceived(shelterUser.ID, adoption.Cat.Name, amount, adoption.ID); err != nil {
			log.Printf("⚠️  Failed to notify payment: %v", err)
		}
	}
	if s.emails != nil && shelterUser.Email != "" {
		if err := s.emails.SendPaymentReceivedEmail(shelterUser.Email, adoption.Cat.Shelter.Name, adoption.Cat.Name, amount, adoption.ID); err != nil {
			log.Printf("⚠️  Failed to email payment: %v", err)
		}
	}
	if s.whatsapp != nil {
		s.whatsapp.NotifyPaymentReceived(shelterUser.Phone, adoption.Cat.Shelter.Name, adoption.Cat.Name, amount)
	}

	// Tell the losers of the first-payer race.
	var losers []models.Adoption
	if err := s.db.Preload("Cat").Where("cat_id = ? AND id <> ? AND status = ?",
		adoption.CatID, adoption.ID, models.AdoptionCancelled).Find(&losers).Error; err != nil {
		return
	}
	for _, loser := range losers {
		if s.notifier != nil {
			if err := s.notifier.NotifyAdoptionCancelled(loser.AdopterID, loser.Cat.Name,
				"Adopter lain sudah menyelesaikan pembayaran lebih dulu.", loser.ID); err != nil {
				log.Printf("⚠️  Failed to notify losing adopter %d: %v", loser.AdopterID, err)
			}
		}
	}
}

func (s *AdoptionService) afterShipped(adoption *models.Adoption) {
	if s.notifier != nil {
		if err := s.notifier.NotifyShippingConfirmed(adoption.AdopterID, adoption.Cat.Name, adoption.TrackingNumber, adoption.ID); err != nil {
			log.Printf("⚠️  Failed to notify shipping: %v", err)
		}
	}
	if s.whatsapp != nil {
		s.whatsapp.NotifyShippingConfirmed(adoption.Adopter.Phone, adoption.Adopter.Name, adoption.Cat.Name, adoption.TrackingNumber)
	}
}

func (s *AdoptionService) afterCompleted(adoption *models.Adoption) {
	amount := adoption.EscrowTransaction.Amount
	shelterUser := adoption.Cat.Shelter.User
	if s.notifier != nil {
		if err := s.notifier.NotifyAdoptionCompleted(shelterUser.ID, adoption.Cat.Name, amount, adoption.ID); err != nil {
			log.Printf("⚠️  Failed to notify completion: %v", err)
		}
	}
	if s.emails != nil && shelterUser.Email != "" {
		if err := s.emails.SendAdoptionCompletedEmail(shelterUser.Email, adoption.Cat.Shelter.Name, adoption.Cat.Name, amount); err != nil {
			log.Printf("⚠️  Failed to email completion: %v", err)
		}
	}
}

func (s *AdoptionService) afterCancelled(adoption *models.Adoption, reason string) {
	shelterUser := adoption.Cat.Shelter.User
	for _, userID := range []uint{adoption.AdopterID, shelterUser.ID} {
		if s.notifier != nil {
			if err := s.notifier.NotifyAdoptionCancelled(userID, adoption.Cat.Name, reason, adoption.ID); err != nil {
				log.Printf("⚠️  Failed to notify cancellation: %v", err)
			}
		}
	}
	if s.emails != nil && adoption.Adopter.Email != "" {
		if err := s.emails.SendAdoptionCancelledEmail(adoption.Adopter.Email, adoption.Adopter.Name, adoption.Cat.Name, reason); err != nil {
			log.Printf("⚠️  Failed to email cancellation: %v", err)
		}
	}
}
