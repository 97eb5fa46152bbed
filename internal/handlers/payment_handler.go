package handlers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/jharrvis/mangoyen-api/internal/database"
	"github.com/jharrvis/mangoyen-api/internal/models"
	"github.com/jharrvis/mangoyen-api/internal/services"
)

var midtransService *services.MidtransService

func InitPaymentService(ms *services.MidtransService) {
	midtransService = ms
}

// MidtransNotification is the webhook payload sent by the payment provider.
type MidtransNotification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	TransactionID     string `json:"transaction_id"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"`
}

// CreateSnapToken issues a payment token for an adoption's escrow
func CreateSnapToken(c *fiber.Ctx) error {
	adoptionID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}
	userID := c.Locals("user_id").(uint)

	var adoption models.Adoption
	if err := database.DB.Preload("Cat").Preload("Adopter").Preload("EscrowTransaction").
		First(&adoption, adoptionID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Adoption not found",
		})
	}
	if adoption.AdopterID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the adopter can pay for this adoption",
		})
	}
	if adoption.Status != models.AdoptionApproved && adoption.Status != models.AdoptionWaitingPayment {
		return c.Status(fiber.StatusPreconditionFailed).JSON(fiber.Map{
			"error": "Adoption is not ready for payment",
		})
	}
	escrow := adoption.EscrowTransaction
	if escrow == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Escrow transaction missing",
		})
	}
	if escrow.IsPaid() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Escrow has already been paid",
		})
	}

	// Reuse an existing unexpired token so refreshing the payment page does
	// not create a new provider order.
	if escrow.SnapToken != "" && escrow.MidtransOrderID != "" {
		return c.JSON(fiber.Map{
			"snap_token": escrow.SnapToken,
			"order_id":   escrow.MidtransOrderID,
		})
	}

	orderID := services.GenerateOrderID(adoption.ID)
	snap, err := midtransService.CreateSnapToken(orderID, escrow.Amount,
		adoption.Adopter.Name, adoption.Adopter.Email,
		"Adopsi "+adoption.Cat.Name)
	if err != nil {
		log.Printf("❌ Failed to create snap token for adoption %d: %v", adoption.ID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to create payment token",
		})
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.EscrowTransaction{}).Where("id = ?", escrow.ID).
			Updates(map[string]interface{}{
				"midtrans_order_id": orderID,
				"snap_token":        snap.Token,
			}).Error; err != nil {
			return err
		}
		if adoption.Status == models.AdoptionApproved {
			return tx.Model(&models.Adoption{}).
				Where("id = ? AND status = ?", adoption.ID, models.AdoptionApproved).
				Update("status", models.AdoptionWaitingPayment).Error
		}
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store payment token",
		})
	}

	return c.JSON(fiber.Map{
		"snap_token":   snap.Token,
		"redirect_url": snap.RedirectURL,
		"order_id":     orderID,
	})
}

// MidtransWebhook processes payment status notifications. Unknown orders and
// provider test pings are acknowledged with 200 so the provider stops
// retrying; only a bad signature is rejected.
func MidtransWebhook(c *fiber.Ctx) error {
	notif := new(MidtransNotification)
	if err := c.BodyParser(notif); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid notification payload",
		})
	}

	// Provider test payloads carry an empty or sentinel order id.
	if notif.OrderID == "" || strings.HasPrefix(notif.OrderID, "payment_notif_test_") {
		return c.JSON(fiber.Map{"status": "ok"})
	}

	if !midtransService.VerifySignature(notif.OrderID, notif.StatusCode, notif.GrossAmount, notif.SignatureKey) {
		log.Printf("🚨 Webhook signature mismatch for order %s", notif.OrderID)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Invalid signature",
		})
	}

	var escrow models.EscrowTransaction
	err := database.DB.Where("midtrans_order_id = ?", notif.OrderID).First(&escrow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("⚠️  Webhook for unknown order %s acknowledged", notif.OrderID)
		return c.JSON(fiber.Map{"status": "ok"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}

	status := mapTransactionStatus(notif.TransactionStatus, notif.PaymentType, notif.FraudStatus)

	if notif.TransactionID != "" {
		if err := database.DB.Model(&models.EscrowTransaction{}).Where("id = ?", escrow.ID).
			Update("midtrans_transaction_id", notif.TransactionID).Error; err != nil {
			log.Printf("⚠️  Failed to store transaction id for order %s: %v", notif.OrderID, err)
		}
	}

	switch status {
	case models.PaymentPaid:
		if _, err := adoptionService.MarkPaid(escrow.AdoptionID, notif.PaymentType, notif.TransactionID); err != nil {
			if errors.Is(err, services.ErrIllegalTransition) {
				// Late confirmation for an already-cancelled adoption; the
				// escrow was refunded inside MarkPaid. Still ack.
				return c.JSON(fiber.Map{"status": "ok"})
			}
			log.Printf("❌ Failed to apply payment for order %s: %v", notif.OrderID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to apply payment",
			})
		}
	case models.PaymentPending:
		if !escrow.IsPaid() {
			if err := escrow.SetStatus(database.DB, models.PaymentPending); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Failed to update payment status",
				})
			}
		}
	default:
		if escrow.IsPaid() || escrow.IsReleased() {
			// A terminal provider status never downgrades settled money.
			return c.JSON(fiber.Map{"status": "ok"})
		}
		if err := escrow.SetStatus(database.DB, status); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update payment status",
			})
		}
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// mapTransactionStatus translates the provider vocabulary to escrow states.
func mapTransactionStatus(transactionStatus, paymentType, fraudStatus string) models.PaymentStatus {
	switch transactionStatus {
	case "capture":
		if paymentType == "credit_card" && fraudStatus == "challenge" {
			return models.PaymentPending
		}
		return models.PaymentPaid
	case "settlement":
		return models.PaymentPaid
	case "pending":
		return models.PaymentPending
	case "deny":
		return models.PaymentFailed
	case "expire":
		return models.PaymentExpired
	case "cancel":
		return models.PaymentCancelled
	default:
		return models.PaymentPending
	}
}
