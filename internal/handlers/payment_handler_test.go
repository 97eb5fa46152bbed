package handlers

import (
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jharrvis/mangoyen-api/internal/database"
	"github.com/jharrvis/mangoyen-api/internal/models"
	"github.com/jharrvis/mangoyen-api/internal/services"
)

const testServerKey = "test-server-key"

type webhookFixture struct {
	app      *fiber.App
	db       *gorm.DB
	adoption models.Adoption
	escrow   models.EscrowTransaction
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Shelter{}, &models.Cat{},
		&models.Adoption{}, &models.EscrowTransaction{},
		&models.Message{}, &models.Notification{}, &models.ActivityLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	database.DB = db

	adopter := models.User{Name: "Budi", Email: "budi@example.com", Role: models.RoleAdopter}
	shelterUser := models.User{Name: "Sari", Email: "sari@example.com", Role: models.RoleShelter}
	db.Create(&adopter)
	db.Create(&shelterUser)
	shelter := models.Shelter{UserID: shelterUser.ID, Name: "Rumah Anabul"}
	db.Create(&shelter)
	cat := models.Cat{ShelterID: shelter.ID, Name: "Oyen", AdoptionFee: 1000000, Status: models.CatBooked}
	db.Create(&cat)

	adoption := models.Adoption{AdopterID: adopter.ID, CatID: cat.ID, Status: models.AdoptionWaitingPayment}
	db.Create(&adoption)
	escrow := models.EscrowTransaction{
		AdoptionID:      adoption.ID,
		Amount:          1000000,
		PlatformFee:     50000,
		MidtransOrderID: "ADOPT-1-abcd1234",
	}
	db.Create(&escrow)

	InitAdoptionService(services.NewAdoptionService(db, services.DefaultAdoptionConfig(), nil, nil, nil), nil)
	InitPaymentService(&services.MidtransService{ServerKey: testServerKey})

	app := fiber.New()
	app.Post("/api/webhooks/midtrans", MidtransWebhook)

	return &webhookFixture{app: app, db: db, adoption: adoption, escrow: escrow}
}

func signPayload(orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + testServerKey))
	return hex.EncodeToString(sum[:])
}

func (f *webhookFixture) deliver(t *testing.T, payload map[string]string) int {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest("POST", "/api/webhooks/midtrans", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatalf("webhook request: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func settlementPayload(orderID string) map[string]string {
	return map[string]string{
		"order_id":           orderID,
		"status_code":        "200",
		"gross_amount":       "1000000.00",
		"signature_key":      signPayload(orderID, "200", "1000000.00"),
		"transaction_status": "settlement",
		"transaction_id":     "mid-txn-1",
		"payment_type":       "bank_transfer",
	}
}

func TestWebhookTamperedAmountRejected(t *testing.T) {
	f := newWebhookFixture(t)

	payload := settlementPayload(f.escrow.MidtransOrderID)
	// Signature was computed over the real amount; the attacker lowers it.
	payload["gross_amount"] = "1.00"

	if code := f.deliver(t, payload); code != fiber.StatusForbidden {
		t.Fatalf("status = %d, want 403", code)
	}

	var escrow models.EscrowTransaction
	f.db.First(&escrow, f.escrow.ID)
	if escrow.PaymentStatus != models.PaymentPending {
		t.Errorf("escrow mutated on bad signature: %s", escrow.PaymentStatus)
	}
	var adoption models.Adoption
	f.db.First(&adoption, f.adoption.ID)
	if adoption.Status != models.AdoptionWaitingPayment {
		t.Errorf("adoption mutated on bad signature: %s", adoption.Status)
	}
}

func TestWebhookTestPayloadAcked(t *testing.T) {
	f := newWebhookFixture(t)

	for _, orderID := range []string{"", "payment_notif_test_G123_456"} {
		payload := map[string]string{
			"order_id":           orderID,
			"status_code":        "200",
			"gross_amount":       "10000.00",
			"signature_key":      "not-checked-for-test-pings",
			"transaction_status": "settlement",
		}
		if code := f.deliver(t, payload); code != fiber.StatusOK {
			t.Errorf("test payload %q: status = %d, want 200", orderID, code)
		}
	}
}

func TestWebhookUnknownOrderAcked(t *testing.T) {
	f := newWebhookFixture(t)

	if code := f.deliver(t, settlementPayload("ADOPT-999-deadbeef")); code != fiber.StatusOK {
		t.Fatalf("status = %d, want 200 to stop provider retries", code)
	}
}

func TestWebhookSettlementMarksPaid(t *testing.T) {
	f := newWebhookFixture(t)

	if code := f.deliver(t, settlementPayload(f.escrow.MidtransOrderID)); code != fiber.StatusOK {
		t.Fatalf("status = %d", code)
	}

	var escrow models.EscrowTransaction
	f.db.First(&escrow, f.escrow.ID)
	if escrow.PaymentStatus != models.PaymentPaid {
		t.Errorf("escrow = %s, want paid", escrow.PaymentStatus)
	}
	if escrow.MidtransTransactionID != "mid-txn-1" {
		t.Errorf("transaction id = %q", escrow.MidtransTransactionID)
	}

	var adoption models.Adoption
	f.db.First(&adoption, f.adoption.ID)
	if adoption.Status != models.AdoptionPayment {
		t.Errorf("adoption = %s, want payment", adoption.Status)
	}
	if adoption.ShippingDeadline == nil {
		t.Error("shipping deadline not set")
	} else if until := time.Until(*adoption.ShippingDeadline); until < 71*time.Hour || until > 73*time.Hour {
		t.Errorf("deadline %v from now, want ~72h", until)
	}
}

func TestWebhookDuplicateDeliveryIdempotent(t *testing.T) {
	f := newWebhookFixture(t)

	if code := f.deliver(t, settlementPayload(f.escrow.MidtransOrderID)); code != fiber.StatusOK {
		t.Fatalf("first delivery: %d", code)
	}
	var first models.EscrowTransaction
	f.db.First(&first, f.escrow.ID)

	payload := settlementPayload(f.escrow.MidtransOrderID)
	payload["transaction_id"] = "mid-txn-1"
	payload["payment_type"] = "gopay"
	if code := f.deliver(t, payload); code != fiber.StatusOK {
		t.Fatalf("duplicate delivery: %d", code)
	}

	var second models.EscrowTransaction
	f.db.First(&second, f.escrow.ID)
	if second.PaymentStatus != models.PaymentPaid {
		t.Errorf("escrow = %s", second.PaymentStatus)
	}
	if second.PaymentMethod != first.PaymentMethod {
		t.Errorf("payment method changed on duplicate: %q -> %q", first.PaymentMethod, second.PaymentMethod)
	}
	if !second.PaidAt.Equal(*first.PaidAt) {
		t.Errorf("paid_at changed on duplicate: %v -> %v", first.PaidAt, second.PaidAt)
	}
}

func TestWebhookStatusMapping(t *testing.T) {
	cases := []struct {
		name        string
		txStatus    string
		paymentType string
		fraudStatus string
		want        models.PaymentStatus
	}{
		{"deny", "deny", "credit_card", "", models.PaymentFailed},
		{"expire", "expire", "bank_transfer", "", models.PaymentExpired},
		{"cancel", "cancel", "bank_transfer", "", models.PaymentCancelled},
		{"pending", "pending", "bank_transfer", "", models.PaymentPending},
		{"capture challenge", "capture", "credit_card", "challenge", models.PaymentPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newWebhookFixture(t)

			payload := map[string]string{
				"order_id":           f.escrow.MidtransOrderID,
				"status_code":        "201",
				"gross_amount":       "1000000.00",
				"signature_key":      signPayload(f.escrow.MidtransOrderID, "201", "1000000.00"),
				"transaction_status": tc.txStatus,
				"payment_type":       tc.paymentType,
				"fraud_status":       tc.fraudStatus,
			}
			if code := f.deliver(t, payload); code != fiber.StatusOK {
				t.Fatalf("status = %d", code)
			}

			var escrow models.EscrowTransaction
			f.db.First(&escrow, f.escrow.ID)
			if escrow.PaymentStatus != tc.want {
				t.Errorf("escrow = %s, want %s", escrow.PaymentStatus, tc.want)
			}
		})
	}
}

func TestWebhookCaptureAcceptedAsPaid(t *testing.T) {
	f := newWebhookFixture(t)

	payload := map[string]string{
		"order_id":           f.escrow.MidtransOrderID,
		"status_code":        "200",
		"gross_amount":       "1000000.00",
		"signature_key":      signPayload(f.escrow.MidtransOrderID, "200", "1000000.00"),
		"transaction_status": "capture",
		"payment_type":       "credit_card",
		"fraud_status":       "accept",
		"transaction_id":     "mid-txn-2",
	}
	if code := f.deliver(t, payload); code != fiber.StatusOK {
		t.Fatalf("status = %d", code)
	}

	var escrow models.EscrowTransaction
	f.db.First(&escrow, f.escrow.ID)
	if escrow.PaymentStatus != models.PaymentPaid {
		t.Errorf("escrow = %s, want paid", escrow.PaymentStatus)
	}
}
