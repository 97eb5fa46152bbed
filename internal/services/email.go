package services

import (
	"fmt"
	"log"
	"os"

	"github.com/resend/resend-go/v2"
)

type EmailService struct {
	Client *resend.Client
	From   string
	AppURL string
}

func NewEmailService() *EmailService {
	apiKey := os.Getenv("RESEND_API_KEY")
	fromEmail := os.Getenv("FROM_EMAIL")

	log.Printf("📧 Email Service Initialized (Resend)")
	log.Printf("   - From Email: %s", fromEmail)
	log.Printf("   - API Key: %s", maskAPIKey(apiKey))

	if apiKey == "" {
		log.Printf("⚠️  WARNING: RESEND_API_KEY is empty!")
	}
	if fromEmail == "" {
		log.Printf("⚠️  WARNING: FROM_EMAIL is empty!")
		fromEmail = "onboarding@resend.dev" // Resend's default test email
	}

	return &EmailService{
		Client: resend.NewClient(apiKey),
		From:   fromEmail,
		AppURL: os.Getenv("APP_URL"),
	}
}

// Helper function to mask API key for logging
func maskAPIKey(key string) string {
	if len(key) == 0 {
		return "❌ EMPTY"
	}
	if len(key) < 8 {
		return "***"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

func (es *EmailService) send(to, subject, htmlBody string) error {
	params := &resend.SendEmailRequest{
		From:    es.From,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	}

	sent, err := es.Client.Emails.Send(params)
	if err != nil {
		log.Printf("❌ Resend API Error: %v", err)
		return fmt.Errorf("failed to send email: %v", err)
	}

	log.Printf("✅ Email sent successfully to: %s (ID: %s)", to, sent.Id)
	return nil
}

func (es *EmailService) wrap(title, body string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #ff8c42; color: #fff; padding: 16px 20px; border-radius: 5px 5px 0 0; }
        .content { background-color: #fff8f2; padding: 20px; border: 1px solid #f0e0d0; border-radius: 0 0 5px 5px; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h2>🐱 %s</h2></div>
        <div class="content">%s</div>
        <div class="footer">
            <p>MangOyen - Platform Adopsi Anabul. Email otomatis, mohon tidak dibalas.</p>
        </div>
    </div>
</body>
</html>
	`, title, body)
}

// SendAdoptionRequestEmail notifies a shelter of a new adoption request
func (es *EmailService) SendAdoptionRequestEmail(to, shelterName, adopterName, catName string, adoptionID uint) error {
	body := fmt.Sprintf(`
		<p>Halo %s,</p>
		<p><strong>%s</strong> baru saja mengajukan adopsi untuk <strong>%s</strong>.</p>
		<p>Silakan tinjau profil adopter dan setujui atau tolak pengajuannya di dashboard.</p>
		<p><a href="%s/adoptions/%d">Lihat Pengajuan</a></p>
	`, shelterName, adopterName, catName, es.AppURL, adoptionID)
	return es.send(to, fmt.Sprintf("Pengajuan Adopsi Baru untuk %s", catName), es.wrap("Pengajuan Adopsi Baru", body))
}

// SendAdoptionApprovedEmail notifies an adopter that the shelter approved
func (es *EmailService) SendAdoptionApprovedEmail(to, adopterName, catName string, adoptionID uint) error {
	body := fmt.Sprintf(`
		<p>Halo %s,</p>
		<p>Kabar baik! Pengajuan adopsi kamu untuk <strong>%s</strong> sudah disetujui shelter.</p>
		<p>Chat dengan shelter sudah dibuka. Selesaikan pembayaran lewat Rekber untuk melanjutkan proses adopsi.</p>
		<p><a href="%s/adoptions/%d">Lanjut ke Pembayaran</a></p>
	`, adopterName, catName, es.AppURL, adoptionID)
	return es.send(to, fmt.Sprintf("Pengajuan Adopsi %s Disetujui!", catName), es.wrap("Pengajuan Disetujui", body))
}

// SendPaymentReceivedEmail notifies a shelter that escrow payment settled
func (es *EmailService) SendPaymentReceivedEmail(to, shelterName, catName string, amount float64, adoptionID uint) error {
	body := fmt.Sprintf(`
		<p>Halo %s,</p>
		<p>Pembayaran sebesar <strong>Rp%.0f</strong> untuk adopsi <strong>%s</strong> sudah masuk Rekber.</p>
		<p>Dana ditahan platform sampai anabul diterima. Mohon kirim anabul dalam <strong>3 hari</strong>.</p>
		<p><a href="%s/adoptions/%d">Konfirmasi Pengiriman</a></p>
	`, shelterName, amount, catName, es.AppURL, adoptionID)
	return es.send(to, fmt.Sprintf("Pembayaran Diterima untuk %s", catName), es.wrap("Pembayaran Masuk Rekber", body))
}

// SendAdoptionCompletedEmail notifies a shelter that funds were released
func (es *EmailService) SendAdoptionCompletedEmail(to, shelterName, catName string, amount float64) error {
	body := fmt.Sprintf(`
		<p>Halo %s,</p>
		<p>Adopsi <strong>%s</strong> sudah selesai. Dana sebesar <strong>Rp%.0f</strong> telah dilepas dari Rekber ke akun kamu.</p>
		<p>Terima kasih sudah mencarikan rumah baru untuk anabul! 🧡</p>
	`, shelterName, catName, amount)
	return es.send(to, fmt.Sprintf("Adopsi %s Selesai", catName), es.wrap("Adopsi Selesai", body))
}

// SendAdoptionCancelledEmail notifies a party that the adoption was cancelled
func (es *EmailService) SendAdoptionCancelledEmail(to, name, catName, reason string) error {
	body := fmt.Sprintf(`
		<p>Halo %s,</p>
		<p>Adopsi untuk <strong>%s</strong> dibatalkan.</p>
		<p>%s</p>
		<p>Jika pembayaran sudah masuk Rekber, dana akan dikembalikan penuh.</p>
	`, name, catName, reason)
	return es.send(to, fmt.Sprintf("Adopsi %s Dibatalkan", catName), es.wrap("Adopsi Dibatalkan", body))
}
