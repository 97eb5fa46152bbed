package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// whatsAppJob is one outbound message waiting in the queue.
type whatsAppJob struct {
	Phone   string
	Message string
	Delay   time.Duration
}

// WhatsAppService sends transactional messages through the Fonnte gateway.
// Sends are queued and processed by a single background worker so a slow
// gateway never blocks request handlers; jobs carry a stagger delay to keep
// bursts of related messages in order.
type WhatsAppService struct {
	Token   string
	BaseURL string

	jobs chan whatsAppJob
	done chan struct{}
}

func NewWhatsAppService() *WhatsAppService {
	token := os.Getenv("FONNTE_API_TOKEN")
	if token == "" {
		log.Printf("⚠️  WARNING: FONNTE_API_TOKEN is empty, WhatsApp sends will be skipped")
	}

	s := &WhatsAppService{
		Token:   token,
		BaseURL: "https://api.fonnte.com/send",
		jobs:    make(chan whatsAppJob, 64),
		done:    make(chan struct{}),
	}
	go s.worker()
	return s
}

func (ws *WhatsAppService) worker() {
	defer close(ws.done)
	for job := range ws.jobs {
		if job.Delay > 0 {
			time.Sleep(job.Delay)
		}
		if err := ws.send(job.Phone, job.Message); err != nil {
			log.Printf("❌ WhatsApp send failed for %s: %v", maskPhone(job.Phone), err)
		}
	}
}

// Close drains the queue and stops the worker.
func (ws *WhatsAppService) Close() {
	close(ws.jobs)
	<-ws.done
}

// Enqueue schedules a message; drops it when the queue is full rather than
// blocking the caller.
func (ws *WhatsAppService) Enqueue(phone, message string, delay time.Duration) {
	if ws.Token == "" || phone == "" {
		return
	}
	select {
	case ws.jobs <- whatsAppJob{Phone: normalizePhone(phone), Message: message, Delay: delay}:
	default:
		log.Printf("⚠️  WhatsApp queue full, dropping message for %s", maskPhone(phone))
	}
}

func (ws *WhatsAppService) send(phone, message string) error {
	payload := map[string]interface{}{
		"target":  phone,
		"message": message,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest("POST", ws.BaseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", ws.Token)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fonnte status %d", resp.StatusCode)
	}

	log.Printf("✅ WhatsApp message sent to: %s", maskPhone(phone))
	return nil
}

// NotifyAdoptionApproved messages the adopter after shelter approval.
func (ws *WhatsAppService) NotifyAdoptionApproved(phone, adopterName, catName string) {
	msg := fmt.Sprintf("🐱 Meow %s! Pengajuan adopsi *%s* kamu sudah DISETUJUI shelter. Buka aplikasi MangOyen untuk chat dan lanjut ke pembayaran Rekber ya! 😸", adopterName, catName)
	ws.Enqueue(phone, msg, 0)
}

// NotifyPaymentReceived messages the shelter after escrow settlement.
// Delayed a few seconds so the in-app notification lands first.
func (ws *WhatsAppService) NotifyPaymentReceived(phone, shelterName, catName string, amount float64) {
	msg := fmt.Sprintf("🐱 Halo %s! Pembayaran Rp%.0f untuk adopsi *%s* sudah masuk Rekber MangOyen. Mohon kirim anabul maksimal 3 hari ya! 🐾", shelterName, amount, catName)
	ws.Enqueue(phone, msg, 5*time.Second)
}

// NotifyShippingConfirmed messages the adopter once the cat ships.
func (ws *WhatsAppService) NotifyShippingConfirmed(phone, adopterName, catName, trackingNumber string) {
	msg := fmt.Sprintf("🐱 Meow %s! *%s* sudah dalam perjalanan ke rumah barunya. Resi: %s. Jangan lupa konfirmasi di aplikasi setelah anabul sampai ya! ✨", adopterName, catName, trackingNumber)
	ws.Enqueue(phone, msg, 0)
}

// normalizePhone rewrites local 08xx numbers to the international 628xx form.
func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "+")
	if strings.HasPrefix(phone, "0") {
		return "62" + phone[1:]
	}
	return phone
}

func maskPhone(phone string) string {
	if len(phone) < 6 {
		return "***"
	}
	return phone[:4] + "****" + phone[len(phone)-2:]
}
