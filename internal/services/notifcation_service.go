package services

import (
	"encoding/json"
	"fmt"

	"github.com/jharrvis/mangoyen-api/internal/database"
	"github.com/jharrvis/mangoyen-api/internal/models"
)

type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// CreateNotification creates a new notification
func (s *NotificationService) CreateNotification(userID uint, notifType models.NotificationType, title, message, link string, data map[string]interface{}) error {
	// Convert data to JSON string
	var dataJSON string
	if data != nil {
		jsonBytes, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal notification data: %w", err)
		}
		dataJSON = string(jsonBytes)
	}

	notification := models.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Link:    link,
		Data:    dataJSON,
		IsRead:  false,
	}

	if err := database.DB.Create(&notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// NotifyAdoptionRequest notifies the shelter when an adopter submits a request
func (s *NotificationService) NotifyAdoptionRequest(shelterUserID uint, adopterName, catName string, adoptionID uint) error {
	return s.CreateNotification(
		shelterUserID,
		models.NotificationAdoptionRequest,
		"Pengajuan Adopsi Baru",
		fmt.Sprintf("%s ingin mengadopsi %s. Tinjau pengajuannya sekarang.", adopterName, catName),
		fmt.Sprintf("/adoptions/%d", adoptionID),
		map[string]interface{}{
			"adoption_id":  adoptionID,
			"adopter_name": adopterName,
			"cat_name":     catName,
		},
	)
}

// NotifyAdoptionApproved notifies the adopter when the shelter approves
func (s *NotificationService) NotifyAdoptionApproved(adopterID uint, catName string, adoptionID uint) error {
	return s.CreateNotification(
		adopterID,
		models.NotificationAdoptionApproved,
		"Pengajuan Disetujui",
		fmt.Sprintf("Pengajuan adopsi %s disetujui! Chat dengan shelter sudah dibuka, lanjutkan ke pembayaran.", catName),
		fmt.Sprintf("/adoptions/%d", adoptionID),
		map[string]interface{}{
			"adoption_id": adoptionID,
			"cat_name":    catName,
		},
	)
}

// NotifyAdoptionRejected notifies the adopter when the shelter rejects
func (s *NotificationService) NotifyAdoptionRejected(adopterID uint, catName, reason string, adoptionID uint) error {
	return s.CreateNotification(
		adopterID,
		models.NotificationAdoptionRejected,
		"Pengajuan Ditolak",
		fmt.Sprintf("Pengajuan adopsi %s ditolak. Alasan: %s", catName, reason),
		fmt.Sprintf("/adoptions/%d", adoptionID),
		map[string]interface{}{
			"adoption_id": adoptionID,
			"cat_name":    catName,
			"reason":      reason,
		},
	)
}

// NotifyAdoptionCancelled notifies the other party when an adoption is cancelled
func (s *NotificationService) NotifyAdoptionCancelled(userID uint, catName, reason string, adoptionID uint) error {
	return s.CreateNotification(
		userID,
		models.NotificationAdoptionCancelled,
		"Adopsi Dibatalkan",
		fmt.Sprintf("Adopsi %s dibatalkan. %s", catName, reason),
		fmt.Sprintf("/adoptions/%d", adoptionID),
		map[string]interface{}{
			"adoption_id": adoptionID,
			"cat_name":    catName,
			"reason":      reason,
		},
	)
}

// NotifyPaymentReceived notifies the shelter when escrow payment settles
func (s *NotificationService) NotifyPaymentReceived(shelterUserID uint, catName string, amount float64, adoptionID uint) error {
	return s.CreateNotification(
		shelterUserID,
		models.NotificationPaymentReceived,
		"Pembayaran Diterima",
		fmt.Sprintf("Pembayaran Rp%.0f untuk %s sudah masuk Rekber. Kirim anabul maksimal 3 hari.", amount, catName),
		fmt.Sprintf("/adoptions/%d", adoptionID),
		map[string]interface{}{
			"adoption_id": adoptionID,
			"cat_name":    catName,
			"amount":      amount,
		},
	)
}

// NotifyShippingConfirmed notifies the adopter when the shelter ships
func (s *NotificationService) NotifyShippingConfirmed(adopterID uint, catName, trackingNumber string, adoptionID uint) error {
	return s.CreateNotification(
		adopterID,
		models.NotificationShippingConfirmed,
		"Anabul Dalam Perjalanan",
		fmt.Sprintf("%s sudah dikirim! Nomor resi: %s. Konfirmasi setelah anabul sampai.", catName, trackingNumber),
		fmt.Sprintf("/adoptions/%d", adoptionID),
		map[string]interface{}{
			"adoption_id":     adoptionID,
			"cat_name":        catName,
			"tracking_number": trackingNumber,
		},
	)
}

// NotifyAdoptionCompleted notifies the shelter when funds are released
func (s *NotificationService) NotifyAdoptionCompleted(shelterUserID uint, catName string, amount float64, adoptionID uint) error {
	return s.CreateNotification(
		shelterUserID,
		models.NotificationAdoptionCompleted,
		"Adopsi Selesai",
		fmt.Sprintf("Adopsi %s selesai! Dana Rp%.0f sudah dilepas ke akun kamu.", catName, amount),
		fmt.Sprintf("/adoptions/%d", adoptionID),
		map[string]interface{}{
			"adoption_id": adoptionID,
			"cat_name":    catName,
			"amount":      amount,
		},
	)
}

// NotifyPriceUpdated notifies the adopter when the shelter changes the agreed fee
func (s *NotificationService) NotifyPriceUpdated(adopterID uint, catName string, oldPrice, newPrice float64, adoptionID uint) error {
	return s.CreateNotification(
		adopterID,
		models.NotificationPriceUpdated,
		"Harga Diperbarui",
		fmt.Sprintf("Adoption fee %s diubah dari Rp%.0f menjadi Rp%.0f.", catName, oldPrice, newPrice),
		fmt.Sprintf("/adoptions/%d", adoptionID),
		map[string]interface{}{
			"adoption_id": adoptionID,
			"cat_name":    catName,
			"old_price":   oldPrice,
			"new_price":   newPrice,
		},
	)
}
