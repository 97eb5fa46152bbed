package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/jharrvis/mangoyen-api/internal/database"
	"github.com/jharrvis/mangoyen-api/internal/models"
	"github.com/jharrvis/mangoyen-api/internal/services"
)

type AdminHandler struct {
	db       *gorm.DB
	adoption *services.AdoptionService
	archive  *services.ArchiveService
}

func NewAdminHandler(adoption *services.AdoptionService, archive *services.ArchiveService) *AdminHandler {
	return &AdminHandler{
		db:       database.DB,
		adoption: adoption,
		archive:  archive,
	}
}

// SweepShippingDeadlines cancels overdue unshipped adoptions. Intended to be
// hit by the external scheduler; safe to call repeatedly.
func (h *AdminHandler) SweepShippingDeadlines(c *fiber.Ctx) error {
	swept, err := h.adoption.SweepShippingDeadlines()
	if err != nil {
		log.Printf("❌ Shipping deadline sweep failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Sweep failed",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Sweep completed",
		"swept":   swept,
	})
}

// ArchiveMessages moves one batch of aged-out messages to the archive table
func (h *AdminHandler) ArchiveMessages(c *fiber.Ctx) error {
	archived, err := h.archive.Run()
	if err != nil {
		log.Printf("❌ Message archive run failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Archive run failed",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Archive run completed",
		"archived": archived,
	})
}

// GetStats returns adoption and escrow totals for the admin dashboard
func (h *AdminHandler) GetStats(c *fiber.Ctx) error {
	type statusCount struct {
		Status models.AdoptionStatus `json:"status"`
		Count  int64                 `json:"count"`
	}

	var adoptionCounts []statusCount
	if err := h.db.Model(&models.Adoption{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&adoptionCounts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to aggregate adoptions",
		})
	}

	var heldFunds float64
	h.db.Model(&models.EscrowTransaction{}).
		Where("payment_status = ?", models.PaymentPaid).
		Select("COALESCE(SUM(amount), 0)").Scan(&heldFunds)

	var releasedFunds float64
	h.db.Model(&models.EscrowTransaction{}).
		Where("payment_status = ?", models.PaymentReleased).
		Select("COALESCE(SUM(amount), 0)").Scan(&releasedFunds)

	var censoredMessages int64
	h.db.Model(&models.Message{}).Where("is_censored = ?", true).Count(&censoredMessages)

	return c.JSON(fiber.Map{
		"adoptions":         adoptionCounts,
		"held_funds":        heldFunds,
		"released_funds":    releasedFunds,
		"censored_messages": censoredMessages,
	})
}

// GetActivityLog returns the audit trail for one adoption
func (h *AdminHandler) GetActivityLog(c *fiber.Ctx) error {
	adoptionID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	var entries []models.ActivityLog
	if err := h.db.Where("subject_type = ? AND subject_id = ?", "adoption", adoptionID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve activity log",
		})
	}

	return c.JSON(fiber.Map{
		"entries": entries,
		"count":   len(entries),
	})
}
