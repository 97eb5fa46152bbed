package handlers

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jharrvis/mangoyen-api/internal/database"
	"github.com/jharrvis/mangoyen-api/internal/models"
	"github.com/jharrvis/mangoyen-api/internal/services"
)

var (
	adoptionService   *services.AdoptionService
	cloudinaryService *services.CloudinaryService
	validate          = validator.New()
)

func InitAdoptionService(as *services.AdoptionService, cs *services.CloudinaryService) {
	adoptionService = as
	cloudinaryService = cs
}

type CreateAdoptionRequest struct {
	CatID   uint   `json:"cat_id" validate:"required"`
	Notes   string `json:"notes"`
	Address string `json:"address" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
}

type RejectAdoptionRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type CancelAdoptionRequest struct {
	Reason string `json:"reason"`
}

type ConfirmShippingRequest struct {
	TrackingNumber string `json:"tracking_number" validate:"required"`
}

type UpdatePriceRequest struct {
	FinalPrice float64 `json:"final_price" validate:"gte=0"`
}

func adoptionErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrAdoptionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Adoption not found",
		})
	case errors.Is(err, services.ErrCatUnavailable):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cat is not available for adoption",
		})
	case errors.Is(err, services.ErrDuplicateRequest):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "You already have an active adoption for this cat",
		})
	case errors.Is(err, services.ErrNotOwner):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You are not allowed to perform this action",
		})
	case errors.Is(err, services.ErrIllegalTransition):
		return c.Status(fiber.StatusPreconditionFailed).JSON(fiber.Map{
			"error": "Adoption status does not allow this action",
		})
	case errors.Is(err, services.ErrAlreadyPaid):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Escrow has already been paid",
		})
	default:
		log.Printf("❌ Adoption handler error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}

// CreateAdoption submits a new adoption request for a cat
func CreateAdoption(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	req := new(CreateAdoptionRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cat_id, address and phone are required",
		})
	}

	adoption, err := adoptionService.Request(userID, req.CatID, req.Notes, req.Address, req.Phone)
	if err != nil {
		return adoptionErrorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Adoption request submitted",
		"adoption": adoption,
	})
}

// GetAdoptions lists adoptions where the user is adopter or shelter owner
func GetAdoptions(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	var adoptions []models.Adoption
	if err := database.DB.
		Preload("Cat").Preload("EscrowTransaction").
		Joins("JOIN cats ON cats.id = adoptions.cat_id").
		Joins("JOIN shelters ON shelters.id = cats.shelter_id").
		Where("adoptions.adopter_id = ? OR shelters.user_id = ?", userID, userID).
		Order("adoptions.created_at DESC").
		Find(&adoptions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve adoptions",
		})
	}

	return c.JSON(fiber.Map{
		"adoptions": adoptions,
		"count":     len(adoptions),
	})
}

// GetAdoption returns one adoption with its escrow record
func GetAdoption(c *fiber.Ctx) error {
	adoptionID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}
	userID := c.Locals("user_id").(uint)

	var adoption models.Adoption
	if err := database.DB.
		Preload("Cat.Shelter").Preload("Adopter").Preload("EscrowTransaction").
		First(&adoption, adoptionID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Adoption not found",
		})
	}

	if adoption.AdopterID != userID && adoption.Cat.Shelter.UserID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You are not a participant of this adoption",
		})
	}

	return c.JSON(fiber.Map{
		"adoption":     adoption,
		"chat_enabled": adoption.Status.ChatEnabled(),
	})
}

// ApproveAdoption lets the shelter approve a pending request
func ApproveAdoption(c *fiber.Ctx) error {
	adoptionID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}
	userID := c.Locals("user_id").(uint)

	adoption, err := adoptionService.Approve(userID, adoptionID)
	if err != nil {
		return adoptionErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Adoption approved, chat is now open",
		"adoption": adoption,
	})
}

// RejectAdoption lets the shelter reject a request with a reason
func RejectAdoption(c *fiber.Ctx) error {
	adoptionID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}
	userID := c.Locals("user_id").(uint)

	req := new(RejectAdoptionRequest)
	if err := c.BodyParser(req); err != nil || req.Reason == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Rejection reason is required",
		})
	}

	adoption, err := adoptionService.Reject(userID, adoptionID, req.Reason)
	if err != nil {
		return adoptionErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Adoption rejected",
		"adoption": adoption,
	})
}

// ConfirmShipping records tracking info and an optional proof photo upload
func ConfirmShipping(c *fiber.Ctx) error {
	adoptionID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}
	userID := c.Locals("user_id").(uint)

	trackingNumber := c.FormValue("tracking_number")
	if trackingNumber == "" {
		req := new(ConfirmShippingRequest)
		if err := c.BodyParser(req); err == nil {
			trackingNumber = req.TrackingNumber
		}
	}
	if trackingNumber == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Tracking number is required",
		})
	}

	proofURL := ""
	if file, err := c.FormFile("shipping_proof"); err == nil && cloudinaryService != nil {
		result, err := cloudinaryService.UploadShippingProof(file, adoptionID)
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Failed to upload shipping proof",
			})
		}
		proofURL = result.SecureURL
	}

	adoption, err := adoptionService.ConfirmShipping(userID, adoptionID, trackingNumber, proofURL)
	if err != nil {
		return adoptionErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Shipping confirmed",
		"adoption": adoption,
	})
}

// ConfirmReceived completes the adoption and releases escrow funds
func ConfirmReceived(c *fiber.Ctx) error {
	adoptionID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}
	userID := c.Locals("user_id").(uint)

	adoption, err := adoptionService.ConfirmReceived(userID, adoptionID)
	if err != nil {
		return adoptionErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Adoption completed, funds released to shelter",
		"adoption": adoption,
	})
}

// CancelAdoption aborts an active adoption
func CancelAdoption(c *fiber.Ctx) error {
	adoptionID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}
	userID := c.Locals("user_id").(uint)

	req := new(CancelAdoptionRequest)
	_ = c.BodyParser(req)
	reason := req.Reason
	if reason == "" {
		reason = "Dibatalkan oleh pengguna"
	}

	// Only a participant or an admin may cancel.
	var adoption models.Adoption
	if err := database.DB.Preload("Cat.Shelter").First(&adoption, adoptionID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Adoption not found",
		})
	}
	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}
	if adoption.AdopterID != userID && adoption.Cat.Shelter.UserID != userID && !user.IsAdmin() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You are not allowed to cancel this adoption",
		})
	}

	cancelled, err := adoptionService.Cancel(&userID, adoptionID, reason)
	if err != nil {
		return adoptionErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Adoption cancelled",
		"adoption": cancelled,
	})
}

// UpdateFinalPrice lets the shelter renegotiate the fee before payment
func UpdateFinalPrice(c *fiber.Ctx) error {
	adoptionID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}
	userID := c.Locals("user_id").(uint)

	req := new(UpdatePriceRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "final_price must be zero or positive",
		})
	}

	adoption, err := adoptionService.UpdateFinalPrice(userID, adoptionID, req.FinalPrice)
	if err != nil {
		return adoptionErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Adoption fee updated",
		"adoption": adoption,
	})
}
