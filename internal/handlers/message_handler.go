package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jharrvis/mangoyen-api/internal/services"
)

var chatService *services.ChatService

func InitChatService(cs *services.ChatService) {
	chatService = cs
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// chatErrorResponse maps pipeline errors to HTTP responses.
func chatErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrEmptyMessage):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message content cannot be empty",
		})
	case errors.Is(err, services.ErrAdoptionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Adoption not found",
		})
	case errors.Is(err, services.ErrChatClosed):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Chat is not open for this adoption",
		})
	case errors.Is(err, services.ErrNotParticipant):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You are not a participant of this adoption",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}
}

// SendMessage posts one chat message through the moderation pipeline
func SendMessage(c *fiber.Ctx) error {
	adoptionID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}
	userID := c.Locals("user_id").(uint)

	req := new(SendMessageRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := chatService.SendMessage(c.Context(), adoptionID, userID, req.Content, c.IP())
	if err != nil {
		return chatErrorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// GetMessages returns the conversation history. With ?since=<id> it returns
// only newer messages, bounded to one poll page.
func GetMessages(c *fiber.Ctx) error {
	adoptionID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}
	userID := c.Locals("user_id").(uint)

	sinceStr := c.Query("since", "")
	if sinceStr != "" {
		since, convErr := strconv.ParseUint(sinceStr, 10, 64)
		if convErr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid since parameter",
			})
		}
		messages, err := chatService.MessagesSince(adoptionID, userID, uint(since))
		if err != nil {
			return chatErrorResponse(c, err)
		}
		return c.JSON(fiber.Map{
			"messages": messages,
			"count":    len(messages),
		})
	}

	messages, err := chatService.ListMessages(adoptionID, userID)
	if err != nil {
		return chatErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"messages": messages,
		"count":    len(messages),
	})
}

// GetChatUnreadCount returns how many counterpart messages are unread
func GetChatUnreadCount(c *fiber.Ctx) error {
	adoptionID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}
	userID := c.Locals("user_id").(uint)

	count, err := chatService.UnreadCount(adoptionID, userID)
	if err != nil {
		return chatErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"unread_count": count,
	})
}

// parseIDParam reads a numeric path parameter. On failure it writes the 400
// response itself and reports ok=false; the handler just returns nil.
func parseIDParam(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid id parameter",
		})
		return 0, false
	}
	return uint(id), true
}
