package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jharrvis/mangoyen-api/internal/models"
	"github.com/jharrvis/mangoyen-api/internal/moderation"
)

var (
	ErrEmptyMessage     = errors.New("message content is empty")
	ErrAdoptionNotFound = errors.New("adoption not found")
	ErrChatClosed       = errors.New("chat is not open for this adoption")
	ErrNotParticipant   = errors.New("user is not a participant of this adoption")
)

const (
	maxMessageLength = 1000
	pollPageLimit    = 50
)

// ChatService runs every chat message through the moderation pipeline:
// deterministic filter first, AI classifier only when the filter found
// nothing, then persistence and an optional bot reply.
type ChatService struct {
	db        *gorm.DB
	filter    *moderation.ContentFilter
	moderator *moderation.AIModerator
}

func NewChatService(db *gorm.DB, filter *moderation.ContentFilter, moderator *moderation.AIModerator) *ChatService {
	return &ChatService{db: db, filter: filter, moderator: moderator}
}

// SendResult carries everything the handler returns after one submission.
type SendResult struct {
	Message         models.Message  `json:"message"`
	SystemMessage   *models.Message `json:"system_message,omitempty"`
	Censored        bool            `json:"censored"`
	CensoredWarning string          `json:"censored_warning,omitempty"`
	StrikeWarning   string          `json:"strike_warning,omitempty"`
}

// SendMessage submits one chat message for an adoption. sourceIP scopes the
// AI-provider rate limit and is never persisted.
func (s *ChatService) SendMessage(ctx context.Context, adoptionID, senderID uint, content, sourceIP string) (*SendResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	adoption, err := s.loadAdoption(adoptionID)
	if err != nil {
		return nil, err
	}
	if !adoption.Status.ChatEnabled() {
		return nil, ErrChatClosed
	}
	if !isParticipant(adoption, senderID) {
		return nil, ErrNotParticipant
	}

	isMention := moderation.HasMention(content)

	var (
		censored bool
		warning  string
		verdict  moderation.Verdict
	)

	if !isMention {
		filtered := s.filter.Filter(content)
		if filtered.Censored {
			// Regex hit is authoritative; the AI check is skipped.
			content = filtered.Text
			censored = true
			warning = fmt.Sprintf("🐱 Meow! %s %s", s.filter.WarningMessage(filtered.Types), "Transaksi aman hanya lewat Rekber MangOyen ya! 😸")
		} else if s.moderator.IsConfigured() {
			verdict = s.moderator.Moderate(ctx, content, sourceIP)
			if verdict.Flagged && verdict.Confidence >= s.moderator.ConfidenceThreshold() {
				original := content
				content = aiCensorMarker(verdict.RuleViolated)
				censored = true
				warning = s.moderator.GenerateMangoyenResponse(ctx, original, verdict.Type, verdict.Reason, verdict.RuleViolated)
				log.Printf("🚫 AI censored message in adoption %d (rule=%s confidence=%.2f provider=%s)",
					adoptionID, verdict.RuleViolated, verdict.Confidence, verdict.Provider)
			}
		}
	}

	message := models.Message{
		AdoptionID: adoptionID,
		SenderID:   &senderID,
		Content:    truncate(content, maxMessageLength),
		IsCensored: censored,
	}
	if err := s.db.Create(&message).Error; err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	result := &SendResult{Message: message, Censored: censored}

	if censored {
		bot, err := s.createBotMessage(adoptionID, warning)
		if err != nil {
			return nil, err
		}
		result.SystemMessage = bot
		result.CensoredWarning = warning
		result.StrikeWarning = s.filter.StrikeWarning()
		return result, nil
	}

	if isMention {
		if question := moderation.ExtractQuestion(message.Content); question != "" {
			answer := s.moderator.Ask(ctx, question)
			bot, err := s.createBotMessage(adoptionID, answer)
			if err != nil {
				return nil, err
			}
			result.SystemMessage = bot
		}
	}

	return result, nil
}

// ListMessages returns the full history for an adoption, oldest first, and
// opportunistically marks the counterpart's messages as read.
func (s *ChatService) ListMessages(adoptionID, viewerID uint) ([]models.Message, error) {
	adoption, err := s.loadAdoption(adoptionID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(adoption, viewerID) {
		return nil, ErrNotParticipant
	}

	var messages []models.Message
	if err := s.db.Where("adoption_id = ?", adoptionID).
		Order("id ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}

	if err := s.markCounterpartRead(adoptionID, viewerID); err != nil {
		return nil, err
	}
	return messages, nil
}

// MessagesSince returns messages with id greater than the watermark, bounded
// to one poll page. Counterpart messages are marked read only when the poll
// actually delivered something; an empty poll touches nothing.
func (s *ChatService) MessagesSince(adoptionID, viewerID, sinceID uint) ([]models.Message, error) {
	adoption, err := s.loadAdoption(adoptionID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(adoption, viewerID) {
		return nil, ErrNotParticipant
	}

	var messages []models.Message
	if err := s.db.Where("adoption_id = ? AND id > ?", adoptionID, sinceID).
		Order("id ASC").
		Limit(pollPageLimit).
		Find(&messages).Error; err != nil {
		return nil, err
	}

	if len(messages) > 0 {
		if err := s.markCounterpartRead(adoptionID, viewerID); err != nil {
			return nil, err
		}
	}
	return messages, nil
}

// UnreadCount counts unread non-bot messages from the counterpart.
func (s *ChatService) UnreadCount(adoptionID, viewerID uint) (int64, error) {
	adoption, err := s.loadAdoption(adoptionID)
	if err != nil {
		return 0, err
	}
	if !isParticipant(adoption, viewerID) {
		return 0, ErrNotParticipant
	}

	var count int64
	err = s.db.Model(&models.Message{}).
		Where("adoption_id = ? AND read_at IS NULL AND sender_id IS NOT NULL AND sender_id <> ?", adoptionID, viewerID).
		Count(&count).Error
	return count, err
}

func (s *ChatService) loadAdoption(adoptionID uint) (*models.Adoption, error) {
	var adoption models.Adoption
	err := s.db.Preload("Cat.Shelter").First(&adoption, adoptionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAdoptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &adoption, nil
}

func (s *ChatService) createBotMessage(adoptionID uint, content string) (*models.Message, error) {
	bot := models.Message{
		AdoptionID: adoptionID,
		SenderID:   nil,
		Content:    truncate(content, maxMessageLength),
	}
	if err := s.db.Create(&bot).Error; err != nil {
		return nil, fmt.Errorf("failed to persist bot message: %w", err)
	}
	return &bot, nil
}

func (s *ChatService) markCounterpartRead(adoptionID, viewerID uint) error {
	return s.db.Model(&models.Message{}).
		Where("adoption_id = ? AND read_at IS NULL AND sender_id IS NOT NULL AND sender_id <> ?", adoptionID, viewerID).
		Update("read_at", time.Now()).Error
}

func isParticipant(adoption *models.Adoption, userID uint) bool {
	return adoption.AdopterID == userID || adoption.Cat.Shelter.UserID == userID
}

func aiCensorMarker(ruleID string) string {
	if ruleID == "" {
		return "🚫 [Pesan disensor oleh MangOyen AI]"
	}
	return fmt.Sprintf("🚫 [Pesan disensor oleh MangOyen AI - %s]", ruleID)
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
