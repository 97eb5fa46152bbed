package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/jharrvis/mangoyen-api/internal/models"
	"github.com/jharrvis/mangoyen-api/internal/moderation"
)

func newChatFixture(t *testing.T, status models.AdoptionStatus) (*gorm.DB, *ChatService, fixture, models.Adoption) {
	t.Helper()

	db := newTestDB(t)
	f := seedMarketplace(t, db)

	adoption := models.Adoption{
		AdopterID: f.adopter.ID,
		CatID:     f.cat.ID,
		Status:    status,
	}
	if err := db.Create(&adoption).Error; err != nil {
		t.Fatalf("seed adoption: %v", err)
	}

	svc := NewChatService(db,
		moderation.NewContentFilter(moderation.FilterConfig{}),
		moderation.NewAIModerator(moderation.Config{}))
	return db, svc, f, adoption
}

func TestSendMessagePhoneCensored(t *testing.T) {
	db, svc, f, adoption := newChatFixture(t, models.AdoptionApproved)

	result, err := svc.SendMessage(context.Background(), adoption.ID, f.adopter.ID, "call me at 081234567890", "10.0.0.1")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if !result.Censored || !result.Message.IsCensored {
		t.Fatal("phone message not censored")
	}
	if strings.Contains(result.Message.Content, "081234567890") {
		t.Errorf("phone number survived: %q", result.Message.Content)
	}
	if !strings.Contains(result.Message.Content, "📞[disensor]") {
		t.Errorf("mask missing: %q", result.Message.Content)
	}

	if result.SystemMessage == nil {
		t.Fatal("no system message created")
	}
	if !result.SystemMessage.IsBot() {
		t.Error("system message has a sender")
	}
	if result.StrikeWarning == "" || result.CensoredWarning == "" {
		t.Error("warnings missing from result")
	}

	var count int64
	db.Model(&models.Message{}).Where("adoption_id = ?", adoption.ID).Count(&count)
	if count != 2 {
		t.Errorf("message rows = %d, want user + bot", count)
	}
}

func TestSendMessageCleanPassthrough(t *testing.T) {
	db, svc, f, adoption := newChatFixture(t, models.AdoptionApproved)

	input := "kucingnya lucu banget"
	result, err := svc.SendMessage(context.Background(), adoption.ID, f.adopter.ID, input, "10.0.0.1")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if result.Censored || result.Message.IsCensored {
		t.Error("clean message censored")
	}
	if result.Message.Content != input {
		t.Errorf("content mutated: %q", result.Message.Content)
	}
	if result.SystemMessage != nil {
		t.Error("unexpected system message")
	}

	var count int64
	db.Model(&models.Message{}).Where("adoption_id = ?", adoption.ID).Count(&count)
	if count != 1 {
		t.Errorf("message rows = %d", count)
	}
}

func TestSendMessageChatClosed(t *testing.T) {
	db, svc, f, adoption := newChatFixture(t, models.AdoptionPending)

	_, err := svc.SendMessage(context.Background(), adoption.ID, f.adopter.ID, "halo, kapan bisa diambil?", "10.0.0.1")
	if !errors.Is(err, ErrChatClosed) {
		t.Fatalf("err = %v, want ErrChatClosed", err)
	}

	var count int64
	db.Model(&models.Message{}).Where("adoption_id = ?", adoption.ID).Count(&count)
	if count != 0 {
		t.Errorf("rejected message persisted: %d rows", count)
	}
}

func TestSendMessageValidation(t *testing.T) {
	_, svc, f, adoption := newChatFixture(t, models.AdoptionApproved)

	if _, err := svc.SendMessage(context.Background(), adoption.ID, f.adopter.ID, "   ", "10.0.0.1"); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("empty: err = %v", err)
	}

	if _, err := svc.SendMessage(context.Background(), 9999, f.adopter.ID, "halo", "10.0.0.1"); !errors.Is(err, ErrAdoptionNotFound) {
		t.Errorf("missing adoption: err = %v", err)
	}

	stranger := models.User{Name: "Dodi", Email: "dodi@example.com", Role: models.RoleAdopter}
	if _, err := svc.SendMessage(context.Background(), adoption.ID, stranger.ID+12345, "halo", "10.0.0.1"); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("stranger: err = %v", err)
	}
}

func TestSendMessageTruncated(t *testing.T) {
	_, svc, f, adoption := newChatFixture(t, models.AdoptionApproved)

	long := strings.Repeat("m", 1200)
	result, err := svc.SendMessage(context.Background(), adoption.ID, f.adopter.ID, long, "10.0.0.1")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got := len([]rune(result.Message.Content)); got != 1000 {
		t.Errorf("content length = %d, want 1000", got)
	}
}

func TestMentionSkipsModeration(t *testing.T) {
	_, svc, f, adoption := newChatFixture(t, models.AdoptionApproved)

	// A mention is exempt even when the trailing text would match a filter
	// category; the bot answers instead (fixed fallback with no provider).
	result, err := svc.SendMessage(context.Background(), adoption.ID, f.adopter.ID, "@mangoyen boleh kirim ke 081234567890?", "10.0.0.1")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if result.Censored || result.Message.IsCensored {
		t.Error("mention message censored")
	}
	if !strings.Contains(result.Message.Content, "081234567890") {
		t.Errorf("mention message mutated: %q", result.Message.Content)
	}
	if result.SystemMessage == nil {
		t.Fatal("no bot answer for mention question")
	}
	if !result.SystemMessage.IsBot() {
		t.Error("bot answer has a sender")
	}
}

func TestBotMessagesNeverCensored(t *testing.T) {
	db, svc, f, adoption := newChatFixture(t, models.AdoptionApproved)

	result, err := svc.SendMessage(context.Background(), adoption.ID, f.adopter.ID, "rekening 1234567890123", "10.0.0.1")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !result.Censored {
		t.Fatal("bank account not censored")
	}

	var bot models.Message
	if err := db.Where("adoption_id = ? AND sender_id IS NULL", adoption.ID).First(&bot).Error; err != nil {
		t.Fatalf("bot message missing: %v", err)
	}
	if bot.IsCensored {
		t.Error("bot message marked censored")
	}
}

func TestUnreadCountAndReadMarking(t *testing.T) {
	db, svc, f, adoption := newChatFixture(t, models.AdoptionApproved)

	for _, text := range []string{"halo, Oyen sehat?", "sudah vaksin lengkap ya"} {
		if _, err := svc.SendMessage(context.Background(), adoption.ID, f.shelterUser.ID, text, "10.0.0.2"); err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
	}

	count, err := svc.UnreadCount(adoption.ID, f.adopter.ID)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("unread = %d, want 2", count)
	}

	// The sender's own messages are not unread for them.
	count, _ = svc.UnreadCount(adoption.ID, f.shelterUser.ID)
	if count != 0 {
		t.Errorf("sender unread = %d", count)
	}

	messages, err := svc.ListMessages(adoption.ID, f.adopter.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 2 {
		t.Errorf("history = %d messages", len(messages))
	}

	count, _ = svc.UnreadCount(adoption.ID, f.adopter.ID)
	if count != 0 {
		t.Errorf("unread after read = %d", count)
	}

	var read int64
	db.Model(&models.Message{}).Where("adoption_id = ? AND read_at IS NOT NULL", adoption.ID).Count(&read)
	if read != 2 {
		t.Errorf("read rows = %d", read)
	}
}

func TestMessagesSinceWatermark(t *testing.T) {
	_, svc, f, adoption := newChatFixture(t, models.AdoptionApproved)

	var ids []uint
	for _, text := range []string{"satu", "dua", "tiga"} {
		res, err := svc.SendMessage(context.Background(), adoption.ID, f.adopter.ID, text, "10.0.0.1")
		if err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
		ids = append(ids, res.Message.ID)
	}

	newer, err := svc.MessagesSince(adoption.ID, f.shelterUser.ID, ids[0])
	if err != nil {
		t.Fatalf("MessagesSince: %v", err)
	}
	if len(newer) != 2 {
		t.Fatalf("since watermark = %d messages, want 2", len(newer))
	}
	if newer[0].Content != "dua" || newer[1].Content != "tiga" {
		t.Errorf("order wrong: %q %q", newer[0].Content, newer[1].Content)
	}

	// Up to date: empty page.
	newer, _ = svc.MessagesSince(adoption.ID, f.shelterUser.ID, ids[2])
	if len(newer) != 0 {
		t.Errorf("no-new poll returned %d messages", len(newer))
	}
}

func TestEmptyPollDoesNotMarkRead(t *testing.T) {
	_, svc, f, adoption := newChatFixture(t, models.AdoptionApproved)

	res, err := svc.SendMessage(context.Background(), adoption.ID, f.adopter.ID, "halo", "10.0.0.1")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	// Polling from the latest id returns nothing and must leave the
	// counterpart's unread message untouched.
	newer, err := svc.MessagesSince(adoption.ID, f.shelterUser.ID, res.Message.ID)
	if err != nil {
		t.Fatalf("MessagesSince: %v", err)
	}
	if len(newer) != 0 {
		t.Fatalf("poll returned %d messages", len(newer))
	}

	count, err := svc.UnreadCount(adoption.ID, f.shelterUser.ID)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 1 {
		t.Errorf("unread after empty poll = %d, want 1", count)
	}
}

func TestArchiveMovesOldMessagesOfClosedAdoptions(t *testing.T) {
	db, svc, f, adoption := newChatFixture(t, models.AdoptionApproved)

	if _, err := svc.SendMessage(context.Background(), adoption.ID, f.adopter.ID, "pesan lama", "10.0.0.1"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	// Age the message and close the adoption.
	old := time.Now().Add(-100 * 24 * time.Hour)
	db.Model(&models.Message{}).Where("adoption_id = ?", adoption.ID).Update("created_at", old)
	db.Model(&models.Adoption{}).Where("id = ?", adoption.ID).Update("status", models.AdoptionCompleted)

	archiver := NewArchiveService(db, 90*24*time.Hour, 100)
	moved, err := archiver.Run()
	if err != nil {
		t.Fatalf("archive run: %v", err)
	}
	if moved != 1 {
		t.Fatalf("moved = %d", moved)
	}

	var hot int64
	db.Model(&models.Message{}).Where("adoption_id = ?", adoption.ID).Count(&hot)
	if hot != 0 {
		t.Errorf("hot table still has %d rows", hot)
	}

	var archived models.MessageArchive
	if err := db.Where("adoption_id = ?", adoption.ID).First(&archived).Error; err != nil {
		t.Fatalf("archive row missing: %v", err)
	}
	if archived.Content != "pesan lama" {
		t.Errorf("archived content = %q", archived.Content)
	}

	// Second run is a no-op.
	if moved, err := archiver.Run(); err != nil || moved != 0 {
		t.Errorf("second run = %d, %v", moved, err)
	}
}
