package services

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/jharrvis/mangoyen-api/internal/models"
)

// ArchiveService moves aged-out chat messages to the cold archive table in
// batches. Only messages of terminal adoptions are eligible; an open
// conversation keeps its full history on the hot table.
type ArchiveService struct {
	db        *gorm.DB
	maxAge    time.Duration
	batchSize int
	now       func() time.Time
}

func NewArchiveService(db *gorm.DB, maxAge time.Duration, batchSize int) *ArchiveService {
	if maxAge == 0 {
		maxAge = 90 * 24 * time.Hour
	}
	if batchSize == 0 {
		batchSize = 500
	}
	return &ArchiveService{db: db, maxAge: maxAge, batchSize: batchSize, now: time.Now}
}

// Run archives one batch and reports how many messages moved. Call it
// repeatedly until it returns 0 to drain the backlog.
func (s *ArchiveService) Run() (int, error) {
	cutoff := s.now().Add(-s.maxAge)

	var eligible []models.Message
	err := s.db.
		Joins("JOIN adoptions ON adoptions.id = messages.adoption_id").
		Where("messages.created_at < ? AND adoptions.status IN ?", cutoff,
			[]models.AdoptionStatus{models.AdoptionCompleted, models.AdoptionCancelled, models.AdoptionRejected}).
		Order("messages.id ASC").
		Limit(s.batchSize).
		Find(&eligible).Error
	if err != nil {
		return 0, err
	}
	if len(eligible) == 0 {
		return 0, nil
	}

	now := s.now()
	archived := make([]models.MessageArchive, 0, len(eligible))
	ids := make([]uint, 0, len(eligible))
	for _, m := range eligible {
		archived = append(archived, models.MessageArchive{
			OriginalID:        m.ID,
			AdoptionID:        m.AdoptionID,
			SenderID:          m.SenderID,
			Content:           m.Content,
			IsCensored:        m.IsCensored,
			ReadAt:            m.ReadAt,
			OriginalCreatedAt: m.CreatedAt,
			ArchivedAt:        now,
		})
		ids = append(ids, m.ID)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&archived).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("id IN ?", ids).Delete(&models.Message{}).Error
	})
	if err != nil {
		return 0, err
	}

	log.Printf("🗄️  Archived %d messages older than %s", len(archived), s.maxAge)
	return len(archived), nil
}
