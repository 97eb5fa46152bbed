package services

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jharrvis/mangoyen-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Shelter{},
		&models.Cat{},
		&models.Adoption{},
		&models.EscrowTransaction{},
		&models.Message{},
		&models.MessageArchive{},
		&models.Notification{},
		&models.ActivityLog{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

type fixture struct {
	adopter     models.User
	shelterUser models.User
	shelter     models.Shelter
	cat         models.Cat
}

func seedMarketplace(t *testing.T, db *gorm.DB) fixture {
	t.Helper()

	f := fixture{
		adopter:     models.User{Name: "Budi", Email: "budi@example.com", Phone: "081234567890", Role: models.RoleAdopter},
		shelterUser: models.User{Name: "Sari", Email: "sari@example.com", Phone: "081298765432", Role: models.RoleShelter},
	}
	if err := db.Create(&f.adopter).Error; err != nil {
		t.Fatalf("seed adopter: %v", err)
	}
	if err := db.Create(&f.shelterUser).Error; err != nil {
		t.Fatalf("seed shelter user: %v", err)
	}

	f.shelter = models.Shelter{UserID: f.shelterUser.ID, Name: "Rumah Anabul", City: "Bandung"}
	if err := db.Create(&f.shelter).Error; err != nil {
		t.Fatalf("seed shelter: %v", err)
	}

	f.cat = models.Cat{
		ShelterID:    f.shelter.ID,
		Name:         "Oyen",
		Breed:        "Domestic",
		AdoptionFee:  1000000,
		IsNegotiable: true,
		Status:       models.CatAvailable,
	}
	if err := db.Create(&f.cat).Error; err != nil {
		t.Fatalf("seed cat: %v", err)
	}
	return f
}

func newAdoptionService(db *gorm.DB, now *time.Time) *AdoptionService {
	cfg := AdoptionConfig{
		PlatformFeeRate: 0.05,
		ShippingWindow:  72 * time.Hour,
		Now:             func() time.Time { return *now },
	}
	return NewAdoptionService(db, cfg, nil, nil, nil)
}
