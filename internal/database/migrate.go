package database

import (
	"fmt"
	"log"

	"github.com/jharrvis/mangoyen-api/internal/models"
)

func Migrate() error {
	log.Println("Running database migrations...")

	err := DB.AutoMigrate(
		&models.User{},
		&models.Shelter{},
		&models.Cat{},
		&models.Adoption{},
		&models.EscrowTransaction{},
		&models.Message{},
		&models.MessageArchive{},
		&models.Notification{},
		&models.ActivityLog{},
	)

	if err != nil {
		log.Printf("Error migrating database: %v", err)
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("Database migration completed successfully")
	return nil
}
