package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/supportchat-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return err
	}

	// Exactly-once append under client retries.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_chat_message_thread_client
		ON chat_message (thread_id, client_id)
		WHERE client_id <> '';
	`).Error; err != nil {
		return fmt.Errorf("create idx_chat_message_thread_client: %w", err)
	}

	// Admin queue ordering.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_chat_thread_mode_updated
		ON chat_thread (handoff_mode, updated_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_chat_thread_mode_updated: %w", err)
	}
	return nil
}
