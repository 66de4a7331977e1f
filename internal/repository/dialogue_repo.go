package repository

import (
	"context"
	"errors"

	"bot-service/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DialogueRepo interface {
	Get(ctx context.Context, convID int64) (*models.DialogueState, error)
	Save(ctx context.Context, st *models.DialogueState) error
	Reset(ctx context.Context, convID int64) error
	SetLastMessageID(ctx context.Context, convID int64, messageID int64) error

	// ResetIfConfirmed атомарно переводит STEP_CONFIRMED в STEP_BROWSING.
	// false = строка уже не в STEP_CONFIRMED; из двух гонящихся коммитов
	// побеждает ровно один.
	ResetIfConfirmed(ctx context.Context, convID int64) (bool, error)
}

type dialogueRepo struct{ db *gorm.DB }

func NewDialogueRepo(db *gorm.DB) DialogueRepo { return &dialogueRepo{db: db} }

func (r *dialogueRepo) Get(ctx context.Context, convID int64) (*models.DialogueState, error) {
	var st models.DialogueState
	err := r.db.WithContext(ctx).First(&st, "conversation_id = ?", convID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &st, err
}

func (r *dialogueRepo) Save(ctx context.Context, st *models.DialogueState) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"step", "name", "phone", "address", "payment_method", "last_message_id",
		}),
	}).Create(st).Error
}

func (r *dialogueRepo) Reset(ctx context.Context, convID int64) error {
	return r.db.WithContext(ctx).Model(&models.DialogueState{}).
		Where("conversation_id = ?", convID).
		Updates(map[string]any{
			"step":           models.StepBrowsing,
			"name":           "",
			"phone":          "",
			"address":        "",
			"payment_method": "",
		}).Error
}

func (r *dialogueRepo) SetLastMessageID(ctx context.Context, convID int64, messageID int64) error {
	return r.db.WithContext(ctx).Model(&models.DialogueState{}).
		Where("conversation_id = ?", convID).
		Update("last_message_id", messageID).Error
}

func (r *dialogueRepo) ResetIfConfirmed(ctx context.Context, convID int64) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.DialogueState{}).
		Where("conversation_id = ? AND step = ?", convID, models.StepConfirmed).
		Updates(map[string]any{
			"step":           models.StepBrowsing,
			"name":           "",
			"phone":          "",
			"address":        "",
			"payment_method": "",
		})
	return tx.RowsAffected > 0, tx.Error
}
