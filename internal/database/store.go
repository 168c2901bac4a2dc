package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertUser creates or refreshes the user row keyed by email on every
// sign-in, mirroring what the identity provider reports.
func UpsertUser(ctx context.Context, db *gorm.DB, email, name, image string) (User, error) {
	user := User{
		Id:    uuid.New(),
		Email: email,
		Name:  name,
		Image: image,
	}

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "image", "updated_at"}),
		}).
		Create(&user).Error
	if err != nil {
		return User{}, err
	}

	// Re-read so callers see the persisted id when the row already existed.
	err = db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	return user, err
}

func GetUser(ctx context.Context, db *gorm.DB, userId uuid.UUID) (User, error) {
	var user User
	err := db.WithContext(ctx).First(&user, "id = ?", userId).Error
	return user, err
}

func CreateConversation(ctx context.Context, db *gorm.DB, conv *Conversation) error {
	return db.WithContext(ctx).Create(conv).Error
}

func GetConversations(ctx context.Context, db *gorm.DB, userId uuid.UUID) ([]Conversation, error) {
	var convs []Conversation
	err := db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("updated_at DESC").
		Find(&convs).Error
	return convs, err
}

// GetConversation loads a conversation only if it belongs to the user; a
// foreign conversation id reads the same as a missing one.
func GetConversation(ctx context.Context, db *gorm.DB, userId, convId uuid.UUID) (Conversation, error) {
	var conv Conversation
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", convId, userId).
		First(&conv).Error
	return conv, err
}

func UpdateConversation(ctx context.Context, db *gorm.DB, userId, convId uuid.UUID, updates map[string]any) error {
	res := db.WithContext(ctx).
		Model(&Conversation{}).
		Where("id = ? AND user_id = ?", convId, userId).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func DeleteConversation(ctx context.Context, db *gorm.DB, userId, convId uuid.UUID) error {
	if _, err := GetConversation(ctx, db, userId, convId); err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if err := txn.Delete(&Message{}, "conversation_id = ?", convId).Error; err != nil {
			return err
		}
		return txn.Delete(&Conversation{}, "id = ?", convId).Error
	})
}

func GetMessages(ctx context.Context, db *gorm.DB, userId, convId uuid.UUID) ([]Message, error) {
	if _, err := GetConversation(ctx, db, userId, convId); err != nil {
		return nil, err
	}

	var messages []Message
	err := db.WithContext(ctx).
		Where("conversation_id = ?", convId).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

// SaveExchange commits a completed turn atomically: the user message, the
// assistant reply linked to it, and the conversation preview columns. Nothing
// is written for turns that failed mid-stream.
func SaveExchange(ctx context.Context, db *gorm.DB, userId, convId uuid.UUID, userMsg, assistantMsg *Message) error {
	if _, err := GetConversation(ctx, db, userId, convId); err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		userMsg.Id = uuid.New()
		userMsg.ConversationId = convId
		userMsg.Role = RoleUser
		if err := txn.Create(userMsg).Error; err != nil {
			return err
		}

		assistantMsg.Id = uuid.New()
		assistantMsg.ConversationId = convId
		assistantMsg.Role = RoleAssistant
		assistantMsg.ParentMessageId = uuid.NullUUID{UUID: userMsg.Id, Valid: true}
		if err := txn.Create(assistantMsg).Error; err != nil {
			return err
		}

		return txn.Model(&Conversation{}).
			Where("id = ?", convId).
			Updates(map[string]any{
				"last_message": assistantMsg.Content,
				"updated_at":   time.Now().UTC(),
			}).Error
	})
}

func GetSettings(ctx context.Context, db *gorm.DB, userId uuid.UUID) (datatypes.JSON, error) {
	var settings UserSettings
	err := db.WithContext(ctx).First(&settings, "user_id = ?", userId).Error
	if err != nil {
		return nil, err
	}
	return settings.Settings, nil
}

func SaveSettings(ctx context.Context, db *gorm.DB, userId uuid.UUID, settings datatypes.JSON) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"settings", "updated_at"}),
		}).
		Create(&UserSettings{UserId: userId, Settings: settings, UpdatedAt: time.Now().UTC()}).Error
}
