package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation categories surfaced in the sidebar filters.
const (
	CategoryCareerPlanning   = "career-planning"
	CategoryJobSearch        = "job-search"
	CategorySkillDevelopment = "skill-development"
	CategoryGeneral          = "general"
)

type User struct {
	Id    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email string    `gorm:"uniqueIndex;not null"`
	Name  string
	Image string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Conversation struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId uuid.UUID `gorm:"type:uuid;index;not null"`
	User   *User     `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`

	Title       string
	Category    string `gorm:"size:32;default:general"`
	LastMessage string

	CreatedAt time.Time
	UpdatedAt time.Time

	Messages []Message `gorm:"foreignKey:ConversationId;constraint:OnDelete:CASCADE"`
}

type Message struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationId uuid.UUID `gorm:"type:uuid;index;not null"`

	// ParentMessageId links an assistant reply to the user message it answers.
	ParentMessageId uuid.NullUUID `gorm:"type:uuid"`

	Role       string `gorm:"size:16;not null"`
	Content    string
	Model      string
	TokensUsed int64

	CreatedAt time.Time
}

type UserSettings struct {
	UserId    uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Settings  datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}
