package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
)

// conversationRecord is the conversations table row.
type conversationRecord struct {
	ID        string    `gorm:"primaryKey;type:text"`
	UserID    string    `gorm:"type:text;not null;index:idx_conversations_user"`
	Title     string    `gorm:"type:text;not null"`
	Messages  string    `gorm:"type:jsonb;not null"`
	CreatedAt time.Time `gorm:"type:timestamp with time zone;index:idx_conversations_user"`
	UpdatedAt time.Time `gorm:"type:timestamp with time zone"`
}

// TableName overrides the table name
func (conversationRecord) TableName() string {
	return "conversations"
}

// PostgresStore implements Store on Postgres through gorm.
type PostgresStore struct {
	DB *gorm.DB
}

// NewPostgresStore opens dsn and migrates the schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := db.AutoMigrate(&conversationRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &PostgresStore{DB: db}, nil
}

// NewPostgresStoreWithDB wraps an already-open connection without migrating.
func NewPostgresStoreWithDB(db *gorm.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) SaveConversation(ctx context.Context, conv domain.Conversation) error {
	if err := validate(conv); err != nil {
		return err
	}
	messages, err := encodeMessages(conv.Messages)
	if err != nil {
		return err
	}

	rec := conversationRecord{
		ID:        conv.ID,
		UserID:    conv.UserID,
		Title:     conv.Title,
		Messages:  messages,
		CreatedAt: conv.CreatedAt,
	}

	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "messages", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "conversations", Name: "user_id"}, Value: conv.UserID},
		}},
	}).Create(&rec)
	if res.Error != nil {
		return fmt.Errorf("failed to save conversation %s: %w", conv.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("save conversation %s: %w", conv.ID, ErrOwnership)
	}
	return nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var rec conversationRecord
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}

	messages, err := decodeMessages(rec.Messages)
	if err != nil {
		return nil, err
	}
	return &domain.Conversation{
		ID:        rec.ID,
		Title:     rec.Title,
		CreatedAt: rec.CreatedAt,
		UserID:    rec.UserID,
		Messages:  messages,
	}, nil
}

func (s *PostgresStore) ListConversations(ctx context.Context, userID string, limit int) ([]domain.ConversationSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	var recs []conversationRecord
	err := s.DB.WithContext(ctx).
		Select("id", "title", "created_at").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	summaries := make([]domain.ConversationSummary, 0, len(recs))
	for _, rec := range recs {
		summaries = append(summaries, domain.ConversationSummary{
			ID:        rec.ID,
			Title:     rec.Title,
			CreatedAt: rec.CreatedAt.UnixMilli(),
		})
	}
	return summaries, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
