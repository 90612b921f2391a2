package services

import (
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/principal"
	"github.com/google/uuid"
	"github.com/juju/clock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageService struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewMessageService(db *gorm.DB, clk clock.Clock) *MessageService {
	return &MessageService{db: db, clock: clk}
}

func (s *MessageService) ListMessages(userID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.Scopes(principal.OwnedBy(userID)).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func (s *MessageService) CreateMessage(userID uuid.UUID, req *dto.CreateMessageRequest) (*models.Message, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrValidation
	}

	message := models.Message{
		UserID:    userID,
		Content:   content,
		Timestamp: s.clock.Now().UTC(),
	}
	if err := s.db.Create(&message).Error; err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return &message, nil
}
