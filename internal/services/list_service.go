package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/principal"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListService manages shopping lists. A list or item owned by someone else
// is reported as not found.
type ListService struct {
	db *gorm.DB
}

func NewListService(db *gorm.DB) *ListService {
	return &ListService{db: db}
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("name ASC, id ASC")
}

func (s *ListService) ListLists(userID uuid.UUID) ([]models.List, error) {
	var lists []models.List
	err := s.db.Scopes(principal.OwnedBy(userID)).
		Preload("Items", orderItems).
		Order("created_at DESC").
		Find(&lists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list lists: %w", err)
	}
	return lists, nil
}

func (s *ListService) GetList(userID, listID uuid.UUID) (*models.List, error) {
	var list models.List
	err := s.db.Scopes(principal.OwnedBy(userID)).
		Preload("Items", orderItems).
		First(&list, "id = ?", listID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListNotFound
		}
		return nil, fmt.Errorf("failed to load list: %w", err)
	}
	return &list, nil
}

func (s *ListService) CreateList(userID uuid.UUID, req *dto.CreateListRequest) (*models.List, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrValidation
	}

	list := models.List{UserID: userID, Title: title, Items: []models.ListItem{}}
	if err := s.db.Create(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to create list: %w", err)
	}
	return &list, nil
}

func (s *ListService) UpdateList(userID, listID uuid.UUID, req *dto.UpdateListRequest) (*models.List, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrValidation
	}

	list, err := s.GetList(userID, listID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(list).Update("title", title).Error; err != nil {
		return nil, fmt.Errorf("failed to update list: %w", err)
	}
	list.Title = title
	return list, nil
}

func (s *ListService) DeleteList(userID, listID uuid.UUID) error {
	if _, err := s.GetList(userID, listID); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("list_id = ?", listID).Delete(&models.ListItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete list items: %w", err)
		}
		return tx.Delete(&models.List{}, "id = ?", listID).Error
	})
}

func (s *ListService) AddItem(userID, listID uuid.UUID, req *dto.CreateListItemRequest) (*models.ListItem, error) {
	name := strings.TrimSpace(req.Name)
	unit := strings.TrimSpace(req.Unit)
	if name == "" || unit == "" || !req.Quantity.IsPositive() {
		return nil, ErrValidation
	}
	status := req.Status
	if status == "" {
		status = models.ListItemPending
	}
	if !models.ValidListItemStatus(status) {
		return nil, ErrValidation
	}

	if _, err := s.GetList(userID, listID); err != nil {
		return nil, err
	}
	if req.ProductID != nil {
		var count int64
		if err := s.db.Model(&models.Product{}).Where("id = ?", *req.ProductID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check product: %w", err)
		}
		if count == 0 {
			return nil, ErrProductNotFound
		}
	}

	item := models.ListItem{
		ListID:    listID,
		ProductID: req.ProductID,
		Name:      name,
		Quantity:  req.Quantity,
		Unit:      unit,
		Status:    status,
	}
	if err := s.db.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to add item: %w", err)
	}
	return &item, nil
}

// ownedItem loads an item only if its list belongs to userID.
func (s *ListService) ownedItem(userID, itemID uuid.UUID) (*models.ListItem, error) {
	var item models.ListItem
	err := s.db.
		Joins("JOIN lists ON lists.id = list_items.list_id").
		Where("list_items.id = ? AND lists.user_id = ?", itemID, userID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListItemNotFound
		}
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	return &item, nil
}

func (s *ListService) UpdateItem(userID, itemID uuid.UUID, req *dto.UpdateListItemRequest) (*models.ListItem, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrValidation
		}
		updates["name"] = name
	}
	if req.Quantity != nil {
		if !req.Quantity.IsPositive() {
			return nil, ErrValidation
		}
		updates["quantity"] = *req.Quantity
	}
	if req.Unit != nil {
		unit := strings.TrimSpace(*req.Unit)
		if unit == "" {
			return nil, ErrValidation
		}
		updates["unit"] = unit
	}
	if req.Status != nil {
		if !models.ValidListItemStatus(*req.Status) {
			return nil, ErrValidation
		}
		updates["status"] = *req.Status
	}

	item, err := s.ownedItem(userID, itemID)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.db.Model(&models.ListItem{}).Where("id = ?", item.ID).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update item: %w", err)
		}
	}
	return s.ownedItem(userID, itemID)
}

func (s *ListService) DeleteItem(userID, itemID uuid.UUID) error {
	item, err := s.ownedItem(userID, itemID)
	if err != nil {
		return err
	}
	return s.db.Delete(&models.ListItem{}, "id = ?", item.ID).Error
}
