package handlers

import (
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ListHandler struct {
	lists *services.ListService
}

func NewListHandler(lists *services.ListService) *ListHandler {
	return &ListHandler{lists: lists}
}

func (h *ListHandler) List(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}

	lists, err := h.lists.ListLists(userID)
	if err != nil {
		return respondError(c, err, "Failed to get lists")
	}
	return c.JSON(lists)
}

func (h *ListHandler) Get(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}
	listID, err := paramID(c, "id", "List not found")
	if err != nil {
		return respondError(c, err, "")
	}

	list, err := h.lists.GetList(userID, listID)
	if err != nil {
		return respondError(c, err, "Failed to get list")
	}
	return c.JSON(list)
}

func (h *ListHandler) Create(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}

	var req dto.CreateListRequest
	if err := bind(c, &req, "Invalid list data"); err != nil {
		return respondError(c, err, "")
	}

	list, err := h.lists.CreateList(userID, &req)
	if err != nil {
		return respondError(c, err, "Failed to create list")
	}
	return c.Status(fiber.StatusCreated).JSON(list)
}

func (h *ListHandler) Update(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}
	listID, err := paramID(c, "id", "List not found")
	if err != nil {
		return respondError(c, err, "")
	}

	var req dto.UpdateListRequest
	if err := bind(c, &req, "Invalid list data"); err != nil {
		return respondError(c, err, "")
	}

	list, err := h.lists.UpdateList(userID, listID, &req)
	if err != nil {
		return respondError(c, err, "Failed to update list")
	}
	return c.JSON(list)
}

func (h *ListHandler) Delete(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}
	listID, err := paramID(c, "id", "List not found")
	if err != nil {
		return respondError(c, err, "")
	}

	if err := h.lists.DeleteList(userID, listID); err != nil {
		return respondError(c, err, "Failed to delete list")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ListHandler) AddItem(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}
	listID, err := paramID(c, "id", "List not found")
	if err != nil {
		return respondError(c, err, "")
	}

	var req dto.CreateListItemRequest
	if err := bind(c, &req, "Invalid item data"); err != nil {
		return respondError(c, err, "")
	}

	item, err := h.lists.AddItem(userID, listID, &req)
	if err != nil {
		return respondError(c, err, "Failed to add item")
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *ListHandler) UpdateItem(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}
	itemID, err := paramID(c, "itemId", "Item not found")
	if err != nil {
		return respondError(c, err, "")
	}

	var req dto.UpdateListItemRequest
	if err := bind(c, &req, "Invalid item data"); err != nil {
		return respondError(c, err, "")
	}

	item, err := h.lists.UpdateItem(userID, itemID, &req)
	if err != nil {
		return respondError(c, err, "Failed to update item")
	}
	return c.JSON(item)
}

func (h *ListHandler) DeleteItem(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}
	itemID, err := paramID(c, "itemId", "Item not found")
	if err != nil {
		return respondError(c, err, "")
	}

	if err := h.lists.DeleteItem(userID, itemID); err != nil {
		return respondError(c, err, "Failed to delete item")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
