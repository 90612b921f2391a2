package handlers

import (
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	catalog         *services.CatalogService
	recommendations *services.RecommendationService
}

func NewProductHandler(catalog *services.CatalogService, recommendations *services.RecommendationService) *ProductHandler {
	return &ProductHandler{catalog: catalog, recommendations: recommendations}
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	products, err := h.catalog.ListProducts()
	if err != nil {
		return respondError(c, err, "Failed to get products")
	}
	return c.JSON(products)
}

func (h *ProductHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "Product not found")
	if err != nil {
		return respondError(c, err, "")
	}

	product, err := h.catalog.GetProduct(id)
	if err != nil {
		return respondError(c, err, "Failed to get product")
	}
	return c.JSON(product)
}

func (h *ProductHandler) Trending(c *fiber.Ctx) error {
	products, err := h.recommendations.Trending()
	if err != nil {
		return respondError(c, err, "Failed to get trending products")
	}
	return c.JSON(products)
}

func (h *ProductHandler) Recommended(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}

	products, err := h.recommendations.Recommended(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err, "Failed to get recommended products")
	}
	return c.JSON(products)
}

// Admin

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateProductRequest
	if err := bind(c, &req, "Invalid product data"); err != nil {
		return respondError(c, err, "")
	}

	product, err := h.catalog.CreateProduct(&req)
	if err != nil {
		return respondError(c, err, "Failed to create product")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "Product not found")
	if err != nil {
		return respondError(c, err, "")
	}

	var req dto.UpdateProductRequest
	if err := bind(c, &req, "Invalid product data"); err != nil {
		return respondError(c, err, "")
	}

	product, err := h.catalog.UpdateProduct(id, &req)
	if err != nil {
		return respondError(c, err, "Failed to update product")
	}
	return c.JSON(product)
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "Product not found")
	if err != nil {
		return respondError(c, err, "")
	}

	if err := h.catalog.DeleteProduct(id); err != nil {
		return respondError(c, err, "Failed to delete product")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
