package handler

import (
	"net/http"

	repo "marketplace/internal/repository"

	"github.com/labstack/echo/v4"
)

// カテゴリは参照のみ。登録はシード/マイグレーションで行う。
type CategoryHandler struct {
	categoryRepo repo.CategoryRepository
}

// DI
func NewCategoryHandler(categoryRepo repo.CategoryRepository) *CategoryHandler {
	return &CategoryHandler{categoryRepo: categoryRepo}
}

func (h *CategoryHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/categories", h.list)
}

func (h *CategoryHandler) list(c echo.Context) error {
	categories, err := h.categoryRepo.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	return c.JSON(http.StatusOK, categories)
}
