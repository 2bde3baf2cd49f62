package handler

import (
	"net/http"
	"strconv"

	"marketplace/internal/config"
	"marketplace/internal/domain/model"
	"marketplace/internal/gateway"
	"marketplace/internal/middleware"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /products/:id/images のHTTP。セラー専用（変換URL取得を除く）。
type ProductImageHandler struct {
	uc *usecase.ProductImageUsecase
}

// DI
func NewProductImageHandler(uc *usecase.ProductImageUsecase) *ProductImageHandler {
	return &ProductImageHandler{uc: uc}
}

type ReorderImagesRequest struct {
	ImageOrder  []int64 `json:"image_order"`
	MainImageID int64   `json:"main_image_id"`
}

func (h *ProductImageHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/products/:productID/images")
	g.Use(middleware.AuthJWT(cfg))

	g.POST("/main", h.uploadMain, middleware.RequireRole(model.RoleSeller))
	g.POST("", h.uploadSecondary, middleware.RequireRole(model.RoleSeller))
	g.DELETE("/:imageID", h.deleteImage, middleware.RequireRole(model.RoleSeller))
	g.PUT("/:imageID/main", h.setMain, middleware.RequireRole(model.RoleSeller))
	g.PUT("/reorder", h.reorder, middleware.RequireRole(model.RoleSeller))
	g.GET("/:imageID/transformations", h.transformedURLs)
}

func (h *ProductImageHandler) uploadMain(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	productID, err := strconv.ParseInt(c.Param("productID"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product id"})
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "image file is required"})
	}
	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot read image file"})
	}
	defer src.Close()

	img, err := h.uc.UploadMainImage(c.Request().Context(), userID, productID, gateway.File{
		Filename: fh.Filename,
		Content:  src,
		Size:     fh.Size,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, img)
}

func (h *ProductImageHandler) uploadSecondary(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	productID, err := strconv.ParseInt(c.Param("productID"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product id"})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid form"})
	}
	fhs := form.File["images"]
	if len(fhs) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "at least one image is required"})
	}

	files := make([]gateway.File, 0, len(fhs))
	for _, fh := range fhs {
		src, err := fh.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot read image file"})
		}
		defer src.Close()
		files = append(files, gateway.File{Filename: fh.Filename, Content: src, Size: fh.Size})
	}

	out, err := h.uc.UploadSecondaryImages(c.Request().Context(), userID, productID, files)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ProductImageHandler) deleteImage(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	productID, err := strconv.ParseInt(c.Param("productID"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product id"})
	}
	imageID, err := strconv.ParseInt(c.Param("imageID"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid image id"})
	}

	out, err := h.uc.DeleteImage(c.Request().Context(), userID, productID, imageID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductImageHandler) setMain(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	productID, err := strconv.ParseInt(c.Param("productID"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product id"})
	}
	imageID, err := strconv.ParseInt(c.Param("imageID"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid image id"})
	}

	img, err := h.uc.SetMainImage(c.Request().Context(), userID, productID, imageID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, img)
}

func (h *ProductImageHandler) reorder(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	productID, err := strconv.ParseInt(c.Param("productID"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product id"})
	}

	var req ReorderImagesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.ReorderImages(c.Request().Context(), userID, productID, req.ImageOrder, req.MainImageID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ProductImageHandler) transformedURLs(c echo.Context) error {
	productID, err := strconv.ParseInt(c.Param("productID"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product id"})
	}
	imageID, err := strconv.ParseInt(c.Param("imageID"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid image id"})
	}

	out, err := h.uc.TransformedURLs(c.Request().Context(), productID, imageID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
