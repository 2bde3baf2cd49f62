package server

import (
	"marketplace/internal/config"
	"marketplace/internal/handler"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	Cart         *handler.CartHandler
	Product      *handler.ProductHandler
	ProductImage *handler.ProductImageHandler
	Category     *handler.CategoryHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers) {
	h.Auth.RegisterRoutes(e)
	h.Category.RegisterRoutes(e)
	h.Cart.RegisterRoutes(e, cfg)
	h.Product.RegisterRoutes(e, cfg)
	h.ProductImage.RegisterRoutes(e, cfg)
}

func Start(cfg config.Config, h Handlers) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	RegisterRoutes(e, cfg, h)

	return e.Start(":" + cfg.Port)
}
