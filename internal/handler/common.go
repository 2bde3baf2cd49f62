package handler

import (
	"net/http"

	"marketplace/internal/middleware"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if de, ok := usecase.AsDomainError(err); ok {
		return c.JSON(de.Status, ErrorResponse{Error: de.Message, Code: string(de.Code)})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// ミドルウェアが積んだuser idを取り出す
func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get(middleware.CtxUserIDKey)
	userID, ok := v.(int64)
	return userID, ok
}
