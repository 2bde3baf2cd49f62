package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// エラー種別。呼び出し側は文字列ではなくCodeで分岐する。
type ErrorCode string

const (
	CodeProductNotFound      ErrorCode = "PRODUCT_NOT_FOUND"
	CodeProductUnavailable   ErrorCode = "PRODUCT_UNAVAILABLE"
	CodeInsufficientStock    ErrorCode = "INSUFFICIENT_STOCK"
	CodeSelfPurchase         ErrorCode = "SELF_PURCHASE_FORBIDDEN"
	CodeItemNotFound         ErrorCode = "ITEM_NOT_FOUND"
	CodeNotAuthorized        ErrorCode = "NOT_AUTHORIZED"
	CodeImageNotFound        ErrorCode = "IMAGE_NOT_FOUND"
	CodeTooManyImages        ErrorCode = "TOO_MANY_IMAGES"
	CodeAlreadyMain          ErrorCode = "ALREADY_MAIN"
	CodeCannotDeleteOnlyImg  ErrorCode = "CANNOT_DELETE_ONLY_IMAGE"
	CodeInvalidImageSet      ErrorCode = "INVALID_IMAGE_SET"
	CodeUploadFailed         ErrorCode = "UPLOAD_FAILED"
	CodeInvalidInput         ErrorCode = "INVALID_INPUT"
	CodeInternal             ErrorCode = "INTERNAL"
)

// DomainError は業務ルール違反を種別つきで返す。
type DomainError struct {
	Code    ErrorCode
	Status  int
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewDomainError(code ErrorCode, status int, format string, args ...interface{}) error {
	return &DomainError{
		Code:    code,
		Status:  status,
		Message: fmt.Sprintf(format, args...),
	}
}

func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	ok := errors.As(err, &de)
	return de, ok
}

// HasCode はerrが指定コードのDomainErrorかを判定する。
func HasCode(err error, code ErrorCode) bool {
	de, ok := AsDomainError(err)
	return ok && de.Code == code
}

func errInternal() error {
	return NewDomainError(CodeInternal, http.StatusInternalServerError, "db error")
}
