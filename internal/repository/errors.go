package repository

import "errors"

// 「見つかりません」を統一
var ErrNotFound = errors.New("not found")

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")
