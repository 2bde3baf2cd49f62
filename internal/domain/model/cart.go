package model

import "time"

// 1ユーザーにつきカートは1つ。初回アクセス時に遅延作成。
// 明示的なクリア以外で行が消えることはない（itemsのみ削除）。
type Cart struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex" json:"user_id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
