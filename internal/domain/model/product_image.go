package model

import "time"

// 1商品につきメイン画像はちょうど1枚（画像が1枚以上ある場合）。
// is_mainの切り替えはProductImageUsecase経由のみ。
type ProductImage struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64     `gorm:"not null;index" json:"product_id"`
	ImageURL  string    `gorm:"type:varchar(512);not null;column:image_url" json:"image_url"`
	IsMain    bool      `gorm:"not null;default:false;column:is_main" json:"is_main"`
	SortOrder int       `gorm:"not null;default:0;column:sort_order" json:"sort_order"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// MainImageURL は画像リストからメイン画像のURLを返す。無ければ空文字。
func MainImageURL(images []ProductImage) string {
	for _, img := range images {
		if img.IsMain {
			return img.ImageURL
		}
	}
	return ""
}

// CountMain はメイン画像の枚数を返す（不変条件の検証用）。
func CountMain(images []ProductImage) int {
	n := 0
	for _, img := range images {
		if img.IsMain {
			n++
		}
	}
	return n
}
