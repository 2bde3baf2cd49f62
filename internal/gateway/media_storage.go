package gateway

import (
	"context"
	"io"
)

// アップロード対象のファイル
type File struct {
	Filename string
	Content  io.Reader
	Size     int64
}

type UploadResult struct {
	AssetID string `json:"asset_id"`
	URL     string `json:"url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Bytes   int    `json:"bytes"`
	Format  string `json:"format"`
}

// バッチアップロードの1件分の失敗
type UploadFailure struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// 部分失敗は他のファイルを止めない
type BatchUploadResult struct {
	Uploaded []UploadResult  `json:"uploaded"`
	Failed   []UploadFailure `json:"failed"`
}

// 画像サイズタグ
const (
	SizeThumbnail = "thumbnail"
	SizeMedium    = "medium"
	SizeLarge     = "large"
)

// MediaStorage は外部メディアホストとの契約。
// リモート資産は使い捨て扱いで、DBレコードが常に正。
type MediaStorage interface {
	Upload(ctx context.Context, productID int64, file File) (UploadResult, error)
	UploadBatch(ctx context.Context, productID int64, files []File) BatchUploadResult
	// 削除はベストエフォート（呼び出し側でログして続行する経路あり）
	Delete(ctx context.Context, assetID string) error
	DeleteBatch(ctx context.Context, assetIDs []string) []string
	// URLから資産IDを逆引き。判別不能なら空文字。
	ExtractAssetID(url string) string
	TransformedURL(assetID string, sizeTag string) string
}
