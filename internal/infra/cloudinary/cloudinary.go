package cloudinary

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"marketplace/internal/gateway"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// CloudinaryのURLからpublic idを取り出すパターン
var publicIDPattern = regexp.MustCompile(`/(?:v\d+/)?(?:.*/)?([^/]+)\.[a-zA-Z]{3,4}$`)

// サイズタグごとの変換指定
var transformations = map[string]string{
	gateway.SizeThumbnail: "c_fill,w_150,h_150,q_auto,f_auto",
	gateway.SizeMedium:    "c_limit,w_500,h_500,q_auto,f_auto",
	gateway.SizeLarge:     "c_limit,w_1000,h_1000,q_auto,f_auto",
}

// MediaStorage はCloudinaryを使ったgateway.MediaStorageの実装。
type MediaStorage struct {
	client *cloudinary.Cloudinary
	folder string
}

// DI
func NewMediaStorage(cloudName, apiKey, apiSecret, folder string) (*MediaStorage, error) {
	client, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &MediaStorage{client: client, folder: folder}, nil
}

func (s *MediaStorage) Upload(ctx context.Context, productID int64, file gateway.File) (gateway.UploadResult, error) {
	publicID := s.generatePublicID(productID)

	resp, err := s.client.Upload.Upload(ctx, file.Content, uploader.UploadParams{
		PublicID:       publicID,
		Folder:         s.folder,
		Overwrite:      api.Bool(false),
		UniqueFilename: api.Bool(false),
		ResourceType:   "image",
	})
	if err != nil {
		return gateway.UploadResult{}, fmt.Errorf("upload %s: %w", file.Filename, err)
	}
	if resp.Error.Message != "" {
		return gateway.UploadResult{}, fmt.Errorf("upload %s: %s", file.Filename, resp.Error.Message)
	}

	return gateway.UploadResult{
		AssetID: resp.PublicID,
		URL:     resp.SecureURL,
		Width:   resp.Width,
		Height:  resp.Height,
		Bytes:   resp.Bytes,
		Format:  resp.Format,
	}, nil
}

// ファイル単位の失敗は他を止めない
func (s *MediaStorage) UploadBatch(ctx context.Context, productID int64, files []gateway.File) gateway.BatchUploadResult {
	var out gateway.BatchUploadResult

	for i, f := range files {
		res, err := s.Upload(ctx, productID, f)
		if err != nil {
			out.Failed = append(out.Failed, gateway.UploadFailure{
				Index:    i,
				Filename: f.Filename,
				Error:    err.Error(),
			})
			continue
		}
		out.Uploaded = append(out.Uploaded, res)
	}
	return out
}

func (s *MediaStorage) Delete(ctx context.Context, assetID string) error {
	resp, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: assetID})
	if err != nil {
		return fmt.Errorf("destroy %s: %w", assetID, err)
	}
	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("destroy %s: %s", assetID, resp.Result)
	}
	return nil
}

// DeleteBatch は全件を試し、削除できなかったIDを返す。
func (s *MediaStorage) DeleteBatch(ctx context.Context, assetIDs []string) []string {
	var failed []string
	for _, id := range assetIDs {
		if err := s.Delete(ctx, id); err != nil {
			failed = append(failed, id)
		}
	}
	return failed
}

// ExtractAssetID はCloudinary URLからpublic idを逆引きする。判別不能なら空文字。
func (s *MediaStorage) ExtractAssetID(url string) string {
	m := publicIDPattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}

	// フォルダ配下にある場合はprefixを復元する
	if s.folder != "" && strings.Contains(url, s.folder+"/") {
		return s.folder + "/" + m[1]
	}
	return m[1]
}

func (s *MediaStorage) TransformedURL(assetID string, sizeTag string) string {
	t, ok := transformations[sizeTag]
	if !ok {
		t = transformations[gateway.SizeMedium]
	}

	img, err := s.client.Image(assetID)
	if err != nil {
		return ""
	}
	img.Transformation = t

	url, err := img.String()
	if err != nil {
		return ""
	}
	return url
}

// 衝突しないpublic idを作る
func (s *MediaStorage) generatePublicID(productID int64) string {
	return fmt.Sprintf("product_%d_%s_%d", productID, uuid.NewString()[:8], time.Now().Unix())
}
