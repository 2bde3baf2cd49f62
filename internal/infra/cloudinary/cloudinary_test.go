package cloudinary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestStorage(t *testing.T) *MediaStorage {
	t.Helper()
	s, err := NewMediaStorage("demo", "key", "secret", "products")
	assert.NoError(t, err)
	return s
}

func TestExtractAssetID(t *testing.T) {
	s := newTestStorage(t)

	// フォルダ配下の標準的なsecure URL
	got := s.ExtractAssetID("https://res.cloudinary.com/demo/image/upload/v1700000000/products/product_1_ab12cd34_1700000000.jpg")
	assert.Equal(t, "products/product_1_ab12cd34_1700000000", got)

	// バージョンセグメント無し
	got = s.ExtractAssetID("https://res.cloudinary.com/demo/image/upload/products/product_2_ef56ab78_1700000001.png")
	assert.Equal(t, "products/product_2_ef56ab78_1700000001", got)

	// フォルダ外のURLはprefixを付けない
	got = s.ExtractAssetID("https://res.cloudinary.com/demo/image/upload/v1/sample.jpg")
	assert.Equal(t, "sample", got)

	// 判別不能なら空文字
	assert.Equal(t, "", s.ExtractAssetID("not a url"))
	assert.Equal(t, "", s.ExtractAssetID("https://example.com/no-extension"))
}

func TestGeneratePublicID(t *testing.T) {
	s := newTestStorage(t)

	id := s.generatePublicID(42)
	assert.True(t, strings.HasPrefix(id, "product_42_"), "unexpected public id %q", id)

	// 同じ商品でも毎回違うIDになる
	assert.NotEqual(t, id, s.generatePublicID(42))
}

func TestTransformedURL(t *testing.T) {
	s := newTestStorage(t)

	url := s.TransformedURL("products/product_1_ab12cd34_1700000000", "thumbnail")
	assert.Contains(t, url, "c_fill,w_150,h_150")
	assert.Contains(t, url, "products/product_1_ab12cd34_1700000000")

	// 未知のサイズタグはmediumへフォールバック
	url = s.TransformedURL("products/product_1_ab12cd34_1700000000", "huge")
	assert.Contains(t, url, "c_limit,w_500,h_500")
}
