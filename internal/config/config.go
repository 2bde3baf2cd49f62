package config

import (
	"fmt"
	"os"
	"strconv"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート

	JWTSecret string // JWT署名シークレット

	CloudinaryCloudName string // メディアホストのcloud name
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string // アップロード先フォルダ（products）

	MaxImagesPerProduct int64 // 1商品あたりの最大画像数（default 10、メイン枠込み）
	MaxCartItemQty      int64 // カート明細の最大数量（default 999）

	GoEnv string // dev/prod
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := mustAtoi("POSTGRES_PORT")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,

		JWTSecret: os.Getenv("JWT_SECRET"),

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryFolder:    getenv("CLOUDINARY_FOLDER", "products"),

		MaxImagesPerProduct: getenvInt64("MAX_IMAGES_PER_PRODUCT", 10),
		MaxCartItemQty:      getenvInt64("MAX_CART_ITEM_QTY", 999),

		GoEnv: getenv("GO_ENV", "dev"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.PostgresUser == "" {
		return Config{}, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.PostgresPassword == "" {
		return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if cfg.PostgresDB == "" {
		return Config{}, fmt.Errorf("POSTGRES_DB is required")
	}
	if cfg.PostgresHost == "" {
		return Config{}, fmt.Errorf("POSTGRES_HOST is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.CloudinaryCloudName == "" {
		return Config{}, fmt.Errorf("CLOUDINARY_CLOUD_NAME is required")
	}
	if cfg.CloudinaryAPIKey == "" {
		return Config{}, fmt.Errorf("CLOUDINARY_API_KEY is required")
	}
	if cfg.CloudinaryAPISecret == "" {
		return Config{}, fmt.Errorf("CLOUDINARY_API_SECRET is required")
	}
	if cfg.MaxImagesPerProduct < 2 {
		return Config{}, fmt.Errorf("MAX_IMAGES_PER_PRODUCT must be >= 2")
	}
	if cfg.MaxCartItemQty < 1 {
		return Config{}, fmt.Errorf("MAX_CART_ITEM_QTY must be >= 1")
	}

	return cfg, nil
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return i
}
