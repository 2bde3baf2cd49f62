package main

import (
	"log"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/domain/model"
	"marketplace/internal/handler"
	cld "marketplace/internal/infra/cloudinary"
	"marketplace/internal/infra/db"
	infraRepo "marketplace/internal/infra/repository"
	"marketplace/internal/server"
	"marketplace/internal/usecase"
	auth "marketplace/internal/usecase/auth_usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/joho/godotenv"
)

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

type jwtIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

func (i *jwtIssuer) Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.accessTTL)

	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func main() {
	// ローカルでは.envを読む（本番は環境変数のみ）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.ProductImage{},
		&model.Cart{},
		&model.CartItem{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	//メディアホスト
	media, err := cld.NewMediaStorage(
		cfg.CloudinaryCloudName,
		cfg.CloudinaryAPIKey,
		cfg.CloudinaryAPISecret,
		cfg.CloudinaryFolder,
	)
	if err != nil {
		log.Fatalf("cloudinary: %v", err)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	imageRepo := infraRepo.NewProductImageGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//usecaseに渡す部品
	clock := &realClock{}
	hasher := auth.NewBcryptPasswordHasher(12)
	verifier := auth.NewBcryptPasswordVerifier()
	issuer := &jwtIssuer{
		secret:    []byte(cfg.JWTSecret),
		accessTTL: 15 * time.Minute,
	}

	//Usecase生成
	registerUC := auth.NewRegisterUserUsecase(userRepo, hasher, clock)
	loginUC := auth.NewLoginUsecase(userRepo, verifier, issuer, clock)
	cartUC := usecase.NewCartUsecase(
		txManager, cartRepo, cartItemRepo, productRepo, imageRepo, userRepo,
		cfg.MaxCartItemQty,
	)
	productUC := usecase.NewProductUsecase(txManager, productRepo, imageRepo, categoryRepo, media)
	imageUC := usecase.NewProductImageUsecase(txManager, productRepo, imageRepo, media, cfg.MaxImagesPerProduct)

	//Handler生成
	handlers := server.Handlers{
		Auth:         handler.NewAuthHandler(registerUC, loginUC),
		Cart:         handler.NewCartHandler(cartUC),
		Product:      handler.NewProductHandler(productUC),
		ProductImage: handler.NewProductImageHandler(imageUC),
		Category:     handler.NewCategoryHandler(categoryRepo),
	}

	//Server起動
	if err := server.Start(cfg, handlers); err != nil {
		log.Fatalf("server: %v", err)
	}
}
