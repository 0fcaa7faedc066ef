package api

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/SundayYogurt/inkpress-account-svc/config"
	"github.com/SundayYogurt/inkpress-account-svc/infra/queue"
	"github.com/SundayYogurt/inkpress-account-svc/internal/api/rest/handlers"
	"github.com/SundayYogurt/inkpress-account-svc/internal/domain"
	"github.com/SundayYogurt/inkpress-account-svc/internal/helper"
	"github.com/SundayYogurt/inkpress-account-svc/internal/repository"
	"github.com/SundayYogurt/inkpress-account-svc/internal/services"
	"github.com/SundayYogurt/inkpress-account-svc/pkg/cloudinary"
)

func StartServer(cfg config.Config) {
	app := fiber.New()

	// ---------- CORS ----------
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.BaseURL,
		AllowHeaders:     "Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// ---------- DB ----------
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DatabaseDSN,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	if err != nil {
		log.Fatalf("database connection error: %v", err)
	}
	log.Println("database connected")

	// ---------- MIGRATION (guarded by advisory lock) ----------
	const migrateLockID int64 = 20260830

	if err := db.Exec("SELECT pg_advisory_lock(?)", migrateLockID).Error; err != nil {
		log.Fatalf("migration lock error: %v", err)
	}
	defer func() {
		_ = db.Exec("SELECT pg_advisory_unlock(?)", migrateLockID).Error
	}()

	if err := db.AutoMigrate(
		&domain.User{},
		&domain.VerificationToken{},
	); err != nil {
		log.Fatalf("migration error: %v", err)
	}
	log.Println("migration successful")

	// ---------- Infra ----------
	kafkaProducer := queue.NewProducer(
		cfg.KafkaBroker,
		cfg.KafkaTopic,
		cfg.KafkaUsername,
		cfg.KafkaPassword,
	)
	cld, err := cloudinary.New(cfg.CloudinaryUrl)
	if err != nil {
		log.Fatalf("cloudinary init error: %v", err)
	}
	avatarStore := cloudinary.NewAvatarStore(cld)

	auth := helper.SetupAuth(cfg.AccessSecret, cfg.RefreshSecret)

	// ---------- Repositories ----------
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	articleRepo := repository.NewArticleRepository(db)

	// ---------- Services ----------
	mailDispatch := services.NewMailDispatchService(kafkaProducer)
	accountSvc := services.NewAccountService(
		userRepo,
		tokenRepo,
		articleRepo,
		avatarStore,
		mailDispatch,
		auth,
		cfg.DefaultAvatarURL,
	)

	// ---------- Mail relay ----------
	// The relay consumes the same topic this service publishes to, so mail
	// delivery runs in-process without a second deployment.
	if cfg.KafkaBroker != "" {
		mailSvc := services.NewMailService(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUser,
			cfg.SMTPPassword,
			cfg.MailFrom,
			cfg.MailFromName,
			cfg.TemplateDir,
		)
		consumer := queue.NewKafkaConsumer(
			cfg.KafkaBroker,
			cfg.KafkaTopic,
			cfg.KafkaGroupID,
			cfg.KafkaUsername,
			cfg.KafkaPassword,
			handlers.NewMailHandler(mailSvc),
		)
		go consumer.Listen(context.Background())
	} else {
		log.Println("KAFKA_BROKER not set - mail relay disabled")
	}

	// ---------- Handlers ----------
	accountHandler := handlers.NewAccountHandler(accountSvc, auth)
	accountHandler.SetupRoutes(app)

	// ---------- Health ----------
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// ---------- Listen ----------
	log.Println("listening on", cfg.ServerPort)
	log.Fatal(app.Listen(cfg.ServerPort))
}
