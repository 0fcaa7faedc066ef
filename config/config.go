package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Insecure fallbacks used when the signing secrets are not configured.
// They keep local/test environments running without a .env; never rely on
// them in prod.
const (
	InsecureAccessSecret  = "insecure-dev-secret-access"
	InsecureRefreshSecret = "insecure-dev-secret-refresh"
)

type Config struct {
	ServerPort  string
	BaseURL     string
	DatabaseDSN string

	AccessSecret  string
	RefreshSecret string

	KafkaBroker   string
	KafkaTopic    string
	KafkaGroupID  string
	KafkaUsername string
	KafkaPassword string

	CloudinaryUrl string

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	MailFromName string
	TemplateDir  string

	DefaultAvatarURL string
}

func LoadConfig() Config {
	if os.Getenv("ENV") != "prod" {
		if err := godotenv.Overload(); err != nil {
			log.Println("Warning: .env not loaded:", err)
		}
	}

	cfg := Config{
		ServerPort:       os.Getenv("SERVER_PORT"),
		BaseURL:          os.Getenv("BASE_URL"),
		DatabaseDSN:      os.Getenv("DATABASE_DSN"),
		AccessSecret:     os.Getenv("ACCESS_SECRET"),
		RefreshSecret:    os.Getenv("REFRESH_SECRET"),
		KafkaBroker:      os.Getenv("KAFKA_BROKER"),
		KafkaTopic:       os.Getenv("KAFKA_TOPIC"),
		KafkaGroupID:     os.Getenv("KAFKA_GROUP_ID"),
		KafkaUsername:    os.Getenv("KAFKA_USERNAME"),
		KafkaPassword:    os.Getenv("KAFKA_PASSWORD"),
		CloudinaryUrl:    os.Getenv("CLOUDINARY_URL"),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         os.Getenv("SMTP_PORT"),
		SMTPUser:         os.Getenv("SMTP_USER"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		MailFrom:         os.Getenv("MAIL_FROM"),
		MailFromName:     os.Getenv("MAIL_FROM_NAME"),
		TemplateDir:      os.Getenv("TEMPLATE_DIR"),
		DefaultAvatarURL: os.Getenv("DEFAULT_AVATAR_URL"),
	}

	if cfg.ServerPort == "" {
		cfg.ServerPort = ":3000"
	}
	if cfg.TemplateDir == "" {
		cfg.TemplateDir = "internal/templates"
	}
	if cfg.DefaultAvatarURL == "" {
		cfg.DefaultAvatarURL = "https://res.cloudinary.com/inkpress/image/upload/pfp.png"
	}
	if cfg.AccessSecret == "" {
		log.Println("Warning: ACCESS_SECRET not set, using insecure default")
		cfg.AccessSecret = InsecureAccessSecret
	}
	if cfg.RefreshSecret == "" {
		log.Println("Warning: REFRESH_SECRET not set, using insecure default")
		cfg.RefreshSecret = InsecureRefreshSecret
	}

	return cfg
}
