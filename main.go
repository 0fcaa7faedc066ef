package main

import (
	"github.com/SundayYogurt/inkpress-account-svc/config"
	"github.com/SundayYogurt/inkpress-account-svc/internal/api"
)

func main() {
	cfg := config.LoadConfig()
	api.StartServer(cfg)
}
