package main

import (
	"embed"
	"log"

	"github.com/heshen/BookStack-1/internal/bootstrap"
	"github.com/heshen/BookStack-1/internal/config"
)

//go:embed templates/*.html
var templatesFS embed.FS

func main() {
	cfg := config.Load()

	if err := bootstrap.Run(cfg, templatesFS); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
}
