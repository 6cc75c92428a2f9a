package api

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lwitkowski/aero-offers/config"
	"github.com/lwitkowski/aero-offers/internal/tracing"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

func SetupRoutes(router *gin.Engine, handler *Handler, allowedOrigins []string) error {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	router.Use(TraceID())
	router.Use(RequestLogger(handler.logger))
	router.Use(cors.New(corsConfig(allowedOrigins)))

	for _, page := range config.Pages {
		router.GET(page.Path, handler.OffersPage(page))
	}
	router.GET("/model/:manufacturer/:model", handler.ModelPage)
	router.GET("/healthz", handler.Health)

	api := router.Group("/api")
	{
		api.GET("/offers", handler.GetOffers)
		api.POST("/offers/more", handler.LoadMoreOffers)
		api.GET("/models", handler.GetModels)
		api.GET("/stats", handler.GetCategoryStats)
		api.GET("/stats/:manufacturer/:model", handler.GetModelStats)
	}
	return nil
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Accept-Language", tracing.Header},
		ExposeHeaders: []string{tracing.Header},
	}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = allowedOrigins
	cfg.AllowCredentials = true
	return cfg
}
