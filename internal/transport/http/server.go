package http

import (
	"github.com/gin-gonic/gin"

	"jurisrag/internal/bootstrap"
	"jurisrag/internal/transport/http/handler"
	"jurisrag/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = app.Config.MaxUploadBytes()

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(app.Metrics.Handler()))

	documentHandler := handler.NewDocumentHandler(app.Ingest, app.Config.MaxUploadBytes())
	legalHandler := handler.NewLegalHandler(app.QA)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthJWT(middleware.AuthConfig{
		Secret:   app.Config.Auth.JWTSecret,
		Issuer:   app.Config.Auth.Issuer,
		Disabled: app.Config.Auth.Disabled,
	}))
	RegisterRoutes(v1, documentHandler, legalHandler)

	return router
}

// RegisterRoutes mounts the document and legal endpoints on g.
func RegisterRoutes(g *gin.RouterGroup, documents *handler.DocumentHandler, legal *handler.LegalHandler) {
	docGroup := g.Group("/documents")
	docGroup.POST("", documents.Create)
	docGroup.POST("/upload", documents.Upload)
	docGroup.POST("/batch", documents.Batch)
	docGroup.GET("", documents.List)
	docGroup.GET("/:id", documents.Get)
	docGroup.DELETE("/:id", documents.Delete)
	docGroup.GET("/:id/download", documents.Download)
	docGroup.GET("/:id/versions", documents.Versions)
	docGroup.GET("/:id/versions/:version", documents.Version)
	docGroup.POST("/:id/reprocess", documents.Reprocess)
	docGroup.POST("/:id/abolish", documents.Abolish)
	docGroup.POST("/:id/relations", documents.Relate)
	docGroup.GET("/:id/related", documents.Related)

	legalGroup := g.Group("/legal")
	legalGroup.POST("/search", legal.Search)
	legalGroup.POST("/ask", legal.Ask)
}
