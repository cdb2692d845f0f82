package httpEngine

import (
	"net/http"

	"dopple-server/configs"
	"dopple-server/internal/controllers"
	"dopple-server/internal/logics"
	"dopple-server/internal/middlewares"
	"dopple-server/internal/repositories"
	"dopple-server/internal/utils"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires services, controllers and all routes.
func RegisterRoutes(e *echo.Echo, cleanup *logics.CleanupService) {
	// Health check endpoint, no auth.
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Hello, from Dopple Server!")
	})

	cursorManager := utils.NewCursorManager()
	db := repositories.DBS.Postgres

	storageService := logics.NewStorageService(repositories.DBS.S3, configs.Configs.S3.BucketName)
	pathService := logics.NewPathService(db)
	userService := logics.NewUserService(db)
	searchCache := logics.NewSearchCache(repositories.DBS.Redis)
	itemService := logics.NewItemService(db, pathService, storageService, cleanup, searchCache)
	listingService := logics.NewListingService(db, cursorManager, searchCache)

	itemController := controllers.NewItemController(itemService, listingService)
	searchController := controllers.NewSearchController(listingService)
	uploadController := controllers.NewUploadController(itemService, storageService)

	api := e.Group("/api")
	api.Use(middlewares.AuthMiddleware(userService))

	api.GET("/items", itemController.ListItems)
	api.POST("/items", itemController.CreateFolder)
	api.GET("/items/:id", itemController.GetItem)
	api.PATCH("/items/:id", itemController.UpdateItem)
	api.DELETE("/items/:id", itemController.DeleteItem)

	api.GET("/breadcrumb/:id", itemController.Breadcrumb)
	api.GET("/search", searchController.Search)

	api.POST("/uploads/presign", uploadController.Presign)
	api.POST("/uploads/complete", uploadController.CompleteUpload)
	api.POST("/file", uploadController.DirectUpload)
}
