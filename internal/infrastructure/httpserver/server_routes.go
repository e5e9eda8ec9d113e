package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")
	api.Use(s.middleware.Settings.AttachSettings())

	settings := api.Group("/settings")
	settings.POST("", s.createSetting)
	settings.GET("/:name", s.getSetting)
	settings.PUT("/:name", s.updateSetting)
	settings.DELETE("/:name/cache", s.clearSettingCache)

	groups := api.Group("/groups")
	groups.POST("", s.createGroup)
	groups.GET("/:name", s.getGroup)
	groups.PUT("/:group/settings/:name", s.updateGroupedSetting)
	groups.DELETE("/:name/cache", s.clearGroupCache)

	admin := api.Group("/admin")
	admin.GET("/settings", s.listSettings)
	admin.GET("/settings/:id", s.getSettingByID)
	admin.PUT("/settings/:id", s.saveSetting)
	admin.DELETE("/settings/:id", s.deleteSetting)
	admin.GET("/categories", s.listCategories)
	admin.DELETE("/categories/:id", s.deleteCategory)
}
