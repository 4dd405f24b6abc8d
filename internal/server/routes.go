package server

func (a *App) registerRoutes() {
	a.router.GET("/", a.handleRoot)
	a.router.GET("/health", a.handleHealth)
	a.router.GET("/health/services/:name", a.handleServiceHealth)
	a.router.GET("/metrics", a.handleMetrics)

	docs := a.router.Group("/documents")
	docs.Use(RateLimit(a.cfg.Service.UploadRateLimitPerMinute))
	{
		docs.POST("/upload", a.handleUploadDocument)
		docs.POST("/validate", a.handleValidateDocument)
		docs.GET("/upload/:id/progress", a.handleUploadProgress)
	}
	a.router.GET("/documents", a.handleListDocuments)
	a.router.GET("/documents/:id", a.handleGetDocument)
	a.router.DELETE("/documents/:id", a.handleDeleteDocument)

	query := a.router.Group("/")
	query.Use(RateLimit(a.cfg.Service.RateLimitPerMinute))
	{
		query.POST("/query", a.handleQuery)
		query.GET("/query/stream", a.handleQueryStream)
	}

	adv := a.router.Group("/advanced")
	{
		adv.GET("/connections", a.handleListConnections)
		adv.DELETE("/connections/:id", a.handleCancelConnection)
		adv.POST("/cleanup", a.handleCleanup)
		adv.GET("/storage/stats", a.handleStorageStats)
	}
}
