package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")

	boards := api.Group("/boards")
	boards.GET("/:boardID/velocity", s.getVelocity)
	boards.GET("/:boardID/team-performance", s.getTeamPerformance)
	boards.GET("/:boardID/issue-types", s.getIssueTypeDistribution)
	boards.GET("/:boardID/snapshots", s.getSnapshots)

	api.GET("/repos/:owner/:repo/commit-trends", s.getCommitTrends)

	api.POST("/webhooks/issue-events", s.handleIssueEvent)

	admin := api.Group("/admin", s.auth.RequireAdminToken())
	admin.POST("/sprints/:sprintID/warm", s.warmSprintCache)
	admin.DELETE("/sprints/:sprintID/cache", s.invalidateSprintCache)
}
