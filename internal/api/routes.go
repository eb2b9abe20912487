package api

import (
	"net/http"

	"debate_arena/internal/api/handlers"
	"debate_arena/internal/middleware"
	"debate_arena/internal/service"
	"debate_arena/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(r *gin.Engine, services *service.Services, tokens *utils.TokenManager, gatherer prometheus.Gatherer) {
	// 初始化 handlers
	authHandler := handlers.NewAuthHandler(services.User)
	adminHandler := handlers.NewAdminHandler(services.User, services.Match)
	matchHandler := handlers.NewMatchHandler(services.Match, services.Round)
	roundHandler := handlers.NewRoundHandler(services.Round, services.Vote)
	rankingHandler := handlers.NewRankingHandler(services.Rating)
	userHandler := handlers.NewUserHandler(services.User)

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "找不到該路徑", "kind": "not_found"})
	})

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	r.GET("/health", health)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// API 路由群組
	api := r.Group("/api")

	// 公開路由
	{
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)
		api.GET("/health", health)

		api.GET("/ranking", rankingHandler.Ranking)
		api.GET("/users/:id", userHandler.Profile)
		api.GET("/users/:id/ratings", rankingHandler.History)
	}

	// 需要驗證的路由
	authorized := api.Group("/")
	authorized.Use(middleware.AuthMiddleware(tokens))
	{
		authorized.GET("/me", authHandler.Me)

		matches := authorized.Group("/matches")
		{
			matches.GET("", matchHandler.ListMatches)
			matches.GET("/:id", matchHandler.GetMatch)
			matches.GET("/:id/current-round", matchHandler.CurrentRound)
			matches.GET("/:id/judges", matchHandler.ListJudges)
		}

		rounds := authorized.Group("/rounds")
		{
			rounds.GET("/:id", roundHandler.GetRound)
			rounds.GET("/:id/results", roundHandler.Results)
			rounds.POST("/:id/content", roundHandler.SubmitContent)
			rounds.POST("/:id/votes", roundHandler.SubmitVote)
		}

		// 管理員操作，handler 內檢查權限
		admin := authorized.Group("/admin")
		{
			admin.POST("/matches", adminHandler.StartMatch)
			admin.POST("/matches/:id/finish", adminHandler.ForceFinish)
			admin.POST("/matches/:id/judges", adminHandler.AssignJudge)
			admin.POST("/rounds/:id/close", adminHandler.CloseVoting)
			admin.GET("/users", adminHandler.ListUsers)
			admin.PUT("/users/:id/admin", adminHandler.SetAdmin)
		}
	}
}
