package main

import (
	"context"
	"log"

	"go-chat-im/internal/api"
	"go-chat-im/internal/middleware"
	"go-chat-im/internal/presence"
	"go-chat-im/internal/repository"
	"go-chat-im/internal/search"
	"go-chat-im/internal/service"
	internalws "go-chat-im/internal/websocket"
	"go-chat-im/pkg/config"
	"go-chat-im/pkg/db"
	"go-chat-im/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// 初始化配置
	if err := config.Init(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.InitLogger(config.GlobalConfig.Log.Level, config.GlobalConfig.Log.ProductionMode); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 初始化数据库连接
	if err := db.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 共享在线状态存储
	presenceStore := presence.NewStore()
	if err := presenceStore.Ping(context.Background()); err != nil {
		log.Fatalf("Failed to connect to presence store: %v", err)
	}

	// 消息搜索索引
	indexer, err := search.NewIndexer()
	if err != nil {
		log.Fatalf("Failed to open search index: %v", err)
	}
	defer indexer.Close()

	// 仓储层
	userRepo := repository.NewUserRepository()
	messageRepo := repository.NewMessageRepository()
	groupRepo := repository.NewGroupRepository()
	groupMemberRepo := repository.NewGroupMemberRepository()

	// 核心组件：连接注册表、上下线广播、消息路由
	registry := internalws.NewRegistry()
	broadcaster := presence.NewBroadcaster(registry, presenceStore)
	chatRouter := service.NewChatRouter(registry, groupMemberRepo, messageRepo, indexer)

	// 服务层
	authService := service.NewAuthService(userRepo)
	groupService := service.NewGroupService(groupRepo, groupMemberRepo, userRepo)
	historyService := service.NewHistoryService(messageRepo, groupMemberRepo)

	// 处理器
	authHandler := api.NewAuthHandler(authService)
	wsHandler := api.NewWSHandler(registry, chatRouter, broadcaster)
	chatHandler := api.NewChatHandler(historyService)
	groupHandler := api.NewGroupHandler(groupService, historyService)
	searchHandler := api.NewSearchHandler(indexer)
	presenceHandler := api.NewPresenceHandler(presenceStore)

	// 创建Gin引擎
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.GinZapLogger())

	// 公开路由
	r.POST("/api/auth/register", authHandler.Register)
	r.POST("/api/auth/login", authHandler.Login)

	// 受保护的路由
	protected := r.Group("/")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/ws", wsHandler.HandleConnection)

		protected.GET("/api/messages/history/:other_user_id", chatHandler.GetChatHistory)
		protected.GET("/api/users/online", presenceHandler.GetOnlineUsers)
		protected.GET("/api/search/messages", searchHandler.SearchMessages)

		protected.POST("/api/groups", groupHandler.CreateGroup)
		protected.GET("/api/groups", groupHandler.GetUserGroups)
		protected.GET("/api/groups/:group_id", groupHandler.GetGroupInfo)
		protected.GET("/api/groups/:group_id/messages", groupHandler.GetGroupChatHistory)
		protected.POST("/api/groups/:group_id/members", groupHandler.AddGroupMember)
		protected.DELETE("/api/groups/:group_id/members/:user_id", groupHandler.RemoveGroupMember)
	}

	// 启动服务器
	addr := config.GlobalConfig.Server.Addr
	if addr == "" {
		addr = ":8080"
	}
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
