package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ts-31/agent-hub/config"
	"github.com/ts-31/agent-hub/controller"
	"github.com/ts-31/agent-hub/dao"
	"github.com/ts-31/agent-hub/logic"
	"github.com/ts-31/agent-hub/middleware"
	"github.com/ts-31/agent-hub/models"
	"github.com/ts-31/agent-hub/pkg"
	"github.com/ts-31/agent-hub/ws"
)

func main() {
	// Initialize config
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run main.go <config.yaml>")
	}
	configFile := os.Args[1]
	if err := config.LoadConfig(configFile); err != nil {
		log.Fatalf("Failed to load config from %s: %v", configFile, err)
	}

	// Initialize database
	db, err := gorm.Open(postgres.Open(config.GlobalConfig.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db.AutoMigrate(&models.User{}, &models.Project{}, &models.Message{})

	// Initialize session manager and completion client
	sessions := pkg.NewSessionManager(config.GlobalConfig.Auth.JWTSecret, config.GlobalConfig.SessionTTL())
	gemini := pkg.NewGeminiClient(
		config.GlobalConfig.LLM.APIKey,
		config.GlobalConfig.LLM.BaseURL,
		config.GlobalConfig.LLM.Model,
	)

	// Initialize DAOs
	userDAO := dao.NewUserDAO(db)
	projectDAO := dao.NewProjectDAO(db)
	messageDAO := dao.NewMessageDAO(db)

	// Initialize Logics
	userLogic := logic.NewUserLogic(userDAO)
	projectLogic := logic.NewProjectLogic(userDAO, projectDAO, messageDAO)
	relayLogic := logic.NewRelayLogic(userDAO, projectDAO, messageDAO, gemini, config.GlobalConfig.LLMTimeout())

	// Initialize routing table and Controllers
	hub := ws.NewHub()
	authCtrl := controller.NewAuthController(sessions, userLogic, config.GlobalConfig.Auth.CookieName)
	projectCtrl := controller.NewProjectController(projectLogic)
	socketCtrl := controller.NewSocketController(sessions, hub, relayLogic, config.GlobalConfig.Auth.CookieName)

	// Setup Gin router
	r := gin.Default()
	auth := middleware.SessionAuth(sessions, config.GlobalConfig.Auth.CookieName)

	r.GET("/api/ping", controller.Ping)
	r.POST("/api/auth/login", authCtrl.Login)
	r.POST("/api/auth/logout", authCtrl.Logout)
	r.GET("/api/projects", auth, projectCtrl.GetProjects)
	r.POST("/api/projects", auth, projectCtrl.CreateProject)
	r.GET("/api/projects/:projectId/messages", auth, projectCtrl.GetProjectMessages)
	r.GET("/socket", socketCtrl.Handle)

	// Run server
	if err := r.Run(fmt.Sprintf(":%d", config.GlobalConfig.Server.Port)); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
