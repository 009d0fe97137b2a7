package core

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aiwolfdial/studybuddy/logic"
	"github.com/aiwolfdial/studybuddy/model"
	"github.com/aiwolfdial/studybuddy/service"
	"github.com/aiwolfdial/studybuddy/util"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Server struct {
	config              model.Config
	upgrader            websocket.Upgrader
	sessions            *SessionStore
	narrator            logic.Oracle
	assistant           *service.Assistant
	chats               *service.ChatStore
	schedule            service.ScheduleStore
	grades              service.GradeSource
	jsonLogger          *service.JSONLogger
	gameLogger          *service.GameLogger
	realtimeBroadcaster *service.RealtimeBroadcaster
	metrics             *service.Metrics
	newRand             func() *rand.Rand
}

func NewServer(config model.Config, oracle service.Oracle, schedule service.ScheduleStore, grades service.GradeSource) *Server {
	server := &Server{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		sessions:  NewSessionStore(config.Mafia.MaxSessions),
		narrator:  oracle,
		assistant: service.NewAssistant(oracle),
		chats:     service.NewChatStore(oracle, config.Chat.MaxSessions),
		schedule:  schedule,
		grades:    grades,
	}
	if config.JSONLogger.Enable {
		server.jsonLogger = service.NewJSONLogger(config)
		server.narrator = server.jsonLogger.Wrap(oracle)
	}
	if config.GameLogger.Enable {
		server.gameLogger = service.NewGameLogger(config)
	}
	broadcasterConfig := config
	if !config.RealtimeBroadcaster.Enable {
		broadcasterConfig.RealtimeBroadcaster.OutputDir = ""
	}
	server.realtimeBroadcaster = service.NewRealtimeBroadcaster(broadcasterConfig)
	if config.Metrics.Enable {
		server.metrics = service.NewMetrics()
		server.assistant.SetMetrics(server.metrics)
		server.sessions.onChange = server.metrics.SetActiveSessions
	}
	return server
}

// SetRandSource makes new games deal their roles from the given generator.
func (s *Server) SetRandSource(newRand func() *rand.Rand) {
	s.newRand = newRand
}

func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.Use(func(c *gin.Context) {
		c.Header("Server", ServerHeader())

		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": Version})
	})
	if s.metrics != nil {
		router.GET(s.config.Metrics.Path, gin.WrapH(s.metrics.Handler()))
	}

	api := router.Group("/api")
	games := api.Group("/games")
	games.POST("", s.handleCreateGame)
	games.GET("/:id", s.handleGetGame)
	games.DELETE("/:id", s.handleDeleteGame)
	games.POST("/:id/vote", s.handleVote)
	games.POST("/:id/advance", s.handleAdvance)
	games.POST("/:id/restart", s.handleRestart)
	games.POST("/:id/dismiss", s.handleDismiss)
	router.GET("/ws/games/:id", s.handleGameStream)

	schedule := api.Group("/schedule")
	schedule.GET("/:week", s.handleGetWeek)
	schedule.POST("/:week/plan", s.handleStudyPlan)
	schedule.POST("/:week/summary", s.handleWeekSummary)
	schedule.POST("/:week/:day/:itemID/help", s.handleHomeworkHelp)
	admin := schedule.Group("")
	if s.config.Server.Authentication.Enable {
		admin.Use(s.verifyMiddleware())
	}
	admin.POST("/:week/:day", s.handleAddItem)
	admin.PUT("/:week/:day/:itemID", s.handleUpdateItem)
	admin.DELETE("/:week/:day/:itemID", s.handleDeleteItem)

	api.GET("/grades", s.handleGetGrades)
	api.POST("/grades/summary", s.handleGradeSummary)

	api.POST("/chat", s.handleCreateChat)
	api.GET("/chat/:id", s.handleGetChat)
	api.DELETE("/chat/:id", s.handleDeleteChat)
	api.POST("/chat/:id/messages", s.handleSendChat)
	return router
}

func (s *Server) Run(ctx context.Context) error {
	addr := s.config.Server.Host + ":" + strconv.Itoa(s.config.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("サーバの停止に失敗しました", "error", err)
		}
	}()

	slog.Info("サーバを起動しました", "host", s.config.Server.Host, "port", s.config.Server.Port)
	err := httpServer.ListenAndServe()
	s.gracefullyShutdown()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) gracefullyShutdown() {
	s.sessions.Range(func(controller *logic.Controller) bool {
		controller.Close()
		return true
	})
	if err := s.schedule.Close(); err != nil {
		slog.Error("時間割ストアのクローズに失敗しました", "error", err)
	}
	slog.Info("全てのゲームを終了しました")
}

func (s *Server) secret() string {
	if s.config.Server.Authentication.Secret != "" {
		return s.config.Server.Authentication.Secret
	}
	return os.Getenv("SECRET_KEY")
}

func (s *Server) verifyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = strings.ReplaceAll(c.GetHeader("Authorization"), "Bearer ", "")
		}
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if !util.IsValidAdminToken(s.secret(), token) {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("リクエストを処理しました",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}
