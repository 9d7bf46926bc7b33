package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	appauth "curema-crm/internal/application/auth"
	"curema-crm/internal/infra/memory"
	authinfra "curema-crm/internal/infrastructure/auth"
	"curema-crm/internal/infrastructure/config"
	"curema-crm/internal/infrastructure/persistence/postgres"

	"github.com/gin-gonic/gin"
)

const (
	errCodeBadRequest         = "BAD_REQUEST"
	errCodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	errCodeAccountDisabled    = "AUTH_ACCOUNT_DISABLED"
	errCodeUnauthorized       = "AUTH_UNAUTHORIZED"
	errCodeTokenExpired       = "AUTH_TOKEN_EXPIRED"
	errCodeUsernameTaken      = "AUTH_USERNAME_TAKEN"
	errCodeEmailTaken         = "AUTH_EMAIL_TAKEN"
	errCodeNotFound           = "NOT_FOUND"
	errCodeInternal           = "INTERNAL_ERROR"
)

// Server 封裝 HTTP 路由與依賴。
type Server struct {
	engine   *gin.Engine
	store    *memory.Store
	db       *sql.DB
	authSvc  *appauth.AuthService
	sessions *appauth.SessionService
	tokens   *appauth.RefreshTokenService
}

// NewServer 建立 API 伺服器，預設使用記憶體資料存儲；db 可用時注入對應 repository。
func NewServer(cfg config.Config, db *sql.DB) *Server {
	store := memory.NewStore()

	var users appauth.UserRepository
	var sessionRepo appauth.SessionRepository
	var tokenRepo appauth.RefreshTokenRepository
	if db != nil {
		users = postgres.NewUserRepo(db)
		sessionRepo = postgres.NewSessionRepo(db)
		tokenRepo = postgres.NewRefreshTokenRepo(db)
	} else {
		store.SeedUsers()
		users = store.Users()
		sessionRepo = store.Sessions()
		tokenRepo = store.Tokens()
	}

	sessions := appauth.NewSessionService(sessionRepo, cfg.Auth.MaxSessionsPerUser, cfg.Auth.SessionTimeout)
	tokens := appauth.NewRefreshTokenService(tokenRepo, cfg.Auth.MaxRefreshTokensPerUser, cfg.Auth.RefreshTTL)
	codec := authinfra.NewJWTCodec(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	authSvc := appauth.NewAuthService(users, authinfra.BcryptHasher{}, codec, sessions, tokens)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:   engine,
		store:    store,
		db:       db,
		authSvc:  authSvc,
		sessions: sessions,
		tokens:   tokens,
	}
	s.registerRoutes()
	return s
}

// Handler 回傳路由處理器，供 HTTP server 掛載。
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Store 主要用於測試注入初始資料。
func (s *Server) Store() *memory.Store {
	return s.store
}

// Sessions 供 cmd 層掛載清理排程。
func (s *Server) Sessions() *appauth.SessionService {
	return s.sessions
}

// Tokens 供 cmd 層掛載清理排程。
func (s *Server) Tokens() *appauth.RefreshTokenService {
	return s.tokens
}

func (s *Server) registerRoutes() {
	s.engine.Use(s.ginLogger(), corsMiddleware())

	api := s.engine.Group("/api")
	api.GET("/ping", s.handlePing)
	api.GET("/health", s.handleHealth)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", s.handleLogin)
	authGroup.POST("/refresh", s.handleRefresh)
	authGroup.POST("/logout", s.handleLogout)
	authGroup.POST("/register", s.handleRegister)
	authGroup.POST("/logout-all", s.requireAuth(), s.handleLogoutAll)
	authGroup.GET("/validate", s.requireAuth(), s.handleValidate)
	authGroup.GET("/profile", s.requireAuth(), s.handleProfile)
}

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "pong"})
}

func (s *Server) handleHealth(c *gin.Context) {
	dbStatus := "memory"
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			dbStatus = "down"
		} else {
			dbStatus = "up"
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  "ok",
		"db":      dbStatus,
		"time":    time.Now().Format(time.RFC3339),
	})
}
