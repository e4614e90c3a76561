package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dkeye/ghostchat/internal/adapters/origin"
	"github.com/dkeye/ghostchat/internal/adapters/rtc"
	"github.com/dkeye/ghostchat/internal/adapters/signal"
	"github.com/dkeye/ghostchat/internal/app/orch"
	"github.com/dkeye/ghostchat/internal/auth"
	"github.com/dkeye/ghostchat/internal/config"
	"github.com/dkeye/ghostchat/internal/domain"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const sessionTokenKey = "token"

type Deps struct {
	Orch   *orch.Orchestrator
	Signal *signal.SignalWSController
	Names  *auth.Names
	Issuer *auth.Issuer
	ICE    rtc.ClientConfig
	// Origins defaults to cfg.AllowedOrigins.
	Origins *origin.Policy
}

// CredentialMiddleware resolves the connect credential: token query
// parameter, then bearer header, then the cookie session.
func CredentialMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			}
		}
		if token == "" {
			if v, ok := sessions.Default(c).Get(sessionTokenKey).(string); ok {
				token = v
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// RequestLogger is gin's access log with the query string left out, since
// the websocket endpoint carries its token there.
func RequestLogger(out io.Writer) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Output: out,
		Formatter: func(p gin.LogFormatterParams) string {
			return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %s\n%s",
				p.TimeStamp.Format("2006/01/02 - 15:04:05"),
				p.StatusCode,
				p.Latency,
				p.ClientIP,
				p.Method,
				p.Request.URL.Path,
				p.ErrorMessage,
			)
		},
	})
}

func corsMiddleware(origins *origin.Policy) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:  origins.Allowed,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func SetupRouter(ctx context.Context, cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	origins := d.Origins
	if origins == nil {
		origins = origin.NewPolicy(cfg.AllowedOrigins)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(RequestLogger(gin.DefaultWriter))
	}
	r.Use(gin.Recovery())
	// Engine level so preflights on unrouted OPTIONS still get answered.
	r.Use(corsMiddleware(origins))

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: int(cfg.TokenTTL.Seconds()), HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("GhostSessions", store))

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(filepath.Join(cfg.StaticPath, "index.html"))
		})
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.POST("/auth/register", func(c *gin.Context) {
		handleRegister(c, d)
	})

	api.GET("/rtc/config", func(c *gin.Context) {
		c.JSON(http.StatusOK, d.ICE)
	})

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"clients": d.Orch.Registry.Count(),
			"rooms":   d.Orch.Rooms.Count(),
		})
	})

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, d.Orch.Rooms.List())
	})

	api.GET("/ws", CredentialMiddleware(), func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("ip", c.ClientIP()).Msg("ws endpoint hit")
		d.Signal.HandleSignal(ctx, c, c.GetString("client_token"))
	})

	return r
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
}

func handleRegister(c *gin.Context, d Deps) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	user, err := d.Names.Reserve(req.Username)
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username already taken"})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": registerError(err)})
		return
	}

	token, err := d.Issuer.Issue(user)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	sess := sessions.Default(c)
	sess.Set(sessionTokenKey, token)
	if err := sess.Save(); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
	}

	log.Info().Str("module", "adapters.http").Str("user_id", string(user.ID)).Str("username", user.Username).Msg("user registered")
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   token,
		"user":    gin.H{"id": user.ID, "username": user.Username},
	})
}

func registerError(err error) string {
	switch {
	case errors.Is(err, domain.ErrUsernameEmpty):
		return "Username is required"
	case errors.Is(err, domain.ErrUsernameTooShort), errors.Is(err, domain.ErrUsernameTooLong):
		return "Username must be between 3 and 20 characters"
	case errors.Is(err, domain.ErrUsernameInvalid):
		return "Username may contain letters, digits, '_', '-' and '.' only"
	default:
		return err.Error()
	}
}
