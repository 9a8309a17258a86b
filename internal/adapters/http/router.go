package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/adapters/signal"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/app"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/config"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/core"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/metrics"
)

const (
	clientTokenKey = "client_token"
	maxBodyBytes   = 8 << 10
)

// Services is what the router needs from the rest of the process. One
// Store instance is shared by the HTTP handlers and the signal controller.
type Services struct {
	Store         *core.Store
	Registry      *app.Registry
	Signal        *signal.Controller
	CreateLimiter *app.IPRateLimiter
}

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware gives every browser a stable id kept in the
// session cookie. The id becomes the moderatorId of sessions it creates.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		token, _ := sess.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			sess.Set(clientTokenKey, token)
			if err := sess.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save client token")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func SetupRouter(ctx context.Context, cfg *config.Config, svc *Services) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	// With no trusted proxies gin ignores X-Forwarded-For and ClientIP is
	// the socket's remote address.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   3600 * 24 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("PokerSessions", store))
	r.Use(ClientTokenMiddleware())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	r.POST("/sessions", createSession(svc))
	r.GET("/sessions/:roomId/validate", validateSession(svc))

	r.GET("/ws", func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("ws upgrade")
			return
		}
		svc.Signal.Serve(ctx, ws, domain.RoomID(c.Query("roomId")), domain.UserID(c.Query("userId")))
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"sessions":    svc.Store.GetSessionCount(),
			"connections": svc.Registry.Count(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}

type createSessionRequest struct {
	SessionName   string `json:"sessionName"`
	ModeratorName string `json:"moderatorName"`
	DeckType      string `json:"deckType"`
}

type createSessionResponse struct {
	RoomID      domain.RoomID `json:"roomId"`
	SessionName string        `json:"sessionName"`
	ModeratorID domain.UserID `json:"moderatorId"`
}

func createSession(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc.CreateLimiter != nil && !svc.CreateLimiter.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many sessions created, try again later"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

		var req createSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		name, err := domain.NormalizeSessionName(req.SessionName)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sessionName must be 1-100 characters"})
			return
		}
		moderatorName, err := domain.NormalizeName(req.ModeratorName)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "moderatorName must be 1-50 characters"})
			return
		}
		deck, err := domain.ParseDeckType(req.DeckType)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown deckType"})
			return
		}

		moderatorID := domain.UserID(c.GetString(clientTokenKey))
		if moderatorID == "" {
			moderatorID = domain.UserID(genClientToken())
		}

		st, err := svc.Store.CreateSession(name, moderatorID, moderatorName, deck)
		switch {
		case errors.Is(err, domain.ErrStoreFull):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is at session capacity"})
			return
		case err != nil:
			log.Error().Err(err).Str("module", "adapters.http").Msg("create session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
			return
		}

		metrics.SessionsCreated.Inc()
		metrics.ActiveSessions.Set(float64(svc.Store.GetSessionCount()))
		log.Info().Str("module", "adapters.http").Str("room", string(st.Session.ID)).
			Str("deck", string(deck)).Msg("session created")
		c.JSON(http.StatusCreated, createSessionResponse{
			RoomID:      st.Session.ID,
			SessionName: st.Session.Name,
			ModeratorID: st.Session.ModeratorID,
		})
	}
}

func validateSession(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := domain.RoomID(c.Param("roomId"))
		if !domain.ValidRoomID(id) || !svc.Store.SessionExists(id) {
			c.JSON(http.StatusNotFound, gin.H{"exists": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"exists": true})
	}
}

// NewServer wraps the router with the timeouts the process uses.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
	}
}
