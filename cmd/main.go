package main

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"blackjack/config"
	"blackjack/internal/auth"
	"blackjack/internal/lobby"
	"blackjack/internal/middleware"
	"blackjack/internal/room"
	"blackjack/internal/session"
	"blackjack/internal/storage"
	"blackjack/internal/utils"
	"blackjack/internal/websocket"
)

func main() {
	config.Load()

	//-------------------------------------------------------
	// 1. Balance store: Redis when reachable, memory otherwise
	//-------------------------------------------------------
	var store session.Store
	if err := storage.InitRedis(
		config.C.Redis.Addr,
		config.C.Redis.Password,
		config.C.Redis.DB,
	); err != nil {
		utils.Log.Warn("redis unavailable, balances held in memory", "err", err)
		store = session.NewMemoryStore()
	} else {
		store = session.NewRedisStore(storage.Rdb)
	}
	registry := session.NewRegistry(store, config.C.Game.OpeningBalance)

	//-------------------------------------------------------
	// 2. Settlement ledger (optional)
	//-------------------------------------------------------
	var ledger room.Ledger
	if dsn := config.C.Ledger.DSN; dsn != "" {
		if err := storage.InitPostgres(dsn); err != nil {
			utils.Log.Warn("postgres unavailable, settlements not recorded", "err", err)
		} else {
			ledger = storage.PGLedger{}
		}
	}

	//-------------------------------------------------------
	// 3. Gin + CORS
	//-------------------------------------------------------
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	//-------------------------------------------------------
	// 4. Hub (must be running before any client connects)
	//-------------------------------------------------------
	hub := websocket.NewHub()
	go hub.Run()

	//-------------------------------------------------------
	// 5. Room manager wired to the hub
	//-------------------------------------------------------
	mgr := room.NewManager(hub, registry,
		room.GameConfig{
			NumDecks:       config.C.Game.NumDecks,
			MaxSeats:       config.C.Game.MaxSeats,
			OpeningBalance: config.C.Game.OpeningBalance,
		},
		room.Config{
			TurnTimeout:  config.C.Game.TurnTimeout,
			BetTimeout:   config.C.Game.BetTimeout,
			RevealDelay:  config.C.Game.RevealDelay,
			ResultsDelay: config.C.Game.ResultsDelay,
		},
		ledger,
	)
	hub.OnIncoming = mgr.HandleIncoming
	hub.OnDisconnect = mgr.HandleDisconnect

	authGroup := r.Group("/auth")
	{
		ah := auth.NewHandler(registry)
		authGroup.POST("/login", ah.Login)
	}

	//-------------------------------------------------------
	// 6. Authenticated surface: websocket + lobby
	//-------------------------------------------------------
	secret := []byte(config.C.JWT.Secret)
	authed := r.Group("/", middleware.JwtAuthMiddleware(secret))
	{
		authed.GET("/ws", websocket.ServeWS(hub))

		lh := lobby.NewHandler(mgr)
		authed.GET("/rooms", lh.List)
		authed.POST("/rooms", lh.Create)
		authed.POST("/rooms/:id/join", lh.Join)
	}

	utils.Log.Info("server running", "addr", config.C.Server.Port)
	if err := r.Run(config.C.Server.Port); err != nil {
		utils.Log.Fatal("server exited", "err", err)
	}
}
