package main

import (
	"context"
	"net/http"
	"time"

	"CardParlor/config"
	"CardParlor/internal/logging"
	"CardParlor/internal/room"
	"CardParlor/internal/storage"
	"CardParlor/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	config.Load()
	logging.Init()

	//-------------------------------------------------------
	// 1. Room registry: memory by default, Redis when enabled
	//-------------------------------------------------------
	var repo room.Repo
	if config.C.Redis.Enabled {
		rdb, err := storage.NewRedis(
			config.C.Redis.Addr,
			config.C.Redis.Password,
			config.C.Redis.DB,
		)
		if err != nil {
			logging.L.Fatal("Redis init failed", "err", err)
		}
		repo = room.NewRedisRepo(rdb, config.C.Room.TTLSeconds)
	} else {
		repo = room.NewMemoryRepo()
	}

	//-------------------------------------------------------
	// 2. Gin + CORS
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
	// 3. Hub (must start before any client connects)
	//-------------------------------------------------------
	hub := websocket.NewHub()
	go hub.Run()

	//-------------------------------------------------------
	// 4. Session gateway
	//-------------------------------------------------------
	svc := room.NewService(repo, hub)
	hub.OnIncoming = svc.HandleIncoming
	hub.OnDisconnect = func(connID string) {
		svc.Disconnect(context.Background(), connID)
	}

	//-------------------------------------------------------
	// 5. Idle room eviction (Redis evicts via key TTL)
	//-------------------------------------------------------
	if sweeper, ok := repo.(room.Sweeper); ok {
		ttl := time.Duration(config.C.Room.TTLSeconds) * time.Second
		interval := time.Duration(config.C.Room.SweepInterval) * time.Second
		go func() {
			for range time.Tick(interval) {
				if n := sweeper.Sweep(ttl); n > 0 {
					logging.L.Info("swept idle rooms", "count", n)
				}
			}
		}()
	}

	//-------------------------------------------------------
	// 6. Routes
	//-------------------------------------------------------
	r.GET("/ws", websocket.ServeWS(hub))

	rh := room.NewHandler(svc)
	r.GET("/rooms/:roomId", rh.GetRoom)

	//-------------------------------------------------------
	// 7. Serve
	//-------------------------------------------------------
	logging.L.Info("server running", "port", config.C.Server.Port)
	if err := r.Run(config.C.Server.Port); err != nil {
		logging.L.Fatal("server exited", "err", err)
	}
}
