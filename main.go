package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/jumpgame/broadcast"
	"github.com/wfunc/jumpgame/config"
	"github.com/wfunc/jumpgame/logger"
	"github.com/wfunc/jumpgame/match"
	"github.com/wfunc/jumpgame/monitor"
	"github.com/wfunc/jumpgame/persistence"
	"github.com/wfunc/jumpgame/room"
	"github.com/wfunc/jumpgame/rpc"
	"github.com/wfunc/jumpgame/server"
	"github.com/wfunc/jumpgame/services"
	"github.com/wfunc/jumpgame/session"
	"github.com/wfunc/jumpgame/world"
)

func openDatabase(cfg config.DatabaseConfig) (persistence.Database, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "", "memory":
		return persistence.NewMemory(), nil
	case "postgres":
		return persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "gorm":
		return persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	}
	return nil, persistence.ErrUnknownDriver
}

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	db, err := openDatabase(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Log.Infof("Database ready (%s).", cfg.Database.Driver)

	sessions := session.NewManager()
	broadcaster := broadcast.NewRoomBroadcaster(sessions)
	messenger := broadcast.NewSessionMessenger(sessions, broadcaster)
	mon := monitor.NewMonitor("jumpgame")
	arenas := services.NewArenaService(db)
	defer arenas.Close()

	// 竞技场地形，池子格子变化推送给房间内的客户端
	grid := world.NewGrid(cfg.Arena.Liquid...)
	grid.OnChange(messenger.CellChanged(cfg.Arena.ID))

	rooms := room.NewRoomManager()
	defer rooms.CloseAll()
	arena := rooms.CreateRoom(cfg.Arena.ID, room.Options{
		World:     messenger,
		Messenger: messenger,
		Namer:     messenger,
		Observer:  match.Observers{mon, arenas},
		Grid:      grid,
		Settings:  cfg.Settings(),
		PoolLimit: cfg.Game.PoolSizeLimit,
	})

	if err := arenas.Restore(arena); err != nil {
		logger.Log.Errorf("Failed to restore arena %s: %v", arena.ID, err)
	}
	if snap, _ := arena.Snapshot(); snap.PoolSize == 0 && cfg.Arena.PoolOrigin != nil {
		size, truncated, err := arena.DiscoverPool(*cfg.Arena.PoolOrigin)
		if err != nil {
			logger.Log.Warnf("No pool discovered at %s: %v", *cfg.Arena.PoolOrigin, err)
		} else if truncated {
			logger.Log.Warnf("Pool at %s truncated to %d cells", *cfg.Arena.PoolOrigin, size)
		}
	}

	// 管理RPC
	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, rpc.NewAdmin(rooms, sessions, arenas, messenger))
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	go rpcServer.Start()
	defer rpcServer.Stop()

	mon.StartServer(cfg.Server.MetricsAddress)

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, rooms, sessions, mon, arena.ID, cfg.Server.Heartbeat)
	go func() {
		if err := gameServer.Start(); err != nil {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Log.Info("Shutting down.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("Shutdown: %v", err)
	}
}
