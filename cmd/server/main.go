package main

import (
	"log"

	httpapi "gungi-server/internal/api/http"
	"gungi-server/internal/api/ws"
	"gungi-server/internal/config"
	"gungi-server/internal/session"
	"gungi-server/internal/store"

	_ "gungi-server/docs"
)

// @title Gungi.io Session Server API
// @version 1.0
// @description HTTP surface of the realtime Gungi session server
// @BasePath /
func main() {
	cfg := config.Load()

	mem := store.NewMemoryStore()
	manager := session.NewManager(mem, cfg, nil)
	hub := ws.NewHub(manager, cfg)
	manager.SetBroadcaster(hub)

	r := httpapi.SetupRouter(manager, hub, cfg)

	log.Printf("server started at %s", cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal(err)
	}
}
