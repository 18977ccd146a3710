package main

import (
	"flag"
	"ip_forest/internal/config"
	"ip_forest/internal/forest"
	"ip_forest/internal/metrics"
	"ip_forest/internal/server"
	"ip_forest/internal/utils"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	var basePath string
	var printMetrics bool
	flag.StringVar(&basePath, "prefix", "", "Config file base path")
	flag.BoolVar(&printMetrics, "metrics-doc", false, "Print the metrics documentation and exit")
	flag.Parse()

	if printMetrics {
		os.Stdout.WriteString(metrics.GetDocumentation())
		return
	}

	// Load MainConfig
	cfg, err := config.LoadMainConfig(basePath)
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}

	logx := utils.NewManager(cfg.LogPath)
	defer logx.Close()
	utils.SetDefaultManager(logx)

	// Load rules
	ipForest := forest.NewForest(cfg.BucketCount, logx.Logger("forest"))
	ruleSet, err := config.LoadRules(cfg, ipForest)
	if err != nil {
		log.Fatalf("Load rules failed: %v", err)
	}

	log.Printf("Loaded %d ip sets, ready to start server on port %s", len(ipForest.Names()), cfg.Port)

	// Start server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.StartServer(cfg, ruleSet)
	}()

	select {
	case <-stop:
		log.Println("Stopping server...")
	case err := <-serverErr:
		if err != nil {
			logx.Close()
			log.Fatalf("Failed to start server: %v", err)
		}
	}

	log.Println("Server stopped")
}
