package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sonar-ng/internal/config"
	"sonar-ng/internal/web"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./dev.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logs := web.NewLogBuffer(cfg.Web.LogLines)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newRuntime(cfg)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer rt.Close()

	log.Printf("sonar-ng starting")
	log.Printf("trigger period=%s pulse=%s queues=%d/%d", cfg.Trigger.Period, cfg.Trigger.Pulse, cfg.Pipeline.PulseQueue, cfg.Pipeline.DistanceQueue)

	if cfg.Web.Listen != "" {
		go func() {
			log.Printf("web listening on %s", cfg.Web.Listen)
			if err := web.Serve(ctx, cfg.Web.Listen, rt.status, logs); err != nil && ctx.Err() == nil {
				log.Printf("web server stopped: %v", err)
			}
		}()
	}

	rt.Run(ctx)
	log.Printf("sonar-ng stopping")
}
