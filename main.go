package main

import (
	"context"
	"log/slog"
	"omiweather/app/api"
	"omiweather/app/client/geocoding"
	"omiweather/app/client/llm"
	"omiweather/app/client/openweather"
	"omiweather/app/config"
	"omiweather/app/service/assistant"
	"omiweather/app/service/cooldown"
	"omiweather/app/service/janitor"
	"omiweather/app/service/location"
	"omiweather/app/service/session"
	"omiweather/app/service/trigger"
	"omiweather/app/service/weather"
	"omiweather/app/util/mylog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, llm.NewClient)
	do.Provide(di, geocoding.NewClient)
	do.Provide(di, openweather.NewClient)
	do.Provide(di, location.New)
	do.Provide(di, weather.New)
	do.Provide(di, session.New)
	do.Provide(di, cooldown.New)
	do.Provide(di, trigger.New)
	do.Provide(di, assistant.New)
	do.Provide(di, janitor.New)
	do.Provide(di, api.New)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	server := do.MustInvoke[*api.Server](di)

	group, groupCtx := errgroup.WithContext(appCtx)
	group.Go(func() error {
		return server.Run()
	})
	group.Go(func() error {
		do.MustInvoke[*janitor.Service](di).Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		return server.Shutdown()
	})

	slog.Info("Service started", "addr", cfg.Server.Addr)

	if err = group.Wait(); err != nil {
		slog.Error("Service stopped with error", "error", err)
	}
}
