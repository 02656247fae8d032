package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/gate"
	"github.com/airenas/scribe/internal/pkg/media"
	"github.com/airenas/scribe/internal/pkg/postgres"
	"github.com/airenas/scribe/internal/pkg/telegram"
	"github.com/airenas/scribe/internal/pkg/transcriber"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/airenas/scribe/internal/pkg/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	data := &worker.ServiceData{}
	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}

	goapp.Log.Info().Int32("max_conn", dbConfig.MaxConns).Int32("min_conn", dbConfig.MinConns).Msg("db info")

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	if err := db.EnsureSchema(ctx); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db schema")
	}
	data.DB = db

	data.GueClient, err = gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue")
	}
	data.WorkerCount = defaultV(cfg.GetInt("worker.count"), 3)
	data.Testing = cfg.GetBool("worker.testing")
	data.TempDir = defaultV(cfg.GetString("worker.tempDir"), os.TempDir())
	data.MaxFileSizeMB = defaultV(cfg.GetInt("worker.maxFileSizeMB"), 20)
	data.Timeout = cfg.GetDuration("worker.timeout")
	data.MsgSender, err = postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}

	tg, err := telegram.NewClient(defaultV(cfg.GetString("telegram.url"), "https://api.telegram.org"), cfg.GetString("telegram.token"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init telegram")
	}
	data.Messenger = tg
	data.Fetcher = tg

	data.Normalizer, err = media.NewNormalizer(defaultV(cfg.GetString("tools.ffmpeg"), "ffmpeg"), data.TempDir)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init normalizer")
	}
	data.Prober, err = media.NewProber(defaultV(cfg.GetString("tools.ffprobe"), "ffprobe"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init prober")
	}
	data.Gate = gate.New(defaultV(cfg.GetInt("worker.maxConversions"), 3))

	data.Transcriber, err = transcriber.NewClient(cfg.GetString("transcriber.url"), db,
		defaultV(cfg.GetDuration("transcriber.pollInterval"), 5*time.Second),
		defaultV(cfg.GetDuration("transcriber.maxWait"), 300*time.Second))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init transcriber")
	}

	printBanner()

	go utils.RunPerfEndpoint()

	ctx, cancelFunc := context.WithCancel(context.Background())
	doneCh, err := worker.StartWorkerService(ctx, data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start worker service")
	}
	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case <-doneCh:
		goapp.Log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
}

func defaultV[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
   _____           _ __
  / ___/__________(_) /_  ___
  \__ \/ ___/ ___/ / __ \/ _ \
 ___/ / /__/ /  / / /_/ /  __/
/____/\___/_/  /_/_.___/\___/   v: %s

                      __
 _      ______  _____/ /_____  _____
| | /| / / __ \/ ___/ //_/ _ \/ ___/
| |/ |/ / /_/ / /  / ,< /  __/ /
|__/|__/\____/_/  /_/|_|\___/_/

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/scribe"))
}
