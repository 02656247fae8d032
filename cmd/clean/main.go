package main

import (
	"context"
	"time"

	aclean "github.com/airenas/async-api/pkg/clean"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/clean"
	"github.com/airenas/scribe/internal/pkg/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	data := &clean.Data{}
	data.Port = cfg.GetInt("port")

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	sweeper, err := postgres.NewJobSweeper(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}

	expire := cfg.GetDuration("timer.expire")
	if expire <= 0 {
		expire = time.Hour
	}
	staleJobs, err := postgres.NewStaleJobs(dbPool, expire)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init IDs provider")
	}
	provider := &clean.StaleProvider{Jobs: staleJobs, Chats: staleJobs}

	printBanner()

	cleaner := &aclean.CleanerGroup{}
	cleaner.Jobs = append(cleaner.Jobs, sweeper)

	data.Cleaner = cleaner
	data.Provider = provider

	tData := aclean.TimerData{}
	tData.IDsProvider = provider
	tData.RunEvery = cfg.GetDuration("timer.runEvery")
	if tData.RunEvery <= 0 {
		tData.RunEvery = 10 * time.Minute
	}
	tData.Cleaner = cleaner

	goapp.Log.Info().Dur("duration", expire).Msg("expire")

	ctxTimer, cancelFunc := context.WithCancel(ctx)
	doneCh, err := aclean.StartCleanTimer(ctxTimer, &tData)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start timer")
	}
	err = clean.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
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
  _____/ /__  ____ _____
 / ___/ / _ \/ __ ` + "`" + `/ __ \
/ /__/ /  __/ /_/ / / / /
\___/_/\___/\__,_/_/ /_/

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/scribe"))
}
