package main

import (
	"context"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/bot"
	"github.com/airenas/scribe/internal/pkg/postgres"
	"github.com/airenas/scribe/internal/pkg/telegram"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &bot.Data{}
	data.Port = cfg.GetInt("bot.port")
	data.Secret = cfg.GetString("bot.secret")
	data.RateLimit = cfg.GetDuration("bot.rateLimit")
	var err error
	data.Admins, err = utils.ParseIDs(cfg.GetStringSlice("admin.chatIDs"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't parse admin IDs")
	}

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	addDBLog(dbConfig)

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	data.DB = db

	tgURL := cfg.GetString("telegram.url")
	if tgURL == "" {
		tgURL = "https://api.telegram.org"
	}
	data.Messenger, err = telegram.NewClient(tgURL, cfg.GetString("telegram.token"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init telegram")
	}

	data.MsgSender, err = postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}

	err = bot.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
}

func addDBLog(dbConfig *pgxpool.Config) {
	dbConfig.AfterConnect = func(ctx context.Context, c *pgx.Conn) error {
		goapp.Log.Info().Uint32("pid", c.PgConn().PID()).Msg("db connected")
		return nil
	}
	dbConfig.BeforeAcquire = func(ctx context.Context, c *pgx.Conn) bool {
		goapp.Log.Debug().Msg("before acquire")
		return true
	}
	dbConfig.AfterRelease = func(c *pgx.Conn) bool {
		goapp.Log.Debug().Msg("after release")
		return true
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

    __          __
   / /_  ____  / /_
  / __ \/ __ \/ __/
 / /_/ / /_/ / /_
/_.___/\____/\__/

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/scribe"))
}
