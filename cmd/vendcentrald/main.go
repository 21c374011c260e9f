package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/vendlink/vendcentral/config"
	"github.com/vendlink/vendcentral/internal/api"
	"github.com/vendlink/vendcentral/internal/app"
	"github.com/vendlink/vendcentral/internal/webserver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	h        = flag.Bool("h", false, "help usage")
	showVer  = flag.Bool("v", false, "show version")
	conffile = flag.String("c", "vendcentral.yml", "config yaml file")
	initdb   = flag.Bool("initdb", false, "drop and recreate all tables, exit")
)

func main() {
	flag.Parse()
	if *h {
		flag.Usage()
		os.Exit(0)
	}

	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "loaded .env")
	}

	cfg := config.LoadConfig(*conffile)
	if *showVer {
		fmt.Println(cfg.System.Appid, cfg.System.Version)
		os.Exit(0)
	}

	_ = os.MkdirAll(cfg.System.Workdir, 0o755)

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.S().Info("database initialized")
		return
	}

	server := webserver.New(cfg)
	handler := api.NewHandler(
		application.Catalog(),
		application.Settlement(),
		application.Directory(),
		application.Fleet(),
		cfg.System.Version,
	)
	handler.Register(server.Echo())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zap.L().Fatal("server exited", zap.Error(err))
	}
}
