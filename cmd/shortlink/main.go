package main

import (
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/atinyakov/go-shortlink/internal/app/server"
	"github.com/atinyakov/go-shortlink/internal/app/service"
	"github.com/atinyakov/go-shortlink/internal/config"
	"github.com/atinyakov/go-shortlink/internal/logger"
	"github.com/atinyakov/go-shortlink/internal/repository"
	"github.com/atinyakov/go-shortlink/internal/storage"

	_ "net/http/pprof"
)

var buildVersion string
var buildDate string
var buildCommit string

func main() {
	options, err := config.Parse(os.Args[1:])
	if err != nil {
		panic(err)
	}
	if err := options.Validate(); err != nil {
		panic(err)
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)

	log := logger.New()
	defer func() {
		_ = log.Log.Sync()
	}()

	if err := log.Init("Info"); err != nil {
		panic(err)
	}
	zapLogger := log.Log

	if options.EnablePprof {
		go func() {
			zapLogger.Info("Starting pprof server", zap.String("addr", "localhost:6060"))
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				zapLogger.Error("pprof server error", zap.Error(err))
			}
		}()
	}

	var s storage.Storage

	if options.DatabaseDSN != "" {
		zapLogger.Info("using db")
		db := repository.InitDB(options.DatabaseDSN, zapLogger)
		defer db.Close()
		s = repository.CreateLinkRepository(db, zapLogger)
		zapLogger.Info("Database connected and tables ready.")
	} else {
		zapLogger.Info("using in memory storage")

		s, err = storage.CreateMemoryStorage()
		if err != nil {
			panic(err)
		}
	}

	codec, err := service.NewKeyCodec(s, options.Secret, zapLogger)
	if err != nil {
		panic(err)
	}

	auth := service.NewAuth(s, options.Secret)
	links := service.NewLinkService(s, options.Blocklist, zapLogger)

	r := server.Init(options.BaseURL, zapLogger, links, codec, auth)

	if options.EnableHTTPS {
		manager := &autocert.Manager{
			Cache:  autocert.DirCache("cache-dir"),
			Prompt: autocert.AcceptTOS,
		}
		srv := &http.Server{
			Addr:      ":443",
			Handler:   r,
			TLSConfig: manager.TLSConfig(),
		}
		zapLogger.Info("Server is running with TLS", zap.String("addr", options.Addr))
		if err := srv.ListenAndServeTLS("", ""); err != nil {
			panic(err)
		}
	} else {
		zapLogger.Info("Server is running", zap.String("addr", options.Addr))
		if err := http.ListenAndServe(options.Addr, r); err != nil {
			panic(err)
		}
	}
}
