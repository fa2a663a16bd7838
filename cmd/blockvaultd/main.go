// Command blockvaultd opens a volume from a config file and serves the
// adapter's binary protocol over TCP.
//
// Grounded on cmd/wicos64-server/main.go's flag-parse-then-bind-then-serve
// shape, adapted to pflag and zap per the rest of this stack.
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wanderer-labs/blockvault/internal/adapter"
	"github.com/wanderer-labs/blockvault/internal/config"
	"github.com/wanderer-labs/blockvault/internal/vault"
	"github.com/wanderer-labs/blockvault/internal/version"
)

func main() {
	var configPath string
	var showVersion bool

	pflag.StringVar(&configPath, "config", "", "Path to config JSON file (defaults built in if omitted)")
	pflag.BoolVar(&showVersion, "version", false, "Print version information and exit")
	pflag.Parse()

	if showVersion {
		fmt.Println(version.Get().String())
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "blockvaultd: load config:", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)
	defer log.Sync()

	log.Info("blockvaultd starting", zap.String("version", version.Get().String()), zap.String("listen", cfg.Listen))

	store, err := vault.Open(cfg.DataPath, cfg.DirPath, cfg.HashPath, cfg.NProcessors, log.Named("vault"))
	if err != nil {
		log.Fatal("open volume", zap.Error(err))
	}
	defer store.Close()

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		log.Fatal("listen", zap.String("addr", cfg.Listen), zap.Error(err))
	}

	srv := adapter.NewServer(store, log.Named("adapter"))
	log.Info("serving", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil {
		log.Fatal("serve", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	var zl zapcore.Level
	if err := zl.UnmarshalText([]byte(level)); err != nil {
		zl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zl)
	cfg.EncoderConfig.TimeKey = "ts"
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
