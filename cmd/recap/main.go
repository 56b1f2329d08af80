// Command recap writes an attendance recap as CSV from the configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"schoolattendance/internal/account"
	"schoolattendance/internal/config"
	"schoolattendance/internal/logger"
	"schoolattendance/internal/recap"
	"schoolattendance/internal/state"
	"schoolattendance/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("config: %v", err)
	}
	logger.Init(cfg.Env, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	backend, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		DatabaseURL: cfg.DatabaseURL,
		RedisAddr:   cfg.RedisAddr,
		KeyPrefix:   cfg.StoreKeyPrefix,
	})
	if err != nil {
		logger.Log.Fatalf("store: %v", err)
	}
	defer backend.Close()

	if err := run(ctx, os.Args[1:], backend.KV, cfg, os.Stdout); err != nil {
		logger.Log.Fatalf("recap: %v", err)
	}
}

func run(ctx context.Context, args []string, kv store.KV, cfg config.App, stdout io.Writer) error {
	fs := flag.NewFlagSet("recap", flag.ContinueOnError)
	period := fs.String("period", "daily", "daily, monthly or semester")
	out := fs.String("out", "", "output file, stdout when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := recap.ParsePeriod(*period)
	if err != nil {
		return err
	}

	seed, err := account.SeedUsers(bcrypt.MinCost)
	if err != nil {
		return err
	}
	st, err := state.Load(ctx, kv, state.Defaults{Users: seed, Config: cfg.DefaultSchool}, nil)
	if err != nil {
		return err
	}

	now := time.Now().In(cfg.Location)
	rows := recap.Aggregate(st.Records(), st.Students(), p, now)

	w := stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := recap.WriteCSV(w, rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	logger.Component("recap").WithFields(logrus.Fields{"period": p, "students": len(rows), "file": recap.FileName(p, now)}).Info("recap written")
	return nil
}
