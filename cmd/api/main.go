package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"taskManager/internal/app"
	"taskManager/internal/config"
	"taskManager/internal/logger"

	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", config.DefaultPath, "путь к YAML конфигу")
	pflag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("загрузка конфига: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg).Init(ctx)
	if err != nil {
		return err
	}

	if err := a.Run(ctx); err != nil {
		logger.Error("Сервер остановлен с ошибкой", err)
		return err
	}
	return nil
}
