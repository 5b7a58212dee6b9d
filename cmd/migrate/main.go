package main

import (
	"fmt"
	"os"

	"taskManager/internal/config"
	"taskManager/internal/logger"
	"taskManager/internal/migrations"

	"github.com/spf13/pflag"
)

const usage = `Использование: migrate [флаги] up|down|version

Флаги:
`

func main() {
	configPath := pflag.StringP("config", "c", config.DefaultPath, "путь к YAML конфигу")
	databaseURL := pflag.String("database-url", "", "строка подключения PostgreSQL, перекрывает конфиг")
	steps := pflag.Int("steps", 0, "сколько миграций откатить для down; 0 значит все")
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}

	if err := run(pflag.Arg(0), *configPath, *databaseURL, *steps); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(command, configPath, databaseURL string, steps int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("загрузка конфига: %w", err)
	}
	if err := logger.Init(cfg.Logging.Development); err != nil {
		return err
	}
	defer logger.Sync()

	if databaseURL == "" {
		databaseURL = cfg.Database.URL
	}
	if databaseURL == "" {
		return fmt.Errorf("не задан database.url")
	}

	switch command {
	case "up":
		return migrations.Up(databaseURL)
	case "down":
		return migrations.Down(databaseURL, steps)
	case "version":
		version, dirty, err := migrations.Version(databaseURL)
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("неизвестная команда %q", command)
	}
}
