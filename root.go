package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aiwolfdial/studybuddy/core"
	"github.com/aiwolfdial/studybuddy/model"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version  = "dev"
	revision = "unknown"
	build    = "unknown"
)

var (
	configPath string
	envPath    string
)

var rootCmd = &cobra.Command{
	Use:   "studybuddy",
	Short: "Student schedule, grades, assistant chat and an AI-refereed Mafia game",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config/default.yml", "設定ファイルのパス")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "環境変数ファイルのパス")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.Version = version
}

func main() {
	core.SetVersion(version, revision, build)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the .env file when present and then the YAML config. A missing
// config file falls back to the defaults.
func loadConfig() (*model.Config, error) {
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("環境変数ファイルの読み込みに失敗しました", "path", envPath, "error", err)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Warn("設定ファイルが見つからないため、デフォルト設定を使用します", "path", configPath)
		config := model.DefaultConfig()
		return &config, nil
	}
	return model.LoadFromPath(configPath)
}

func setupLogger(config *model.Config) {
	var level slog.Level
	switch strings.ToLower(config.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, options)
	if config.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	slog.SetDefault(slog.New(handler))
}
