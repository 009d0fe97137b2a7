package model

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host           string `yaml:"host"`
		Port           int    `yaml:"port"`
		Authentication struct {
			Enable bool   `yaml:"enable"`
			Secret string `yaml:"secret"`
		} `yaml:"authentication"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Oracle struct {
		Provider          string        `yaml:"provider"`
		BaseURL           string        `yaml:"base_url"`
		NarratorModel     string        `yaml:"narrator_model"`
		AssistantModel    string        `yaml:"assistant_model"`
		SystemInstruction string        `yaml:"system_instruction"`
		Timeout           time.Duration `yaml:"timeout"`
	} `yaml:"oracle"`
	Mafia struct {
		PlayerNames []string `yaml:"player_names"`
		MaxSessions int      `yaml:"max_sessions"`
	} `yaml:"mafia"`
	Chat struct {
		MaxSessions int `yaml:"max_sessions"`
	} `yaml:"chat"`
	Grades struct {
		SheetID string        `yaml:"sheet_id"`
		Range   string        `yaml:"range"`
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"grades"`
	Schedule struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"schedule"`
	GameLogger struct {
		Enable    bool   `yaml:"enable"`
		OutputDir string `yaml:"output_dir"`
		Filename  string `yaml:"filename"`
	} `yaml:"game_logger"`
	JSONLogger struct {
		Enable    bool   `yaml:"enable"`
		OutputDir string `yaml:"output_dir"`
		Filename  string `yaml:"filename"`
	} `yaml:"json_logger"`
	RealtimeBroadcaster struct {
		Enable     bool   `yaml:"enable"`
		OutputDir  string `yaml:"output_dir"`
		Filename   string `yaml:"filename"`
		BufferSize int    `yaml:"buffer_size"`
	} `yaml:"realtime_broadcaster"`
	Metrics struct {
		Enable bool   `yaml:"enable"`
		Path   string `yaml:"path"`
	} `yaml:"metrics"`
}

func DefaultConfig() Config {
	var config Config
	config.Server.Host = "127.0.0.1"
	config.Server.Port = 8080
	config.Log.Level = "info"
	config.Log.Format = "text"
	config.Oracle.Provider = "gemini"
	config.Oracle.BaseURL = "https://api.openai.com/v1"
	config.Oracle.NarratorModel = "gemini-2.5-pro"
	config.Oracle.AssistantModel = "gemini-2.5-flash"
	config.Oracle.SystemInstruction = "You are a helpful AI assistant for a student. Be concise and helpful."
	config.Oracle.Timeout = 60 * time.Second
	config.Mafia.PlayerNames = []string{"Игрок 1", "Игрок 2", "Игрок 3", "Игрок 4", "Игрок 5"}
	config.Mafia.MaxSessions = 64
	config.Chat.MaxSessions = 256
	config.Grades.Range = "Sheet1!A2:E"
	config.Grades.BaseURL = "https://sheets.googleapis.com/v4"
	config.Grades.Timeout = 10 * time.Second
	config.Schedule.Driver = "memory"
	config.Schedule.Path = "./data/schedule.db"
	config.GameLogger.OutputDir = "./log/game"
	config.GameLogger.Filename = "{game_id}"
	config.JSONLogger.OutputDir = "./log/json"
	config.JSONLogger.Filename = "{game_id}"
	config.RealtimeBroadcaster.OutputDir = "./log/realtime"
	config.RealtimeBroadcaster.Filename = "{game_id}"
	config.RealtimeBroadcaster.BufferSize = 16
	config.Metrics.Path = "/metrics"
	return config
}

func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("設定ファイルの読み込みに失敗しました", "error", err)
		return nil, err
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		slog.Error("設定ファイルのパースに失敗しました", "error", err)
		return nil, err
	}
	if err := config.Validate(); err != nil {
		slog.Error("設定ファイルの検証に失敗しました", "error", err)
		return nil, err
	}
	return &config, nil
}

func (c Config) Validate() error {
	switch c.Oracle.Provider {
	case "gemini", "openai":
	default:
		return errors.New("不明なオラクルプロバイダがあります")
	}
	switch c.Schedule.Driver {
	case "memory", "sqlite":
	default:
		return errors.New("不明な時間割ストアがあります")
	}
	if len(c.Mafia.PlayerNames) != 0 && len(c.Mafia.PlayerNames) != 5 {
		return errors.New("プレイヤー名は5人分必要です")
	}
	if c.Oracle.Timeout <= 0 {
		return errors.New("オラクルのタイムアウトが不正です")
	}
	return nil
}
