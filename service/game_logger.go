package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aiwolfdial/studybuddy/model"
)

type GameLogger struct {
	mu               sync.Mutex
	logsData         map[string]*GameLog
	outputDir        string
	templateFilename string
}

type GameLog struct {
	id       string
	filename string
	logs     []string
}

func NewGameLogger(config model.Config) *GameLogger {
	return &GameLogger{
		logsData:         make(map[string]*GameLog),
		outputDir:        config.GameLogger.OutputDir,
		templateFilename: config.GameLogger.Filename,
	}
}

func (g *GameLogger) TrackStartGame(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logsData[id] = &GameLog{
		id:       id,
		filename: expandFilename(g.templateFilename, id),
		logs:     make([]string, 0),
	}
}

func (g *GameLogger) TrackEndGame(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.logsData[id]; exists {
		g.saveLog(id)
		delete(g.logsData, id)
	}
}

func (g *GameLogger) AppendLog(id string, log string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if logData, exists := g.logsData[id]; exists {
		logData.logs = append(logData.logs, log)
		g.saveLog(id)
	}
}

func (g *GameLogger) Filename(id string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if logData, exists := g.logsData[id]; exists {
		return filepath.Join(g.outputDir, fmt.Sprintf("%s.log", logData.filename))
	}
	return ""
}

func (g *GameLogger) saveLog(id string) {
	if logData, exists := g.logsData[id]; exists {
		str := strings.Join(logData.logs, "\n")
		if _, err := os.Stat(g.outputDir); os.IsNotExist(err) {
			os.MkdirAll(g.outputDir, 0755)
		}
		filePath := filepath.Join(g.outputDir, fmt.Sprintf("%s.log", logData.filename))
		file, err := os.Create(filePath)
		if err != nil {
			return
		}
		defer file.Close()
		file.WriteString(str)
	}
}
