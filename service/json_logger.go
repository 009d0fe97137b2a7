package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aiwolfdial/studybuddy/model"
	"github.com/aiwolfdial/studybuddy/util"
)

type JSONLogger struct {
	mu               sync.Mutex
	data             map[string]*JSONLog
	outputDir        string
	templateFilename string
}

type JSONLog struct {
	id       string
	filename string
	players  []any
	winSide  model.Team
	entries  []any
}

func NewJSONLogger(config model.Config) *JSONLogger {
	return &JSONLogger{
		data:             make(map[string]*JSONLog),
		outputDir:        config.JSONLogger.OutputDir,
		templateFilename: config.JSONLogger.Filename,
	}
}

func (j *JSONLogger) TrackStartGame(id string, players []model.Player) {
	j.mu.Lock()
	defer j.mu.Unlock()
	data := &JSONLog{
		id:       id,
		filename: expandFilename(j.templateFilename, id),
		players:  make([]any, 0, len(players)),
		winSide:  model.T_NONE,
		entries:  make([]any, 0),
	}
	for _, player := range players {
		data.players = append(data.players,
			map[string]any{
				"id":     player.ID,
				"team":   player.Role.Team,
				"name":   player.Name,
				"role":   player.Role,
				"isUser": player.IsUser,
			},
		)
	}
	j.data[id] = data
}

func (j *JSONLogger) TrackEndGame(id string, winSide model.Team) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if data, exists := j.data[id]; exists {
		data.winSide = winSide
		j.saveGameData(id)
		delete(j.data, id)
	}
}

func (j *JSONLogger) TrackRequest(id string, kind string, request string, requestedAt time.Time, response string, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if data, exists := j.data[id]; exists {
		entry := map[string]any{
			"kind":               kind,
			"request":            request,
			"request_timestamp":  requestedAt.UnixMilli(),
			"response_timestamp": time.Now().UnixMilli(),
		}
		if response != "" {
			entry["response"] = response
		}
		if err != nil {
			entry["error"] = err.Error()
		}
		data.entries = append(data.entries, entry)
		j.saveGameData(id)
	}
}

// Wrap records every narrator exchange of a tracked game. The game is taken from the
// request context.
func (j *JSONLogger) Wrap(oracle Oracle) Oracle {
	return &recordingOracle{
		Oracle: oracle,
		logger: j,
	}
}

type recordingOracle struct {
	Oracle
	logger *JSONLogger
}

func (r *recordingOracle) Narrate(ctx context.Context, prompt string, history []model.ConversationTurn) (string, error) {
	requestedAt := time.Now()
	response, err := r.Oracle.Narrate(ctx, prompt, history)
	if id := util.GameIDFromContext(ctx); id != "" {
		r.logger.TrackRequest(id, "narrate", prompt, requestedAt, response, err)
	}
	return response, err
}

func (j *JSONLogger) saveGameData(id string) {
	if data, exists := j.data[id]; exists {
		game := map[string]any{
			"game_id":  id,
			"win_side": data.winSide,
			"players":  data.players,
			"entries":  data.entries,
		}
		jsonData, err := json.Marshal(game)
		if err != nil {
			return
		}
		if _, err := os.Stat(j.outputDir); os.IsNotExist(err) {
			os.MkdirAll(j.outputDir, 0755)
		}
		filePath := filepath.Join(j.outputDir, fmt.Sprintf("%s.json", data.filename))
		file, err := os.Create(filePath)
		if err != nil {
			return
		}
		defer file.Close()
		file.Write(jsonData)
	}
}

func expandFilename(template string, id string) string {
	filename := strings.ReplaceAll(template, "{game_id}", id)
	filename = strings.ReplaceAll(filename, "{timestamp}", fmt.Sprintf("%d", time.Now().Unix()))
	return filename
}
