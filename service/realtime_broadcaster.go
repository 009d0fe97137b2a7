package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aiwolfdial/studybuddy/model"
)

// RealtimeBroadcaster fans game packets out to live subscribers and, when an output
// directory is configured, keeps a JSONL record of every tracked game.
type RealtimeBroadcaster struct {
	outputDir   string
	filename    string
	bufferSize  int
	data        sync.Map
	subsMu      sync.Mutex
	subscribers map[string]map[*Subscriber]struct{}
}

type RealtimeBroadcasterLog struct {
	id        string
	filename  string
	logs      []string
	logsMu    sync.Mutex
	updatedAt time.Time
}

// Subscribers follow a session id; files are keyed by the game id of the packet, which
// changes when the session restarts.
type Subscriber struct {
	GameID string
	C      chan model.BroadcastPacket
}

func NewRealtimeBroadcaster(config model.Config) *RealtimeBroadcaster {
	rb := &RealtimeBroadcaster{
		outputDir:   config.RealtimeBroadcaster.OutputDir,
		filename:    config.RealtimeBroadcaster.Filename,
		bufferSize:  config.RealtimeBroadcaster.BufferSize,
		subscribers: make(map[string]map[*Subscriber]struct{}),
	}
	if rb.bufferSize <= 0 {
		rb.bufferSize = 16
	}
	if rb.outputDir == "" {
		return rb
	}
	if err := os.MkdirAll(rb.outputDir, 0755); err != nil {
		slog.Error("出力ディレクトリの作成に失敗しました", "error", err)
		return nil
	}
	if err := os.WriteFile(filepath.Join(rb.outputDir, "games.json"), []byte("[]"), 0644); err != nil {
		slog.Error("ゲーム一覧ファイルの初期化に失敗しました", "error", err)
		return nil
	}
	slog.Info("リアルタイムブロードキャスターを初期化しました", "output_dir", rb.outputDir)
	return rb
}

func (rb *RealtimeBroadcaster) TrackStartGame(id string, players []model.Player) {
	if rb.outputDir == "" {
		return
	}
	slog.Info("ゲームの記録を開始しました", "game_id", id, "players", len(players))
	gameLog := &RealtimeBroadcasterLog{
		id:        id,
		filename:  expandFilename(rb.filename, id),
		logs:      make([]string, 0),
		updatedAt: time.Now(),
	}
	rb.data.Store(id, gameLog)
}

func (rb *RealtimeBroadcaster) TrackEndGame(id string) {
	if gameLogInterface, exists := rb.data.Load(id); exists {
		gameLog := gameLogInterface.(*RealtimeBroadcasterLog)
		gameLog.logsMu.Lock()
		logs := make([]string, len(gameLog.logs))
		copy(logs, gameLog.logs)
		filename := gameLog.filename
		gameLog.logsMu.Unlock()

		rb.writeGameFile(filename, logs)
		rb.data.Delete(id)
		rb.writeGamesListFile()
	}
}

func (rb *RealtimeBroadcaster) Subscribe(id string) *Subscriber {
	sub := &Subscriber{
		GameID: id,
		C:      make(chan model.BroadcastPacket, rb.bufferSize),
	}
	rb.subsMu.Lock()
	defer rb.subsMu.Unlock()
	if _, exists := rb.subscribers[id]; !exists {
		rb.subscribers[id] = make(map[*Subscriber]struct{})
	}
	rb.subscribers[id][sub] = struct{}{}
	slog.Info("購読者を追加しました", "game_id", id)
	return sub
}

func (rb *RealtimeBroadcaster) Unsubscribe(sub *Subscriber) {
	rb.subsMu.Lock()
	defer rb.subsMu.Unlock()
	subs, exists := rb.subscribers[sub.GameID]
	if !exists {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.C)
	if len(subs) == 0 {
		delete(rb.subscribers, sub.GameID)
	}
}

// CloseGame disconnects every subscriber of a game.
func (rb *RealtimeBroadcaster) CloseGame(id string) {
	rb.subsMu.Lock()
	defer rb.subsMu.Unlock()
	for sub := range rb.subscribers[id] {
		close(sub.C)
	}
	delete(rb.subscribers, id)
}

func (rb *RealtimeBroadcaster) Broadcast(packet model.BroadcastPacket) {
	rb.publish(packet)

	key := packet.Game
	if key == "" {
		key = packet.Id
	}
	if gameLogInterface, exists := rb.data.Load(key); exists {
		data, err := json.Marshal(packet)
		if err != nil {
			slog.Error("パケットのJSON化に失敗しました", "error", err)
			return
		}
		gameLog := gameLogInterface.(*RealtimeBroadcasterLog)
		gameLog.logsMu.Lock()
		gameLog.logs = append(gameLog.logs, string(data))
		gameLog.updatedAt = time.Now()
		logs := make([]string, len(gameLog.logs))
		copy(logs, gameLog.logs)
		filename := gameLog.filename
		gameLog.logsMu.Unlock()

		rb.writeGameFile(filename, logs)
		rb.writeGamesListFile()
	}
}

func (rb *RealtimeBroadcaster) publish(packet model.BroadcastPacket) {
	rb.subsMu.Lock()
	defer rb.subsMu.Unlock()
	for sub := range rb.subscribers[packet.Id] {
		select {
		case sub.C <- packet:
		default:
			slog.Warn("購読者のバッファが一杯のためパケットを破棄しました", "game_id", packet.Id, "idx", packet.Idx)
		}
	}
}

func (rb *RealtimeBroadcaster) writeGamesListFile() {
	type Item struct {
		ID        string    `json:"id"`
		Filename  string    `json:"filename"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	items := make([]Item, 0)
	rb.data.Range(func(_, value any) bool {
		gameLog := value.(*RealtimeBroadcasterLog)
		gameLog.logsMu.Lock()
		items = append(items, Item{
			ID:        gameLog.id,
			Filename:  gameLog.filename,
			UpdatedAt: gameLog.updatedAt,
		})
		gameLog.logsMu.Unlock()
		return true
	})

	data, err := json.Marshal(items)
	if err != nil {
		slog.Error("ゲーム一覧のJSON生成に失敗しました", "error", err)
		return
	}
	filePath := filepath.Join(rb.outputDir, "games.json")
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		slog.Error("ゲーム一覧ファイルの作成に失敗しました", "error", err)
	}
}

func (rb *RealtimeBroadcaster) writeGameFile(filename string, logs []string) {
	filePath := filepath.Join(rb.outputDir, fmt.Sprintf("%s.jsonl", filename))
	content := strings.Join(logs, "\n")
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		slog.Error("ゲームファイルの保存に失敗しました", "error", err, "path", filePath)
	}
}
