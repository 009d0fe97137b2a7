package logic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aiwolfdial/studybuddy/model"
	"github.com/aiwolfdial/studybuddy/service"
	"github.com/aiwolfdial/studybuddy/util"
	"github.com/oklog/ulid/v2"
)

type ControllerStatus string

const (
	CS_NOT_STARTED         ControllerStatus = "not_started"
	CS_AWAITING_ORACLE     ControllerStatus = "awaiting_oracle"
	CS_AWAITING_HUMAN_VOTE ControllerStatus = "awaiting_human_vote"
	CS_ENDED               ControllerStatus = "ended"
)

type Snapshot struct {
	ID     string           `json:"id"`
	GameID string           `json:"gameId"`
	Status ControllerStatus `json:"status"`
	Busy   bool             `json:"busy"`
	Error  string           `json:"error,omitempty"`
	Turns  int              `json:"turns"`
	State  model.GameState  `json:"state"`
}

// Controller owns one game session. At most one narrator call is in flight; the lock
// is released while waiting for it and the new state is swapped in afterwards.
// ID names the session and stays fixed; every dealt game gets its own gameID for records.
type Controller struct {
	ID                           string
	gameID                       string
	mu                           sync.Mutex
	sendMu                       sync.Mutex
	pending                      []func()
	closed                       bool
	narrator                     *Narrator
	rng                          *rand.Rand
	names                        []string
	state                        model.GameState
	status                       ControllerStatus
	busy                         bool
	lastErr                      error
	turns                        int
	jsonLogger                   *service.JSONLogger
	gameLogger                   *service.GameLogger
	realtimeBroadcaster          *service.RealtimeBroadcaster
	realtimeBroadcasterPacketIdx int
	metrics                      *service.Metrics
}

func NewController(config *model.Config, oracle Oracle, rng *rand.Rand) *Controller {
	id := ulid.Make().String()
	slog.Info("ゲームを作成しました", "id", id)
	return &Controller{
		ID:       id,
		narrator: NewNarrator(oracle, config.Oracle.Timeout),
		rng:      rng,
		names:    config.Mafia.PlayerNames,
		status:   CS_NOT_STARTED,
	}
}

func (c *Controller) SetJSONLogger(jsonLogger *service.JSONLogger) {
	c.jsonLogger = jsonLogger
}

func (c *Controller) SetGameLogger(gameLogger *service.GameLogger) {
	c.gameLogger = gameLogger
}

func (c *Controller) SetRealtimeBroadcaster(realtimeBroadcaster *service.RealtimeBroadcaster) {
	c.realtimeBroadcaster = realtimeBroadcaster
}

func (c *Controller) SetMetrics(metrics *service.Metrics) {
	c.metrics = metrics
}

func (c *Controller) Start(ctx context.Context) error {
	return c.runTurns(ctx, nil, func() error {
		if c.status != CS_NOT_STARTED {
			return ErrAlreadyStarted
		}
		c.reset()
		return nil
	})
}

// Restart discards the current game, deals a new roster and plays the first night.
func (c *Controller) Restart(ctx context.Context) error {
	return c.runTurns(ctx, nil, func() error {
		c.finishRecords()
		c.reset()
		return nil
	})
}

func (c *Controller) Vote(ctx context.Context, targetID int) error {
	return c.Act(ctx, *model.NewVoteAction(targetID))
}

func (c *Controller) Act(ctx context.Context, action model.HumanAction) error {
	return c.runTurns(ctx, &action, func() error {
		return c.validateAction(action)
	})
}

// Advance retries a turn that does not need human input, typically after a failure.
func (c *Controller) Advance(ctx context.Context) error {
	return c.runTurns(ctx, nil, func() error {
		switch c.status {
		case CS_NOT_STARTED:
			return ErrNotStarted
		case CS_ENDED:
			return ErrGameEnded
		case CS_AWAITING_HUMAN_VOTE:
			return ErrAwaitingVote
		}
		return nil
	})
}

func (c *Controller) DismissError() {
	c.mu.Lock()
	c.lastErr = nil
	c.broadcastLocked("エラー解除", nil)
	c.unlockAndFlush()
}

// Close flushes the records of an unfinished game. A turn still waiting on the
// narrator is discarded when it returns.
func (c *Controller) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		c.finishRecords()
		c.status = CS_NOT_STARTED
		slog.Info("ゲームを破棄しました", "id", c.ID, "game", c.gameID)
	}
	c.unlockAndFlush()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := Snapshot{
		ID:     c.ID,
		GameID: c.gameID,
		Status: c.status,
		Busy:   c.busy,
		Turns:  c.turns,
		State:  c.state.Redacted(),
	}
	if c.lastErr != nil {
		snapshot.Error = c.lastErr.Error()
	}
	return snapshot
}

// State returns the full state including hidden roles and history.
func (c *Controller) State() model.GameState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

func (c *Controller) Status() ControllerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) runTurns(ctx context.Context, action *model.HumanAction, begin func() error) error {
	first := true
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrClosed
		}
		if first {
			if c.busy {
				c.mu.Unlock()
				return ErrBusy
			}
			if err := begin(); err != nil {
				c.unlockAndFlush()
				return err
			}
			ctx = util.WithGameID(ctx, c.gameID)
		} else if c.busy || c.status != CS_AWAITING_ORACLE {
			c.mu.Unlock()
			return nil
		}
		if err := ctx.Err(); err != nil {
			c.unlockAndFlush()
			return err
		}
		prior := c.state
		prevStatus := c.status
		c.busy = true
		c.lastErr = nil
		c.broadcastLocked("処理中", nil)
		c.unlockAndFlush()

		start := time.Now()
		next, err := c.playTurn(ctx, prior, action)

		c.mu.Lock()
		c.busy = false
		if c.metrics != nil {
			c.metrics.ObserveTurn(prior.Phase, turnOutcome(err), time.Since(start))
		}
		if c.closed {
			c.mu.Unlock()
			slog.Info("破棄されたゲームのターンを破棄しました", "id", c.ID, "phase", prior.Phase)
			return ErrClosed
		}
		if err != nil {
			c.status = prevStatus
			c.lastErr = err
			message := err.Error()
			c.broadcastLocked("エラー", &message)
			c.unlockAndFlush()
			slog.Error("ターンの処理に失敗しました", "id", c.ID, "phase", prior.Phase, "error", err)
			return err
		}
		c.state = next
		c.turns++
		c.status = statusFor(next)
		c.recordTurnLocked(prior, next)
		status := c.status
		c.unlockAndFlush()

		if status != CS_AWAITING_ORACLE {
			return nil
		}
		action = nil
		first = false
	}
}

func (c *Controller) playTurn(ctx context.Context, prior model.GameState, action *model.HumanAction) (model.GameState, error) {
	result, err := c.narrator.RunTurn(ctx, prior, action)
	if err != nil {
		return prior, err
	}
	return Apply(prior, result.Verdict, result.Prompt)
}

func (c *Controller) validateAction(action model.HumanAction) error {
	switch c.status {
	case CS_NOT_STARTED:
		return ErrNotStarted
	case CS_ENDED:
		return ErrGameEnded
	}
	if action.Type != model.A_VOTE {
		return fmt.Errorf("%w: 不明なアクション %q", ErrInvalidAction, action.Type)
	}
	if c.state.Phase != model.P_DAY || c.status != CS_AWAITING_HUMAN_VOTE {
		return fmt.Errorf("%w: 投票は昼のみ可能です", ErrInvalidAction)
	}
	target := util.FindPlayerByID(c.state.Players, action.VotedForID)
	if target == nil {
		return fmt.Errorf("%w: プレイヤー %d は存在しません", ErrInvalidAction, action.VotedForID)
	}
	if !target.IsAlive {
		return fmt.Errorf("%w: プレイヤー %d は死亡しています", ErrInvalidAction, action.VotedForID)
	}
	if target.IsUser {
		return fmt.Errorf("%w: 自分自身には投票できません", ErrInvalidAction)
	}
	return nil
}

func turnOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformedVerdict):
		return "malformed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "oracle_error"
}

func statusFor(state model.GameState) ControllerStatus {
	switch state.Phase {
	case model.P_ENDED:
		return CS_ENDED
	case model.P_DAY:
		if state.IsUserAlive() {
			return CS_AWAITING_HUMAN_VOTE
		}
	}
	return CS_AWAITING_ORACLE
}

func (c *Controller) reset() {
	c.gameID = ulid.Make().String()
	c.state = NewGameState(c.rng, c.names)
	c.status = CS_AWAITING_ORACLE
	c.lastErr = nil
	c.turns = 0
	c.realtimeBroadcasterPacketIdx = 0
	slog.Info("ゲームを開始します", "id", c.ID, "game", c.gameID)
	if c.jsonLogger != nil {
		c.jsonLogger.TrackStartGame(c.gameID, c.state.Players)
	}
	if c.gameLogger != nil {
		c.gameLogger.TrackStartGame(c.gameID)
		for _, player := range c.state.Players {
			c.gameLogger.AppendLog(c.gameID, fmt.Sprintf("%d,status,%d,%s,%s", c.state.DayNumber, player.ID, player.Role.Name, player.Name))
		}
	}
	if rb := c.realtimeBroadcaster; rb != nil {
		gameID, players := c.gameID, c.state.Players
		c.pending = append(c.pending, func() {
			rb.TrackStartGame(gameID, players)
		})
	}
	if c.metrics != nil {
		c.metrics.GameStarted()
	}
	c.broadcastLocked("開始", nil)
}

func (c *Controller) recordTurnLocked(prior model.GameState, next model.GameState) {
	day := prior.DayNumber
	if c.gameLogger != nil {
		for _, player := range prior.Players {
			after := util.FindPlayerByID(next.Players, player.ID)
			if !player.IsAlive || after.IsAlive {
				continue
			}
			switch prior.Phase {
			case model.P_NIGHT:
				c.gameLogger.AppendLog(c.gameID, fmt.Sprintf("%d,kill,%d", day, player.ID))
			case model.P_DAY:
				c.gameLogger.AppendLog(c.gameID, fmt.Sprintf("%d,vote,%d,%s", day, player.ID, player.Role.Name))
			}
		}
	}
	slog.Info("ターンを適用しました", "id", c.ID, "day", day, "phase", prior.Phase, "next", next.Phase)
	var message *string
	if last := len(next.Log) - 1; last >= 0 {
		text := next.Log[last].Text
		message = &text
	}
	if next.Phase != model.P_ENDED {
		c.broadcastLocked(next.Phase.DisplayName(), message)
		return
	}

	slog.Info("ゲームが終了しました", "id", c.ID, "winSide", next.Winner)
	if c.gameLogger != nil {
		civilians, mafia := util.CountAliveTeams(next.Players)
		c.gameLogger.AppendLog(c.gameID, fmt.Sprintf("%d,result,%d,%d,%s", day, civilians, mafia, next.Winner))
	}
	if c.metrics != nil {
		c.metrics.GameEnded(next.Winner)
	}
	c.broadcastLocked("終了", message)
	c.finishRecords()
}

func (c *Controller) finishRecords() {
	if c.gameID == "" {
		return
	}
	if c.jsonLogger != nil {
		c.jsonLogger.TrackEndGame(c.gameID, c.state.Winner)
	}
	if c.gameLogger != nil {
		c.gameLogger.TrackEndGame(c.gameID)
	}
	if rb := c.realtimeBroadcaster; rb != nil {
		gameID := c.gameID
		c.pending = append(c.pending, func() {
			rb.TrackEndGame(gameID)
		})
	}
}

// broadcastLocked queues the packet; it is delivered by unlockAndFlush once the
// controller lock is released, since the broadcaster may write files.
func (c *Controller) broadcastLocked(event string, message *string) {
	rb := c.realtimeBroadcaster
	if rb == nil {
		return
	}
	packet := c.broadcastPacketLocked(event, message)
	c.pending = append(c.pending, func() {
		rb.Broadcast(packet)
	})
}

func (c *Controller) unlockAndFlush() {
	c.mu.Unlock()
	c.flushBroadcasts()
}

// flushBroadcasts delivers queued broadcaster calls in the order they were queued.
func (c *Controller) flushBroadcasts() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, deliver := range pending {
		deliver()
	}
}

func (c *Controller) broadcastPacketLocked(event string, message *string) model.BroadcastPacket {
	state := c.state.Redacted()
	players := make([]model.BroadcastPlayer, 0, len(state.Players))
	for _, player := range state.Players {
		players = append(players, model.BroadcastPlayer{
			ID:      player.ID,
			Name:    player.Name,
			Role:    player.Role,
			IsAlive: player.IsAlive,
			IsUser:  player.IsUser,
		})
	}
	packet := model.BroadcastPacket{
		Id:        c.ID,
		Game:      c.gameID,
		Idx:       c.realtimeBroadcasterPacketIdx,
		Day:       state.DayNumber,
		Phase:     state.Phase,
		Status:    string(c.status),
		Busy:      c.busy,
		Players:   players,
		Event:     event,
		Message:   message,
		Winner:    state.Winner,
		LogLength: len(state.Log),
	}
	if c.lastErr != nil {
		text := c.lastErr.Error()
		packet.Error = &text
	}
	c.realtimeBroadcasterPacketIdx++
	return packet
}
