package logic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aiwolfdial/studybuddy/model"
	"github.com/aiwolfdial/studybuddy/util"
)

// Oracle is the external narrator. It receives the prompt together with the replayed
// history and answers with a JSON verdict.
type Oracle interface {
	Narrate(ctx context.Context, prompt string, history []model.ConversationTurn) (string, error)
}

type TurnResult struct {
	Prompt  string
	Verdict model.Verdict
}

type Narrator struct {
	oracle  Oracle
	timeout time.Duration
}

func NewNarrator(oracle Oracle, timeout time.Duration) *Narrator {
	return &Narrator{
		oracle:  oracle,
		timeout: timeout,
	}
}

func (n *Narrator) RunTurn(ctx context.Context, state model.GameState, action *model.HumanAction) (TurnResult, error) {
	if !state.IsInitialized() {
		return TurnResult{}, ErrNotStarted
	}
	if state.Phase == model.P_ENDED {
		return TurnResult{}, ErrGameEnded
	}
	if state.Phase != model.P_DAY {
		action = nil
	}
	prompt := BuildPrompt(state, action)

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	start := time.Now()
	text, err := n.oracle.Narrate(ctx, prompt, state.History)
	if err != nil {
		slog.Warn("ナレーターの呼び出しに失敗しました", "id", util.GameIDFromContext(ctx), "phase", state.Phase, "error", err)
		if errors.Is(err, ErrOracle) {
			return TurnResult{}, err
		}
		return TurnResult{}, fmt.Errorf("%w: %w", ErrOracle, err)
	}
	verdict, err := ParseVerdict(text)
	if err != nil {
		slog.Warn("ナレーターの応答を解析できませんでした", "id", util.GameIDFromContext(ctx), "error", err)
		return TurnResult{}, err
	}
	slog.Info("ナレーターの判定を受信しました", "id", util.GameIDFromContext(ctx), "phase", state.Phase, "day", state.DayNumber, "elapsed", time.Since(start))
	return TurnResult{
		Prompt:  prompt,
		Verdict: verdict,
	}, nil
}
