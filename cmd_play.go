package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aiwolfdial/studybuddy/logic"
	"github.com/aiwolfdial/studybuddy/model"
	"github.com/aiwolfdial/studybuddy/service"
	"github.com/aiwolfdial/studybuddy/util"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play Mafia in the terminal",
	RunE:  runPlay,
}

func runPlay(cmd *cobra.Command, _ []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	if config.Log.Level != "debug" {
		config.Log.Level = "warn"
	}
	setupLogger(config)

	oracle, err := service.NewOracleFromConfig(cmd.Context(), config)
	if err != nil {
		return err
	}
	controller := logic.NewController(config, oracle, nil)
	return playGame(cmd.Context(), controller, cmd.InOrStdin(), cmd.OutOrStdout())
}

type terminal struct {
	out     io.Writer
	printed int
}

func (t *terminal) printLog(state model.GameState) {
	for _, entry := range state.Log[t.printed:] {
		switch entry.Kind {
		case model.L_SYSTEM:
			fmt.Fprintf(t.out, "* %s\n", entry.Text)
		default:
			fmt.Fprintf(t.out, "\n%s\n", entry.Text)
		}
	}
	t.printed = len(state.Log)
}

func (t *terminal) printRoster(state model.GameState) {
	fmt.Fprintf(t.out, "\n--- %s, день %d ---\n", state.Phase.DisplayName(), state.DayNumber)
	for _, player := range state.Players {
		mark := " "
		if !player.IsAlive {
			mark = "x"
		}
		role := ""
		if player.Role != model.R_NONE {
			role = " (" + player.Role.DisplayName() + ")"
		}
		you := ""
		if player.IsUser {
			you = " [вы]"
		}
		fmt.Fprintf(t.out, "[%s] %d. %s%s%s\n", mark, player.ID, player.Name, role, you)
	}
}

func playGame(ctx context.Context, controller *logic.Controller, in io.Reader, out io.Writer) error {
	t := &terminal{out: out}
	scanner := bufio.NewScanner(in)
	readLine := func(prompt string) (string, bool) {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	fmt.Fprintln(out, "Город засыпает...")
	report(out, controller.Start(ctx))
	for {
		snapshot := controller.Snapshot()
		t.printLog(snapshot.State)

		var line string
		var ok bool
		switch snapshot.Status {
		case logic.CS_ENDED:
			t.printRoster(snapshot.State)
			fmt.Fprintf(out, "\nПобедили: %s\n", snapshot.State.Winner.DisplayName())
			line, ok = readLine("r — новая игра, q — выход: ")
		case logic.CS_AWAITING_HUMAN_VOTE:
			t.printRoster(snapshot.State)
			candidates := util.VoteCandidates(snapshot.State.Players)
			ids := make([]string, 0, len(candidates))
			for _, candidate := range candidates {
				ids = append(ids, strconv.Itoa(candidate.ID))
			}
			line, ok = readLine(fmt.Sprintf("Кого изгнать? (%s, r — заново, q — выход): ", strings.Join(ids, "/")))
		default:
			line, ok = readLine("Enter — повторить ход, r — заново, q — выход: ")
		}
		if !ok || line == "q" {
			controller.Close()
			return scanner.Err()
		}

		switch {
		case line == "r":
			t.printed = 0
			report(out, controller.Restart(ctx))
		case snapshot.Status == logic.CS_AWAITING_HUMAN_VOTE:
			id, err := strconv.Atoi(line)
			if err != nil {
				fmt.Fprintln(out, "Введите номер игрока.")
				continue
			}
			report(out, controller.Vote(ctx, id))
		case snapshot.Status == logic.CS_AWAITING_ORACLE:
			report(out, controller.Advance(ctx))
		}
	}
}

func report(out io.Writer, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, logic.ErrInvalidAction) {
		fmt.Fprintf(out, "Недопустимое действие: %v\n", err)
		return
	}
	slog.Debug("ターンの処理に失敗しました", "error", err)
	fmt.Fprintf(out, "Ведущий запутался, попробуйте снова. (%v)\n", err)
}
