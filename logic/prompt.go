package logic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aiwolfdial/studybuddy/model"
	"github.com/aiwolfdial/studybuddy/util"
)

const promptHeader = `You are the Game Master for a text-based game of Mafia.
Your responses must be in Russian. Your output must be a valid JSON object matching the provided schema.
`

const nightInstruction = `It is night. The Mafia must choose a victim. The Doctor must choose someone to save.
Simulate these actions secretly. The Mafia cannot kill another Mafia member. The Doctor can save anyone, including themself.
Determine the outcome and write a compelling narration for the start of the next day. Announce who was killed, if anyone.
If the Doctor saved the victim, announce that the Mafia's attempt failed without revealing who was saved.
Set killedId to the victim's id and savedId to the protected player's id. Leave votedOutId null.
`

const dayInstruction = `It is daytime. The players must discuss and vote to eliminate one person.
Based on the user's vote, simulate the votes of the other AI players. Make their votes plausible based on a hidden logic.
Determine who is voted out. Write a narration of the discussion and the final vote, revealing the eliminated player's role.
Set votedOutId to the eliminated player's id. Leave killedId and savedId null.
`

// BuildPrompt renders the one text that is both sent to the narrator and recorded in
// the history. The secret role table is included because the narrator referees the
// hidden roles; it never reaches a public snapshot.
func BuildPrompt(state model.GameState, action *model.HumanAction) string {
	var sb strings.Builder
	sb.WriteString(promptHeader)
	sb.WriteString("\nGame State:\n")
	fmt.Fprintf(&sb, "- Day Number: %d\n", state.DayNumber)
	fmt.Fprintf(&sb, "- Current Phase: %s\n", state.Phase)

	alive := util.AlivePlayers(state.Players)
	names := make([]string, 0, len(alive))
	for _, player := range alive {
		names = append(names, fmt.Sprintf("%s (id: %d, isUser: %t)", player.Name, player.ID, player.IsUser))
	}
	fmt.Fprintf(&sb, "- Living Players: %s\n", strings.Join(names, ", "))
	if user := state.UserPlayer(); user != nil {
		fmt.Fprintf(&sb, "- User's Role: %s\n", user.Role)
	}
	sb.WriteString("- Secret Roles:\n")
	for _, player := range state.Players {
		status := "alive"
		if !player.IsAlive {
			status = "dead"
		}
		fmt.Fprintf(&sb, "  - %d: %s, %s, %s\n", player.ID, player.Name, player.Role, status)
	}

	sb.WriteString("\nTask:\nBased on the current phase, advance the game. Create a suspenseful narrative.\n")
	sb.WriteString(describeAction(state, action))
	sb.WriteString("\n")

	switch state.Phase {
	case model.P_NIGHT:
		sb.WriteString(nightInstruction)
	case model.P_DAY:
		sb.WriteString(dayInstruction)
	}
	sb.WriteString(`Set winner to "Mafia" or "Civilians" only when the game is over, otherwise null.`)
	return sb.String()
}

func describeAction(state model.GameState, action *model.HumanAction) string {
	if state.Phase != model.P_DAY {
		return "It is the start of a new phase."
	}
	if action == nil {
		if !state.IsUserAlive() {
			return "The user has been eliminated and only watches. Simulate the vote without them."
		}
		return "It is the start of a new phase."
	}
	data, err := json.Marshal(action)
	if err != nil {
		return "It is the start of a new phase."
	}
	return fmt.Sprintf("The user action is: %s.", data)
}
