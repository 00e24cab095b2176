package agent

import (
	"cubezero/game"
)

// Agent picks the next action for a puzzle state.
type Agent interface {
	FindMove(state game.State) (int, error)
}
