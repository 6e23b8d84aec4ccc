package match

import (
	"fmt"
	"strings"
)

// rosterLine introduces the contenders of a new match.
func rosterLine(names []string) string {
	switch len(names) {
	case 0:
		return "The jump game starts now!"
	case 1:
		return fmt.Sprintf("The jump game starts now! %s is jumping solo.", names[0])
	case 2:
		return fmt.Sprintf("The jump game starts now! It's %s versus %s.", names[0], names[1])
	}
	return fmt.Sprintf("The jump game starts now with %d contenders: %s and %s.",
		len(names), strings.Join(names[:len(names)-1], ", "), names[len(names)-1])
}

func remainingLine(name string, active int) string {
	if active == 1 {
		return fmt.Sprintf("Now jumping: %s", name)
	}
	return fmt.Sprintf("Now jumping: %s (%d contenders left)", name, active)
}

// abortReason turns a start precondition failure into narration.
func abortReason(err error) string {
	switch err {
	case ErrNoJumpDestination:
		return "the jump platform is not set"
	case ErrNoPool:
		return "there is no pool"
	case ErrNoContenders:
		return "nobody joined"
	}
	return err.Error()
}
