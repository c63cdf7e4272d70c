package pages

import (
	"fmt"

	"totgame/internal/viewmodel"
)

var stateLabels = map[string]string{
	"no_session":         "Waiting for the host to start",
	"awaiting_auto_draw": "Drawing the next player",
	"awaiting_draw":      "Waiting for the next draw",
	"turn_active":        "Turn in progress",
	"exhausted":          "Everyone has played",
}

func stateLabel(state string) string {
	if label, ok := stateLabels[state]; ok {
		return label
	}
	return state
}

func progress(data viewmodel.RoomPage) string {
	return fmt.Sprintf("%d drawn, %d of %d left", data.Drawn, data.Remaining, data.Total)
}
