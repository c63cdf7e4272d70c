package pages

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"totgame/internal/viewmodel"
)

func TestRoomStatus(t *testing.T) {
	data := viewmodel.RoomPage{
		RoomID:        "R1",
		State:         "turn_active",
		CurrentPlayer: "Ana",
		Total:         2,
		Remaining:     1,
		Drawn:         1,
		Prompts: []viewmodel.PromptRow{
			{Category: "truth", Content: "Say <why>", Chosen: true},
			{Category: "trick", Content: "Hop"},
		},
		Members: []viewmodel.MemberRow{
			{Name: "Hana", Status: "pending", IsHost: true, IsSelf: true},
			{Name: "Ana", Status: "active", IsCurrent: true},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, RoomStatus(data).Render(context.Background(), &buf))
	html := buf.String()

	assert.Contains(t, html, `id="room-R1"`)
	assert.Contains(t, html, "Turn in progress")
	assert.Contains(t, html, "<strong>Ana</strong> is up")
	assert.Contains(t, html, `<li class="prompt" data-category="truth" data-chosen>`)
	assert.Contains(t, html, `<li class="prompt" data-category="trick">`)
	assert.Contains(t, html, "Say &lt;why&gt;")
	assert.Contains(t, html, "1 drawn, 1 of 2 left")
	assert.Contains(t, html, `<li class="member" data-status="pending"><strong>Hana</strong> <span class="tag is-info">host</span></li>`)
	assert.Contains(t, html, `<li class="member" data-status="active">Ana <span class="tag is-warning">current</span></li>`)
}

func TestRoomStatus_UnknownState(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RoomStatus(viewmodel.RoomPage{State: "paused"}).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), `<p class="subtitle">paused</p>`)
	assert.NotContains(t, buf.String(), "drawn")
}
