package ui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/kumaqueue/internal/repository"
	"github.com/sonroyaalmerol/kumaqueue/internal/store"
)

func makeTracks(n int) []store.Track {
	out := make([]store.Track, n)
	for i := range out {
		out[i] = store.Track{Title: fmt.Sprintf("t%d", i+1), Requester: "alice", Duration: 125}
	}
	return out
}

func TestQueueViewPaging(t *testing.T) {
	v := NewQueueView("u1", makeTracks(23))

	assert.False(t, v.Prev())
	assert.Equal(t, 0, v.Page())

	assert.True(t, v.Next())
	assert.True(t, v.Next())
	assert.False(t, v.Next())
	assert.Equal(t, 2, v.Page())

	e := v.Embed()
	assert.Equal(t, "🎵 Music Queue (Page 3)", e.Title)
	lines := strings.Split(strings.TrimSpace(e.Description), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "21. `t21` [2:05] - alice", lines[0])
	assert.Equal(t, "23. `t23` [2:05] - alice", lines[2])
}

func TestQueueViewFirstPage(t *testing.T) {
	v := NewQueueView("u1", makeTracks(12))
	lines := strings.Split(strings.TrimSpace(v.Embed().Description), "\n")
	assert.Len(t, lines, 10)
	assert.Equal(t, "1. `t1` [2:05] - alice", lines[0])
}

func TestCustomIDRoundTrip(t *testing.T) {
	v := NewQueueView("u1", nil)
	row := v.Components()[0].(discordgo.ActionsRow)
	require.Len(t, row.Components, 2)

	prev := row.Components[0].(discordgo.Button)
	action, id, ok := ParseCustomID(prev.CustomID)
	require.True(t, ok)
	assert.Equal(t, ActionPrev, action)
	assert.Equal(t, v.ID, id)

	_, _, ok = ParseCustomID("queue:jump:abc")
	assert.False(t, ok)
	_, _, ok = ParseCustomID("other:next:abc")
	assert.False(t, ok)
}

func TestViewsPressOwnerOnly(t *testing.T) {
	views := NewViews(time.Minute, nil)
	defer views.Close()
	v := NewQueueView("owner", makeTracks(15))
	views.Add(v)

	res := views.Press(CustomID(ActionNext, v.ID), "intruder")
	assert.True(t, res.Found)
	assert.False(t, res.Accepted)
	assert.Equal(t, 0, v.Page())

	res = views.Press(CustomID(ActionNext, v.ID), "owner")
	require.True(t, res.Accepted)
	assert.Equal(t, "🎵 Music Queue (Page 2)", res.Embed.Title)
	assert.NotEmpty(t, res.Components)

	// last page: next stays put but the press is still accepted
	res = views.Press(CustomID(ActionNext, v.ID), "owner")
	require.True(t, res.Accepted)
	assert.Equal(t, "🎵 Music Queue (Page 2)", res.Embed.Title)

	res = views.Press(CustomID(ActionNext, "unknown"), "owner")
	assert.False(t, res.Found)
}

func TestViewsExpire(t *testing.T) {
	expired := make(chan *QueueView, 1)
	views := NewViews(20*time.Millisecond, func(v *QueueView) { expired <- v })
	v := NewQueueView("owner", makeTracks(3))
	views.Add(v)

	select {
	case got := <-expired:
		assert.Equal(t, v.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("view did not expire")
	}
	assert.Zero(t, views.size())
	assert.False(t, views.Press(CustomID(ActionNext, v.ID), "owner").Found)
}

func TestViewsPressResetsTimeout(t *testing.T) {
	expired := make(chan *QueueView, 1)
	views := NewViews(80*time.Millisecond, func(v *QueueView) { expired <- v })
	defer views.Close()
	v := NewQueueView("owner", makeTracks(30))
	views.Add(v)

	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		require.True(t, views.Press(CustomID(ActionNext, v.ID), "owner").Accepted)
	}
	select {
	case <-expired:
		t.Fatal("view expired despite activity")
	default:
	}
}

func TestBuildHistoryEmbed(t *testing.T) {
	e := BuildHistoryEmbed(nil, 0)
	assert.Equal(t, "Nothing has been played yet.", e.Description)

	start := time.Unix(1700000000, 0)
	e = BuildHistoryEmbed([]repository.PlayRecord{
		{Title: "Song", Requester: "bob", Duration: 61, StartedAt: start, Outcome: repository.OutcomeSkipped},
	}, 7)
	assert.Equal(t, "1. ⏭ `Song` [1:01] - bob <t:1700000000:R>", e.Description)
	assert.Equal(t, "7 plays in total", e.Footer.Text)
}
