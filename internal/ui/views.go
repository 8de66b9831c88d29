package ui

import (
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

type viewEntry struct {
	view  *QueueView
	timer *time.Timer
}

// Views tracks open queue views and expires them after a period without
// accepted interactions.
type Views struct {
	mu       sync.Mutex
	views    map[string]*viewEntry
	timeout  time.Duration
	onExpire func(v *QueueView)
}

func NewViews(timeout time.Duration, onExpire func(v *QueueView)) *Views {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Views{
		views:    make(map[string]*viewEntry),
		timeout:  timeout,
		onExpire: onExpire,
	}
}

func (r *Views) Add(v *QueueView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := &viewEntry{view: v}
	e.timer = time.AfterFunc(r.timeout, func() { r.expire(v.ID, e) })
	r.views[v.ID] = e
}

func (r *Views) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

func (r *Views) expire(id string, e *viewEntry) {
	r.mu.Lock()
	cur, ok := r.views[id]
	if !ok || cur != e {
		r.mu.Unlock()
		return
	}
	delete(r.views, id)
	r.mu.Unlock()
	if r.onExpire != nil {
		r.onExpire(e.view)
	}
}

type PressResult struct {
	Found    bool
	Accepted bool
	Embed    *discordgo.MessageEmbed
	// Components to keep on the message after an accepted press.
	Components []discordgo.MessageComponent
}

// Press applies a button press from userID. Presses from anyone other than
// the view owner are not accepted and leave the view untouched.
func (r *Views) Press(customID, userID string) PressResult {
	action, id, ok := ParseCustomID(customID)
	if !ok {
		return PressResult{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.views[id]
	if !ok {
		return PressResult{}
	}
	if userID != e.view.OwnerID {
		return PressResult{Found: true}
	}

	switch action {
	case ActionPrev:
		e.view.Prev()
	case ActionNext:
		e.view.Next()
	}
	e.timer.Reset(r.timeout)

	return PressResult{
		Found:      true,
		Accepted:   true,
		Embed:      e.view.Embed(),
		Components: e.view.Components(),
	}
}

// Close stops every pending timer without calling onExpire.
func (r *Views) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.views {
		e.timer.Stop()
		delete(r.views, id)
	}
}
