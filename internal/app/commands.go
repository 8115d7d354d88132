package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/notifier/internal/inbox"
	"github.com/nhle/notifier/internal/model"
)

// mutationTimeout bounds a single backend write issued from the UI.
const mutationTimeout = 15 * time.Second

// updateMsg carries a new inbox state to the UI.
type updateMsg inbox.Update

// sentMsg reports the ID of a sent notification, "" when nothing was sent.
type sentMsg struct {
	id string
}

type linkOpenedMsg struct {
	url string
	err error
}

// mutatedMsg is returned by inbox writes. The result arrives through the
// live feed, so there is nothing to carry.
type mutatedMsg struct{}

// waitForUpdate returns a command that blocks until the inbox publishes a
// new state. It is re-issued after every update.
func (m Model) waitForUpdate() tea.Cmd {
	ch := m.inbox.Updates()
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return updateMsg(u)
	}
}

// mutate runs fn against the inbox off the UI goroutine.
func (m Model) mutate(fn func(ctx context.Context, ib *inbox.Inbox)) tea.Cmd {
	ib := m.inbox
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		fn(ctx, ib)
		return mutatedMsg{}
	}
}

func (m Model) markRead(id string) tea.Cmd {
	return m.mutate(func(ctx context.Context, ib *inbox.Inbox) {
		ib.MarkAsRead(ctx, id)
	})
}

func (m Model) acknowledge(id string) tea.Cmd {
	return m.mutate(func(ctx context.Context, ib *inbox.Inbox) {
		ib.MarkAsAcknowledged(ctx, id)
	})
}

func (m Model) dismiss(id string) tea.Cmd {
	return m.mutate(func(ctx context.Context, ib *inbox.Inbox) {
		ib.Dismiss(ctx, id)
	})
}

func (m Model) markAllRead() tea.Cmd {
	return m.mutate(func(ctx context.Context, ib *inbox.Inbox) {
		ib.MarkAllAsRead(ctx)
	})
}

func (m Model) send(d model.Draft) tea.Cmd {
	ib := m.inbox
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		return sentMsg{id: ib.Send(ctx, d)}
	}
}

func (m Model) openLink(url string) tea.Cmd {
	nav := m.nav
	return func() tea.Msg {
		return linkOpenedMsg{url: url, err: nav.Open(url)}
	}
}
