package playback

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/audiorender/pkg/audio/handletable"
)

type Handle = handletable.Handle

// Host hands out integer handles to clients for callers on the other side
// of a language or process boundary. A handle of a closed playback is
// rejected instead of reaching freed state.
type Host struct {
	newClient func(ctx context.Context) (*Client, error)
	clients   handletable.Table[*Client]
}

// NewHost returns a Host creating clients with newClient; nil means NewAuto
// with the default options.
func NewHost(
	newClient func(ctx context.Context) (*Client, error),
) *Host {
	if newClient == nil {
		return NewAutoHost()
	}
	return &Host{
		newClient: newClient,
	}
}

// NewAutoHost returns a Host creating clients with NewAuto(ctx, opts...).
func NewAutoHost(opts ...Option) *Host {
	return &Host{
		newClient: func(ctx context.Context) (*Client, error) {
			return NewAuto(ctx, opts...)
		},
	}
}

func (h *Host) CreatePlayback(ctx context.Context) (Handle, error) {
	client, err := h.newClient(ctx)
	if err != nil {
		return 0, fmt.Errorf("unable to create a playback client: %w", err)
	}
	handle := h.clients.Insert(client)
	logger.Debugf(ctx, "created playback %s (session %s)", handle, client.ID())
	return handle, nil
}

func (h *Host) Playback(handle Handle) (*Client, error) {
	return h.clients.Get(handle)
}

func (h *Host) ClosePlayback(handle Handle) error {
	return h.clients.Close(handle)
}

func (h *Host) Len() int {
	return h.clients.Len()
}

// Close closes all the playbacks still open.
func (h *Host) Close() error {
	return h.clients.CloseAll()
}
