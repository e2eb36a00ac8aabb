package connection

import (
	"context"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/surrealkit/surrealdb.go/internal/codec"
	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/logger"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

// Sender is a transport that performs one RPC call at a time.
type Sender interface {
	// Send returns the raw response, or the RPCError the server replied with.
	Send(ctx context.Context, method string, params ...any) (*RPCResponse[cbor.RawMessage], error)
	GetUnmarshaler() codec.Unmarshaler
}

// Toolkit is the state shared by the remote backends: the codec, the
// channels waiting for responses and the live notification handler.
type Toolkit struct {
	BaseURL     string
	Marshaler   codec.Marshaler
	Unmarshaler codec.Unmarshaler

	ResponseChannels     map[string]chan RPCResponse[cbor.RawMessage]
	ResponseChannelsLock sync.RWMutex

	notify     func(models.Notification)
	notifyLock sync.RWMutex
}

// NewToolkit returns a Toolkit configured from cfg.
func NewToolkit(cfg *Config) Toolkit {
	return Toolkit{
		BaseURL:          cfg.BaseURL,
		Marshaler:        cfg.Marshaler,
		Unmarshaler:      cfg.Unmarshaler,
		ResponseChannels: make(map[string]chan RPCResponse[cbor.RawMessage]),
	}
}

// PreConnectionChecks verifies that the toolkit can reach and talk to a server.
func (tk *Toolkit) PreConnectionChecks() error {
	if tk.BaseURL == "" {
		return constants.ErrNoBaseURL
	}

	if tk.Marshaler == nil {
		return constants.ErrNoMarshaler
	}

	if tk.Unmarshaler == nil {
		return constants.ErrNoUnmarshaler
	}

	return nil
}

func (tk *Toolkit) GetUnmarshaler() codec.Unmarshaler {
	return tk.Unmarshaler
}

func (tk *Toolkit) CreateResponseChannel(id string) (chan RPCResponse[cbor.RawMessage], error) {
	tk.ResponseChannelsLock.Lock()
	defer tk.ResponseChannelsLock.Unlock()

	if _, ok := tk.ResponseChannels[id]; ok {
		return nil, fmt.Errorf("%w: %v", constants.ErrIDInUse, id)
	}

	// Buffered so the read loop never waits on a caller that gave up.
	ch := make(chan RPCResponse[cbor.RawMessage], 1)
	tk.ResponseChannels[id] = ch

	return ch, nil
}

func (tk *Toolkit) GetResponseChannel(id string) (chan RPCResponse[cbor.RawMessage], bool) {
	tk.ResponseChannelsLock.RLock()
	defer tk.ResponseChannelsLock.RUnlock()
	ch, ok := tk.ResponseChannels[id]
	return ch, ok
}

func (tk *Toolkit) RemoveResponseChannel(id string) {
	tk.ResponseChannelsLock.Lock()
	defer tk.ResponseChannelsLock.Unlock()
	delete(tk.ResponseChannels, id)
}

// SetNotificationHandler installs the function live notifications are passed to.
func (tk *Toolkit) SetNotificationHandler(handler func(models.Notification)) {
	tk.notifyLock.Lock()
	defer tk.notifyLock.Unlock()
	tk.notify = handler
}

// Notify passes n to the notification handler. It reports false when no
// handler is installed.
func (tk *Toolkit) Notify(n models.Notification) bool {
	tk.notifyLock.RLock()
	handler := tk.notify
	tk.notifyLock.RUnlock()

	if handler == nil {
		return false
	}
	handler(n)
	return true
}

// Send calls method and decodes the result into res.Result.
func Send[Result any](c Sender, ctx context.Context, res *RPCResponse[Result], method RPCFunction, params ...any) error {
	rawRes, err := c.Send(ctx, string(method), params...)
	if err != nil {
		return err
	}

	if res == nil {
		return nil
	}

	res.ID = rawRes.ID
	res.Error = rawRes.Error

	if rawRes.Result == nil {
		res.Result = nil
		return nil
	}

	var r Result
	if err := c.GetUnmarshaler().Unmarshal(*rawRes.Result, &r); err != nil {
		return fmt.Errorf("%w: %s result: %w", constants.ErrDecode, method, err)
	}
	res.Result = &r

	return nil
}

// HandleMessage routes one message read from a WebSocket. A message with an
// id answers the request of that id; any other result is a live notification.
func (tk *Toolkit) HandleMessage(data []byte, l logger.Logger) {
	var rpcRes RPCResponse[cbor.RawMessage]
	if err := tk.Unmarshaler.Unmarshal(data, &rpcRes); err != nil {
		l.Error("failed to decode message", "error", err)
		return
	}

	if rpcRes.ID != nil && rpcRes.ID != "" {
		id := fmt.Sprintf("%v", rpcRes.ID)
		responseChan, ok := tk.GetResponseChannel(id)
		if !ok {
			l.Warn("response for an unknown request", "id", id)
			return
		}
		select {
		case responseChan <- rpcRes:
		default:
			l.Warn("duplicate response", "id", id)
		}
		return
	}

	if rpcRes.Error != nil {
		// Some errors are sent without the id of the request that caused them.
		l.Error("error response without an id", "error", rpcRes.Error)
		return
	}
	if rpcRes.Result == nil {
		l.Warn("message without id or result")
		return
	}

	var notification models.Notification
	if err := tk.Unmarshaler.Unmarshal(*rpcRes.Result, &notification); err != nil {
		l.Error("failed to decode notification", "error", err)
		return
	}
	if !tk.Notify(notification) {
		l.Warn("dropped notification without a handler", "id", notification.ID.String())
	}
}
