package fakesdb

import (
	"context"
	"errors"
	"net"

	"github.com/lxzan/gws"

	"github.com/surrealkit/surrealdb.go/pkg/connection"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

// errFailed stops a request after an injected failure took over its response.
var errFailed = errors.New("fakesdb: failure injected")

type wsHandler struct {
	server *Server
}

func (h *wsHandler) OnOpen(socket *gws.Conn) {
	st := newState("", "")
	st.sess.Notify = func(n models.Notification) {
		h.notify(socket, n)
	}

	h.server.mu.Lock()
	h.server.conns[socket] = st
	h.server.mu.Unlock()
}

func (h *wsHandler) OnClose(socket *gws.Conn, err error) {
	h.server.mu.Lock()
	st := h.server.conns[socket]
	delete(h.server.conns, socket)
	h.server.mu.Unlock()

	if st != nil {
		h.server.ds.EndSession(st.sess)
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		h.server.Logger.Debug("fakesdb: connection closed", "error", err)
	}
}

func (h *wsHandler) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.WritePong(payload)
}

func (h *wsHandler) OnPong(*gws.Conn, []byte) {}

func (h *wsHandler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()

	for _, failure := range h.server.globalFailures() {
		if failure.triggered() {
			if err := h.applyFailure(socket, failure, nil, nil); err != nil {
				return
			}
		}
	}

	var req connection.RPCRequest
	if err := h.server.codec.Unmarshal(message.Bytes(), &req); err != nil {
		h.write(socket, nil, nil, rpcError(codeParseError, "Parse error: %v", err))
		return
	}

	h.server.mu.RLock()
	st := h.server.conns[socket]
	h.server.mu.RUnlock()
	if st == nil {
		return
	}

	stub := h.server.stub(&req)
	ans := func() (any, *connection.RPCError) {
		return h.server.respond(context.Background(), st, &req, stub)
	}
	if stub != nil {
		for _, failure := range stub.Failures {
			if failure.triggered() {
				if err := h.applyFailure(socket, failure, &req, ans); err != nil {
					return
				}
			}
		}
	}

	result, rpcErr := ans()
	h.write(socket, req.ID, result, rpcErr)
}

func (h *wsHandler) notify(socket *gws.Conn, n models.Notification) {
	h.write(socket, nil, n, nil)
}

func (h *wsHandler) encode(id, result any, rpcErr *connection.RPCError) ([]byte, error) {
	resp := connection.RPCResponse[any]{ID: id, Error: rpcErr}
	if rpcErr == nil {
		resp.Result = &result
	}
	return h.server.codec.Marshal(resp)
}

func (h *wsHandler) write(socket *gws.Conn, id, result any, rpcErr *connection.RPCError) {
	data, err := h.encode(id, result, rpcErr)
	if err != nil {
		data, err = h.encode(id, nil, rpcError(codeInternalError, "encoding response: %v", err))
		if err != nil {
			h.server.Logger.Error("fakesdb: encoding response", "error", err)
			return
		}
	}
	if err := socket.WriteMessage(gws.OpcodeBinary, data); err != nil {
		h.server.Logger.Debug("fakesdb: writing response", "error", err)
	}
}
