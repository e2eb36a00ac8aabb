package fakesdb

import (
	"crypto/rand"
	"math/big"
	"net"
	"time"

	"github.com/lxzan/gws"

	"github.com/surrealkit/surrealdb.go/pkg/connection"
)

// FailureType is a kind of failure injected into the WebSocket transport.
type FailureType string

const (
	// FailureRequestDelay sleeps before handling the request.
	FailureRequestDelay FailureType = "request_delay"
	// FailureResponseDelay answers from a goroutine after a delay.
	FailureResponseDelay FailureType = "response_delay"
	// FailureNoResponse never answers the request.
	FailureNoResponse FailureType = "no_response"
	// FailureInvalidResponse answers with random bytes.
	FailureInvalidResponse FailureType = "invalid_response"
	// FailureCorruptedMessage flips bytes of the encoded answer.
	FailureCorruptedMessage FailureType = "corrupted_message"
	// FailurePartialMessage sends the first half of the encoded answer.
	FailurePartialMessage FailureType = "partial_message"
	// FailureWebSocketClose sends a close frame.
	FailureWebSocketClose FailureType = "websocket_close"
	// FailureDropConnection closes the TCP connection.
	FailureDropConnection FailureType = "drop_connection"
	// FailureTCPReset closes the TCP connection with a reset.
	FailureTCPReset FailureType = "tcp_reset"
)

// FailureConfig describes one failure and how often it happens.
type FailureConfig struct {
	Type FailureType
	// Probability is in [0, 1]. Zero never fails.
	Probability float64
	// MinDelay and MaxDelay bound the delay of the delay failures.
	MinDelay time.Duration
	MaxDelay time.Duration
	// CloseCode and CloseReason are sent by FailureWebSocketClose.
	CloseCode   uint16
	CloseReason string
}

func (f FailureConfig) triggered() bool {
	switch {
	case f.Probability <= 0:
		return false
	case f.Probability >= 1:
		return true
	}
	return randFloat64() < f.Probability
}

func (f FailureConfig) delay() time.Duration {
	if f.MinDelay >= f.MaxDelay {
		return f.MinDelay
	}
	return f.MinDelay + time.Duration(randInt64(int64(f.MaxDelay-f.MinDelay)))
}

// answer computes the normal response of a request.
type answer func() (any, *connection.RPCError)

// applyFailure injects failure. A non-nil error means the failure took
// over the response and the request must not be answered normally.
// req and ans are nil for global failures checked before decoding.
func (h *wsHandler) applyFailure(socket *gws.Conn, failure FailureConfig, req *connection.RPCRequest, ans answer) error {
	switch failure.Type {
	case FailureRequestDelay:
		time.Sleep(failure.delay())
		return nil

	case FailureResponseDelay:
		if req == nil {
			time.Sleep(failure.delay())
			return nil
		}
		go func() {
			time.Sleep(failure.delay())
			result, rpcErr := ans()
			h.write(socket, req.ID, result, rpcErr)
		}()
		return errFailed

	case FailureNoResponse:
		return errFailed

	case FailureInvalidResponse:
		data := make([]byte, 100)
		_, _ = rand.Read(data)
		_ = socket.WriteMessage(gws.OpcodeBinary, data)
		return errFailed

	case FailureCorruptedMessage, FailurePartialMessage:
		if req == nil {
			return nil
		}
		result, rpcErr := ans()
		data, err := h.encode(req.ID, result, rpcErr)
		if err != nil {
			return err
		}
		if failure.Type == FailurePartialMessage {
			data = data[:len(data)/2]
		} else {
			for i := 0; i < 10 && i < len(data); i++ {
				data[randInt64(int64(len(data)))] = byte(randInt64(256))
			}
		}
		_ = socket.WriteMessage(gws.OpcodeBinary, data)
		return errFailed

	case FailureWebSocketClose:
		code := failure.CloseCode
		if code == 0 {
			code = 1001
		}
		reason := failure.CloseReason
		if reason == "" {
			reason = "failure injection"
		}
		socket.WriteClose(code, []byte(reason))
		return errFailed

	case FailureDropConnection:
		_ = socket.NetConn().Close()
		return errFailed

	case FailureTCPReset:
		conn := socket.NetConn()
		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetLinger(0)
		}
		_ = conn.Close()
		return errFailed
	}
	return nil
}

func randInt64(n int64) int64 {
	if n <= 0 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

func randFloat64() float64 {
	return float64(randInt64(1<<53)) / float64(1<<53)
}
