package constants

import "time"

const (
	// RequestIDLength size of id sent on WS request
	RequestIDLength = 16
	// CloseMessageCode identifier the message id for a close request
	CloseMessageCode = 1000
	// DefaultWSTimeout is how long the WebSocket backend waits for an RPC response
	DefaultWSTimeout = 30 * time.Second
	// DefaultHTTPTimeout is the timeout of the HTTP backend's client
	DefaultHTTPTimeout = 10 * time.Second
	// DefaultNotificationBuffer is the capacity of each live query notification channel
	DefaultNotificationBuffer = 64
	// VersionPrefix is stripped from version strings reported by SurrealDB
	VersionPrefix = "surrealdb-"
)

const (
	AuthTokenKey = "auth_token"
)

var (
	WebsocketScheme       = "ws"
	SecureWebsocketScheme = "wss"
	HTTPScheme            = "http"
	HTTPSecureScheme      = "https"
	MemoryScheme          = "mem"
	MemoryAltScheme       = "memory"
	SQLiteScheme          = "sqlite"
)
