package connection

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/surrealkit/surrealdb.go/internal/codec"
	"github.com/surrealkit/surrealdb.go/pkg/logger"
	"github.com/surrealkit/surrealdb.go/pkg/models"
	"github.com/surrealkit/surrealdb.go/pkg/router"
)

// Config holds what every backend needs to connect.
type Config struct {
	URL     url.URL
	BaseURL string

	Marshaler   codec.Marshaler
	Unmarshaler codec.Unmarshaler

	Logger logger.Logger

	// Capacity bounds the router queue. Zero means unbounded.
	Capacity int
	// Timeout bounds each transport round trip. Zero disables it.
	Timeout time.Duration

	// Namespace and Database are the initial scope of embedded connections.
	Namespace string
	Database  string

	// NotificationBuffer is the buffer size of each live query channel.
	NotificationBuffer int
}

// NewConfig creates a new Config with the SurrealDB endpoint specified by the URL.
// The URL should be a valid SurrealDB endpoint URL, such as "ws://localhost:8000",
// "http://localhost:8000", "memory://" or "sqlite:///var/lib/data.db".
// The "ns" and "db" query parameters, when present, set the initial scope.
func NewConfig(u *url.URL) *Config {
	q := u.Query()
	return &Config{
		URL:         *u,
		BaseURL:     fmt.Sprintf("%s://%s", u.Scheme, u.Host),
		Marshaler:   models.CborMarshaler{},
		Unmarshaler: models.CborUnmarshaler{},
		Logger:      logger.New(slog.NewTextHandler(os.Stderr, nil)),
		Namespace:   q.Get("ns"),
		Database:    q.Get("db"),
	}
}

// RouterConfig returns the router settings of c.
func (c *Config) RouterConfig() router.Config {
	return router.Config{
		Capacity:           c.Capacity,
		NotificationBuffer: c.NotificationBuffer,
		Logger:             c.Logger,
	}
}
