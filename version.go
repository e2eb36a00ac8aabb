package surrealdb

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver"

	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/router"
)

// strictVersion is MAJOR.MINOR.PATCH with optional pre-release and build
// metadata. semver.NewVersion alone also accepts "1.2" and "v1.2.3".
var strictVersion = regexp.MustCompile(
	`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(-[0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*)?(\+[0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*)?$`)

// Version is a pending version request.
type Version struct {
	db *DB
}

// Exec returns the server version.
func (v *Version) Exec(ctx context.Context) (*semver.Version, error) {
	raw, err := v.db.send(ctx, router.MethodVersion)
	if err != nil {
		return nil, err
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", constants.ErrInvalidVersion, raw)
	}
	return ParseVersion(s)
}

// ParseVersion parses a version string such as "surrealdb-2.1.0".
func ParseVersion(s string) (*semver.Version, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), constants.VersionPrefix)
	if !strictVersion.MatchString(trimmed) {
		return nil, fmt.Errorf("%w: %q", constants.ErrInvalidVersion, s)
	}
	version, err := semver.NewVersion(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", constants.ErrInvalidVersion, s, err)
	}
	return version, nil
}
