package transcript

import (
	"context"
	"fmt"
	"strings"
)

// NewStore picks a backend from databaseURL:
//
//	""                          in-memory
//	postgres://, postgresql://  PostgreSQL
//	sqlite://<path>, *.db       SQLite file
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	u := strings.TrimSpace(databaseURL)
	switch {
	case u == "":
		return NewInMemoryStore(0), nil
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return NewPostgresStore(ctx, u)
	case strings.HasPrefix(u, "sqlite://"):
		return NewSQLiteStore(ctx, strings.TrimPrefix(u, "sqlite://"))
	case strings.HasSuffix(u, ".db"), strings.HasSuffix(u, ".sqlite"):
		return NewSQLiteStore(ctx, u)
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme in %q", redactURL(u))
	}
}

// redactURL drops credentials before a URL ends up in an error message.
func redactURL(u string) string {
	scheme, rest, ok := strings.Cut(u, "://")
	if !ok {
		return u
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = rest[at+1:]
	}
	return scheme + "://" + rest
}
