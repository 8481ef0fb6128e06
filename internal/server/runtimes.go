package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/course-player/internal/platform/cache"
	"github.com/p-n-ai/course-player/internal/platform/config"
	"github.com/p-n-ai/course-player/internal/registration"
	"github.com/p-n-ai/course-player/internal/runtime"
)

// RuntimeOpener returns an initialized runtime for a registration. The
// closer, when not nil, releases host resources after the runtime is
// terminated.
type RuntimeOpener interface {
	Open(ctx context.Context, reg *registration.Registration) (runtime.Runtime, io.Closer, error)
}

// Runtimes opens bridges against the host selected by configuration.
// Without a host (or when the host refuses to initialize) sessions run in
// preview mode on the configured local store.
type Runtimes struct {
	cfg    config.RuntimeConfig
	pool   *pgxpool.Pool
	sqlite *sqlx.DB
	redis  *redis.Client
	tokens *Tokens
	log    *slog.Logger

	mu     sync.Mutex
	memory map[string]*runtime.MemoryLocalStore
}

// RuntimeDeps are the connections a Runtimes may need. Unused ones may be nil.
type RuntimeDeps struct {
	Pool   *pgxpool.Pool
	SQLite *sqlx.DB
	Redis  *redis.Client
	// Tokens, when set, signs the launch token sent to a WebSocket host.
	Tokens *Tokens
	Logger *slog.Logger
}

// NewRuntimes checks that the connections the configuration needs are present.
func NewRuntimes(cfg config.RuntimeConfig, deps RuntimeDeps) (*Runtimes, error) {
	if cfg.Host == config.HostPostgres && deps.Pool == nil {
		return nil, fmt.Errorf("postgres runtime host needs a database")
	}
	switch cfg.Local {
	case config.LocalSQLite:
		if deps.SQLite == nil {
			return nil, fmt.Errorf("sqlite preview store needs a database")
		}
	case config.LocalRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("redis preview store needs a cache")
		}
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runtimes{
		cfg:    cfg,
		pool:   deps.Pool,
		sqlite: deps.SQLite,
		redis:  deps.Redis,
		tokens: deps.Tokens,
		log:    log,
		memory: make(map[string]*runtime.MemoryLocalStore),
	}, nil
}

// Open builds and initializes a bridge for reg.
func (r *Runtimes) Open(ctx context.Context, reg *registration.Registration) (runtime.Runtime, io.Closer, error) {
	var (
		frame  runtime.Frame
		closer io.Closer
	)
	switch r.cfg.Host {
	case config.HostPostgres:
		frame = runtime.Nest(runtime.NewPostgresHost(r.pool, reg.ID), 0)
	case config.HostWebSocket:
		token := ""
		if r.tokens != nil {
			tok, err := r.tokens.Issue(reg)
			if err != nil {
				return nil, nil, err
			}
			token = tok
		}
		host, err := runtime.DialWebSocketHost(ctx, hostURL(r.cfg.HostURL, reg.ID, token))
		if err != nil {
			return nil, nil, err
		}
		frame, closer = runtime.Nest(host, 0), host
	}

	log := r.log.With("registration_id", reg.ID)
	b := runtime.NewBridge(runtime.Options{
		Frame:            frame,
		MaxDepth:         r.cfg.MaxFrameDepth,
		Local:            r.local(reg),
		SuspendDataLimit: r.cfg.SuspendLimit,
		Logger:           log,
	})
	if !b.Initialize() && frame != nil {
		log.Warn("lms host unavailable, running in preview mode", "host", r.cfg.Host)
	}
	return b, closer, nil
}

// local returns the preview store for the learner and course, so preview
// progress follows the learner across registrations.
func (r *Runtimes) local(reg *registration.Registration) runtime.LocalStore {
	switch r.cfg.Local {
	case config.LocalSQLite:
		return runtime.NewSQLiteLocalStore(r.sqlite, reg.LearnerID+"/"+reg.CourseID)
	case config.LocalRedis:
		return runtime.NewRedisLocalStore(r.redis, cache.Key("preview", reg.LearnerID, reg.CourseID))
	default:
		key := reg.LearnerID + "/" + reg.CourseID
		r.mu.Lock()
		defer r.mu.Unlock()
		s, ok := r.memory[key]
		if !ok {
			s = runtime.NewMemoryLocalStore()
			r.memory[key] = s
		}
		return s
	}
}

func hostURL(base, registrationID, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("registration", registrationID)
	if token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
