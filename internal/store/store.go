// Package store keeps one AppData snapshot in one slot of a key-value store.
//
// Reads never fail: a missing slot yields InitialData, and a corrupt slot is
// logged and replaced by InitialData in memory. Writes never fail either; a
// failed write is logged and reported through Err, and the in-memory
// snapshot stays authoritative until the next successful save.
package store

import (
	"errors"

	"github.com/charmbracelet/log"

	"github.com/amirbrooks/todo-vault/internal/codec"
	"github.com/amirbrooks/todo-vault/internal/kv"
	"github.com/amirbrooks/todo-vault/internal/logging"
	"github.com/amirbrooks/todo-vault/internal/model"
)

// DefaultKey is the slot name the browser app stored its snapshot under.
const DefaultKey = "todo_app_data"

type Gateway struct {
	kv      kv.Store
	key     string
	logger  *log.Logger
	lastErr error
}

type Option func(*Gateway)

func WithKey(key string) Option {
	return func(g *Gateway) {
		if key != "" {
			g.key = key
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(g *Gateway) { g.logger = logging.OrDiscard(l) }
}

func New(s kv.Store, opts ...Option) *Gateway {
	g := &Gateway{kv: s, key: DefaultKey, logger: logging.Discard()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Key() string { return g.key }

// InitialData is the first-run snapshot: no projects, every status shown,
// no tag filter, empty search.
func InitialData() model.AppData {
	return model.AppData{
		Projects: []model.Project{},
		Filters:  model.DefaultFilters(),
	}
}

// Load reads the slot, falling back to InitialData when it is missing or
// unreadable.
func (g *Gateway) Load() model.AppData {
	data, _ := g.load()
	return data
}

// LoadOrInit is Load, but an absent slot is also written with the initial
// snapshot. A present but corrupt slot is left alone so it can still be
// inspected or recovered. found reports whether the slot existed.
func (g *Gateway) LoadOrInit() (data model.AppData, found bool) {
	data, found = g.load()
	if !found {
		g.Save(data)
	}
	return data, found
}

func (g *Gateway) load() (model.AppData, bool) {
	raw, err := g.kv.Get(g.key)
	if errors.Is(err, kv.ErrNotFound) {
		g.logger.Debug("slot empty, using initial data", "key", g.key)
		return InitialData(), false
	}
	if err != nil {
		g.logger.Error("read slot failed, using initial data", "key", g.key, "err", err)
		return InitialData(), true
	}
	data, err := codec.Unmarshal(raw)
	if err != nil {
		g.logger.Warn("slot is not a snapshot, using initial data", "key", g.key, "bytes", len(raw), "err", err)
		return InitialData(), true
	}
	return data, true
}

// Save encodes data and writes it to the slot. Failures are logged and kept
// for Err; data itself is never modified.
func (g *Gateway) Save(data model.AppData) {
	b, err := codec.Marshal(data)
	if err != nil {
		g.fail("encode snapshot failed", err)
		return
	}
	if err := g.kv.Set(g.key, b); err != nil {
		g.fail("write slot failed", err, "bytes", len(b))
		return
	}
	g.lastErr = nil
	g.logger.Debug("snapshot saved", "key", g.key, "bytes", len(b), "projects", len(data.Projects))
}

func (g *Gateway) fail(msg string, err error, kvs ...any) {
	g.lastErr = err
	g.logger.Error(msg, append([]any{"key", g.key, "err", err}, kvs...)...)
}

// Err returns the error of the most recent Save, or nil if it succeeded.
func (g *Gateway) Err() error {
	return g.lastErr
}

// Diagnose reports where the stored slot deviates from the snapshot shape.
// A missing slot has no issues.
func (g *Gateway) Diagnose() ([]codec.Issue, error) {
	raw, err := g.kv.Get(g.key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return codec.Check(raw)
}
