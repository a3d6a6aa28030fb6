package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"resetdb/internal/config"
	"resetdb/internal/registry"
	"resetdb/internal/store"
)

// session is an open store with the registry describing it.
type session struct {
	store    store.Store
	registry *registry.Registry
}

func (s *session) Close() error {
	return s.store.Close()
}

// commandContext applies the configured timeout and cancels on SIGINT/SIGTERM.
func commandContext(parent context.Context, c *config.Config) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancelTimeout := context.WithTimeout(parent, c.GetTimeout())
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancelTimeout()
	}
}

// openSession connects to the configured database and loads its registry:
// the manifest when one is configured, otherwise the SQLite schema.
func openSession(ctx context.Context, c *config.Config) (*session, error) {
	st, err := store.Open(ctx, store.Options{
		Driver:   c.Database.Driver,
		DSN:      c.Database.DSN,
		Database: c.Database.Name,
	})
	if err != nil {
		return nil, err
	}

	reg, err := loadRegistry(ctx, c, st)
	if err != nil {
		st.Close()
		return nil, err
	}
	logger.Debug("registry loaded",
		zap.Int("namespaces", len(reg.Namespaces())),
		zap.Int("collections", reg.Len()))
	return &session{store: st, registry: reg}, nil
}

func loadRegistry(ctx context.Context, c *config.Config, st store.Store) (*registry.Registry, error) {
	if c.Registry.Manifest != "" {
		return registry.LoadManifest(c.Registry.Manifest)
	}

	sqlStore, ok := st.(*store.SQLStore)
	if !ok || !store.IsSQLiteFamily(sqlStore.Driver()) {
		return nil, fmt.Errorf("driver %s cannot be introspected; set registry.manifest or --manifest", c.Database.Driver)
	}
	return registry.Introspect(ctx, sqlStore.DB(), registry.IntrospectOptions{
		DriverName:    sqlStore.Driver(),
		Namespaces:    c.Registry.Namespaces,
		ExcludeTables: c.Registry.ExcludeTables,
		Aliases:       c.Registry.Aliases,
	})
}
