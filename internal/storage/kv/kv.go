// Package kv holds the durable named-blob substrate behind the balance cache.
// Every backend offers whole-blob Get/Set with read-your-writes consistency.
package kv

import (
	"context"
	"fmt"
	"strings"
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Options struct {
	Driver   string
	Path     string
	MongoURI string
	Database string
}

func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverSQLite:
		return NewSQLite(opts.Path)
	case DriverBadger:
		return NewBadger(opts.Path)
	case DriverMongo:
		return NewMongo(ctx, opts.MongoURI, opts.Database)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
