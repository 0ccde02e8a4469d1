package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found in cache")

type Cache interface {
	Init() error
	Deinit()

	PutSongs(ctx context.Context, songs map[string]json.RawMessage) error
	Song(ctx context.Context, id string) (json.RawMessage, error)
	SongIDs(ctx context.Context) ([]string, error)
	AllSongs(ctx context.Context) (map[string]json.RawMessage, error)

	PutBands(ctx context.Context, bands json.RawMessage) error
	Bands(ctx context.Context) (json.RawMessage, error)

	PutMeta(ctx context.Context, key string, value json.RawMessage) error
	Meta(ctx context.Context, key string) (json.RawMessage, error)

	// Keep a record of every conversion and what it cost
	RecordConversion(ctx context.Context, c Conversion) (string, error)
	Conversions(ctx context.Context, sum string) ([]Conversion, error)

	Clear(ctx context.Context) error
}

type Conversion struct {
	ID         string
	Sum        string // of the source chart
	Song       string
	Difficulty string
	Notes      int
	Dropped    int
	Created    time.Time
}
