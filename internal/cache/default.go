package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type DefaultCache struct {
	Path string

	db *sql.DB
}

const schema = `
create table if not exists songs (
	id text not null primary key,
	data blob not null
);
create table if not exists bands (
	key text not null primary key,
	data blob not null
);
create table if not exists meta (
	key text not null primary key,
	data blob not null
);
create table if not exists conversions (
	id text not null primary key,
	sum text not null,
	song text,
	difficulty text,
	notes integer,
	dropped integer,
	created integer
);
create index if not exists conversions_sum on conversions(sum);
`

func (c *DefaultCache) Init() error {
	db, err := sql.Open("sqlite3", c.Path)
	if nil != err {
		return err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(schema); nil != err {
		db.Close()
		return fmt.Errorf("unable to create cache schema: %w", err)
	}
	c.db = db
	return nil
}

func (c *DefaultCache) Deinit() {
	if nil != c.db {
		c.db.Close()
	}
}

// Hash identifies a chart by its content.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func (c *DefaultCache) PutSongs(ctx context.Context, songs map[string]json.RawMessage) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if nil != err {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "insert or replace into songs(id, data) values(?, ?)")
	if nil != err {
		return err
	}
	defer stmt.Close()

	for id, data := range songs {
		if _, err := stmt.ExecContext(ctx, id, []byte(data)); nil != err {
			return fmt.Errorf("unable to save song %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (c *DefaultCache) blob(ctx context.Context, query string, key string) (json.RawMessage, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx, query, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if nil != err {
		return nil, err
	}
	return data, nil
}

func (c *DefaultCache) Song(ctx context.Context, id string) (json.RawMessage, error) {
	return c.blob(ctx, "select data from songs where id = ?", id)
}

func (c *DefaultCache) SongIDs(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "select id from songs")
	if nil != err {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); nil != err {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (c *DefaultCache) AllSongs(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := c.db.QueryContext(ctx, "select id, data from songs")
	if nil != err {
		return nil, err
	}
	defer rows.Close()

	songs := make(map[string]json.RawMessage)
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); nil != err {
			return nil, err
		}
		songs[id] = data
	}
	return songs, rows.Err()
}

func (c *DefaultCache) PutBands(ctx context.Context, bands json.RawMessage) error {
	_, err := c.db.ExecContext(ctx, "insert or replace into bands(key, data) values('all', ?)", []byte(bands))
	return err
}

func (c *DefaultCache) Bands(ctx context.Context) (json.RawMessage, error) {
	return c.blob(ctx, "select data from bands where key = ?", "all")
}

func (c *DefaultCache) PutMeta(ctx context.Context, key string, value json.RawMessage) error {
	_, err := c.db.ExecContext(ctx, "insert or replace into meta(key, data) values(?, ?)", key, []byte(value))
	return err
}

func (c *DefaultCache) Meta(ctx context.Context, key string) (json.RawMessage, error) {
	return c.blob(ctx, "select data from meta where key = ?", key)
}

func (c *DefaultCache) RecordConversion(ctx context.Context, conv Conversion) (string, error) {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if conv.Created.IsZero() {
		conv.Created = time.Now()
	}
	_, err := c.db.ExecContext(ctx,
		"insert into conversions(id, sum, song, difficulty, notes, dropped, created) values(?, ?, ?, ?, ?, ?, ?)",
		conv.ID, conv.Sum, conv.Song, conv.Difficulty, conv.Notes, conv.Dropped, conv.Created.UnixMilli(),
	)
	if nil != err {
		return "", fmt.Errorf("unable to record conversion: %w", err)
	}
	return conv.ID, nil
}

func (c *DefaultCache) Conversions(ctx context.Context, sum string) ([]Conversion, error) {
	rows, err := c.db.QueryContext(ctx,
		"select id, sum, song, difficulty, notes, dropped, created from conversions where sum = ? order by created, id", sum)
	if nil != err {
		return nil, err
	}
	defer rows.Close()

	convs := []Conversion{}
	for rows.Next() {
		var conv Conversion
		var created int64
		if err := rows.Scan(&conv.ID, &conv.Sum, &conv.Song, &conv.Difficulty, &conv.Notes, &conv.Dropped, &created); nil != err {
			return nil, err
		}
		conv.Created = time.UnixMilli(created)
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// Clear empties every table. The schema stays so the cache is usable after.
func (c *DefaultCache) Clear(ctx context.Context) error {
	for _, table := range []string{"songs", "bands", "meta", "conversions"} {
		if _, err := c.db.ExecContext(ctx, "delete from "+table); nil != err {
			return fmt.Errorf("unable to clear %s: %w", table, err)
		}
	}
	return nil
}
