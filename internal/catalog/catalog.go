// Package catalog keeps a local copy of the Bestdori song list for search
// and turns songs into downloadable charts and assets.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"git.lost.host/meutraa/lanecut/internal/bestdori"
	"git.lost.host/meutraa/lanecut/internal/cache"
)

const indexKey = "searchIndex"

var ErrNotSynced = errors.New("catalog has not been synced")

// Entry is one song in the search index.
type Entry struct {
	ID    string  `json:"id"`
	Title *string `json:"title"`
	Band  string  `json:"bandName"`
}

type Catalog struct {
	Client *bestdori.Client
	Cache  cache.Cache

	// Position of the title language in localized arrays
	Server  int
	Workers int
	Logger  *zap.Logger
}

func (c *Catalog) logger() *zap.Logger {
	if nil == c.Logger {
		return zap.NewNop()
	}
	return c.Logger
}

// Sync pulls songs into the cache. A full sync fetches every song, an update
// only the ids not cached yet. Songs that fail to download are logged and
// skipped. Returns the number of songs stored.
func (c *Catalog) Sync(ctx context.Context, update bool) (int, error) {
	ids, err := c.Client.SongIDs(ctx)
	if nil != err {
		return 0, err
	}

	if update {
		cached, err := c.Cache.SongIDs(ctx)
		if nil != err {
			return 0, err
		}
		have := make(map[string]bool, len(cached))
		for _, id := range cached {
			have[id] = true
		}
		missing := ids[:0:0]
		for _, id := range ids {
			if !have[id] {
				missing = append(missing, id)
			}
		}
		ids = missing
		if len(ids) == 0 {
			c.logger().Info("catalog is up to date")
			return 0, nil
		}
	}
	c.logger().Info("fetching songs", zap.Int("count", len(ids)), zap.Bool("update", update))

	fetched := make([]json.RawMessage, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.Workers, 1))
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			data, err := c.Client.Song(gctx, id)
			if nil != err {
				if nil != ctx.Err() {
					return ctx.Err()
				}
				c.logger().Warn("unable to fetch song", zap.String("id", id), zap.Error(err))
				return nil
			}
			fetched[i] = data
			return nil
		})
	}
	if err := g.Wait(); nil != err {
		return 0, err
	}

	songs := make(map[string]json.RawMessage, len(ids))
	for i, data := range fetched {
		if nil != data {
			songs[ids[i]] = data
		}
	}
	if err := c.Cache.PutSongs(ctx, songs); nil != err {
		return 0, err
	}

	if len(songs) > 0 || !update {
		if err := c.Reindex(ctx); nil != err {
			return len(songs), err
		}
	}
	c.logger().Info("catalog synced", zap.Int("songs", len(songs)), zap.Int("failed", len(ids)-len(songs)))
	return len(songs), nil
}

// Reindex refreshes the band list and rebuilds the search index from every
// cached song.
func (c *Catalog) Reindex(ctx context.Context) error {
	bands, err := c.Client.Bands(ctx)
	if nil != err {
		return err
	}
	if err := c.Cache.PutBands(ctx, bands); nil != err {
		return err
	}
	songs, err := c.Cache.AllSongs(ctx)
	if nil != err {
		return err
	}
	index, err := c.buildIndex(songs, bands)
	if nil != err {
		return err
	}
	data, err := json.Marshal(index)
	if nil != err {
		return err
	}
	return c.Cache.PutMeta(ctx, indexKey, data)
}

func (c *Catalog) buildIndex(songs map[string]json.RawMessage, rawBands json.RawMessage) ([]Entry, error) {
	var bands bestdori.Bands
	if err := json.Unmarshal(rawBands, &bands); nil != err {
		return nil, fmt.Errorf("unable to decode bands: %w", err)
	}

	index := make([]Entry, 0, len(songs))
	for id, data := range songs {
		var song bestdori.Song
		if err := json.Unmarshal(data, &song); nil != err {
			c.logger().Warn("skipping undecodable song", zap.String("id", id), zap.Error(err))
			continue
		}
		entry := Entry{ID: id}
		if title, ok := song.MusicTitle.At(c.Server); ok {
			entry.Title = &title
		}
		entry.Band, _ = bands[strconv.Itoa(song.BandID)].BandName.At(c.Server)
		index = append(index, entry)
	}
	sort.Slice(index, func(i, j int) bool { return bestdori.LessID(index[i].ID, index[j].ID) })
	return index, nil
}

func (c *Catalog) Index(ctx context.Context) ([]Entry, error) {
	data, err := c.Cache.Meta(ctx, indexKey)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrNotSynced
	}
	if nil != err {
		return nil, err
	}
	var index []Entry
	if err := json.Unmarshal(data, &index); nil != err {
		return nil, fmt.Errorf("corrupt search index: %w", err)
	}
	return index, nil
}

// Search matches the query against title, band and id. Songs without a
// title on the configured server are never listed.
func (c *Catalog) Search(ctx context.Context, query string) ([]Entry, error) {
	index, err := c.Index(ctx)
	if nil != err {
		return nil, err
	}
	return filter(index, query), nil
}

func filter(index []Entry, query string) []Entry {
	query = strings.ToLower(strings.TrimSpace(query))
	matches := []Entry{}
	for _, e := range index {
		if nil == e.Title || *e.Title == "" {
			continue
		}
		haystack := strings.ToLower(*e.Title + " " + e.Band + " " + e.ID)
		if strings.Contains(haystack, query) {
			matches = append(matches, e)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return bestdori.LessID(matches[i].ID, matches[j].ID) })
	return matches
}
