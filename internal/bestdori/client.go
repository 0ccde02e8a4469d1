// Package bestdori fetches song metadata, charts and assets from the
// Bestdori API, optionally through a proxy that takes the upstream URL
// appended to its own.
package bestdori

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"git.lost.host/meutraa/lanecut/internal/game"
)

var (
	ErrStatus = errors.New("unexpected status")
	// Wrapped together with ErrStatus on a 404
	ErrNotFound = errors.New("not found upstream")
)

type Client struct {
	HTTP      *http.Client
	Proxy     string
	APIBase   string
	AssetBase string
	Server    string
	Logger    *zap.Logger
}

func (c *Client) logger() *zap.Logger {
	if nil == c.Logger {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Proxy+url, nil)
	if nil != err {
		return nil, err
	}
	client := c.HTTP
	if nil == client {
		client = http.DefaultClient
	}

	c.logger().Debug("fetching", zap.String("url", url))
	resp, err := client.Do(req)
	if nil != err {
		return nil, fmt.Errorf("unable to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %w: %s", ErrStatus, ErrNotFound, url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d for %s", ErrStatus, resp.StatusCode, url)
	}
	data, err := io.ReadAll(resp.Body)
	if nil != err {
		return nil, fmt.Errorf("unable to read %s: %w", url, err)
	}
	return data, nil
}

// SongIDs lists every song id the API knows about, in numeric order.
func (c *Client) SongIDs(ctx context.Context) ([]string, error) {
	data, err := c.get(ctx, c.APIBase+"songs/all.0.json")
	if nil != err {
		return nil, err
	}
	var index map[string]json.RawMessage
	if err := json.Unmarshal(data, &index); nil != err {
		return nil, fmt.Errorf("unable to decode song index: %w", err)
	}
	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	SortIDs(ids)
	return ids, nil
}

// Song returns the raw song document so it can be cached as is.
func (c *Client) Song(ctx context.Context, id string) (json.RawMessage, error) {
	data, err := c.get(ctx, c.APIBase+"songs/"+id+".json")
	if nil != err {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("song %s: invalid json", id)
	}
	return data, nil
}

func (c *Client) Bands(ctx context.Context) (json.RawMessage, error) {
	data, err := c.get(ctx, c.APIBase+"bands/all.1.json")
	if nil != err {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, errors.New("bands: invalid json")
	}
	return data, nil
}

// Chart returns the 7 lane chart JSON of a song.
func (c *Client) Chart(ctx context.Context, id string, d game.Difficulty) ([]byte, error) {
	return c.get(ctx, c.APIBase+"charts/"+id+"/"+d.String()+".json")
}

func (c *Client) MusicURL(song *Song) string {
	return fmt.Sprintf("%s%s/sound/%s_rip/%s.mp3", c.AssetBase, c.Server, song.BgmID, song.BgmID)
}

func (c *Client) Music(ctx context.Context, song *Song) ([]byte, error) {
	return c.get(ctx, c.MusicURL(song))
}

// JacketURL points into the asset bundle holding the jacket; bundles group
// ten songs each.
func (c *Client) JacketURL(id string, song *Song) (string, error) {
	n, err := strconv.Atoi(id)
	if nil != err {
		return "", fmt.Errorf("song id %q: %w", id, err)
	}
	if len(song.JacketImage) == 0 {
		return "", fmt.Errorf("song %s has no jacket", id)
	}
	pkg := (n + 9) / 10 * 10
	image := strings.Replace(song.JacketImage[0], "Introduction", "introduction", 1)
	return fmt.Sprintf(
		"%s%s/musicjacket/musicjacket%d_rip/assets-star-forassetbundle-startapp-musicjacket-musicjacket%d-%s-jacket.png",
		c.AssetBase, c.Server, pkg, pkg, image,
	), nil
}

func (c *Client) Jacket(ctx context.Context, id string, song *Song) ([]byte, error) {
	url, err := c.JacketURL(id, song)
	if nil != err {
		return nil, err
	}
	return c.get(ctx, url)
}

// SortIDs orders song ids numerically, non-numeric ids last.
func SortIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return LessID(ids[i], ids[j])
	})
}

func LessID(a, b string) bool {
	x, xerr := strconv.Atoi(a)
	y, yerr := strconv.Atoi(b)
	switch {
	case nil == xerr && nil == yerr:
		return x < y
	case nil == xerr:
		return true
	case nil == yerr:
		return false
	}
	return a < b
}
