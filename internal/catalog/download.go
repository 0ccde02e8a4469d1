package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/faiface/beep/mp3"
	"go.uber.org/zap"

	"git.lost.host/meutraa/lanecut/internal/bestdori"
	"git.lost.host/meutraa/lanecut/internal/cache"
	"git.lost.host/meutraa/lanecut/internal/convert"
	"git.lost.host/meutraa/lanecut/internal/game"
	"git.lost.host/meutraa/lanecut/internal/parser"
)

var (
	ErrNoDifficulty = errors.New("song has no chart at this difficulty")
	ErrUnknownSong  = errors.New("unknown song")
)

type Download struct {
	Filename string
	Data     []byte

	// Set for 6 lane charts
	Converted    bool
	Dropped      int
	ConversionID string

	// Set for music
	Length time.Duration
}

var unsafeChars = strings.NewReplacer(`\`, "-", "/", "-", ":", "-", "*", "-", "?", "-", `"`, "-", "<", "-", ">", "-", "|", "-")

// Sanitize makes s safe to use in a file name.
func Sanitize(s string) string {
	return unsafeChars.Replace(s)
}

// song loads a song from the cache, falling back to the API.
func (c *Catalog) song(ctx context.Context, id string) (*bestdori.Song, error) {
	data, err := c.Cache.Song(ctx, id)
	if errors.Is(err, cache.ErrNotFound) {
		data, err = c.Client.Song(ctx, id)
		if errors.Is(err, bestdori.ErrNotFound) {
			return nil, fmt.Errorf("%w %s: %w", ErrUnknownSong, id, err)
		}
		if nil != err {
			return nil, err
		}
		if err := c.Cache.PutSongs(ctx, map[string]json.RawMessage{id: data}); nil != err {
			c.logger().Warn("unable to cache song", zap.String("id", id), zap.Error(err))
		}
	} else if nil != err {
		return nil, err
	}
	var song bestdori.Song
	if err := json.Unmarshal(data, &song); nil != err {
		return nil, fmt.Errorf("song %s: %w", id, err)
	}
	return &song, nil
}

// baseName is "band - title", with Unknown for anything missing.
func (c *Catalog) baseName(ctx context.Context, song *bestdori.Song) string {
	title, ok := song.MusicTitle.At(c.Server)
	if !ok {
		title = "Unknown"
	}
	band := "Unknown"
	if raw, err := c.Cache.Bands(ctx); nil == err {
		var bands bestdori.Bands
		if nil == json.Unmarshal(raw, &bands) {
			if name, ok := bands[strconv.Itoa(song.BandID)].BandName.At(c.Server); ok {
				band = name
			}
		}
	}
	return Sanitize(band) + " - " + Sanitize(title)
}

// Chart downloads a chart, converting it to 6 lanes unless sevenLane is set.
func (c *Catalog) Chart(ctx context.Context, id string, d game.Difficulty, sevenLane bool) (*Download, error) {
	song, err := c.song(ctx, id)
	if nil != err {
		return nil, err
	}
	if !song.HasDifficulty(int(d)) {
		return nil, fmt.Errorf("%w: %s %v", ErrNoDifficulty, id, d)
	}
	raw, err := c.Client.Chart(ctx, id, d)
	if nil != err {
		return nil, err
	}

	base := c.baseName(ctx, song) + "_" + d.String()
	if sevenLane {
		return &Download{Filename: base + "_7k.json", Data: raw}, nil
	}

	p := parser.DefaultParser{}
	chart, err := p.Parse(raw)
	if nil != err {
		return nil, fmt.Errorf("chart %s %v: %w", id, d, err)
	}
	conv := convert.DefaultConverter{Logger: c.logger().With(zap.String("song", id), zap.Stringer("difficulty", d))}
	out, dropped := conv.Convert(chart)
	data, err := p.Encode(out, false)
	if nil != err {
		return nil, err
	}

	cid, err := c.Cache.RecordConversion(ctx, cache.Conversion{
		Sum:        cache.Hash(raw),
		Song:       id,
		Difficulty: d.String(),
		Notes:      len(chart.Notes),
		Dropped:    dropped,
	})
	if nil != err {
		c.logger().Warn("unable to record conversion", zap.Error(err))
	}
	return &Download{Filename: base + "_6k.json", Data: data, Converted: true, Dropped: dropped, ConversionID: cid}, nil
}

// Music downloads the song audio and checks that it decodes as MP3.
func (c *Catalog) Music(ctx context.Context, id string) (*Download, error) {
	song, err := c.song(ctx, id)
	if nil != err {
		return nil, err
	}
	data, err := c.Client.Music(ctx, song)
	if nil != err {
		return nil, err
	}
	length, err := mp3Length(data)
	if nil != err {
		return nil, fmt.Errorf("music for %s: %w", id, err)
	}
	return &Download{Filename: c.baseName(ctx, song) + ".mp3", Data: data, Length: length}, nil
}

func mp3Length(data []byte) (length time.Duration, err error) {
	// the decoder panics on some truncated streams
	defer func() {
		if r := recover(); nil != r {
			err = fmt.Errorf("invalid mp3: %v", r)
		}
	}()
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if nil != err {
		return 0, fmt.Errorf("invalid mp3: %w", err)
	}
	defer streamer.Close()
	return format.SampleRate.D(streamer.Len()), nil
}

func (c *Catalog) Jacket(ctx context.Context, id string) (*Download, error) {
	song, err := c.song(ctx, id)
	if nil != err {
		return nil, err
	}
	data, err := c.Client.Jacket(ctx, id, song)
	if nil != err {
		return nil, err
	}
	if _, err := png.DecodeConfig(bytes.NewReader(data)); nil != err {
		return nil, fmt.Errorf("jacket for %s: %w", id, err)
	}
	return &Download{Filename: c.baseName(ctx, song) + ".png", Data: data}, nil
}
