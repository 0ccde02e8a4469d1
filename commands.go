package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/eiannone/keyboard"
	"go.uber.org/zap"
	"golang.org/x/term"
	"gopkg.in/alecthomas/kingpin.v2"

	"git.lost.host/meutraa/lanecut/internal/batch"
	"git.lost.host/meutraa/lanecut/internal/bestdori"
	"git.lost.host/meutraa/lanecut/internal/cache"
	"git.lost.host/meutraa/lanecut/internal/catalog"
	"git.lost.host/meutraa/lanecut/internal/config"
	"git.lost.host/meutraa/lanecut/internal/convert"
	"git.lost.host/meutraa/lanecut/internal/game"
	"git.lost.host/meutraa/lanecut/internal/parser"
	"git.lost.host/meutraa/lanecut/internal/render"
	"git.lost.host/meutraa/lanecut/internal/server"
	"git.lost.host/meutraa/lanecut/internal/theme"
)

type env struct {
	cfg    config.Config
	logger *zap.Logger
	out    io.Writer
	errOut io.Writer
}

type commands struct {
	convert *kingpin.CmdClause
	input   *string
	output  *string
	indent  *bool

	batch    *kingpin.CmdClause
	files    *[]string
	batchDir *string

	history     *kingpin.CmdClause
	historyFile *string

	sync   *kingpin.CmdClause
	update *bool

	search *kingpin.CmdClause
	query  *[]string

	download    *kingpin.CmdClause
	songID      *string
	difficulty  *string
	sevenLane   *bool
	downloadDir *string

	music    *kingpin.CmdClause
	musicID  *string
	musicDir *string

	jacket    *kingpin.CmdClause
	jacketID  *string
	jacketDir *string

	preview      *kingpin.CmdClause
	previewFile  *string
	previewConv  *bool
	previewLanes *int
	division     *int

	serve  *kingpin.CmdClause
	listen *string

	clear *kingpin.CmdClause
	yes   *bool
}

func register(app *kingpin.Application) *commands {
	c := &commands{}

	c.convert = app.Command("convert", "Convert a 7 lane chart file to 6 lanes.")
	c.input = c.convert.Arg("input", "7 lane chart JSON").Required().ExistingFile()
	c.output = c.convert.Flag("output", "Output file, stdout when empty").Short('o').String()
	c.indent = c.convert.Flag("indent", "Indent the output").Bool()

	c.batch = app.Command("batch", "Convert many chart files into a directory.")
	c.files = c.batch.Arg("files", "7 lane chart JSON files").Required().ExistingFiles()
	c.batchDir = c.batch.Flag("dir", "Output directory").Short('d').Default(".").String()

	c.history = app.Command("history", "List earlier conversions of a chart file.")
	c.historyFile = c.history.Arg("input", "7 lane chart JSON").Required().ExistingFile()

	c.sync = app.Command("sync", "Download the song list into the cache.")
	c.update = c.sync.Flag("update", "Only fetch songs not cached yet").Short('u').Bool()

	c.search = app.Command("search", "Search cached songs by title, band or id.")
	c.query = c.search.Arg("query", "Search terms").Strings()

	c.download = app.Command("download", "Download a chart, converted to 6 lanes.")
	c.songID = c.download.Arg("id", "Song id").Required().String()
	c.difficulty = c.download.Arg("difficulty", "Chart difficulty").Required().Enum(game.Difficulties[:]...)
	c.sevenLane = c.download.Flag("7k", "Keep the original 7 lane chart").Bool()
	c.downloadDir = c.download.Flag("dir", "Output directory").Short('d').Default(".").String()

	c.music = app.Command("music", "Download the song audio.")
	c.musicID = c.music.Arg("id", "Song id").Required().String()
	c.musicDir = c.music.Flag("dir", "Output directory").Short('d').Default(".").String()

	c.jacket = app.Command("jacket", "Download the song jacket image.")
	c.jacketID = c.jacket.Arg("id", "Song id").Required().String()
	c.jacketDir = c.jacket.Flag("dir", "Output directory").Short('d').Default(".").String()

	c.preview = app.Command("preview", "Draw a chart file in the terminal.")
	c.previewFile = c.preview.Arg("input", "Chart JSON").Required().ExistingFile()
	c.previewConv = c.preview.Flag("convert", "Convert to 6 lanes before drawing").Bool()
	c.previewLanes = c.preview.Flag("lanes", "Lane count of the input").Default("7").Int()
	c.division = c.preview.Flag("division", "Rows per beat").Default("4").Int()

	c.serve = app.Command("serve", "Serve conversion and the catalog over HTTP.")
	c.listen = c.serve.Flag("listen", "Listen address").Short('l').String()

	c.clear = app.Command("clear-cache", "Delete everything in the cache.")
	c.yes = c.clear.Flag("yes", "Do not ask for confirmation").Short('y').Bool()

	return c
}

func (c *commands) dispatch(ctx context.Context, e *env, command string) error {
	switch command {
	case c.convert.FullCommand():
		return e.convertFile(*c.input, *c.output, *c.indent)
	case c.batch.FullCommand():
		return e.batch(ctx, *c.files, *c.batchDir)
	case c.history.FullCommand():
		return e.history(ctx, *c.historyFile)
	case c.sync.FullCommand():
		return e.sync(ctx, *c.update)
	case c.search.FullCommand():
		return e.search(ctx, strings.Join(*c.query, " "))
	case c.download.FullCommand():
		d, err := game.ParseDifficulty(*c.difficulty)
		if nil != err {
			return err
		}
		return e.download(ctx, *c.downloadDir, func(cat *catalog.Catalog) (*catalog.Download, error) {
			return cat.Chart(ctx, *c.songID, d, *c.sevenLane)
		})
	case c.music.FullCommand():
		return e.download(ctx, *c.musicDir, func(cat *catalog.Catalog) (*catalog.Download, error) {
			return cat.Music(ctx, *c.musicID)
		})
	case c.jacket.FullCommand():
		return e.download(ctx, *c.jacketDir, func(cat *catalog.Catalog) (*catalog.Download, error) {
			return cat.Jacket(ctx, *c.jacketID)
		})
	case c.preview.FullCommand():
		return e.preview(*c.previewFile, *c.previewLanes, *c.division, *c.previewConv)
	case c.serve.FullCommand():
		if *c.listen != "" {
			e.cfg.Listen = *c.listen
		}
		return e.serve(ctx)
	case c.clear.FullCommand():
		return e.clearCache(ctx, *c.yes)
	}
	return fmt.Errorf("unknown command %q", command)
}

func (e *env) openCache() (*cache.DefaultCache, error) {
	c := &cache.DefaultCache{Path: e.cfg.Cache}
	if err := c.Init(); nil != err {
		return nil, fmt.Errorf("unable to open cache %s: %w", e.cfg.Cache, err)
	}
	return c, nil
}

func (e *env) openCatalog() (*catalog.Catalog, func(), error) {
	c, err := e.openCache()
	if nil != err {
		return nil, nil, err
	}
	return &catalog.Catalog{
		Client: &bestdori.Client{
			HTTP:      &http.Client{Timeout: e.cfg.Timeout},
			Proxy:     e.cfg.Proxy,
			APIBase:   e.cfg.APIBase,
			AssetBase: e.cfg.AssetBase,
			Server:    e.cfg.Server,
			Logger:    e.logger.Named("bestdori"),
		},
		Cache:   c,
		Server:  e.cfg.ServerIndex(),
		Workers: e.cfg.Workers,
		Logger:  e.logger.Named("catalog"),
	}, c.Deinit, nil
}

func (e *env) convertFile(input, output string, indent bool) error {
	p := parser.DefaultParser{}
	chart, err := p.ParseFile(input)
	if nil != err {
		return err
	}
	conv := convert.DefaultConverter{Logger: e.logger.With(zap.String("file", input))}
	out, dropped := conv.Convert(chart)
	data, err := p.Encode(out, indent)
	if nil != err {
		return err
	}

	if output == "" {
		if _, err := e.out.Write(append(data, '\n')); nil != err {
			return err
		}
		fmt.Fprintf(e.errOut, "%d notes, %d dropped\n", len(chart.Notes), dropped)
		return nil
	}
	if err := os.WriteFile(output, data, 0o644); nil != err {
		return err
	}
	fmt.Fprintf(e.out, "%s: %d notes, %d dropped\n", output, len(chart.Notes), dropped)
	return nil
}

func (e *env) batch(ctx context.Context, files []string, dir string) error {
	b := &batch.Batch{Dir: dir, Workers: e.cfg.Workers, Logger: e.logger.Named("batch")}
	results, err := b.Run(ctx, files)
	if nil != err {
		return err
	}
	failed := 0
	for _, r := range results {
		if nil != r.Err {
			failed++
			fmt.Fprintf(e.out, "%s: %v\n", r.Input, r.Err)
			continue
		}
		fmt.Fprintf(e.out, "%s: %d notes, %d dropped\n", r.Output, r.Notes, r.Dropped)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func (e *env) history(ctx context.Context, input string) error {
	data, err := os.ReadFile(input)
	if nil != err {
		return err
	}
	c, err := e.openCache()
	if nil != err {
		return err
	}
	defer c.Deinit()

	convs, err := c.Conversions(ctx, cache.Hash(data))
	if nil != err {
		return err
	}
	if len(convs) == 0 {
		fmt.Fprintln(e.out, "no conversions recorded")
		return nil
	}
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	for _, conv := range convs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d notes\t%d dropped\n",
			conv.Created.Format("2006-01-02 15:04"), conv.ID, conv.Song, conv.Difficulty, conv.Notes, conv.Dropped)
	}
	return w.Flush()
}

func (e *env) sync(ctx context.Context, update bool) error {
	cat, done, err := e.openCatalog()
	if nil != err {
		return err
	}
	defer done()

	n, err := cat.Sync(ctx, update)
	if nil != err {
		return err
	}
	fmt.Fprintf(e.out, "%d songs synced\n", n)
	return nil
}

func (e *env) search(ctx context.Context, query string) error {
	cat, done, err := e.openCatalog()
	if nil != err {
		return err
	}
	defer done()

	entries, err := cat.Search(ctx, query)
	if errors.Is(err, catalog.ErrNotSynced) {
		return fmt.Errorf("%w, run lanecut sync first", err)
	}
	if nil != err {
		return err
	}
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", entry.ID, *entry.Title, entry.Band)
	}
	return w.Flush()
}

func (e *env) download(ctx context.Context, dir string, fetch func(*catalog.Catalog) (*catalog.Download, error)) error {
	cat, done, err := e.openCatalog()
	if nil != err {
		return err
	}
	defer done()

	dl, err := fetch(cat)
	if nil != err {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); nil != err {
		return err
	}
	path := filepath.Join(dir, dl.Filename)
	if err := os.WriteFile(path, dl.Data, 0o644); nil != err {
		return err
	}

	switch {
	case dl.Length > 0:
		fmt.Fprintf(e.out, "%s (%s)\n", path, dl.Length.Round(time.Second))
	case dl.Converted:
		fmt.Fprintf(e.out, "%s: %d dropped\n", path, dl.Dropped)
	default:
		fmt.Fprintln(e.out, path)
	}
	return nil
}

var errConvertLanes = fmt.Errorf("only %d lane charts can be converted", game.SourceLanes)

func (e *env) preview(input string, lanes, division int, conv bool) error {
	if conv && lanes != game.SourceLanes {
		return fmt.Errorf("%w, not %d", errConvertLanes, lanes)
	}
	p := parser.DefaultParser{Lanes: lanes}
	chart, err := p.ParseFile(input)
	if nil != err {
		return err
	}
	if conv {
		var dropped int
		c := convert.DefaultConverter{Logger: e.logger}
		chart, dropped = c.Convert(chart)
		lanes = game.TargetLanes
		fmt.Fprintf(e.errOut, "%d dropped\n", dropped)
	}

	r := &render.DefaultRenderer{Theme: &theme.DefaultTheme{}, Lanes: lanes, Division: division}
	if f, ok := e.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.Color = true
		if width, _, err := term.GetSize(int(f.Fd())); nil == err {
			// spread the lanes over the terminal, up to four columns each
			r.CellWidth = min(max((width-8)/lanes, 2), 4)
		}
	}
	return r.Render(e.out, chart)
}

func (e *env) serve(ctx context.Context) error {
	cat, done, err := e.openCatalog()
	if nil != err {
		return err
	}
	defer done()

	s := &server.Server{Catalog: cat, Logger: e.logger.Named("http")}
	return s.ListenAndServe(ctx, e.cfg.Listen)
}

func (e *env) clearCache(ctx context.Context, yes bool) error {
	if !yes {
		fmt.Fprintf(e.out, "Delete everything in %s? [y/N] ", e.cfg.Cache)
		ch, _, err := keyboard.GetSingleKey()
		fmt.Fprintln(e.out)
		if nil != err {
			return fmt.Errorf("unable to read confirmation, pass --yes: %w", err)
		}
		if ch != 'y' && ch != 'Y' {
			return errors.New("aborted")
		}
	}

	c, err := e.openCache()
	if nil != err {
		return err
	}
	defer c.Deinit()
	if err := c.Clear(ctx); nil != err {
		return err
	}
	fmt.Fprintln(e.out, "cache cleared")
	return nil
}
