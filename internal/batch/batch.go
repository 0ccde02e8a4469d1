// Package batch converts many chart files at once.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"git.lost.host/meutraa/lanecut/internal/convert"
	"git.lost.host/meutraa/lanecut/internal/parser"
)

type Result struct {
	Input   string
	Output  string
	Notes   int
	Dropped int
	Err     error
}

type Batch struct {
	Dir     string
	Workers int
	Indent  bool
	Logger  *zap.Logger
}

// OutputName is the file a chart converts to: its base name with the
// extension replaced by _6k.json.
func OutputName(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_6k.json"
}

// Run converts every file into Dir. A file that fails is reported in its
// result and does not stop the others. Results are in input order.
func (b *Batch) Run(ctx context.Context, files []string) ([]Result, error) {
	logger := b.Logger
	if nil == logger {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(b.Dir, 0o755); nil != err {
		return nil, err
	}

	results := make([]Result, len(files))
	owner := make(map[string]string, len(files))
	for i, file := range files {
		out := filepath.Join(b.Dir, OutputName(file))
		results[i] = Result{Input: file, Output: out}
		if prev, ok := owner[out]; ok {
			results[i].Err = fmt.Errorf("%s: output %s already written by %s", file, out, prev)
			continue
		}
		owner[out] = file
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.Workers, 1))
	for i := range results {
		r := &results[i]
		if nil != r.Err {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); nil != err {
				return err
			}
			r.Notes, r.Dropped, r.Err = b.convert(r.Input, r.Output)
			if nil != r.Err {
				logger.Warn("conversion failed", zap.String("file", r.Input), zap.Error(r.Err))
				return nil
			}
			logger.Info("converted",
				zap.String("file", r.Input),
				zap.String("output", r.Output),
				zap.Int("notes", r.Notes),
				zap.Int("dropped", r.Dropped),
			)
			return nil
		})
	}
	if err := g.Wait(); nil != err {
		return results, err
	}
	return results, nil
}

func (b *Batch) convert(input, output string) (int, int, error) {
	p := parser.DefaultParser{}
	chart, err := p.ParseFile(input)
	if nil != err {
		return 0, 0, err
	}
	out, dropped := convert.Convert(chart)
	data, err := p.Encode(out, b.Indent)
	if nil != err {
		return 0, 0, err
	}
	if err := os.WriteFile(output, data, 0o644); nil != err {
		return 0, 0, err
	}
	return len(chart.Notes), dropped, nil
}
