package batch

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/oxhq/srcjs"
	"github.com/oxhq/srcjs/internal/cache"
)

// Result reports one file's outcome.
type Result struct {
	Input  string
	Output string
	Cached bool
	Err    error
}

// Runner fans a glob of SRC files out over a worker pool. Each worker
// calls srcjs.Convert independently; a conversion owns all
// of its mutable state, so the only shared pieces here are the cache
// store and the atomic writer.
type Runner struct {
	Options srcjs.Options
	Cache   *cache.Store
	Writer  *AtomicWriter
	Workers int

	// OutExt replaces the input extension on output paths. Default ".js".
	OutExt string
	// OutPath overrides the derived output path; only meaningful for a
	// single-input run.
	OutPath string
	// EmitMap writes the source map next to the output as <out>.map.
	EmitMap bool
}

// NewRunner builds a Runner with a default worker count.
func NewRunner(opts srcjs.Options, store *cache.Store) *Runner {
	return &Runner{
		Options: opts,
		Cache:   store,
		Writer:  NewAtomicWriter(DefaultWriteConfig()),
		Workers: runtime.NumCPU(),
		OutExt:  ".js",
	}
}

// Expand resolves a doublestar pattern against the filesystem, returning
// matching regular files.
func Expand(pattern string) ([]string, error) {
	base, rest := doublestar.SplitPattern(pattern)
	fsys := os.DirFS(base)
	matches, err := doublestar.Glob(fsys, rest)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		full := filepath.Join(base, m)
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, full)
	}
	return files, nil
}

// Run converts every file, writing outputs next to inputs, and streams a
// Result per file in completion order.
func (r *Runner) Run(ctx context.Context, files []string) <-chan Result {
	results := make(chan Result, len(files))
	paths := make(chan string)

	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range paths {
				select {
				case <-ctx.Done():
					results <- Result{Input: path, Err: ctx.Err()}
					continue
				default:
				}
				results <- r.convertOne(path)
			}
		}()
	}

	go func() {
		defer close(paths)
		for _, f := range files {
			select {
			case <-ctx.Done():
				return
			case paths <- f:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

func (r *Runner) convertOne(path string) Result {
	source, err := os.ReadFile(path)
	if err != nil {
		return Result{Input: path, Err: err}
	}

	opts := r.Options
	opts.File = path

	outPath := r.outputPath(path)

	digest := cache.Digest(string(source), opts)
	if cached, ok := r.Cache.Get(digest); ok {
		if err := r.writeOutputs(outPath, cached); err != nil {
			return Result{Input: path, Output: outPath, Cached: true, Err: err}
		}
		return Result{Input: path, Output: outPath, Cached: true}
	}

	result, err := srcjs.Convert(string(source), opts)
	if err != nil {
		return Result{Input: path, Err: err}
	}
	if err := r.Cache.Put(digest, path, opts, result); err != nil {
		return Result{Input: path, Output: outPath, Err: err}
	}
	if err := r.writeOutputs(outPath, result); err != nil {
		return Result{Input: path, Output: outPath, Err: err}
	}
	return Result{Input: path, Output: outPath}
}

func (r *Runner) outputPath(input string) string {
	if r.OutPath != "" {
		return r.OutPath
	}
	ext := r.OutExt
	if ext == "" {
		ext = ".js"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

func (r *Runner) writeOutputs(outPath string, result *srcjs.Result) error {
	text := result.Text
	if r.EmitMap && result.Map != nil {
		text += "\n//# sourceMappingURL=" + filepath.Base(outPath) + ".map\n"
	}
	if err := r.Writer.WriteFile(outPath, text); err != nil {
		return err
	}
	if r.EmitMap && result.Map != nil {
		payload, err := result.Map.MarshalJSON()
		if err != nil {
			return err
		}
		return r.Writer.WriteFile(outPath+".map", string(payload))
	}
	return nil
}
