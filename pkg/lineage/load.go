package lineage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrDuplicateScript is returned when two record files in one load declare
// the same script_name. Scripts are the corpus key and must be unique.
var ErrDuplicateScript = errors.New("duplicate script name")

// loadConcurrency bounds parallel record reads during corpus assembly.
const loadConcurrency = 8

// LoadManifest assembles a corpus from a manifest file: a newline-delimited
// list of per-script JSON filenames, resolved relative to the manifest's
// directory. Blank lines and lines starting with '#' are skipped.
//
// Records are read concurrently; the first error cancels the remaining
// reads. The engine assumes the full corpus is present before a rebuild, so
// a partial load is never returned.
func LoadManifest(ctx context.Context, path string) (Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	defer f.Close()

	base := filepath.Dir(path)
	var files []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		files = append(files, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	return LoadFiles(ctx, files)
}

// LoadDir assembles a corpus from every *.json file directly inside dir.
// Subdirectories are not descended into.
func LoadDir(ctx context.Context, dir string) (Corpus, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}

	return LoadFiles(ctx, files)
}

// LoadFiles reads the given per-script record files into a corpus.
func LoadFiles(ctx context.Context, files []string) (Corpus, error) {
	corpus := make(Corpus, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)

	for _, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := ReadScriptFile(file)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if _, exists := corpus[s.Name]; exists {
				return fmt.Errorf("%w: %s (%s)", ErrDuplicateScript, s.Name, file)
			}
			corpus[s.Name] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return corpus, nil
}
