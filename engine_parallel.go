package gqlembed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/jward/gqlembed/internal/fragments"
	"github.com/jward/gqlembed/internal/host"
	"github.com/jward/gqlembed/internal/store"
)

// workItem holds one file read by a worker.
type workItem struct {
	path string
	text string
	hash string
	err  error
}

// IndexFiles loads files from disk into the engine using a three-phase
// pipeline:
//
//	Phase A (parallel): read and hash files via a worker pool.
//	Phase B (serial):   apply texts to the project and registry.
//	Phase C (serial):   commit batches to SQLite for files whose content,
//	                    or the content of a file they were built from, changed.
//
// Files with unsupported extensions are skipped.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	var supported []string
	for _, p := range paths {
		if host.Supported(p) {
			supported = append(supported, p)
		}
	}
	if len(supported) == 0 {
		return nil
	}

	// ---- Phase A: Parallel read ----
	items := e.readFiles(ctx, supported)

	// ---- Phase B: Serial apply ----
	var errs []error
	changed := make(map[string]bool)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if item.err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", item.path, item.err))
			continue
		}
		if _, err := e.UpdateFile(ctx, item.path, item.text); err != nil {
			errs = append(errs, err)
			continue
		}
		stale, err := e.storedHashDiffers(item.path, item.hash)
		if err != nil {
			errs = append(errs, err)
		} else if stale {
			changed[host.Clean(item.path)] = true
		}
		if e.progress != nil {
			e.progress(i+1, len(items), item.path)
		}
	}

	// ---- Phase C: Serial commit ----
	if e.store != nil {
		for _, path := range e.affected(changed) {
			if err := e.persist(path); err != nil {
				errs = append(errs, fmt.Errorf("commit %s: %w", path, err))
			}
		}
		if err := e.store.SetMetadata("registry_version", fmt.Sprint(e.registry.Version())); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// readFiles reads paths with a worker pool and returns the results in the
// order of paths.
func (e *Engine) readFiles(ctx context.Context, paths []string) []workItem {
	numWorkers := e.workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = max(1, min(numWorkers, len(paths)))

	items := make([]workItem, len(paths))
	workCh := make(chan int, len(paths))
	for i := range paths {
		workCh <- i
	}
	close(workCh)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workCh {
				item := workItem{path: paths[i]}
				if err := ctx.Err(); err != nil {
					item.err = err
				} else if content, err := os.ReadFile(paths[i]); err != nil {
					item.err = err
				} else {
					item.text = string(content)
					item.hash = store.ContentHash(item.text)
				}
				items[i] = item
			}
		}()
	}
	wg.Wait()
	return items
}

// storedHashDiffers reports whether the store holds a different hash for
// path, or none. Without a store nothing is stale.
func (e *Engine) storedHashDiffers(path, hash string) (bool, error) {
	if e.store == nil {
		return false, nil
	}
	f, err := e.store.FileByPath(host.Clean(path))
	if err != nil {
		return false, fmt.Errorf("hash check %s: %w", path, err)
	}
	return f == nil || f.Hash != hash, nil
}

// affected expands changed files to every held file whose documents were
// built from one of them, plus files with unresolved documents whose
// imports reach one of them. The result is sorted.
func (e *Engine) affected(changed map[string]bool) []string {
	if len(changed) == 0 {
		return nil
	}
	var out []string
	for _, file := range e.project.Files() {
		st := e.files[file]
		hit := changed[file]
		if !hit && st != nil {
			for dep := range changed {
				if _, ok := st.deps[dep]; ok || (st.unresolved && e.project.Reaches(file, dep)) {
					hit = true
					break
				}
			}
		}
		if hit {
			out = append(out, file)
		}
	}
	return out
}

// persist replaces what the store holds for path with the engine's
// current view of it.
func (e *Engine) persist(path string) error {
	text, ok := e.project.FileText(path)
	if !ok {
		return nil
	}
	batch := store.NewBatchedStore(path, store.ContentHash(text))
	if err := e.writeFile(batch, path); err != nil {
		return err
	}
	_, err := e.store.CommitBatch(batch)
	return err
}

// writeFile writes the documents of path, with the fragments they define
// and the names they spread, to ds.
func (e *Engine) writeFile(ds store.DataStore, path string) error {
	entries := e.registry.Entries(path)
	for i, lit := range e.project.Literals(path) {
		d := &store.Document{Ordinal: i}
		if inner := lit.Literal(); inner != nil {
			d.StartOffset, d.EndOffset = inner.Start(), inner.End()
		}
		doc, unresolved, err := e.Resolve(lit.Key())
		switch {
		case err != nil:
			d.Error = err.Error()
		case len(unresolved) > 0:
			reasons := make([]string, len(unresolved))
			for j, re := range unresolved {
				reasons[j] = re.Error()
			}
			d.Error = strings.Join(reasons, "\n")
		default:
			d.Text = doc.Text
			d.Resolved = true
		}
		docID, err := ds.InsertDocument(d)
		if err != nil {
			return err
		}
		if !d.Resolved {
			continue
		}

		for _, entry := range entries {
			if entry.Offset != doc.Span.Start {
				continue
			}
			if _, err := ds.InsertFragment(&store.Fragment{
				DocumentID:    docID,
				Name:          entry.Name,
				TypeCondition: entry.Node.TypeCondition,
				TextOffset:    entry.TextOffset,
				Body:          entry.Body,
			}); err != nil {
				return err
			}
		}
		if parsed, err := fragments.Parse(path, doc.Text); err == nil {
			for _, name := range fragments.Spreads(parsed) {
				if _, err := ds.InsertSpread(&store.Spread{DocumentID: docID, Name: name}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// IndexDirectory indexes every file under root that the configured
// include and exclude patterns select. With a store, files indexed
// earlier under root that no longer exist are dropped from it.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	paths, err := e.cfg.Matcher().Walk(root)
	if err != nil {
		return fmt.Errorf("walk %s: %w", root, err)
	}
	if err := e.IndexFiles(ctx, paths); err != nil {
		return err
	}
	if e.store == nil {
		return nil
	}

	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		seen[host.Clean(p)] = true
	}
	prefix := host.Clean(root) + "/"
	stored, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("list stored files: %w", err)
	}
	for _, f := range stored {
		under := (host.Clean(root) == "." && !filepath.IsAbs(f.Path)) || strings.HasPrefix(f.Path, prefix)
		if under && !seen[f.Path] {
			if err := e.store.DeleteFileData(f.ID); err != nil {
				return fmt.Errorf("drop %s: %w", f.Path, err)
			}
		}
	}
	return nil
}
