package workerpool

import (
	"context"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/awesome-os/portable-git/backend"
	"github.com/awesome-os/portable-git/objparse"
	"github.com/awesome-os/portable-git/sparse"
)

// HandleFactory opens one worker's own ODB reader and working-directory
// writer, both pointed at the same gitdir and worktree the coordinator
// is operating on. Workers never share a backend instance with the
// coordinator or with each other.
type HandleFactory func(workerID int) (backend.GitBackend, backend.WorktreeBackend, error)

// ParallelCheckout is the multi-worker sparse-checkout coordinator: it
// discovers per-directory tasks from a target tree, hands them to a
// Pool round-robin, and performs the single-writer index merge.
type ParallelCheckout struct {
	Pool             *Pool
	Handles          HandleFactory
	CoordinatorGit   backend.GitBackend // used only to read/write the index; never touched by workers.
	CoordinatorTimeout time.Duration      // 0 selects DefaultCoordinatorTimeoutSeconds.
}

// DiscoverTasks walks the tree rooted at treeOID once, grouping its
// leaf blobs by containing directory and applying the sparse matcher,
// producing one Task per surviving directory.
func DiscoverTasks(ctx context.Context, git backend.GitBackend, treeOID string, m *sparse.Matcher, cone bool, oidSize int) ([]Task, error) {
	byDir := map[string][]TaskFile{}
	if err := walkForTasks(ctx, git, treeOID, "", m, cone, oidSize, byDir); err != nil {
		return nil, err
	}

	dirs := make([]string, 0, len(byDir))
	for d := range byDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	tasks := make([]Task, 0, len(dirs))
	for _, d := range dirs {
		files := byDir[d]
		sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
		tasks = append(tasks, Task{DirectoryPath: d, Files: files})
	}
	return tasks, nil
}

func walkForTasks(
	ctx context.Context,
	git backend.GitBackend,
	treeOID, prefix string,
	m *sparse.Matcher,
	cone bool,
	oidSize int,
	byDir map[string][]TaskFile,
) error {
	obj, err := git.ReadObject(ctx, treeOID, backend.FormContent)
	if err != nil {
		return fmt.Errorf("workerpool: read tree %s: %w", treeOID, err)
	}
	entries, err := objparse.DecodeTree(obj.Bytes, oidSize)
	if err != nil {
		return fmt.Errorf("workerpool: decode tree %s: %w", treeOID, err)
	}

	for _, e := range entries {
		full := e.Name
		if prefix != "" {
			full = prefix + "/" + e.Name
		}
		if e.IsDir() {
			if cone && !m.Match(full, true) {
				continue
			}
			if err := walkForTasks(ctx, git, e.OID, full, m, cone, oidSize, byDir); err != nil {
				return err
			}
			continue
		}
		if !m.Match(full, false) {
			continue
		}
		dir := path.Dir(full)
		byDir[dir] = append(byDir[dir], TaskFile{Path: full, OID: e.OID, Mode: e.Mode})
	}
	return nil
}

// defaultWorker is the WorkerFunc used when the coordinator does not
// supply its own: it opens its own handles via Handles, then for each
// file in the task mkdirs the directory, reads and writes the blob,
// lstats the result, and records an index entry, matching §4.5.3 step 4
// verbatim.
func (pc *ParallelCheckout) defaultWorker(ctx context.Context, workerID int, task Task) ([]IndexRecord, []TaskError, error) {
	git, wt, err := pc.Handles(workerID)
	if err != nil {
		return nil, nil, fmt.Errorf("workerpool: open worker %d handles: %w", workerID, err)
	}

	if task.DirectoryPath != "" && task.DirectoryPath != "." {
		if err := wt.Mkdir(ctx, task.DirectoryPath); err != nil {
			return nil, []TaskError{{Path: task.DirectoryPath, Err: err}}, nil
		}
	}

	var entries []IndexRecord
	var errs []TaskError
	for _, f := range task.Files {
		obj, err := git.ReadObject(ctx, f.OID, backend.FormContent)
		if err != nil {
			errs = append(errs, TaskError{Path: f.Path, Err: err})
			continue
		}
		executable := f.Mode == "100755"
		if err := wt.Write(ctx, f.Path, obj.Bytes, executable); err != nil {
			errs = append(errs, TaskError{Path: f.Path, Err: err})
			continue
		}
		info, present, err := wt.Lstat(ctx, f.Path)
		stat := ""
		if err == nil && present {
			stat = fmt.Sprintf("%d-%d", info.Size(), info.ModTime().UnixNano())
		}
		entries = append(entries, IndexRecord{Path: f.Path, OID: f.OID, Mode: f.Mode, Stat: stat})
	}
	return entries, errs, nil
}

// Run discovers tasks from treeOID, distributes them round-robin across
// the pool's workers, and merges their accumulated index entries into
// the current index as the single writer. It returns the merged entries
// and an aggregate error if any worker reported one.
func (pc *ParallelCheckout) Run(ctx context.Context, treeOID string, m *sparse.Matcher, cone bool, format backend.ObjectFormat) ([]IndexRecord, error) {
	oidSize := 20
	if format == backend.ObjectFormatSHA256 {
		oidSize = 32
	}

	tasks, err := DiscoverTasks(ctx, pc.CoordinatorGit, treeOID, m, cone, oidSize)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}

	buckets := roundRobin(tasks, pc.Pool.MaxWorkers())

	timeout := pc.CoordinatorTimeout
	if timeout <= 0 {
		timeout = DefaultCoordinatorTimeoutSeconds * time.Second
	}

	type bucketResult struct {
		results []Result
	}
	resCh := make(chan bucketResult, len(buckets))

	for _, bucket := range buckets {
		bucket := bucket
		go func() {
			id, ok := pc.Pool.Acquire()
			if !ok {
				var results []Result
				for _, t := range bucket {
					results = append(results, Result{Task: t, Errors: []TaskError{{Path: t.DirectoryPath, Err: fmt.Errorf("workerpool: no free worker handle")}}})
				}
				resCh <- bucketResult{results: results}
				return
			}
			defer pc.Pool.Release(id)

			var results []Result
			for _, t := range bucket {
				results = append(results, pc.Pool.RunTask(ctx, id, t, timeout, pc.defaultWorker))
			}
			resCh <- bucketResult{results: results}
		}()
	}

	var all []Result
	for range buckets {
		br := <-resCh
		all = append(all, br.results...)
	}

	var merged []IndexRecord
	var failed bool
	for _, r := range all {
		merged = append(merged, r.Entries...)
		if len(r.Errors) > 0 {
			failed = true
		}
	}

	if err := pc.mergeIndex(ctx, format, merged); err != nil {
		return merged, err
	}
	if failed {
		return merged, &AggregateError{Results: all}
	}
	return merged, nil
}

// mergeIndex is the coordinator's single-writer step: read the current
// index, insert every accumulated entry, write it back.
func (pc *ParallelCheckout) mergeIndex(ctx context.Context, format backend.ObjectFormat, entries []IndexRecord) error {
	oidSize := 20
	if format == backend.ObjectFormatSHA256 {
		oidSize = 32
	}

	raw, err := pc.CoordinatorGit.ReadIndex(ctx)
	if err != nil {
		return fmt.Errorf("workerpool: read index: %w", err)
	}
	var existing []objparse.IndexEntry
	if len(raw) > 0 {
		existing, err = objparse.DecodeIndexV2(raw, oidSize)
		if err != nil {
			return fmt.Errorf("workerpool: decode index: %w", err)
		}
	}

	byPath := make(map[string]objparse.IndexEntry, len(existing)+len(entries))
	for _, e := range existing {
		byPath[e.Path] = e
	}
	for _, e := range entries {
		mode, err := parseOctalMode(e.Mode)
		if err != nil {
			return fmt.Errorf("workerpool: merge index %q: %w", e.Path, err)
		}
		byPath[e.Path] = objparse.IndexEntry{Path: e.Path, OID: e.OID, Mode: mode}
	}

	merged := make([]objparse.IndexEntry, 0, len(byPath))
	for _, e := range byPath {
		merged = append(merged, e)
	}

	out, err := objparse.EncodeIndexV2(merged, oidSize)
	if err != nil {
		return fmt.Errorf("workerpool: encode index: %w", err)
	}
	if err := pc.CoordinatorGit.WriteIndex(ctx, out); err != nil {
		return fmt.Errorf("workerpool: write index: %w", err)
	}
	return nil
}

func parseOctalMode(mode string) (uint32, error) {
	var v int64
	for _, c := range mode {
		if c < '0' || c > '7' {
			return 0, fmt.Errorf("invalid octal mode %q", mode)
		}
		v = v*8 + int64(c-'0')
	}
	return uint32(v), nil
}

// roundRobin partitions tasks into numWorkers buckets by assigning task
// i to bucket i%numWorkers, preserving each bucket's relative task
// order.
func roundRobin(tasks []Task, numWorkers int) [][]Task {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(tasks) {
		numWorkers = len(tasks)
	}
	buckets := make([][]Task, numWorkers)
	for i, t := range tasks {
		b := i % numWorkers
		buckets[b] = append(buckets[b], t)
	}
	return buckets
}

