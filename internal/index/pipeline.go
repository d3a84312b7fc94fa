package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"kbase/internal/chunker"
	"kbase/internal/walker"
)

const embedBatchSize = 32

// ProgressFunc is called after every stored document with the number of
// documents finished and the number discovered so far.
type ProgressFunc func(stage string, done, total int)

// Stats reports directory ingestion results.
type Stats struct {
	FilesTotal   int
	FilesIndexed int
	FilesSkipped int
	FilesFailed  int
	ChunksTotal  int
}

// docWork is a document that needs to be (re-)ingested.
type docWork struct {
	info   walker.FileInfo
	name   string
	chunks []chunker.Chunk
}

// embeddedDoc has chunks with their embeddings ready to store.
type embeddedDoc struct {
	work       docWork
	embeddings [][]float32
}

// IngestDir ingests every document file under root. Files are read and
// chunked by concurrent workers; embedding and store writes each run on a
// single goroutine. Unchanged documents are skipped unless force is set.
// The first embedding or store failure stops further ingestion and is
// returned together with the partial stats.
func (in *Ingester) IngestDir(ctx context.Context, root string, force bool, onProgress ProgressFunc) (*Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var filesTotal, filesSkipped, filesFailed atomic.Int64

	// Stage 1: Walk (only registered document formats)
	fileCh, walkErrCh := walker.Walk(root, in.registry.Extensions())

	// Stage 2: Read, hash and chunk (N workers)
	workCh := make(chan docWork, in.workers)
	var chunkWg sync.WaitGroup
	for range in.workers {
		chunkWg.Add(1)
		go func() {
			defer chunkWg.Done()
			for fi := range fileCh {
				filesTotal.Add(1)
				if ctx.Err() != nil {
					continue
				}

				src, err := os.ReadFile(fi.Path)
				if err != nil {
					in.logger.Warn("read failed", "path", fi.RelPath, "error", err)
					filesFailed.Add(1)
					continue
				}

				name := filepath.Base(fi.Path)
				hash := ContentHash(src)
				if !force && in.store.DocumentHash(name) == hash {
					filesSkipped.Add(1)
					continue
				}

				chunks := in.prepare(string(src), name, hash)
				if len(chunks) == 0 {
					filesSkipped.Add(1)
					continue
				}
				workCh <- docWork{info: fi, name: name, chunks: chunks}
			}
		}()
	}
	go func() {
		chunkWg.Wait()
		close(workCh)
	}()

	// Stage 3: Embed (1 worker, batches of embedBatchSize)
	embeddedCh := make(chan embeddedDoc, 4)
	var embedErr error
	go func() {
		defer close(embeddedCh)

		for w := range workCh {
			if ctx.Err() != nil {
				continue // drain
			}
			embeddings, err := in.embedBatches(ctx, texts(w.chunks))
			if err != nil {
				embedErr = fmt.Errorf("embed %s: %w", w.info.RelPath, err)
				cancel()
				continue
			}
			embeddedCh <- embeddedDoc{work: w, embeddings: embeddings}
		}
	}()

	// Stage 4: Store (1 worker)
	var stats Stats
	var storeErr error
	stored := make(map[string]string)
	for ed := range embeddedCh {
		if ctx.Err() != nil {
			continue
		}
		if prev, ok := stored[ed.work.name]; ok {
			in.logger.Warn("document name collision, later file replaces earlier",
				"document", ed.work.name, "replaced", prev, "path", ed.work.info.RelPath)
		}
		stored[ed.work.name] = ed.work.info.RelPath
		n, err := in.store.AddDocuments(ed.work.chunks, ed.embeddings, ed.work.name)
		if err != nil {
			storeErr = fmt.Errorf("store %s: %w", ed.work.info.RelPath, err)
			cancel()
			continue
		}

		stats.FilesIndexed++
		stats.ChunksTotal += n
		in.logger.Debug("document ingested", "path", ed.work.info.RelPath, "chunks", n)
		if onProgress != nil {
			onProgress("Ingesting documents...", stats.FilesIndexed, int(filesTotal.Load()-filesSkipped.Load()))
		}
	}

	if err := <-walkErrCh; err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	stats.FilesTotal = int(filesTotal.Load())
	stats.FilesSkipped = int(filesSkipped.Load())
	stats.FilesFailed = int(filesFailed.Load())

	if embedErr != nil {
		return &stats, embedErr
	}
	if storeErr != nil {
		return &stats, storeErr
	}
	return &stats, nil
}

func (in *Ingester) embedBatches(ctx context.Context, texts []string) ([][]float32, error) {
	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += embedBatchSize {
		end := min(i+embedBatchSize, len(texts))
		embs, err := in.embedder.EmbedDocuments(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, embs...)
	}
	return all, nil
}
