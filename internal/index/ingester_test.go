package index_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"kbase/internal/chunker"
	"kbase/internal/embedder"
	"kbase/internal/index"
	"kbase/internal/logger"
	"kbase/internal/store"
)

// countingEmbedder returns fixed-size vectors and records every request.
type countingEmbedder struct {
	mu    sync.Mutex
	calls int
	texts int
	err   error
}

func (c *countingEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	c.texts += len(texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 0}
	}
	return out, nil
}

func (c *countingEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1, 0}, nil
}

func (c *countingEmbedder) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func writeFile(dir, rel, content string) string {
	path := filepath.Join(dir, filepath.FromSlash(rel))
	Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	return path
}

const runbook = "# Runbook\n\n## Symptoms\nPods restart.\n\n## Fix\nRaise limits.\n"

var _ = Describe("Ingester", func() {
	var (
		ctx context.Context
		emb *countingEmbedder
		st  *store.Store
		in  *index.Ingester
		dir string
	)

	BeforeEach(func() {
		ctx = context.Background()
		emb = &countingEmbedder{}
		dir = GinkgoT().TempDir()

		var err error
		st, err = store.Open(store.NewMemoryIndex(), logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		in = index.NewIngester(st, emb, chunker.New(0), logger.Nop(), index.WithWorkers(2))
	})

	Describe("IngestFile", func() {
		It("stores chunks under the base file name with one embedding call", func() {
			path := writeFile(dir, "ops/runbook.md", runbook)

			res, err := in.IngestFile(ctx, path, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.DocumentName).To(Equal("runbook.md"))
			Expect(res.Chunks).To(Equal(3))
			Expect(res.Sections).To(Equal([]string{"Runbook", "Symptoms", "Fix"}))
			Expect(res.Skipped).To(BeFalse())

			Expect(emb.Calls()).To(Equal(1))
			Expect(st.ListDocuments()).To(Equal(map[string]int{"runbook.md": 3}))
			Expect(st.DocumentHash("runbook.md")).To(Equal(index.ContentHash([]byte(runbook))))
		})

		It("skips unchanged content unless forced", func() {
			path := writeFile(dir, "runbook.md", runbook)
			_, err := in.IngestFile(ctx, path, false)
			Expect(err).NotTo(HaveOccurred())

			res, err := in.IngestFile(ctx, path, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Skipped).To(BeTrue())
			Expect(res.Chunks).To(Equal(3))
			Expect(emb.Calls()).To(Equal(1))

			res, err = in.IngestFile(ctx, path, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Skipped).To(BeFalse())
			Expect(emb.Calls()).To(Equal(2))
			Expect(st.Len()).To(Equal(3))
		})

		It("replaces a changed document", func() {
			path := writeFile(dir, "runbook.md", runbook)
			_, err := in.IngestFile(ctx, path, false)
			Expect(err).NotTo(HaveOccurred())

			writeFile(dir, "runbook.md", "## Only\nOne section now.\n")
			res, err := in.IngestFile(ctx, path, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Chunks).To(Equal(1))
			Expect(st.ListDocuments()).To(Equal(map[string]int{"runbook.md": 1}))
		})

		It("reports a missing file", func() {
			_, err := in.IngestFile(ctx, filepath.Join(dir, "nope.md"), false)
			Expect(err).To(MatchError(index.ErrNotFound))
		})

		It("rejects a document without content", func() {
			path := writeFile(dir, "blank.md", "\n\n   \n")
			_, err := in.IngestFile(ctx, path, false)
			Expect(err).To(MatchError(index.ErrNoChunks))
			Expect(emb.Calls()).To(BeZero())
		})

		It("leaves the store untouched when embedding fails", func() {
			emb.err = embedder.ErrEmbedding
			path := writeFile(dir, "runbook.md", runbook)
			_, err := in.IngestFile(ctx, path, false)
			Expect(err).To(MatchError(embedder.ErrEmbedding))
			Expect(st.Len()).To(BeZero())
		})
	})

	Describe("IngestDir", func() {
		It("ingests every document format and reports progress", func() {
			writeFile(dir, "runbook.md", runbook)
			writeFile(dir, "notes/ops.txt", "plain notes")
			writeFile(dir, "notes/guide.markdown", "## Guide\nsteps")
			writeFile(dir, "main.go", "package main")
			writeFile(dir, ".kbase/index.md", "ignored")

			var mu sync.Mutex
			var calls int
			stats, err := in.IngestDir(ctx, dir, false, func(_ string, done, _ int) {
				mu.Lock()
				calls++
				mu.Unlock()
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.FilesTotal).To(Equal(3))
			Expect(stats.FilesIndexed).To(Equal(3))
			Expect(stats.FilesSkipped).To(BeZero())
			Expect(stats.ChunksTotal).To(Equal(5))
			Expect(calls).To(Equal(3))

			Expect(st.ListDocuments()).To(Equal(map[string]int{
				"runbook.md":     3,
				"ops.txt":        1,
				"guide.markdown": 1,
			}))
		})

		It("skips unchanged files on a second run", func() {
			writeFile(dir, "runbook.md", runbook)
			writeFile(dir, "ops.txt", "plain notes")

			_, err := in.IngestDir(ctx, dir, false, nil)
			Expect(err).NotTo(HaveOccurred())
			before := emb.Calls()

			stats, err := in.IngestDir(ctx, dir, false, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.FilesSkipped).To(Equal(2))
			Expect(stats.FilesIndexed).To(BeZero())
			Expect(emb.Calls()).To(Equal(before))
		})

		It("stops on an embedding failure and returns it", func() {
			emb.err = errors.Join(embedder.ErrEmbedding, errors.New("quota"))
			writeFile(dir, "a.md", "alpha")
			writeFile(dir, "b.md", "beta")

			stats, err := in.IngestDir(ctx, dir, false, nil)
			Expect(err).To(MatchError(embedder.ErrEmbedding))
			Expect(stats).NotTo(BeNil())
			Expect(stats.FilesIndexed).To(BeZero())
			Expect(st.Len()).To(BeZero())
		})

		It("fails for a missing directory", func() {
			_, err := in.IngestDir(ctx, filepath.Join(dir, "missing"), false, nil)
			Expect(err).To(HaveOccurred())
		})
	})
})
