package embedder_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"kbase/internal/embedder"
)

type embedCall struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

var _ = Describe("OpenAIEmbedder", func() {
	var (
		server *httptest.Server
		calls  atomic.Int32
		last   embedCall
		auth   string
	)

	BeforeEach(func() {
		calls.Store(0)
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			calls.Add(1)
			Expect(r.URL.Path).To(Equal("/v1/embeddings"))
			auth = r.Header.Get("Authorization")
			Expect(json.NewDecoder(r.Body).Decode(&last)).To(Succeed())

			// Reply out of order to exercise index sorting.
			type item struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			}
			data := make([]item, 0, len(last.Input))
			for i := len(last.Input) - 1; i >= 0; i-- {
				data = append(data, item{Index: i, Embedding: []float32{float32(i), 1}})
			}
			w.Header().Set("Content-Type", "application/json")
			Expect(json.NewEncoder(w).Encode(map[string]any{"data": data})).To(Succeed())
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newEmbedder := func() embedder.Embedder {
		e, err := embedder.New(embedder.Config{
			Provider: "openai",
			BaseURL:  server.URL + "/v1/",
			APIKey:   "test-key",
		})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	It("embeds passages in one call with the passage model, in input order", func() {
		e := newEmbedder()
		vecs, err := e.EmbedDocuments(context.Background(), []string{"a", "b", "c"})

		Expect(err).NotTo(HaveOccurred())
		Expect(calls.Load()).To(BeEquivalentTo(1))
		Expect(last.Model).To(Equal("embedding-passage"))
		Expect(last.Input).To(Equal([]string{"a", "b", "c"}))
		Expect(auth).To(Equal("Bearer test-key"))
		Expect(vecs).To(Equal([][]float32{{0, 1}, {1, 1}, {2, 1}}))
	})

	It("embeds queries with the query model", func() {
		e := newEmbedder()
		vec, err := e.EmbedQuery(context.Background(), "why is my pod restarting")

		Expect(err).NotTo(HaveOccurred())
		Expect(last.Model).To(Equal("embedding-query"))
		Expect(vec).To(Equal([]float32{0, 1}))
	})

	It("makes no call for empty input", func() {
		e := newEmbedder()
		vecs, err := e.EmbedDocuments(context.Background(), nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(BeEmpty())
		Expect(calls.Load()).To(BeEquivalentTo(0))
	})

	It("requires an API key", func() {
		_, err := embedder.New(embedder.Config{Provider: "openai"})
		Expect(err).To(MatchError(ContainSubstring("missing API key")))
	})
})

var _ = Describe("OpenAIEmbedder failures", func() {
	It("wraps remote errors in ErrEmbedding", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
		}))
		defer server.Close()

		e, err := embedder.NewOpenAIEmbedder(embedder.Config{BaseURL: server.URL, APIKey: "bad"})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.EmbedDocuments(context.Background(), []string{"x"})
		Expect(err).To(MatchError(embedder.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("401"))
	})

	It("rejects a response with the wrong number of vectors", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":[{"index":0,"embedding":[1,2]}]}`))
		}))
		defer server.Close()

		e, err := embedder.NewOpenAIEmbedder(embedder.Config{BaseURL: server.URL, APIKey: "k"})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.EmbedDocuments(context.Background(), []string{"x", "y"})
		Expect(err).To(MatchError(embedder.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("expected 2 embeddings, got 1"))
	})

	It("fails on an unreachable endpoint", func() {
		e, err := embedder.NewOpenAIEmbedder(embedder.Config{BaseURL: "http://127.0.0.1:1", APIKey: "k"})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.EmbedQuery(context.Background(), "q")
		Expect(err).To(MatchError(embedder.ErrEmbedding))
	})
})

var _ = Describe("New", func() {
	It("rejects unknown providers", func() {
		_, err := embedder.New(embedder.Config{Provider: "cohere"})
		Expect(err).To(MatchError(ContainSubstring("unsupported embedding provider")))
	})
})
