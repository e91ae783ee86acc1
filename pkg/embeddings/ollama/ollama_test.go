package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/gleaner/pkg/embeddings/ollama"
	"github.com/papercomputeco/gleaner/pkg/retry"
	"github.com/papercomputeco/gleaner/pkg/vector"
)

var fast = &retry.Policy{
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
	MaxElapsedTime:  time.Second,
}

var _ = Describe("Embedder", func() {
	It("posts the model and input to /api/embed", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/embed"))

			var body map[string]string
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			Expect(body["model"]).To(Equal("all-minilm"))
			Expect(body["input"]).To(Equal("likes tea"))

			_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
		}))
		defer server.Close()

		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL, Model: "all-minilm"})
		Expect(err).NotTo(HaveOccurred())

		v, err := e.Embed(context.Background(), "likes tea")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal([]float32{0.1, 0.2, 0.3}))
	})

	It("retries server errors", func() {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"embeddings":[[1,0]]}`))
		}))
		defer server.Close()

		e, _ := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL, Retry: fast})
		v, err := e.Embed(context.Background(), "x")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(HaveLen(2))
		Expect(calls.Load()).To(Equal(int32(2)))
	})

	It("does not retry client errors", func() {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		e, _ := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL, Retry: fast})
		_, err := e.Embed(context.Background(), "x")
		Expect(errors.Is(err, vector.ErrEmbedding)).To(BeTrue())
		Expect(calls.Load()).To(Equal(int32(1)))
	})

	It("fails when no embeddings are returned", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"embeddings":[]}`))
		}))
		defer server.Close()

		e, _ := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		_, err := e.Embed(context.Background(), "x")
		Expect(errors.Is(err, vector.ErrEmbedding)).To(BeTrue())
	})
})
