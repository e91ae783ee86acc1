package openai_test

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

	"github.com/papercomputeco/gleaner/pkg/embeddings/openai"
	"github.com/papercomputeco/gleaner/pkg/retry"
	"github.com/papercomputeco/gleaner/pkg/vector"
)

var fast = &retry.Policy{
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
	MaxElapsedTime:  time.Second,
}

var _ = Describe("Embedder", func() {
	It("requires credentials or a base url", func() {
		_, err := openai.NewEmbedder(openai.EmbedderConfig{})
		Expect(err).To(HaveOccurred())
	})

	It("returns the first embedding", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/embeddings"))
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer test-key"))

			var body map[string]any
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			Expect(body["model"]).To(Equal(openai.DefaultEmbeddingModel))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}]}`))
		}))
		defer server.Close()

		e, err := openai.NewEmbedder(openai.EmbedderConfig{APIKey: "test-key", BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		v, err := e.Embed(context.Background(), "buy tea")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal([]float32{0.5, 0.25}))
	})

	It("retries rate limits and gives up on bad requests", func() {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch calls.Add(1) {
			case 1:
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			default:
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"message":"bad input","type":"invalid_request_error"}}`))
			}
		}))
		defer server.Close()

		e, err := openai.NewEmbedder(openai.EmbedderConfig{APIKey: "k", BaseURL: server.URL, Retry: fast})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(context.Background(), "buy tea")
		Expect(errors.Is(err, vector.ErrEmbedding)).To(BeTrue())
		Expect(calls.Load()).To(Equal(int32(2)))
	})
})
