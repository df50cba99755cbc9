package chroma_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/pkg/vector"
	"github.com/papercomputeco/tomes/pkg/vector/chroma"
)

// fakeChroma records requests and serves a single collection.
type fakeChroma struct {
	mu       sync.Mutex
	paths    []string
	creates  []map[string]any
	upserted map[string]any
	deleted  []string
}

func (f *fakeChroma) handler() http.Handler {
	const base = "/api/v2/tenants/default_tenant/databases/default_database/collections"
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.paths = append(f.paths, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/api/v2/heartbeat":
			json.NewEncoder(w).Encode(map[string]int64{"nanosecond heartbeat": 1})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, base+"/"):
			http.Error(w, `{"error":"NotFoundError"}`, http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == base:
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			f.creates = append(f.creates, body)
			json.NewEncoder(w).Encode(map[string]string{"id": "coll-1", "name": body["name"].(string)})
		case r.URL.Path == base+"/coll-1/upsert":
			json.NewDecoder(r.Body).Decode(&f.upserted)
			w.Write([]byte("{}"))
		case r.URL.Path == base+"/coll-1/query":
			w.Write([]byte(`{"ids":[["a","b"]],"distances":[[0,1]],"documents":[["alpha",null]]}`))
		case r.URL.Path == base+"/coll-1/delete":
			var body struct {
				IDs []string `json:"ids"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.deleted = append(f.deleted, body.IDs...)
			w.Write([]byte("{}"))
		default:
			http.NotFound(w, r)
		}
	})
}

var _ = Describe("Driver", func() {
	var logger *zap.Logger

	BeforeEach(func() {
		logger = zap.NewNop()
	})

	Describe("NewDriver", func() {
		It("should return an error when URL is empty", func() {
			_, err := chroma.NewDriver(chroma.Config{URL: ""}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("chroma URL is required"))
		})

		It("should succeed after retrying when Chroma becomes available", func() {
			var attempts atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if attempts.Add(1) <= 2 {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				w.Write([]byte(`{"nanosecond heartbeat": 1}`))
			}))
			defer server.Close()

			driver, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    5,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(attempts.Load()).To(Equal(int32(3)))
		})

		It("should return an error after exhausting all retries", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			}))
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    3,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, logger)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, vector.ErrConnection)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("after 3 attempts"))
		})
	})

	Describe("Collection", func() {
		var (
			ctx    context.Context
			fake   *fakeChroma
			server *httptest.Server
			col    vector.Collection
		)

		BeforeEach(func() {
			ctx = context.Background()
			fake = &fakeChroma{}
			server = httptest.NewServer(fake.handler())

			driver, err := chroma.NewDriver(chroma.Config{URL: server.URL, MaxRetries: 1}, logger)
			Expect(err).NotTo(HaveOccurred())

			col, err = driver.GetOrCreateCollection(ctx, "material")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			server.Close()
		})

		It("creates a missing collection with get_or_create", func() {
			Expect(col.Name()).To(Equal("material"))
			Expect(col.(*chroma.Collection).ID()).To(Equal("coll-1"))
			Expect(fake.creates).To(HaveLen(1))
			Expect(fake.creates[0]).To(HaveKeyWithValue("name", "material"))
			Expect(fake.creates[0]).To(HaveKeyWithValue("get_or_create", true))
		})

		It("upserts ids, documents and embeddings", func() {
			Expect(col.Upsert(ctx, []vector.Record{
				{ID: "a", Document: "alpha", Embedding: []float32{1, 0}},
			})).To(Succeed())

			Expect(fake.upserted).To(HaveKeyWithValue("ids", ConsistOf("a")))
			Expect(fake.upserted).To(HaveKeyWithValue("documents", ConsistOf("alpha")))
			Expect(fake.upserted).To(HaveKey("embeddings"))
		})

		It("converts distances to scores", func() {
			results, err := col.Query(ctx, []float32{1, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("a"))
			Expect(results[0].Document).To(Equal("alpha"))
			Expect(results[0].Score).To(BeNumerically("~", 1.0))
			Expect(results[1].Document).To(BeEmpty())
			Expect(results[1].Score).To(BeNumerically("~", 0.5))
		})

		It("deletes by id", func() {
			Expect(col.Delete(ctx, []string{"a", "b"})).To(Succeed())
			Expect(fake.deleted).To(Equal([]string{"a", "b"}))
		})

		It("does not call the server for empty upserts", func() {
			before := len(fake.paths)
			Expect(col.Upsert(ctx, nil)).To(Succeed())
			Expect(fake.paths).To(HaveLen(before))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*chroma.Driver)(nil)
		})
	})
})
