package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tomes/pkg/extract"
	"github.com/papercomputeco/tomes/pkg/ingest"
	"github.com/papercomputeco/tomes/pkg/material"
	"github.com/papercomputeco/tomes/pkg/splitter"
	"github.com/papercomputeco/tomes/pkg/storage"
	"github.com/papercomputeco/tomes/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/tomes/pkg/utils/test"
)

// recorder logs store and index calls in the order they happen.
type recorder struct {
	mu  sync.Mutex
	log []string
}

func (r *recorder) add(entry string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, entry)
}

type fakeIndex struct {
	rec       *recorder
	failAfter int

	mu      sync.Mutex
	upserts [][]string
	docs    [][]string
	deleted []string
}

func (f *fakeIndex) Upsert(_ context.Context, collection string, ids, documents []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAfter >= 0 && len(f.upserts) >= f.failAfter {
		return errors.New("index unavailable")
	}
	f.rec.add(fmt.Sprintf("upsert:%d", len(ids)))
	f.upserts = append(f.upserts, ids)
	f.docs = append(f.docs, documents)
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, _ string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids...)
	return nil
}

type recordingStore struct {
	storage.ChunkStore
	rec       *recorder
	failAfter int
	calls     int
}

func (s *recordingStore) CreateMany(ctx context.Context, chunks []material.Chunk) ([]string, error) {
	s.rec.mu.Lock()
	s.calls++
	failing := s.failAfter > 0 && s.calls > s.failAfter
	s.rec.mu.Unlock()
	if failing {
		return nil, errors.New("store unavailable")
	}
	s.rec.add(fmt.Sprintf("store:%d", len(chunks)))
	return s.ChunkStore.CreateMany(ctx, chunks)
}

// words returns n distinct eight-character words.
func words(n int) string {
	return prefixedWords("word", n)
}

func prefixedWords(prefix string, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%04d", prefix, i)
	}
	return strings.Join(out, " ")
}

var _ = Describe("Coordinator", func() {
	var (
		ctx       context.Context
		rec       *recorder
		idx       *fakeIndex
		store     *inmemory.Driver
		publisher *testutils.MockPublisher
		cfg       ingest.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		rec = &recorder{}
		idx = &fakeIndex{rec: rec, failAfter: -1}
		store = inmemory.NewDriver()
		publisher = testutils.NewMockPublisher()
		cfg = ingest.Config{
			// One word per segment.
			Extractor: extract.New(extract.WithSplitter(splitter.New(
				splitter.WithChunkSize(10), splitter.WithChunkOverlap(0),
			))),
			Index:     idx,
			Store:     &recordingStore{ChunkStore: store, rec: rec},
			Publisher: publisher,
			MaxDelay:  -1,
		}
	})

	newCoordinator := func() *ingest.Coordinator {
		c, err := ingest.New(cfg)
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	Describe("New", func() {
		It("requires an index and a store", func() {
			_, err := ingest.New(ingest.Config{Store: store})
			Expect(err).To(HaveOccurred())
			_, err = ingest.New(ingest.Config{Index: idx})
			Expect(err).To(HaveOccurred())
		})

		It("defaults the collection", func() {
			Expect(newCoordinator().Collection()).To(Equal("material"))
		})
	})

	Describe("Sync text", func() {
		It("writes in batches of ten with random ids", func() {
			report, err := newCoordinator().Sync(ctx, material.NewTextItem("m1", words(25)))
			Expect(err).NotTo(HaveOccurred())

			Expect(report.Chunks).To(Equal(25))
			Expect(report.Batches).To(Equal(3))
			Expect(idx.upserts).To(HaveLen(3))
			Expect(idx.upserts[0]).To(HaveLen(10))
			Expect(idx.upserts[2]).To(HaveLen(5))
			Expect(idx.docs[0][0]).To(Equal("word0000"))

			Expect(report.IDs).To(HaveLen(25))
			unique := map[string]bool{}
			for _, id := range report.IDs {
				Expect(id).To(MatchRegexp(`^mat-\d{10}$`))
				unique[id] = true
			}
			Expect(unique).To(HaveLen(25))
		})

		It("does not write text chunks to the chunk store", func() {
			_, err := newCoordinator().Sync(ctx, material.NewTextItem("m1", words(3)))
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Len()).To(BeZero())
			Expect(rec.log).To(Equal([]string{"upsert:3"}))
		})

		It("writes nothing for blank text", func() {
			report, err := newCoordinator().Sync(ctx, material.NewTextItem("m1", " \n\t "))
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Chunks).To(BeZero())
			Expect(report.Batches).To(BeZero())
			Expect(idx.upserts).To(BeEmpty())
		})

		It("publishes a synced event", func() {
			_, err := newCoordinator().Sync(ctx, material.NewTextItem("m1", words(12)))
			Expect(err).NotTo(HaveOccurred())

			events := publisher.Events()
			Expect(events).To(HaveLen(1))
			Expect(events[0].MaterialID).To(Equal("m1"))
			Expect(events[0].Chunks).To(Equal(12))
			Expect(events[0].Batches).To(Equal(2))
			Expect(events[0].Source.Kind).To(Equal(material.KindText))
		})

		It("ignores publish failures", func() {
			publisher.Fail = true
			_, err := newCoordinator().Sync(ctx, material.NewTextItem("m1", words(2)))
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Sync file", func() {
		var path string

		BeforeEach(func() {
			path = filepath.Join(GinkgoT().TempDir(), "notes.txt")
			Expect(os.WriteFile(path, []byte(words(25)), 0o600)).To(Succeed())
		})

		It("stores each batch right after indexing it", func() {
			report, err := newCoordinator().Sync(ctx, material.NewFileItem("m1", "f1", path))
			Expect(err).NotTo(HaveOccurred())

			Expect(rec.log).To(Equal([]string{
				"upsert:10", "store:10",
				"upsert:10", "store:10",
				"upsert:5", "store:5",
			}))

			chunks, err := store.FindByFile(ctx, "f1")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(HaveLen(25))
			for n, ch := range chunks {
				Expect(ch.Source).To(Equal(material.FileRef("f1")))
				Expect(ch.MaterialID).To(Equal("m1"))
				Expect(ch.Index).To(Equal(n))
				Expect(ch.RecordID).To(Equal(report.IDs[n]))
			}
		})

		It("fails in the extract stage for a missing file", func() {
			_, err := newCoordinator().Sync(ctx, material.NewFileItem("m1", "f1", path+".missing"))

			var ierr *ingest.IngestionError
			Expect(errors.As(err, &ierr)).To(BeTrue())
			Expect(ierr.Stage).To(Equal(ingest.StageExtract))
			Expect(ierr.CommittedBatches).To(BeZero())
			Expect(errors.Is(err, ingest.ErrIngestion)).To(BeTrue())
			Expect(errors.Is(err, extract.ErrExtraction)).To(BeTrue())
		})

		It("keeps committed batches when an upsert fails", func() {
			idx.failAfter = 1
			_, err := newCoordinator().Sync(ctx, material.NewFileItem("m1", "f1", path))

			var ierr *ingest.IngestionError
			Expect(errors.As(err, &ierr)).To(BeTrue())
			Expect(ierr.Stage).To(Equal(ingest.StageUpsert))
			Expect(ierr.CommittedBatches).To(Equal(1))
			Expect(ierr.CommittedChunks).To(Equal(10))
			Expect(ierr.Source).To(ContainSubstring("notes.txt"))
			Expect(idx.upserts).To(HaveLen(1))
			Expect(publisher.Events()).To(BeEmpty())

			chunks, err := store.FindByFile(ctx, "f1")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(HaveLen(ierr.CommittedChunks))
			for n, ch := range chunks {
				Expect(ch.RecordID).To(Equal(idx.upserts[0][n]))
			}
		})

		It("removes the index records of a batch whose rows cannot be stored", func() {
			cfg.Store = &recordingStore{ChunkStore: store, rec: rec, failAfter: 1}
			_, err := newCoordinator().Sync(ctx, material.NewFileItem("m1", "f1", path))

			var ierr *ingest.IngestionError
			Expect(errors.As(err, &ierr)).To(BeTrue())
			Expect(ierr.Stage).To(Equal(ingest.StageStore))
			Expect(ierr.CommittedBatches).To(Equal(1))
			Expect(ierr.CommittedChunks).To(Equal(10))

			Expect(idx.upserts).To(HaveLen(2))
			Expect(idx.deleted).To(Equal(idx.upserts[1]))

			chunks, err := store.FindByFile(ctx, "f1")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(HaveLen(10))
		})
	})

	Describe("Sync link", func() {
		It("extracts the page and stores link chunks", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				fmt.Fprintf(w, "<html><body><p>%s</p><script>ignored()</script></body></html>", words(4))
			}))
			defer server.Close()

			report, err := newCoordinator().Sync(ctx, material.NewLinkItem("m1", "l1", server.URL))
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Chunks).To(Equal(4))

			chunks, err := store.FindByLink(ctx, "l1")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(HaveLen(4))
			Expect(idx.docs[0]).NotTo(ContainElement(ContainSubstring("ignored")))
		})
	})

	Describe("invalid items", func() {
		It("rejects items without a source", func() {
			_, err := newCoordinator().Sync(ctx, material.Item{MaterialID: "m1"})
			Expect(errors.Is(err, material.ErrInvalidItem)).To(BeTrue())
			Expect(errors.Is(err, ingest.ErrIngestion)).To(BeTrue())
		})
	})

	Describe("throttle", func() {
		It("waits after every batch", func() {
			var waits []time.Duration
			cfg.MaxDelay = 20 * time.Millisecond
			cfg.Jitter = func(max time.Duration) time.Duration {
				waits = append(waits, max)
				return time.Millisecond
			}

			_, err := newCoordinator().Sync(ctx, material.NewTextItem("m1", words(25)))
			Expect(err).NotTo(HaveOccurred())
			Expect(waits).To(Equal([]time.Duration{
				20 * time.Millisecond, 20 * time.Millisecond, 20 * time.Millisecond,
			}))
		})

		It("defaults the bound to one second", func() {
			var bound time.Duration
			cfg.MaxDelay = 0
			cfg.Jitter = func(max time.Duration) time.Duration {
				bound = max
				return 0
			}

			_, err := newCoordinator().Sync(ctx, material.NewTextItem("m1", words(1)))
			Expect(err).NotTo(HaveOccurred())
			Expect(bound).To(Equal(ingest.DefaultMaxDelay))
		})

		It("stops when the context is cancelled during the wait", func() {
			cfg.MaxDelay = time.Hour
			cfg.Jitter = func(max time.Duration) time.Duration { return max }

			cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()

			_, err := newCoordinator().Sync(cctx, material.NewTextItem("m1", words(25)))

			var ierr *ingest.IngestionError
			Expect(errors.As(err, &ierr)).To(BeTrue())
			Expect(ierr.Stage).To(Equal(ingest.StageThrottle))
			Expect(ierr.CommittedBatches).To(Equal(1))
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
			Expect(idx.upserts).To(HaveLen(1))
		})
	})

	Describe("concurrent runs", func() {
		It("keeps ids and batches of independent syncs apart", func() {
			cfg.MaxDelay = 2 * time.Millisecond
			c := newCoordinator()

			dir := GinkgoT().TempDir()
			paths := map[string]string{"alpha": "", "bravo": ""}
			for prefix := range paths {
				paths[prefix] = filepath.Join(dir, prefix+".txt")
				Expect(os.WriteFile(paths[prefix], []byte(prefixedWords(prefix, 35)), 0o600)).To(Succeed())
			}

			var wg sync.WaitGroup
			reports := make(map[string]*ingest.Report)
			var mu sync.Mutex
			for prefix, path := range paths {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					report, err := c.Sync(ctx, material.NewFileItem("m1", prefix, path))
					Expect(err).NotTo(HaveOccurred())
					mu.Lock()
					reports[prefix] = report
					mu.Unlock()
				}()
			}
			wg.Wait()

			owner := map[string]string{}
			for prefix, report := range reports {
				Expect(report.IDs).To(HaveLen(35))
				for _, id := range report.IDs {
					Expect(owner).NotTo(HaveKey(id))
					owner[id] = prefix
				}
			}

			Expect(idx.upserts).To(HaveLen(8))
			for n, ids := range idx.upserts {
				run := owner[ids[0]]
				for m, id := range ids {
					Expect(owner[id]).To(Equal(run))
					Expect(idx.docs[n][m]).To(HavePrefix(run))
				}
			}
		})
	})

	Describe("deterministic ids", func() {
		It("produces the same ids for the same source", func() {
			cfg.IDs = ingest.DeterministicIDs{}
			path := filepath.Join(GinkgoT().TempDir(), "a.txt")
			Expect(os.WriteFile(path, []byte(words(12)), 0o600)).To(Succeed())

			first, err := newCoordinator().Sync(ctx, material.NewFileItem("m1", "f1", path))
			Expect(err).NotTo(HaveOccurred())
			second, err := newCoordinator().Sync(ctx, material.NewFileItem("m1", "f1", path))
			Expect(err).NotTo(HaveOccurred())

			Expect(second.IDs).To(Equal(first.IDs))
			Expect(first.IDs[0]).To(HavePrefix(ingest.IDPrefix))
		})
	})

	Describe("SyncMaterial", func() {
		It("stops at the first failing item", func() {
			m := material.Material{
				ID: "m1",
				Items: []material.Item{
					material.NewTextItem("", words(2)),
					material.NewFileItem("", "f1", "/does/not/exist.txt"),
					material.NewTextItem("", words(3)),
				},
			}

			reports, err := newCoordinator().SyncMaterial(ctx, m)
			Expect(err).To(HaveOccurred())
			Expect(reports).To(HaveLen(1))
			Expect(reports[0].MaterialID).To(Equal("m1"))
			Expect(idx.upserts).To(HaveLen(1))
		})
	})

	Describe("Remove", func() {
		It("deletes stored chunks and their index records", func() {
			path := filepath.Join(GinkgoT().TempDir(), "a.txt")
			Expect(os.WriteFile(path, []byte(words(12)), 0o600)).To(Succeed())

			c := newCoordinator()
			report, err := c.Sync(ctx, material.NewFileItem("m1", "f1", path))
			Expect(err).NotTo(HaveOccurred())

			removed, err := c.Remove(ctx, material.FileRef("f1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(removed.Chunks).To(Equal(12))
			Expect(removed.Records).To(Equal(12))
			Expect(idx.deleted).To(ConsistOf(report.IDs))
			Expect(store.Len()).To(BeZero())
		})

		It("rejects invalid references", func() {
			_, err := newCoordinator().Remove(ctx, material.SourceRef{})
			Expect(errors.Is(err, material.ErrInvalidRef)).To(BeTrue())
		})
	})
})

var _ = Describe("IDs", func() {
	It("draws ten-digit random ids", func() {
		id, err := ingest.RandomIDs{}.NewID(ingest.IDSeed{})
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(MatchRegexp(`^mat-\d{10}$`))
	})

	It("varies deterministic ids by chunk index", func() {
		a, _ := ingest.DeterministicIDs{}.NewID(ingest.IDSeed{MaterialID: "m", SourceID: "s", Index: 0})
		b, _ := ingest.DeterministicIDs{}.NewID(ingest.IDSeed{MaterialID: "m", SourceID: "s", Index: 1})
		Expect(a).NotTo(Equal(b))
	})

	It("resolves schemes by name", func() {
		g, err := ingest.NewIDGenerator("deterministic")
		Expect(err).NotTo(HaveOccurred())
		Expect(g).To(Equal(ingest.DeterministicIDs{}))

		_, err = ingest.NewIDGenerator("uuid")
		Expect(err).To(HaveOccurred())
	})
})
