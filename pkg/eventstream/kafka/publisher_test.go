package kafka_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/tomes/pkg/eventstream"
	"github.com/papercomputeco/tomes/pkg/eventstream/kafka"
	"github.com/papercomputeco/tomes/pkg/material"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var writer *fakeWriter

	BeforeEach(func() {
		writer = &fakeWriter{}
	})

	It("requires brokers without an injected writer", func() {
		_, err := kafka.NewPublisher(kafka.Config{})
		Expect(err).To(MatchError(ContainSubstring("brokers are required")))
	})

	It("writes a JSON message keyed by material id", func() {
		p, err := kafka.NewPublisher(kafka.Config{Writer: writer})
		Expect(err).NotTo(HaveOccurred())

		event := eventstream.NewMaterialSyncedEvent("m1", eventstream.EventSource{Kind: material.KindFile, ID: "f1"}, "material", 3, 1, 0)
		Expect(p.PublishMaterialSynced(context.Background(), event)).To(Succeed())

		Expect(writer.messages).To(HaveLen(1))
		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal("m1"))

		var decoded eventstream.MaterialSyncedEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Source.ID).To(Equal("f1"))
	})

	It("rejects nil events", func() {
		p, err := kafka.NewPublisher(kafka.Config{Writer: writer})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.PublishMaterialSynced(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(writer.messages).To(BeEmpty())
	})

	It("wraps writer failures", func() {
		writer.err = errors.New("broker down")
		p, err := kafka.NewPublisher(kafka.Config{Writer: writer, Topic: "events"})
		Expect(err).NotTo(HaveOccurred())

		err = p.PublishMaterialSynced(context.Background(), &eventstream.MaterialSyncedEvent{MaterialID: "m1"})
		Expect(err).To(MatchError(ContainSubstring(`topic "events"`)))
		Expect(errors.Is(err, writer.err)).To(BeTrue())
	})

	It("closes the writer", func() {
		p, err := kafka.NewPublisher(kafka.Config{Writer: writer})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})
})
