package kafka_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/gleaner/pkg/eventstream"
	"github.com/papercomputeco/gleaner/pkg/eventstream/kafka"
	"github.com/papercomputeco/gleaner/pkg/logger"
	"github.com/papercomputeco/gleaner/pkg/memory"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		writer *fakeWriter
		pub    *kafka.Publisher
	)

	BeforeEach(func() {
		writer = &fakeWriter{}
		pub = kafka.NewPublisherWithWriter(writer, "events", logger.Nop())
	})

	It("requires brokers", func() {
		_, err := kafka.NewPublisher(kafka.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("builds a writer from config", func() {
		p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}, ClientID: "gleaner"})
		Expect(err).NotTo(HaveOccurred())
		Expect(p).NotTo(BeNil())
	})

	It("rejects nil events", func() {
		Expect(pub.Publish(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
	})

	It("writes the event as JSON keyed by conversation", func() {
		event := eventstream.NewEvent(eventstream.EventTypeClaimPublished, "conv-9")
		event.Claim = &memory.Claim{ID: "c1", Text: "Lives in Lisbon", Status: memory.ClaimInferred}

		Expect(pub.Publish(context.Background(), event)).To(Succeed())
		Expect(writer.messages).To(HaveLen(1))

		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal("conv-9"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte("gleaner.claim.published")}))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "schema_version", Value: []byte("1")}))

		var decoded eventstream.Event
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Claim).NotTo(BeNil())
		Expect(decoded.Claim.Text).To(Equal("Lives in Lisbon"))
	})

	It("wraps write errors", func() {
		writer.err = errors.New("broker down")
		err := pub.Publish(context.Background(), eventstream.NewEvent(eventstream.EventTypeReviewCreated, "conv-1"))
		Expect(err).To(MatchError(ContainSubstring("write to topic events")))
	})

	It("closes the writer", func() {
		Expect(pub.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})
})
