package eventstream_test

import (
	"encoding/json"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/gleaner/pkg/eventstream"
	"github.com/papercomputeco/gleaner/pkg/memory"
)

var _ = Describe("Event", func() {
	It("marshals with expected top-level keys", func() {
		event := eventstream.NewEvent(eventstream.EventTypeActionSuggested, "conv-1")
		event.Action = &memory.Action{
			ID:        "act-1",
			Title:     "Book dentist",
			DueWindow: memory.DueThisWeek,
			Source:    memory.SourceConversation,
			Status:    memory.ActionSuggested,
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKeyWithValue("event_type", "gleaner.action.suggested"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKeyWithValue("conversation_id", "conv-1"))
		Expect(got).To(HaveKey("action"))
		Expect(got).NotTo(HaveKey("claim"))
		Expect(got).NotTo(HaveKey("review_item"))
	})

	It("stamps new events", func() {
		before := time.Now().UTC().Add(-time.Second)
		a := eventstream.NewEvent(eventstream.EventTypeClaimPublished, "conv-1")
		b := eventstream.NewEvent(eventstream.EventTypeClaimPublished, "conv-1")

		Expect(a.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(strings.HasPrefix(a.EventID, "evt_")).To(BeTrue())
		Expect(a.EventID).NotTo(Equal(b.EventID))
		Expect(a.EmittedAt).To(BeTemporally(">", before))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.EventTypeClaimPublished).To(Equal("gleaner.claim.published"))
		Expect(eventstream.EventTypeActionSuggested).To(Equal("gleaner.action.suggested"))
		Expect(eventstream.EventTypeActionApproved).To(Equal("gleaner.action.approved"))
		Expect(eventstream.EventTypeReviewCreated).To(Equal("gleaner.review.created"))
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).To(MatchError("nil event"))
	})
})
