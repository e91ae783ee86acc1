package postgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/gleaner/pkg/memory"
	"github.com/papercomputeco/gleaner/pkg/memory/postgres"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("GLEANER_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("GLEANER_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	var (
		driver *postgres.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		dsn := connStr()

		var err error
		driver, err = postgres.NewDriver(ctx, dsn)
		Expect(err).NotTo(HaveOccurred())

		// Clean all tables before each test for isolation.
		for _, table := range []string{"conversation_claims", "conversation_actions", "review_items", "claims", "actions"} {
			_, err = driver.DB.ExecContext(ctx, "DELETE FROM "+table)
			Expect(err).NotTo(HaveOccurred())
		}
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	It("round-trips claims and links", func() {
		id, err := driver.UpsertClaim(ctx, memory.Claim{Text: "User works at Acme", Confidence: 0.9})
		Expect(err).NotTo(HaveOccurred())
		Expect(driver.AppendConversationClaim(ctx, "conv-1", id)).To(Succeed())

		items, err := driver.ConversationItems(ctx, "conv-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(items.Claims).To(HaveLen(1))
		Expect(items.Claims[0].Text).To(Equal("User works at Acme"))
	})

	It("stores actions with a reminder flag", func() {
		_, err := driver.CreateAction(ctx, memory.Action{
			Title:     "Renew passport",
			DueWindow: memory.DueThisMonth,
			Source:    memory.SourceConversation,
			Status:    memory.ActionSuggested,
			Reminder:  true,
		})
		Expect(err).NotTo(HaveOccurred())

		actions, err := driver.ListActions(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(actions).To(HaveLen(1))
		Expect(actions[0].Reminder).To(BeTrue())
	})
})
