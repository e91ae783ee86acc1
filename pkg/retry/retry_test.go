package retry_test

import (
	"context"
	"errors"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/gleaner/pkg/retry"
)

var fast = retry.Policy{
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
	MaxElapsedTime:  time.Second,
}

var _ = Describe("Do", func() {
	It("retries transient failures", func() {
		calls := 0
		err := retry.Do(context.Background(), fast, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(3))
	})

	It("stops on permanent errors", func() {
		boom := errors.New("bad request")
		calls := 0
		err := retry.Do(context.Background(), fast, func() error {
			calls++
			return retry.Permanent(boom)
		})
		Expect(err).To(MatchError(boom))
		Expect(calls).To(Equal(1))
	})

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := retry.Do(ctx, fast, func() error {
			return errors.New("transient")
		})
		Expect(err).To(HaveOccurred())
	})
})

var _ = DescribeTable("RetryableStatus",
	func(code int, expected bool) {
		Expect(retry.RetryableStatus(code)).To(Equal(expected))
	},
	Entry("ok", http.StatusOK, false),
	Entry("bad request", http.StatusBadRequest, false),
	Entry("rate limited", http.StatusTooManyRequests, true),
	Entry("server error", http.StatusBadGateway, true),
)
