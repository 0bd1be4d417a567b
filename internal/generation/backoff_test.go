package generation

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Transient retry with backoff", func() {
	It("doubles the delay between transient failures", func() {
		calls := 0
		start := time.Now()
		text, err := retryTransient(context.Background(), 3, 10*time.Millisecond, func() (string, error) {
			calls++
			if calls <= 2 {
				return "", errors.New("quota exceeded")
			}
			return "ok", nil
		})
		elapsed := time.Since(start)

		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("ok"))
		Expect(calls).To(Equal(3))
		// Two waits: base then doubled.
		Expect(elapsed).To(BeNumerically(">=", 30*time.Millisecond))
	})

	It("stops immediately on a non-transient failure", func() {
		calls := 0
		start := time.Now()
		_, err := retryTransient(context.Background(), 3, 50*time.Millisecond, func() (string, error) {
			calls++
			return "", errors.New("invalid argument")
		})
		Expect(err).To(MatchError("invalid argument"))
		Expect(calls).To(Equal(1))
		Expect(time.Since(start)).To(BeNumerically("<", 50*time.Millisecond))
	})

	It("returns the last error once retries are exhausted", func() {
		calls := 0
		_, err := retryTransient(context.Background(), 2, time.Millisecond, func() (string, error) {
			calls++
			return "", errors.New("rate limit hit")
		})
		Expect(err).To(MatchError("rate limit hit"))
		Expect(calls).To(Equal(3))
	})

	It("honors context cancellation while waiting", func() {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(5 * time.Millisecond)
			cancel()
		}()
		_, err := retryTransient(ctx, 3, time.Hour, func() (string, error) {
			return "", errors.New("503")
		})
		Expect(err).To(MatchError(context.Canceled))
	})
})
