package scheduler

import (
	"time"

	payoutdomain "github.com/DeveloperTWH/crownstandard-backend/internal/payout/domain"
)

// backoffDelay maps the attempt counter to the wait before the next try.
// The schedule widens because most failures are provider onboarding or
// processor balance issues that take hours, not seconds, to clear.
func backoffDelay(attempts int) (time.Duration, bool) {
	switch {
	case attempts <= 0:
		return 0, true
	case attempts == 1:
		return time.Hour, true
	case attempts == 2:
		return 6 * time.Hour, true
	default:
		return 0, false
	}
}

// RetryDue reports whether a failed payout has waited out its backoff.
// Payouts at or past the attempt cap are never due; they get cancelled.
func RetryDue(p *payoutdomain.Payout, now time.Time) bool {
	if p == nil {
		return false
	}
	delay, retryable := backoffDelay(p.Attempts)
	if !retryable {
		return false
	}
	if p.LastFailedAt == nil {
		return true
	}
	return !now.Before(p.LastFailedAt.Add(delay))
}
