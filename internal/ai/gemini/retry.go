package gemini

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/answer-grader/internal/utils"
)

const (
	baseRetryDelay = time.Second
	maxRetryDelay  = 10 * time.Second
	// maxQuotaDelay is the longest server-requested wait worth blocking a request for.
	maxQuotaDelay = 30 * time.Second
)

var (
	waitFor = utils.WaitFor

	retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9]+(?:\.[0-9]+)?)\s*(s|sec|secs|seconds)\b`)
)

// withRetry runs call up to attempts times while it fails with a temporary
// Gemini API error.
func withRetry(ctx context.Context, log *zap.Logger, attempts int, call func() error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = call()
		if err == nil {
			return nil
		}

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == attempts-1 {
			return err
		}

		log.Warn("gemini temporary error, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if waitErr := waitFor(ctx, delay); waitErr != nil {
			return waitErr
		}
	}
	return err
}

// retryDelay classifies err and returns how long to wait before the next
// attempt.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}

	backoff := min(baseRetryDelay<<attempt, maxRetryDelay)

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		requested, ok := requestedDelay(apiErr.Message)
		if !ok {
			return backoff, true
		}
		if requested > maxQuotaDelay {
			return 0, false
		}
		return requested, true
	case apiErr.Code >= http.StatusInternalServerError:
		return backoff, true
	default:
		return 0, false
	}
}

func requestedDelay(message string) (time.Duration, bool) {
	m := retryAfterPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	secs, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}
