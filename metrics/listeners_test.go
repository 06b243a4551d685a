package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrapeHooksReplaceByName(t *testing.T) {
	calls := make([]string, 0)
	OnScrape("queue:a", func() { calls = append(calls, "a1") })
	OnScrape("queue:a", func() { calls = append(calls, "a2") })
	OnScrape("queue:b", func() { calls = append(calls, "b") })

	runScrapeHooks()
	assert.Equal(t, []string{"a2", "b"}, calls)
}
