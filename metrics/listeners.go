package metrics

import (
	"sort"
	"sync"
)

var scrapeHooksLock = new(sync.Mutex)
var scrapeHooks = make(map[string]func())

// OnScrape registers fn to refresh gauges right before a scrape. A hook
// registered under an existing name replaces it, so a queue rebuilt on reload
// reports only its new pool.
func OnScrape(name string, fn func()) {
	scrapeHooksLock.Lock()
	defer scrapeHooksLock.Unlock()
	scrapeHooks[name] = fn
}

func runScrapeHooks() {
	scrapeHooksLock.Lock()
	names := make([]string, 0, len(scrapeHooks))
	for name := range scrapeHooks {
		names = append(names, name)
	}
	sort.Strings(names)
	hooks := make([]func(), 0, len(names))
	for _, name := range names {
		hooks = append(hooks, scrapeHooks[name])
	}
	scrapeHooksLock.Unlock()

	for _, fn := range hooks {
		fn()
	}
}
