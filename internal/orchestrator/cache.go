package orchestrator

import (
	"encoding/json"
	"sync"
	"time"
)

type cacheEntry struct {
	kind    DataKind
	data    []byte
	expires time.Time
}

// responseCache guarda respostas serializadas; cada leitura devolve um mapa novo.
type responseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

// cacheKey combina ação, payload canônico e usuário.
// json.Marshal ordena as chaves de mapas, o que torna a forma canônica.
func cacheKey(action string, payload map[string]any, actorID string) (string, bool) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", false
	}
	return action + "|" + actorID + "|" + string(raw), true
}

func (c *responseCache) get(key string, now time.Time) (map[string]any, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && !now.Before(entry.expires) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	data := map[string]any{}
	if err := json.Unmarshal(entry.data, &data); err != nil {
		return nil, false
	}
	return data, true
}

func (c *responseCache) put(key string, kind DataKind, data map[string]any, now time.Time) {
	if c.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry{kind: kind, data: raw, expires: now.Add(c.ttl)}
	c.mu.Unlock()
}

func (c *responseCache) invalidate(kinds ...DataKind) int {
	if len(kinds) == 0 {
		return 0
	}
	drop := make(map[DataKind]struct{}, len(kinds))
	for _, k := range kinds {
		drop[k] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.entries {
		if _, ok := drop[entry.kind]; ok {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *responseCache) purge() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
