package parser

import (
	"sync"
)

// StringIntern provides thread-safe string interning. Routing group tags,
// colours and truck ids repeat across thousands of records; interning them
// keeps one copy per distinct value in the entity tables.
type StringIntern struct {
	mu   sync.RWMutex
	pool map[string]string
}

// NewStringIntern creates a new string interner.
func NewStringIntern() *StringIntern {
	return &StringIntern{
		pool: make(map[string]string, 256),
	}
}

// MaxInternPoolSize limits the intern pool to prevent unbounded memory growth.
const MaxInternPoolSize = 100000

// Intern returns the canonical version of the string. Past
// MaxInternPoolSize strings are returned without being stored.
func (si *StringIntern) Intern(s string) string {
	if s == "" {
		return s
	}
	si.mu.RLock()
	if pooled, ok := si.pool[s]; ok {
		si.mu.RUnlock()
		return pooled
	}
	if len(si.pool) >= MaxInternPoolSize {
		si.mu.RUnlock()
		return s
	}
	si.mu.RUnlock()

	si.mu.Lock()
	defer si.mu.Unlock()
	// Double-check after acquiring write lock
	if pooled, ok := si.pool[s]; ok {
		return pooled
	}
	if len(si.pool) >= MaxInternPoolSize {
		return s
	}
	si.pool[s] = s
	return s
}

// Len returns the number of unique strings in the pool.
func (si *StringIntern) Len() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.pool)
}

// Clear removes all interned strings.
func (si *StringIntern) Clear() {
	si.mu.Lock()
	defer si.mu.Unlock()
	si.pool = make(map[string]string, 256)
}
