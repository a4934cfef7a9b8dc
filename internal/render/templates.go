package render

import (
	"sync"

	"github.com/samber/lo"
)

// TemplateCache deduplicates drawables by shape key: each distinct key is
// built at most once for the lifetime of the cache, and every entity with
// that key is drawn through an instance group wrapping the shared
// template. Templates are never mutated after construction.
type TemplateCache struct {
	surface Surface

	mu        sync.Mutex
	templates map[string]Drawable
	builds    int
}

// NewTemplateCache creates an empty cache building on s.
func NewTemplateCache(s Surface) *TemplateCache {
	return &TemplateCache{
		surface:   s,
		templates: make(map[string]Drawable),
	}
}

// GetOrCreate returns the template for key, invoking build only on a miss.
func (c *TemplateCache) GetOrCreate(key string, build func() []PathOp) Drawable {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.templates[key]; ok {
		return d
	}
	d := c.surface.NewPath(build())
	c.templates[key] = d
	c.builds++
	return d
}

// Get returns the template for key if it was built.
func (c *TemplateCache) Get(key string) (Drawable, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.templates[key]
	return d, ok
}

// Instance wraps the template for key in a new group placed at (x, y)
// with the given rotation.
func (c *TemplateCache) Instance(key string, build func() []PathOp, x, y, rotation float64) Group {
	tpl := c.GetOrCreate(key, build)
	g := c.surface.NewGroup()
	g.Add(tpl)
	g.SetTransform(x, y, rotation)
	return g
}

// Evict disposes the template for key. Callers must have detached every
// instance using it.
func (c *TemplateCache) Evict(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.templates[key]
	if !ok {
		return false
	}
	delete(c.templates, key)
	c.surface.Dispose(d)
	return true
}

// Len returns the number of live templates.
func (c *TemplateCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.templates)
}

// Builds returns how many templates have been constructed.
func (c *TemplateCache) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}

// Keys returns a copy of the template keys.
func (c *TemplateCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Keys(c.templates)
}

// Clear disposes every template.
func (c *TemplateCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.templates {
		c.surface.Dispose(d)
	}
	c.templates = make(map[string]Drawable)
}
