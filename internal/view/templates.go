// Package view renders transactional email templates.
package view

import (
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/maderia/maderia/web"
)

// Engine substitutes {{KEY}} placeholders into embedded HTML templates.
// Template content is loaded lazily and cached for the process lifetime;
// the files are static at deploy time so the cache never invalidates.
// The engine is an injected component, not a package singleton.
type Engine struct {
	fsys fs.FS

	mu    sync.RWMutex
	cache map[string]string
}

// NewEngine builds an engine over the embedded template tree.
func NewEngine() *Engine {
	return &Engine{fsys: web.Templates, cache: make(map[string]string)}
}

// NewEngineFS builds an engine over an arbitrary template tree. Tests
// use it to supply fixtures.
func NewEngineFS(fsys fs.FS) *Engine {
	return &Engine{fsys: fsys, cache: make(map[string]string)}
}

func (e *Engine) load(name string) (string, error) {
	e.mu.RLock()
	content, ok := e.cache[name]
	e.mu.RUnlock()
	if ok {
		return content, nil
	}

	raw, err := fs.ReadFile(e.fsys, "templates/"+name+".html")
	if err != nil {
		return "", fmt.Errorf("load template %q: %w", name, err)
	}
	content = string(raw)

	e.mu.Lock()
	e.cache[name] = content
	e.mu.Unlock()
	return content, nil
}

// Render loads the named template and substitutes every {{KEY}}
// placeholder with its value. Unknown placeholders are left untouched.
func (e *Engine) Render(name string, data map[string]string) (string, error) {
	content, err := e.load(name)
	if err != nil {
		return "", err
	}
	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(content), nil
}
