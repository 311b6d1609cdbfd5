package bot

import (
	"fmt"

	"github.com/garyellow/quizbot-go/internal/intent"
)

type registered struct {
	module string
	route  Route
}

// Registry maps commands to the module routes that handle them.
type Registry struct {
	routes map[intent.Command]registered
}

// NewRegistry creates a new handler registry.
func NewRegistry() *Registry {
	return &Registry{
		routes: make(map[intent.Command]registered),
	}
}

// Register adds every route of m. Registering a command twice is a
// programming error and panics.
func (r *Registry) Register(m Module) {
	for _, rt := range m.Routes() {
		if prev, ok := r.routes[rt.Command]; ok {
			panic(fmt.Sprintf("bot: command %s registered by both %s and %s", rt.Command, prev.module, m.Name()))
		}
		r.routes[rt.Command] = registered{module: m.Name(), route: rt}
	}
}

// Lookup returns the route for cmd and the name of its module.
func (r *Registry) Lookup(cmd intent.Command) (Route, string, bool) {
	reg, ok := r.routes[cmd]
	return reg.route, reg.module, ok
}

// Commands returns the number of registered commands.
func (r *Registry) Commands() int {
	return len(r.routes)
}
