// Package robots provides sample control programs and a registry that maps
// names to constructors.
package robots

import (
	"fmt"
	"sort"

	"github.com/san-kum/linesim/internal/hardware"
)

// Placeholder is the control program used when none was chosen.
const Placeholder = "dummy"

type Registry struct {
	robots map[string]func() hardware.Robot
}

func NewRegistry() *Registry {
	r := &Registry{robots: make(map[string]func() hardware.Robot)}

	r.robots[Placeholder] = func() hardware.Robot { return &Dummy{} }
	r.robots["linefollower"] = func() hardware.Robot { return NewLineFollower() }
	r.robots["splitfollower"] = func() hardware.Robot { return NewSplitFollower() }

	return r
}

// Register adds or replaces a control program.
func (r *Registry) Register(name string, fn func() hardware.Robot) {
	r.robots[name] = fn
}

func (r *Registry) Get(name string) (hardware.Robot, error) {
	fn, ok := r.robots[name]
	if !ok {
		return nil, fmt.Errorf("unknown robot: %s", name)
	}
	return fn(), nil
}

// Factory returns a constructor for batch runs, which need one instance per
// simulated robot.
func (r *Registry) Factory(name string) (func() (hardware.Robot, error), error) {
	fn, ok := r.robots[name]
	if !ok {
		return nil, fmt.Errorf("unknown robot: %s", name)
	}
	return func() (hardware.Robot, error) { return fn(), nil }, nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.robots))
	for name := range r.robots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
