// SPDX-License-Identifier: MIT
package fault

import "fmt"

// Guard reports the outcome of one operation to a Controller exactly once.
//
//	g := ctrl.Begin("spectral")
//	err := run(&g)
//	...
//	func run(g *fault.Guard) (err error) {
//		defer g.End(&err)
//		...
//	}
//
// End must be deferred directly so it can turn a panic into a
// CriticalFailure; the panic is swallowed and the error is written back.
type Guard struct {
	ctrl      *Controller
	component string
	done      bool
	res       Resolution
}

// Begin starts a guarded operation for component.
func (c *Controller) Begin(component string) Guard {
	return Guard{ctrl: c, component: component}
}

// End reports success when *errp is nil and forwards the fault otherwise.
// Later calls are no-ops.
func (g *Guard) End(errp *error) {
	if g.done {
		return
	}
	g.done = true

	if r := recover(); r != nil {
		f := New(CriticalFailure, g.component, fmt.Sprintf("panic: %v", r))
		if errp != nil {
			*errp = f
		}
		g.res = g.ctrl.HandleFault(f)
		return
	}

	if errp == nil || *errp == nil {
		g.ctrl.Succeeded(g.component)
		g.res = Clean
		return
	}

	f := As(*errp, g.component)
	g.res = g.ctrl.HandleError(f.Kind, f.Message, g.component, f.Recoverable)
}

// Done reports whether End has run.
func (g *Guard) Done() bool {
	return g.done
}

// Resolution returns the controller's verdict once End has run.
func (g *Guard) Resolution() Resolution {
	return g.res
}
