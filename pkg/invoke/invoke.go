// Package invoke resolves remote command names against pre-authored method
// bindings and performs the call with runtime argument coercion.
//
// Instead of per-call reflection, the package builds a capability table at
// startup: each target registers its callable methods as typed invocation
// thunks with declared parameter kinds, and each binding is resolved to one
// method by exact signature match when it is installed. Invoke then only
// filters resolved bindings by argument count and attempts coercion.
//
// The supported parameter kinds are a fixed allow-list; a method that needs
// anything else cannot be expressed as a Method value and therefore is never
// selectable.
package invoke

import (
	"fmt"
	"strings"

	"github.com/avolpe/remcon/internal/logger"
)

// Method is one callable method on a bound target: a name, the ordered
// parameter kinds, and the typed thunk that performs the call.
type Method struct {
	// Name is the method name as it appears in binding signatures
	Name string

	// Params are the declared parameter kinds, in order
	Params []Kind

	// Call invokes the method. It receives one coerced value per
	// parameter, each of the Go type corresponding to its Kind.
	Call func(args []any) error
}

// Signature returns the method's exact signature string, e.g.
// "Attack(int,float64)". Binding resolution matches on this, not on best-fit
// inference, keeping overload disambiguation deterministic.
func (m Method) Signature() string {
	names := make([]string, len(m.Params))
	for i, p := range m.Params {
		names[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", m.Name, strings.Join(names, ","))
}

// resolvedBinding ties a lower-cased command name to one concrete method on
// one target. Built once at startup, read-only afterwards.
type resolvedBinding struct {
	target string
	method Method
}

// Invoker holds the capability table. Build it fully before serving
// commands; RegisterTarget and Bind are not safe concurrently with Invoke.
type Invoker struct {
	targets  map[string][]Method
	bindings map[string][]resolvedBinding
}

// New creates an empty Invoker.
func New() *Invoker {
	return &Invoker{
		targets:  make(map[string][]Method),
		bindings: make(map[string][]resolvedBinding),
	}
}

// RegisterTarget exposes a target object's callable methods to binding
// resolution. Target IDs are unique; registering the same ID twice is an
// error.
func (inv *Invoker) RegisterTarget(id string, methods []Method) error {
	if id == "" {
		return fmt.Errorf("target id cannot be empty")
	}
	if _, exists := inv.targets[id]; exists {
		return fmt.Errorf("target %q already registered", id)
	}

	for i, m := range methods {
		if m.Name == "" {
			return fmt.Errorf("target %q: method %d has no name", id, i)
		}
		if m.Call == nil {
			return fmt.Errorf("target %q: method %s has no thunk", id, m.Signature())
		}
		for _, p := range m.Params {
			if !p.valid() {
				return fmt.Errorf("target %q: method %s has unsupported parameter kind", id, m.Name)
			}
		}
	}

	inv.targets[id] = methods
	return nil
}

// Bind installs a command binding, resolving the signature against the
// target's registered methods. Signatures that match nothing fail here, at
// startup, rather than at first use.
func (inv *Invoker) Bind(command, targetID, signature string) error {
	if command == "" {
		return fmt.Errorf("binding command cannot be empty")
	}

	methods, ok := inv.targets[targetID]
	if !ok {
		return fmt.Errorf("binding %q: unknown target %q", command, targetID)
	}

	for _, m := range methods {
		if m.Signature() == signature {
			key := strings.ToLower(command)
			inv.bindings[key] = append(inv.bindings[key], resolvedBinding{
				target: targetID,
				method: m,
			})
			return nil
		}
	}

	return fmt.Errorf("binding %q: target %q has no method with signature %q",
		command, targetID, signature)
}

// BoundCommands returns the distinct bound command names, for help output.
func (inv *Invoker) BoundCommands() []string {
	names := make([]string, 0, len(inv.bindings))
	for name := range inv.bindings {
		names = append(names, name)
	}
	return names
}

// Invoke matches the command name case-insensitively against installed
// bindings, filters candidates by argument count, and calls the first
// method whose every argument coerces. Returns false, with a warning
// identifying the command and arguments, if no binding/method/coercion
// combination succeeds.
func (inv *Invoker) Invoke(command string, args []string) bool {
	candidates := inv.bindings[strings.ToLower(command)]

	for _, b := range candidates {
		if len(b.method.Params) != len(args) {
			continue
		}

		values, err := coerceAll(args, b.method.Params)
		if err != nil {
			logger.Debug("Binding %s on %q rejected arguments: %v",
				b.method.Signature(), b.target, err)
			continue
		}

		if err := b.method.Call(values); err != nil {
			logger.Warn("Bound method %s on %q failed: %v",
				b.method.Signature(), b.target, err)
		}
		return true
	}

	logger.Warn("No binding matched command %q with arguments %v", command, args)
	return false
}
