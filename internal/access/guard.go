package access

import (
	"fmt"
	"log/slog"
)

// Guard evaluates the rules, logs every denial and fails closed.
type Guard struct {
	log *slog.Logger
}

func NewGuard(logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{log: logger}
}

// evaluate runs the authentication check before allow. A panic inside allow
// is logged and turned into PermissionDenied.
func (g *Guard) evaluate(op string, actor Actor, target string, needAuth bool, allow func() bool) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("access check failed",
				"actor", actor.ID(), "op", op, "target", target, "panic", fmt.Sprint(r))
			d = PermissionDenied
		}
	}()

	if needAuth && !actor.Authenticated() {
		d = AuthenticationRequired
	} else if allow() {
		return Allowed
	} else if !actor.Authenticated() {
		d = AuthenticationRequired
	} else {
		d = PermissionDenied
	}

	g.log.Warn("access denied",
		"actor", actor.ID(), "role", actor.Role.String(), "op", op, "target", target, "decision", d.String())
	return d
}

func (g *Guard) RequireRoles(op string, actor Actor, roles ...Role) Decision {
	return g.evaluate(op, actor, "", true, func() bool { return CanAccess(roles, actor) })
}

func (g *Guard) RequireOwner(op string, actor Actor, target string, entity Owned) Decision {
	return g.evaluate(op, actor, target, true, func() bool { return CanOwn(actor, entity) })
}

func (g *Guard) RequireMessageView(op string, actor Actor, target string, msg MessageParties) Decision {
	return g.evaluate(op, actor, target, true, func() bool { return CanViewMessage(actor, msg) })
}

// RequireProjectView lets anonymous callers through for published projects;
// only a failed check on an unpublished one asks for authentication.
func (g *Guard) RequireProjectView(op string, actor Actor, target string, p ProjectAudience) Decision {
	return g.evaluate(op, actor, target, false, func() bool { return CanViewProject(actor, p) })
}

// Check runs an arbitrary predicate under the same ordering, logging and
// fail-closed handling as the named checks.
func (g *Guard) Check(op string, actor Actor, target string, allow func() bool) Decision {
	return g.evaluate(op, actor, target, true, allow)
}
