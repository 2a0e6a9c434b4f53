package classtrack

import (
	"net/http"
	"time"

	"github.com/goliatone/go-router"
)

// Named application routes.
const (
	RouteLogin            = "/login"
	RouteRegister         = "/register"
	RouteVerifyEmail      = "/verify-email"
	RouteStudentDashboard = "/dashboard"
	RouteAdminDashboard   = "/admin"
	RouteChat             = "/chat"
)

// studentOnlyPaths are routes an admin is bounced away from, toward the
// admin dashboard.
var studentOnlyPaths = map[string]struct{}{
	RouteStudentDashboard: {},
}

// GuardState is the routing-relevant snapshot of the session manager.
type GuardState struct {
	Loading       bool
	Authenticated bool
	Role          Role
}

// GuardAction is the outcome of a guard decision.
type GuardAction int

const (
	// ActionRender allows the requested content through.
	ActionRender GuardAction = iota
	// ActionLoading renders a neutral placeholder without redirecting. The
	// loading state is mandatory: protected content must never flash before
	// the authentication check resolves.
	ActionLoading
	// ActionRedirect sends the user to Location.
	ActionRedirect
)

// GuardDecision is a routing verdict. PreserveLocation asks the transport
// layer to retain the originally requested path for post-login return.
type GuardDecision struct {
	Action           GuardAction
	Location         string
	PreserveLocation bool
}

// SnapshotGuardState captures the guard inputs from a session source.
func SnapshotGuardState(source SessionSource) GuardState {
	state := GuardState{
		Loading:       source.IsLoading(),
		Authenticated: source.IsAuthenticated(),
	}
	if user := source.CurrentUser(); user != nil {
		state.Role = user.Role
	}
	return state
}

// DecidePrivate implements the "requires any authenticated identity" table.
// It is a pure function of (isLoading, isAuthenticated, role, path).
func DecidePrivate(state GuardState, path string) GuardDecision {
	if state.Loading {
		return GuardDecision{Action: ActionLoading}
	}

	if !state.Authenticated {
		return GuardDecision{Action: ActionRedirect, Location: RouteLogin, PreserveLocation: true}
	}

	if state.Role.IsAdmin() {
		if _, studentOnly := studentOnlyPaths[path]; studentOnly {
			return GuardDecision{Action: ActionRedirect, Location: RouteAdminDashboard}
		}
	}

	return GuardDecision{Action: ActionRender}
}

// DecideAdmin implements the "requires role=admin" table.
func DecideAdmin(state GuardState, path string) GuardDecision {
	if state.Loading {
		return GuardDecision{Action: ActionLoading}
	}

	if !state.Authenticated {
		return GuardDecision{Action: ActionRedirect, Location: RouteLogin, PreserveLocation: true}
	}

	if !state.Role.IsAdmin() {
		return GuardDecision{Action: ActionRedirect, Location: RouteStudentDashboard}
	}

	return GuardDecision{Action: ActionRender}
}

// PrivateRoute guards routes that require any authenticated identity. The
// decision is re-evaluated on every request, not just once.
func PrivateRoute(source SessionSource, cfg Config) router.MiddlewareFunc {
	return guardMiddleware(source, cfg, DecidePrivate)
}

// AdminRoute guards routes that require role=admin.
func AdminRoute(source SessionSource, cfg Config) router.MiddlewareFunc {
	return guardMiddleware(source, cfg, DecideAdmin)
}

func guardMiddleware(source SessionSource, cfg Config, decide func(GuardState, string) GuardDecision) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			decision := decide(SnapshotGuardState(source), ctx.Path())

			switch decision.Action {
			case ActionLoading:
				return ctx.Status(http.StatusOK).SendString("Loading...")
			case ActionRedirect:
				if decision.PreserveLocation {
					setRejectedRoute(ctx, cfg)
				}
				statusCode := http.StatusSeeOther
				if ctx.Method() == string(router.GET) {
					statusCode = http.StatusFound
				}
				return ctx.Redirect(decision.Location, statusCode)
			default:
				return next(ctx)
			}
		}
	}
}

// setRejectedRoute captures the originally requested location so the login
// flow can return the user there afterwards.
func setRejectedRoute(ctx router.Context, cfg Config) {
	ctx.Cookie(&router.Cookie{
		Name:     cfg.GetRejectedRouteKey(),
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// GetRejectedRoute pops the preserved location, falling back to def.
func GetRejectedRoute(ctx router.Context, cfg Config, def string) string {
	key := cfg.GetRejectedRouteKey()
	r := ctx.Cookies(key)
	if r == "" {
		if def != "" {
			return def
		}
		return cfg.GetRejectedRouteDefault()
	}
	clearRejectedRoute(ctx, cfg)
	return r
}

func clearRejectedRoute(ctx router.Context, cfg Config) {
	ctx.Cookie(&router.Cookie{
		Name:     cfg.GetRejectedRouteKey(),
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
