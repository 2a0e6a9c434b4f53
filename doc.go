// Package classtrack provides the session and authorization core for the
// ClassTrack classroom-booking application.
//
// Session lifecycle:
//   - SessionManager wraps an IdentityProvider and owns the current-user view
//     model. It subscribes to session-change events before its initial
//     session fetch, and all state writes flow through one apply loop in
//     event arrival order, so direct call results and pushed events can never
//     race each other.
//   - Event handlers never call back into the provider synchronously; profile
//     lookups are deferred to the apply loop because the provider dispatches
//     events while holding its subscriber lock.
//
// Route guards:
//   - DecidePrivate and DecideAdmin are pure decision tables over
//     (isLoading, isAuthenticated, role, path); PrivateRoute and AdminRoute
//     wrap them as router middleware that re-evaluates on every request and
//     preserves the rejected location for post-login return.
//
// Profile lifecycle:
//   - Profiles carry a ProfileStatus persisted via Bun. ProfileStateMachine
//     centralizes the transition graph (pending, approved, suspended,
//     archived) used by admin approval workflows.
package classtrack
