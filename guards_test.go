package classtrack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type staticSource struct {
	user    *CurrentUser
	loading bool
}

func (s staticSource) CurrentUser() *CurrentUser { return s.user }

func (s staticSource) IsAuthenticated() bool { return s.user != nil }

func (s staticSource) IsLoading() bool { return s.loading }

func TestDecidePrivate(t *testing.T) {
	tests := []struct {
		name     string
		state    GuardState
		path     string
		expected GuardDecision
	}{
		{
			name:     "loading renders placeholder regardless of auth",
			state:    GuardState{Loading: true},
			path:     RouteStudentDashboard,
			expected: GuardDecision{Action: ActionLoading},
		},
		{
			name:     "loading renders placeholder even when authenticated",
			state:    GuardState{Loading: true, Authenticated: true, Role: RoleAdmin},
			path:     RouteStudentDashboard,
			expected: GuardDecision{Action: ActionLoading},
		},
		{
			name:  "unauthenticated redirects to login preserving location",
			state: GuardState{},
			path:  RouteStudentDashboard,
			expected: GuardDecision{
				Action:           ActionRedirect,
				Location:         RouteLogin,
				PreserveLocation: true,
			},
		},
		{
			name:     "student renders student content",
			state:    GuardState{Authenticated: true, Role: RoleStudent},
			path:     RouteStudentDashboard,
			expected: GuardDecision{Action: ActionRender},
		},
		{
			name:  "admin is bounced off the student dashboard",
			state: GuardState{Authenticated: true, Role: RoleAdmin},
			path:  RouteStudentDashboard,
			expected: GuardDecision{
				Action:   ActionRedirect,
				Location: RouteAdminDashboard,
			},
		},
		{
			name:     "admin renders shared private content",
			state:    GuardState{Authenticated: true, Role: RoleAdmin},
			path:     RouteChat,
			expected: GuardDecision{Action: ActionRender},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DecidePrivate(tc.state, tc.path))
		})
	}
}

func TestDecideAdmin(t *testing.T) {
	tests := []struct {
		name     string
		state    GuardState
		path     string
		expected GuardDecision
	}{
		{
			name:     "loading renders placeholder",
			state:    GuardState{Loading: true},
			path:     RouteAdminDashboard,
			expected: GuardDecision{Action: ActionLoading},
		},
		{
			name:  "unauthenticated redirects to login preserving location",
			state: GuardState{},
			path:  RouteAdminDashboard,
			expected: GuardDecision{
				Action:           ActionRedirect,
				Location:         RouteLogin,
				PreserveLocation: true,
			},
		},
		{
			name:  "student is bounced to the student dashboard",
			state: GuardState{Authenticated: true, Role: RoleStudent},
			path:  RouteAdminDashboard,
			expected: GuardDecision{
				Action:   ActionRedirect,
				Location: RouteStudentDashboard,
			},
		},
		{
			name:     "admin renders admin content",
			state:    GuardState{Authenticated: true, Role: RoleAdmin},
			path:     RouteAdminDashboard,
			expected: GuardDecision{Action: ActionRender},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DecideAdmin(tc.state, tc.path))
		})
	}
}

func TestSnapshotGuardState(t *testing.T) {
	t.Run("empty source", func(t *testing.T) {
		state := SnapshotGuardState(staticSource{})
		assert.False(t, state.Loading)
		assert.False(t, state.Authenticated)
		assert.Empty(t, state.Role)
	})

	t.Run("loading source", func(t *testing.T) {
		state := SnapshotGuardState(staticSource{loading: true})
		assert.True(t, state.Loading)
	})

	t.Run("authenticated source carries role", func(t *testing.T) {
		state := SnapshotGuardState(staticSource{
			user: &CurrentUser{ID: "u1", Role: RoleAdmin},
		})
		assert.True(t, state.Authenticated)
		assert.Equal(t, RoleAdmin, state.Role)
	})

	t.Run("approval flag does not gate routing", func(t *testing.T) {
		state := SnapshotGuardState(staticSource{
			user: &CurrentUser{ID: "u1", Role: RoleStudent, Approved: false},
		})
		decision := DecidePrivate(state, RouteStudentDashboard)
		assert.Equal(t, ActionRender, decision.Action)
	})
}
