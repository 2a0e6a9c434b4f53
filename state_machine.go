package classtrack

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid profile state transition", goerrors.CategoryValidation).
	WithTextCode("INVALID_PROFILE_STATE_TRANSITION").
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalState is returned when attempting to move away from an archived profile.
var ErrTerminalState = goerrors.New("profile state is terminal", goerrors.CategoryConflict).
	WithTextCode("TERMINAL_PROFILE_STATE").
	WithCode(goerrors.CodeConflict)

// ActorRef identifies who/what triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

// TransitionMetadata captures extra context for a transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// ProfileStateMachine defines lifecycle operations for profiles.
type ProfileStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, profile *Profile, target ProfileStatus, opts ...TransitionOption) (*Profile, error)
	CurrentStatus(profile *Profile) ProfileStatus
}

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.metadata.Reason = reason
	}
}

// WithForceTransition bypasses validation rules (use sparingly).
func WithForceTransition() TransitionOption {
	return func(opts *transitionOptions) {
		opts.force = true
	}
}

// WithSuspensionTime overrides the timestamp recorded when entering the suspended state.
func WithSuspensionTime(t time.Time) TransitionOption {
	return func(opts *transitionOptions) {
		opts.suspensionTime = &t
	}
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*profileStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *profileStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineLogger overrides the logger.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *profileStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewProfileStateMachine returns the default implementation backed by the
// provided repository.
func NewProfileStateMachine(profiles Profiles, opts ...StateMachineOption) ProfileStateMachine {
	sm := &profileStateMachine{
		profiles: profiles,
		transitions: map[ProfileStatus]map[ProfileStatus]struct{}{
			ProfileStatusPending: {
				ProfileStatusApproved: {},
				ProfileStatusArchived: {},
			},
			ProfileStatusApproved: {
				ProfileStatusSuspended: {},
				ProfileStatusArchived:  {},
			},
			ProfileStatusSuspended: {
				ProfileStatusApproved: {},
				ProfileStatusArchived: {},
			},
		},
		now:    time.Now,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type profileStateMachine struct {
	profiles    Profiles
	transitions map[ProfileStatus]map[ProfileStatus]struct{}
	now         func() time.Time
	logger      Logger
}

type transitionOptions struct {
	metadata       TransitionMetadata
	force          bool
	suspensionTime *time.Time
}

func (sm *profileStateMachine) Transition(ctx context.Context, actor ActorRef, profile *Profile, target ProfileStatus, opts ...TransitionOption) (*Profile, error) {
	if profile == nil {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"target": target,
			"reason": "profile is nil",
		})
	}

	profile.EnsureStatus()
	from := profile.Status
	if target == "" {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "target status is empty",
		})
	}

	if from == target {
		return profile, nil
	}

	options := sm.buildTransitionOptions(opts...)

	if from == ProfileStatusArchived && !options.force {
		return nil, ErrTerminalState.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	if !options.force && !sm.canTransition(from, target) {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	statusOpts, chosenSuspension := sm.buildStatusOptions(profile, from, target, options)

	updated, err := sm.profiles.UpdateStatus(ctx, profile.ID, target, statusOpts...)
	if err != nil {
		return nil, err
	}

	sm.applyUpdates(profile, updated, target, from, chosenSuspension)

	sm.logger.Info(
		"profile status changed",
		"profile_id", profile.ID.String(),
		"actor", actor.ID,
		"from", from,
		"to", target,
		"reason", options.metadata.Reason,
	)

	return profile, nil
}

func (sm *profileStateMachine) CurrentStatus(profile *Profile) ProfileStatus {
	if profile == nil {
		return ""
	}
	profile.EnsureStatus()
	return profile.Status
}

func (sm *profileStateMachine) canTransition(from, to ProfileStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *profileStateMachine) buildTransitionOptions(opts ...TransitionOption) *transitionOptions {
	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	return options
}

func (sm *profileStateMachine) buildStatusOptions(profile *Profile, from, to ProfileStatus, opts *transitionOptions) ([]StatusUpdateOption, *time.Time) {
	statusOpts := []StatusUpdateOption{}
	var suspensionTime *time.Time

	if to == ProfileStatusSuspended {
		switch {
		case opts.suspensionTime != nil:
			suspensionTime = opts.suspensionTime
		case profile.SuspendedAt != nil:
			suspensionTime = profile.SuspendedAt
		default:
			now := sm.now()
			suspensionTime = &now
		}
		statusOpts = append(statusOpts, WithSuspendedAt(suspensionTime))
	} else if from == ProfileStatusSuspended && profile.SuspendedAt != nil {
		statusOpts = append(statusOpts, WithSuspendedAt(nil))
	}

	return statusOpts, suspensionTime
}

func (sm *profileStateMachine) applyUpdates(profile, updated *Profile, target, from ProfileStatus, suspensionTime *time.Time) {
	if updated != nil {
		if updated.Status != "" {
			profile.Status = updated.Status
		} else {
			profile.Status = target
		}
		profile.SuspendedAt = updated.SuspendedAt
		return
	}

	profile.Status = target
	if target == ProfileStatusSuspended {
		profile.SuspendedAt = suspensionTime
	} else if from == ProfileStatusSuspended {
		profile.SuspendedAt = nil
	}
}
