package classtrack

import (
	"context"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// NoticeLevel distinguishes success banners from failures.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-facing notification emitted once per auth operation.
type Notice struct {
	Level   NoticeLevel
	Title   string
	Message string
}

// Notifier consumes user-facing notifications. The session manager emits
// exactly one notice per login/register/verify/logout call, from the direct
// call path only, never duplicated by the subscription path.
type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, notice Notice) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, notice Notice) error {
	if f == nil {
		return nil
	}
	return f(ctx, notice)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Notice) error {
	return nil
}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

type requestKey struct{}

// WithRequest tags ctx with the transport request that triggered the
// operation, so a Notifier can deliver the notice on its response.
func WithRequest(ctx context.Context, rc router.Context) context.Context {
	return context.WithValue(ctx, requestKey{}, rc)
}

// RequestFrom recovers the originating request, if any.
func RequestFrom(ctx context.Context) (router.Context, bool) {
	rc, ok := ctx.Value(requestKey{}).(router.Context)
	return rc, ok
}

// FlashNotifier delivers notices as flash messages on the request that
// triggered the operation. Notices raised outside any request, such as during
// bootstrap or expiry sweeps, go to the logger instead.
func FlashNotifier(logger Logger) Notifier {
	if logger == nil {
		logger = defLogger{}
	}

	return NotifierFunc(func(ctx context.Context, notice Notice) error {
		rc, ok := RequestFrom(ctx)
		if !ok {
			logger.Info("notice level=%s title=%s message=%s",
				notice.Level, notice.Title, notice.Message)
			return nil
		}

		if notice.Level == NoticeError {
			flash.WithError(rc, router.ViewContext{
				"system_message": notice.Title,
				"error_message":  notice.Message,
			})
			return nil
		}

		flash.WithSuccess(rc, router.ViewContext{
			"system_message": notice.Message,
		})
		return nil
	})
}
