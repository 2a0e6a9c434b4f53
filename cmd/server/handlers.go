package main

import (
	"net/http"
	"time"

	"github.com/classtrack/go-classtrack"
	"github.com/classtrack/go-classtrack/booking"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
)

// HomeRedirect sends visitors to their landing page based on session state.
func HomeRedirect(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		user := app.sessions.CurrentUser()
		switch {
		case user == nil:
			return c.Redirect(classtrack.RouteLogin, http.StatusFound)
		case user.Role.IsAdmin():
			return c.Redirect(classtrack.RouteAdminDashboard, http.StatusFound)
		default:
			return c.Redirect(classtrack.RouteStudentDashboard, http.StatusFound)
		}
	}
}

// DashboardShow renders the student dashboard: room search plus the user's
// own reservations.
func DashboardShow(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		user := app.sessions.CurrentUser()

		rooms, err := app.booking.SearchRooms(c.Context(), c.Query("q", ""))
		if err != nil {
			return renderError(c, err)
		}

		schedules, err := app.booking.MySchedules(c.Context(), user)
		if err != nil {
			return renderError(c, err)
		}

		return c.Render("dashboard", router.ViewContext{
			"current_user": user,
			"rooms":        rooms,
			"schedules":    schedules,
			"query":        c.Query("q", ""),
		})
	}
}

// ScheduleCreate books a room for the current user.
func ScheduleCreate(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		user := app.sessions.CurrentUser()

		payload := new(scheduleForm)
		if err := c.Bind(payload); err != nil {
			return renderError(c, err)
		}

		req, err := payload.toRequest()
		if err != nil {
			return flashAndBack(c, classtrack.RouteStudentDashboard, err)
		}

		if _, err := app.booking.CreateSchedule(c.Context(), user, req); err != nil {
			return flashAndBack(c, classtrack.RouteStudentDashboard, err)
		}

		return flash.WithSuccess(c, router.ViewContext{
			"system_message": "Room booked",
		}).Redirect(classtrack.RouteStudentDashboard, http.StatusSeeOther)
	}
}

// scheduleForm accepts datetime-local form values and converts them to the
// service request.
type scheduleForm struct {
	RoomID      string `form:"room_id" json:"room_id"`
	Title       string `form:"title" json:"title"`
	Description string `form:"description" json:"description"`
	StartTime   string `form:"start_time" json:"start_time"`
	EndTime     string `form:"end_time" json:"end_time"`
}

func (f *scheduleForm) toRequest() (booking.CreateScheduleRequest, error) {
	var req booking.CreateScheduleRequest

	roomID, err := uuid.Parse(f.RoomID)
	if err != nil {
		return req, errors.New("invalid room", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}

	start, err := parseFormTime(f.StartTime)
	if err != nil {
		return req, err
	}

	end, err := parseFormTime(f.EndTime)
	if err != nil {
		return req, err
	}

	req = booking.CreateScheduleRequest{
		RoomID:      roomID,
		Title:       f.Title,
		Description: f.Description,
		StartTime:   start,
		EndTime:     end,
	}
	return req, nil
}

func parseFormTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("invalid time value", errors.CategoryValidation).
		WithCode(errors.CodeBadRequest)
}

// ScheduleCancel cancels one of the user's reservations.
func ScheduleCancel(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		user := app.sessions.CurrentUser()

		id, err := uuid.Parse(c.Param("id", ""))
		if err != nil {
			return renderError(c, err)
		}

		if _, err := app.booking.CancelSchedule(c.Context(), user, id); err != nil {
			return flashAndBack(c, classtrack.RouteStudentDashboard, err)
		}

		return c.Redirect(classtrack.RouteStudentDashboard, http.StatusSeeOther)
	}
}

// ChatShow renders the conversation with the selected peer.
func ChatShow(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		user := app.sessions.CurrentUser()

		view := router.ViewContext{
			"current_user": user,
		}

		if with := c.Query("with", ""); with != "" {
			otherID, err := uuid.Parse(with)
			if err != nil {
				return renderError(c, err)
			}

			history, err := app.booking.Conversation(c.Context(), user, otherID)
			if err != nil {
				return renderError(c, err)
			}

			view["with"] = with
			view["messages"] = history
		}

		unread, err := app.booking.UnreadCount(c.Context(), user)
		if err != nil {
			return renderError(c, err)
		}
		view["unread"] = unread

		return c.Render("chat", view)
	}
}

// ChatSend posts a message and returns to the conversation.
func ChatSend(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		user := app.sessions.CurrentUser()

		payload := new(booking.SendMessageRequest)
		if err := c.Bind(payload); err != nil {
			return renderError(c, err)
		}

		if _, err := app.booking.SendMessage(c.Context(), user, *payload); err != nil {
			return flashAndBack(c, classtrack.RouteChat, err)
		}

		return c.Redirect(classtrack.RouteChat+"?with="+payload.RecipientID.String(), http.StatusSeeOther)
	}
}

// AdminDashboard renders the admin landing page.
func AdminDashboard(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		return c.Render("admin/dashboard", router.ViewContext{
			"current_user": app.sessions.CurrentUser(),
		})
	}
}

// AdminRooms renders the room inventory with a search box.
func AdminRooms(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		rooms, err := app.booking.SearchRooms(c.Context(), c.Query("q", ""))
		if err != nil {
			return renderError(c, err)
		}

		return c.Render("admin/rooms", router.ViewContext{
			"current_user": app.sessions.CurrentUser(),
			"rooms":        rooms,
			"query":        c.Query("q", ""),
		})
	}
}

// AdminRoomCreate adds a room to the inventory.
func AdminRoomCreate(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		payload := new(booking.CreateRoomRequest)
		if err := c.Bind(payload); err != nil {
			return renderError(c, err)
		}

		if _, err := app.booking.CreateRoom(c.Context(), app.sessions.CurrentUser(), *payload); err != nil {
			return flashAndBack(c, "/admin/rooms", err)
		}

		return c.Redirect("/admin/rooms", http.StatusSeeOther)
	}
}

// AdminRoomDelete removes a room.
func AdminRoomDelete(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		id, err := uuid.Parse(c.Param("id", ""))
		if err != nil {
			return renderError(c, err)
		}

		if err := app.booking.DeleteRoom(c.Context(), app.sessions.CurrentUser(), id); err != nil {
			return flashAndBack(c, "/admin/rooms", err)
		}

		return c.Redirect("/admin/rooms", http.StatusSeeOther)
	}
}

// AdminSchedules renders all reservations with a search box.
func AdminSchedules(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		schedules, err := app.booking.SearchSchedules(c.Context(), app.sessions.CurrentUser(), c.Query("q", ""))
		if err != nil {
			return renderError(c, err)
		}

		return c.Render("admin/schedules", router.ViewContext{
			"current_user": app.sessions.CurrentUser(),
			"schedules":    schedules,
			"query":        c.Query("q", ""),
		})
	}
}

// AdminScheduleConfirm confirms a pending reservation.
func AdminScheduleConfirm(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		id, err := uuid.Parse(c.Param("id", ""))
		if err != nil {
			return renderError(c, err)
		}

		if _, err := app.booking.ConfirmSchedule(c.Context(), app.sessions.CurrentUser(), id); err != nil {
			return flashAndBack(c, "/admin/schedules", err)
		}

		return c.Redirect("/admin/schedules", http.StatusSeeOther)
	}
}

// AdminUsers renders the user management screen.
func AdminUsers(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		profiles, err := app.booking.SearchProfiles(c.Context(), app.sessions.CurrentUser(), c.Query("q", ""))
		if err != nil {
			return renderError(c, err)
		}

		return c.Render("admin/users", router.ViewContext{
			"current_user": app.sessions.CurrentUser(),
			"profiles":     profiles,
			"query":        c.Query("q", ""),
		})
	}
}

// AdminUserApprove approves a pending account.
func AdminUserApprove(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		id, err := uuid.Parse(c.Param("id", ""))
		if err != nil {
			return renderError(c, err)
		}

		if _, err := app.booking.ApproveProfile(c.Context(), app.sessions.CurrentUser(), id); err != nil {
			return flashAndBack(c, "/admin/users", err)
		}

		return c.Redirect("/admin/users", http.StatusSeeOther)
	}
}

// AdminUserSuspend suspends an account.
func AdminUserSuspend(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		id, err := uuid.Parse(c.Param("id", ""))
		if err != nil {
			return renderError(c, err)
		}

		reason := c.Query("reason", "")
		if _, err := app.booking.SuspendProfile(c.Context(), app.sessions.CurrentUser(), id, reason); err != nil {
			return flashAndBack(c, "/admin/users", err)
		}

		return c.Redirect("/admin/users", http.StatusSeeOther)
	}
}

func flashAndBack(c router.Context, location string, err error) error {
	return flash.WithError(c, router.ViewContext{
		"error_message": err.Error(),
	}).Redirect(location, http.StatusSeeOther)
}

func renderError(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
