package main

import (
	"net/http"

	"github.com/classtrack/go-classtrack/booking"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RegisterAPIRoutes mounts the JSON API consumed by script-driven clients.
// The endpoints sit behind the same guards as the HTML pages.
func RegisterAPIRoutes(app *App, private, admin router.MiddlewareFunc) {
	p := app.srv.Router()

	p.Get("/api/rooms", APIRoomsList(app), private)
	p.Post("/api/rooms", APIRoomCreate(app), admin)
	p.Post("/api/rooms/:id/delete", APIRoomDelete(app), admin)

	p.Get("/api/schedules", APISchedulesList(app), private)
	p.Post("/api/schedules", APIScheduleCreate(app), private)
	p.Post("/api/schedules/:id/cancel", APIScheduleCancel(app), private)

	p.Get("/api/messages", APIMessagesList(app), private)
	p.Post("/api/messages", APIMessageSend(app), private)
}

func APIRoomsList(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		rooms, err := app.booking.SearchRooms(c.Context(), c.Query("q", ""))
		if err != nil {
			return apiError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"rooms": rooms})
	}
}

func APIRoomCreate(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		payload := new(booking.CreateRoomRequest)
		if err := c.Bind(payload); err != nil {
			return apiError(c, err)
		}

		room, err := app.booking.CreateRoom(c.Context(), app.sessions.CurrentUser(), *payload)
		if err != nil {
			return apiError(c, err)
		}

		return c.JSON(http.StatusCreated, room)
	}
}

func APIRoomDelete(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		id, err := uuid.Parse(c.Param("id", ""))
		if err != nil {
			return apiError(c, err)
		}

		if err := app.booking.DeleteRoom(c.Context(), app.sessions.CurrentUser(), id); err != nil {
			return apiError(c, err)
		}

		return c.JSON(http.StatusOK, map[string]any{"deleted": id.String()})
	}
}

// APISchedulesList returns the actor's own reservations; admins get the full
// listing with the same search filter as the admin page.
func APISchedulesList(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		user := app.sessions.CurrentUser()

		var (
			schedules []*booking.Schedule
			err       error
		)
		if user != nil && user.Role.IsAdmin() {
			schedules, err = app.booking.SearchSchedules(c.Context(), user, c.Query("q", ""))
		} else {
			schedules, err = app.booking.MySchedules(c.Context(), user)
		}
		if err != nil {
			return apiError(c, err)
		}

		return c.JSON(http.StatusOK, map[string]any{"schedules": schedules})
	}
}

func APIScheduleCreate(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		payload := new(booking.CreateScheduleRequest)
		if err := c.Bind(payload); err != nil {
			return apiError(c, err)
		}

		schedule, err := app.booking.CreateSchedule(c.Context(), app.sessions.CurrentUser(), *payload)
		if err != nil {
			return apiError(c, err)
		}

		return c.JSON(http.StatusCreated, schedule)
	}
}

func APIScheduleCancel(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		id, err := uuid.Parse(c.Param("id", ""))
		if err != nil {
			return apiError(c, err)
		}

		schedule, err := app.booking.CancelSchedule(c.Context(), app.sessions.CurrentUser(), id)
		if err != nil {
			return apiError(c, err)
		}

		return c.JSON(http.StatusOK, schedule)
	}
}

func APIMessagesList(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		otherID, err := uuid.Parse(c.Query("with", ""))
		if err != nil {
			return apiError(c, errors.New("missing or invalid 'with' parameter", errors.CategoryValidation).
				WithCode(errors.CodeBadRequest))
		}

		history, err := app.booking.Conversation(c.Context(), app.sessions.CurrentUser(), otherID)
		if err != nil {
			return apiError(c, err)
		}

		return c.JSON(http.StatusOK, map[string]any{"messages": history})
	}
}

func APIMessageSend(app *App) func(c router.Context) error {
	return func(c router.Context) error {
		payload := new(booking.SendMessageRequest)
		if err := c.Bind(payload); err != nil {
			return apiError(c, err)
		}

		message, err := app.booking.SendMessage(c.Context(), app.sessions.CurrentUser(), *payload)
		if err != nil {
			return apiError(c, err)
		}

		return c.JSON(http.StatusCreated, message)
	}
}

// apiError maps the error taxonomy onto JSON status codes.
func apiError(c router.Context, err error) error {
	status := http.StatusInternalServerError
	message := "internal error"

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		if richErr.Code > 0 {
			status = richErr.Code
		}
		message = richErr.Message
	}

	return c.JSON(status, map[string]any{
		"error": message,
	})
}
