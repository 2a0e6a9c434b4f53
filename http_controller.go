package classtrack

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// RegisterAuthRoutes mounts the login, logout, registration, and email
// verification handlers on the given router.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.
		Get(controller.Routes.Login, controller.LoginShow).
		SetName("sign-in.get")

	app.
		Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Get(controller.Routes.VerifyEmail, controller.VerifyShow).
		SetName("verify-email.get")
	app.Post(controller.Routes.VerifyEmail, controller.VerifyPost).
		SetName("verify-email.post")
}

type AuthControllerRoutes struct {
	Login       string
	Logout      string
	Register    string
	VerifyEmail string
}

type AuthControllerViews struct {
	Login       string
	Register    string
	VerifyEmail string
}

type AuthController struct {
	Logger       Logger
	Config       Config
	Sessions     *SessionManager
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerSessions(sessions *SessionManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Sessions = sessions
		return c
	}
}

func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Config = cfg
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:       RouteLogin,
			Logout:      "/logout",
			Register:    RouteRegister,
			VerifyEmail: RouteVerifyEmail,
		},
		Views: &AuthControllerViews{
			Login:       "login",
			Register:    "register",
			VerifyEmail: "verify_email",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Sessions == nil {
		panic("Missing SessionManager in auth controller...")
	}

	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	return c
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: error=%v", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	// The session manager emits the one user-facing notice for this call
	// through its Notifier; the form only re-renders the record.
	if err := a.Sessions.Login(WithRequest(ctx.Context(), ctx), payload.Email, payload.Password); err != nil {
		a.Logger.Info("login rejected email=%s error=%v", payload.Email, err)
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record": payload,
		})
	}

	redirect := GetRejectedRoute(ctx, a.Config, "")

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Sessions.Logout(WithRequest(ctx.Context(), ctx))
	return ctx.Redirect(RouteLogin, router.StatusTemporaryRedirect)
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegistrationCreatePayload{},
	})
}

// RegistrationCreatePayload is the form payload
type RegistrationCreatePayload struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Role            string `form:"role" json:"role"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Role, validation.In(string(RoleStudent), string(RoleAdmin))),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload: error=%v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Info("register validate payload: error=%v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	role, ok := ParseRole(payload.Role)
	if !ok {
		role = RoleStudent
	}

	if err := a.Sessions.Register(WithRequest(ctx.Context(), ctx), payload.Email, payload.Password, payload.Name, role); err != nil {
		a.Logger.Info("register rejected email=%s error=%v", payload.Email, err)
		return ctx.Render(a.Views.Register, router.ViewContext{
			"record": payload,
		})
	}

	return ctx.Redirect(a.Routes.VerifyEmail+"?email="+payload.Email, fiber.StatusSeeOther)
}

func (a *AuthController) VerifyShow(ctx router.Context) error {
	return ctx.Render(a.Views.VerifyEmail, router.ViewContext{
		"errors": map[string]string{},
		"email":  ctx.Query("email", ""),
	})
}

// VerifyEmailPayload carries the one-time code form
type VerifyEmailPayload struct {
	Email string `form:"email" json:"email"`
	Code  string `form:"code" json:"code"`
}

// Validate will validate the payload
func (r VerifyEmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

func (a *AuthController) VerifyPost(ctx router.Context) error {
	payload := new(VerifyEmailPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("verify parse payload: error=%v", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.VerifyEmail, router.ViewContext{
			"email":      payload.Email,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if err := a.Sessions.VerifyEmail(WithRequest(ctx.Context(), ctx), payload.Code); err != nil {
		a.Logger.Info("verify rejected email=%s error=%v", payload.Email, err)
		return ctx.Render(a.Views.VerifyEmail, router.ViewContext{
			"email": payload.Email,
		})
	}

	redirect := GetRejectedRoute(ctx, a.Config, "")

	return ctx.Redirect(redirect, fiber.StatusSeeOther)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a map
// suitable for template rendering.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}
	if err != nil {
		out["validation"] = err.Error()
	}
	return out
}

// displayMessage maps domain errors to copy safe to show users.
func displayMessage(err error) string {
	switch {
	case goerrors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	case goerrors.Is(err, ErrEmailTaken):
		return "An account with this email already exists"
	case goerrors.Is(err, ErrWeakPassword):
		return "Password does not meet the minimum requirements"
	case goerrors.Is(err, ErrInvalidOrExpiredCode):
		return "The verification code is invalid or has expired"
	default:
		return "Something went wrong, please try again"
	}
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
