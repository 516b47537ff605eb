package auth

import (
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// RegisterAuthRoutes mounts the account lifecycle endpoints on the router.
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.Register)
	app.Post(controller.Routes.RegisterActivate, controller.RegisterActivate)
	app.Post(controller.Routes.Login, controller.Login)
	app.Post(controller.Routes.ForgetPassword, controller.ForgetPassword)
	app.Post(controller.Routes.ResetPassword, controller.ResetPassword)

	return controller
}

type AuthControllerRoutes struct {
	Register         string
	RegisterActivate string
	Login            string
	ForgetPassword   string
	ResetPassword    string
}

type AuthController struct {
	Debug  bool
	Logger Logger
	Repo   RepositoryManager
	Tokens TokenService
	Mailer Mailer
	Routes *AuthControllerRoutes
	AppURL string
	// AuthErrStatus is the status used for authentication failures that are
	// not pinned by the API contract (bad login, unknown reset email).
	AuthErrStatus int
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:        defLogger{},
		AppURL:        "http://localhost:3000",
		AuthErrStatus: fiber.StatusBadRequest,
		Routes: &AuthControllerRoutes{
			Register:         "/register",
			RegisterActivate: "/register/activate",
			Login:            "/login",
			ForgetPassword:   "/forget-password",
			ResetPassword:    "/reset-password",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in auth controller...")
	}

	if c.Mailer == nil {
		panic("Missing Mailer in auth controller...")
	}

	return c
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerTokens(tokens TokenService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Tokens = tokens
		return c
	}
}

func WithControllerMailer(mailer Mailer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerAppURL(appURL string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if appURL != "" {
			c.AppURL = appURL
		}
		return c
	}
}

func WithControllerAuthErrStatus(status int) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if status != 0 {
			c.AuthErrStatus = status
		}
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// RegisterPayload is the signup request body
type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

func (a *AuthController) Register(c *fiber.Ctx) error {
	payload := new(RegisterPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register parse payload: ", "error", err)
		return a.respondError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register validate payload: ", "error", err)
		return a.respondValidationError(c, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	msg := RegisterMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	}

	register := NewRegisterHandler(a.Repo, a.Tokens, a.Mailer, a.AppURL).WithLogger(a.Logger)
	if err := register.Execute(c.UserContext(), msg); err != nil {
		a.Logger.Error("register error: ", "error", err)
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Email has been sent to %s. Follow the instruction to activate your account", payload.Email),
	})
}

// ActivatePayload carries the activation token lifted from the emailed link
type ActivatePayload struct {
	Token string `json:"token"`
}

// Validate will run validation rules
func (r ActivatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

func (a *AuthController) RegisterActivate(c *fiber.Ctx) error {
	payload := new(ActivatePayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("activate parse payload: ", "error", err)
		return a.respondError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("activate validate payload: ", "error", err)
		return a.respondValidationError(c, err)
	}

	msg := ActivateMessage{
		Token: payload.Token,
	}

	activate := NewActivateHandler(a.Repo, a.Tokens).WithLogger(a.Logger)
	if err := activate.Execute(c.UserContext(), msg); err != nil {
		a.Logger.Error("activate error: ", "error", err)
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Signup success. Please signin",
	})
}

// LoginPayload is the signin request body
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload: ", "error", err)
		return a.respondError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("login validate payload: ", "error", err)
		return a.respondValidationError(c, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	auther := NewAuthenticator(a.Repo, a.Tokens).WithLogger(a.Logger)
	token, account, err := auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		a.Logger.Error("login error: ", "error", err)
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    account.Public(),
	})
}

// ForgetPasswordPayload is the reset request body
type ForgetPasswordPayload struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r ForgetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ForgetPassword(c *fiber.Ctx) error {
	payload := new(ForgetPasswordPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("forget password parse payload: ", "error", err)
		return a.respondError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("forget password validate payload: ", "error", err)
		return a.respondValidationError(c, err)
	}

	msg := InitializePasswordResetMessage{
		Email: payload.Email,
	}

	initPwdReset := NewInitializePasswordResetHandler(a.Repo, a.Tokens, a.Mailer, a.AppURL).WithLogger(a.Logger)
	if err := initPwdReset.Execute(c.UserContext(), msg); err != nil {
		a.Logger.Error("forget password error: ", "error", err)
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Email has been sent to %s. Follow the instruction to reset your password", payload.Email),
	})
}

// ResetPasswordPayload is the reset confirmation body. The link field names
// match what the emailed frontend form submits.
type ResetPasswordPayload struct {
	ResetPasswordLink string `json:"resetPasswordLink"`
	NewPassword       string `json:"newPassword"`
}

// Validate will run validation rules. An empty link is a validation error,
// never a lookup against accounts without a pending reset.
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ResetPasswordLink, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(6, 100)),
	)
}

func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	payload := new(ResetPasswordPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("reset password parse payload: ", "error", err)
		return a.respondError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("reset password validate payload: ", "error", err)
		return a.respondValidationError(c, err)
	}

	msg := FinalizePasswordResetMessage{
		ResetPasswordLink: payload.ResetPasswordLink,
		NewPassword:       payload.NewPassword,
	}

	finalizePwdReset := NewFinalizePasswordResetHandler(a.Repo, a.Tokens).WithLogger(a.Logger)
	if err := finalizePwdReset.Execute(c.UserContext(), msg); err != nil {
		a.Logger.Error("reset password error: ", "error", err)
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Great! Now you can login with your new password",
	})
}

// respondError maps a failure to its JSON error body. Explicit codes win;
// otherwise the status follows the error category, with auth and not-found
// failures using the configured contract status.
func (a *AuthController) respondError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "Something went wrong. Try later")
	}

	status := richErr.Code
	if status == 0 {
		switch richErr.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz, goerrors.CategoryNotFound:
			status = a.AuthErrStatus
		case goerrors.CategoryConflict:
			status = fiber.StatusBadRequest
		case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryOperation:
			status = fiber.StatusUnprocessableEntity
		default:
			status = fiber.StatusInternalServerError
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"error": richErr.Message,
	})
}

// respondValidationError reports the first failing field, keeping parity
// with clients that surface a single error banner.
func (a *AuthController) respondValidationError(c *fiber.Ctx, err error) error {
	fields := FormatValidationErrorToMap(err)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	message := err.Error()
	if len(keys) > 0 {
		message = fmt.Sprintf("%s: %s", keys[0], fields[keys[0]])
	}

	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"error": message,
	})
}

// FormatValidationErrorToMap flattens ozzo validation errors into a field to
// message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	verrs, ok := err.(validation.Errors)
	if !ok {
		out["payload"] = err.Error()
		return out
	}

	for field, ferr := range verrs {
		if ferr != nil {
			out[field] = ferr.Error()
		}
	}

	return out
}
