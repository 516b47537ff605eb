package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

var defaultTokenLookup = "header:" + fiber.HeaderAuthorization

// ErrJWTMissingOrMalformed is the legacy sentinel kept for callers that
// string-match instead of unwrapping structured errors.
var ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")

// Locals keys under which the gates stash what they resolve.
const (
	ContextKeySession = "session"
	ContextKeyAccount = "account"
)

// GateConfig wires the route guards.
type GateConfig struct {
	// Tokens verifies bearer session tokens. Required.
	Tokens TokenService
	// Repo resolves accounts for RequireAccount and RequireAdmin.
	Repo   RepositoryManager
	Logger Logger
	// TokenLookup is a comma separated list of sources to probe, in order:
	// "header:Authorization,query:token,param:token,cookie:jwt".
	TokenLookup string
	AuthScheme  string
	// ErrorHandler renders gate failures. The default responds JSON with
	// the structured error's code, or 401 when it has none.
	ErrorHandler func(c *fiber.Ctx, err error) error
}

func gateDefaults(cfg GateConfig) GateConfig {
	if cfg.Tokens == nil {
		panic("AUTH: gate configuration: TokenService is required.")
	}

	if cfg.Logger == nil {
		cfg.Logger = defLogger{}
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultGateErrorHandler
	}

	return cfg
}

// RequireSignIn validates the bearer session token and stores the verified
// claims on the request. It never touches the database; the token alone is
// the proof.
func RequireSignIn(config ...GateConfig) fiber.Handler {
	cfg := GateConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	cfg = gateDefaults(cfg)
	extractors := GetExtractors(cfg.TokenLookup, cfg.AuthScheme)

	return func(c *fiber.Ctx) error {
		raw, err := ExtractRawToken(c, extractors)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.Tokens.VerifySessionToken(raw)
		if err != nil {
			cfg.Logger.Debug("session token rejected: %v", err)
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(ContextKeySession, claims)
		c.SetUserContext(WithClaimsContext(c.UserContext(), claims))

		return c.Next()
	}
}

// RequireAccount resolves the signed-in account from the session claims and
// stores it on the request. Mount it after RequireSignIn; a valid token for
// a deleted account does not pass.
func RequireAccount(config ...GateConfig) fiber.Handler {
	cfg := GateConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	cfg = gateDefaults(cfg)

	return func(c *fiber.Ctx) error {
		account, err := resolveAccount(c, cfg)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(ContextKeyAccount, account)
		c.SetUserContext(WithContext(c.UserContext(), account))

		return c.Next()
	}
}

// RequireAdmin resolves the account like RequireAccount and additionally
// rejects every role below admin.
func RequireAdmin(config ...GateConfig) fiber.Handler {
	cfg := GateConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	cfg = gateDefaults(cfg)

	return func(c *fiber.Ctx) error {
		account, err := resolveAccount(c, cfg)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if !account.Role.IsAdmin() {
			cfg.Logger.Debug("admin gate rejected account %s with role %s", account.ID.String(), account.Role)
			return cfg.ErrorHandler(c, goerrors.New("Admin resource. Access denied", goerrors.CategoryAuthz).
				WithTextCode(TextCodeAdminOnly).
				WithCode(goerrors.CodeForbidden))
		}

		c.Locals(ContextKeyAccount, account)
		c.SetUserContext(WithContext(c.UserContext(), account))

		return c.Next()
	}
}

func resolveAccount(c *fiber.Ctx, cfg GateConfig) (*Account, error) {
	if account, ok := AccountFromFiber(c); ok {
		return account, nil
	}

	claims, ok := SessionFromFiber(c)
	if !ok {
		return nil, ErrUnableToFindSession
	}

	if cfg.Repo == nil {
		return nil, goerrors.New("gate configuration is missing a RepositoryManager", goerrors.CategoryInternal)
	}

	account, err := cfg.Repo.Accounts().GetByID(c.UserContext(), claims.UserID())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, goerrors.New("User not found", goerrors.CategoryAuth).
				WithTextCode(TextCodeUserNotFound).
				WithCode(goerrors.CodeUnauthorized)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve account")
	}

	return account, nil
}

// AccountFromFiber returns the account a gate stored on the request.
func AccountFromFiber(c *fiber.Ctx) (*Account, bool) {
	account, ok := c.Locals(ContextKeyAccount).(*Account)
	if !ok || account == nil {
		return nil, false
	}
	return account, true
}

// SessionFromFiber returns the session claims RequireSignIn stored on the
// request.
func SessionFromFiber(c *fiber.Ctx) (*SessionClaims, bool) {
	claims, ok := c.Locals(ContextKeySession).(*SessionClaims)
	if !ok || claims == nil {
		return nil, false
	}
	return claims, true
}

func defaultGateErrorHandler(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		status := richErr.Code
		if status == 0 {
			status = fiber.StatusUnauthorized
		}
		return c.Status(status).JSON(fiber.Map{
			"error": richErr.Message,
		})
	}

	if err.Error() == ErrJWTMissingOrMalformed.Error() {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": ErrJWTMissingOrMalformed.Error(),
		})
	}

	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Invalid or expired token",
	})
}

// TokenExtractor pulls a raw bearer token from one request source.
type TokenExtractor func(c *fiber.Ctx) (string, error)

// ExtractRawToken probes the extractors in order and returns the first
// token found.
func ExtractRawToken(c *fiber.Ctx, extractors []TokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(c)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

// GetExtractors parses a token lookup definition such as
// "header:Authorization,cookie:jwt,query:auth_token,param:token".
func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, jwtFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		l := len(authScheme)
		if l == 0 {
			return "", ErrJWTMissingOrMalformed
		}
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromParam returns a function that extracts token from the url param string.
func jwtFromParam(param string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Params(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
