package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/admin"
	"github.com/trezcool/feedback/core/student"
)

// Token kinds
const (
	KindStudent = "student"
	KindAdmin   = "admin"

	tokenContextKey = "authToken"
	tokenAudience   = "feedback"
)

var NowFunc = time.Now // mockable

// Claims represents the authorization claims transmitted via a JWT.
// Students are identified by hallticket and cohort; admins by ID and role.
type Claims struct {
	jwt.StandardClaims
	Kind       string `json:"kind"`
	Hallticket string `json:"hallticket,omitempty"`
	Branch     string `json:"branch,omitempty"`
	CohortYear string `json:"cohort_year,omitempty"`
	Username   string `json:"username,omitempty"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role,omitempty"`
}

func (c Claims) IsStudent() bool { return c.Kind == KindStudent }

func (c Claims) IsAdmin() bool { return c.Kind == KindAdmin }

// Principal identifies the token holder in error reports.
func (c Claims) Principal() core.Principal {
	if c.IsStudent() {
		return core.Principal{ID: c.Hallticket + "@" + c.CohortYear, Username: c.Hallticket, Email: c.Email}
	}
	return core.Principal{ID: c.Subject, Username: c.Username, Email: c.Email}
}

type authenticator struct {
	conf *core.Config
}

func newAuthenticator(conf *core.Config) *authenticator {
	return &authenticator{conf: conf}
}

func (a *authenticator) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(a.conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

func (a *authenticator) standardClaims(subject string, ttl time.Duration) jwt.StandardClaims {
	now := NowFunc()
	return jwt.StandardClaims{
		Issuer:    a.conf.AppName,
		Subject:   subject,
		Audience:  tokenAudience,
		ExpiresAt: now.Add(ttl).Unix(),
		IssuedAt:  now.Unix(),
	}
}

// StudentClaims are valid for server.studentJWTExpirationDelta (7 days by default).
func (a *authenticator) StudentClaims(std student.Student) *Claims {
	return &Claims{
		StandardClaims: a.standardClaims(std.Hallticket, a.conf.Server.StudentJWTExpirationDelta),
		Kind:           KindStudent,
		Hallticket:     std.Hallticket,
		Branch:         std.Branch,
		CohortYear:     std.CohortYear,
		Email:          std.Email,
	}
}

// AdminClaims are valid for server.adminJWTExpirationDelta (24 hours by default).
func (a *authenticator) AdminClaims(adm admin.Admin) *Claims {
	return &Claims{
		StandardClaims: a.standardClaims(adm.ID, a.conf.Server.AdminJWTExpirationDelta),
		Kind:           KindAdmin,
		Username:       adm.Username,
		Email:          adm.Email,
		Role:           adm.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func (a *authenticator) GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(a.conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// StudentToken returns a signed student token.
func StudentToken(conf *core.Config, std student.Student) (string, error) {
	a := newAuthenticator(conf)
	return a.GenerateToken(a.StudentClaims(std))
}

// AdminToken returns a signed admin token.
func AdminToken(conf *core.Config, adm admin.Admin) (string, error) {
	a := newAuthenticator(conf)
	return a.GenerateToken(a.AdminClaims(adm))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// TokenResponse is returned by the login and registration endpoints.
type TokenResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user,omitempty"`
}
