package httpapi

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// authRealm is advertised in WWW-Authenticate challenges.
const authRealm = "email-json"

// Authenticator verifies HTTP basic credentials against a configured pair.
type Authenticator struct {
	username string
	password string
}

// NewAuthenticator creates an Authenticator with the given credentials.
// If either username or password is empty, authentication is disabled.
func NewAuthenticator(username, password string) *Authenticator {
	return &Authenticator{
		username: username,
		password: password,
	}
}

// Enabled returns true if authentication credentials are configured.
func (a *Authenticator) Enabled() bool {
	return a.username != "" && a.password != ""
}

// Verify reports whether user and pass match the configured credentials.
// Both fields are always compared so timing does not reveal which one failed.
func (a *Authenticator) Verify(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.username))
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(a.password))
	return userOK&passOK == 1
}

// Middleware rejects requests without valid basic credentials. It passes
// every request through when authentication is disabled.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok || !a.Verify(user, pass) {
			c.Header("WWW-Authenticate", `Basic realm="`+authRealm+`", charset="UTF-8"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(http.StatusUnauthorized, "Unauthorized"))
			return
		}
		c.Next()
	}
}
