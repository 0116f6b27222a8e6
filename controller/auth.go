package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ts-31/agent-hub/logic"
	"github.com/ts-31/agent-hub/pkg"
)

// AuthController handles login and logout
type AuthController struct {
	sessions   *pkg.SessionManager
	userLogic  *logic.UserLogic
	cookieName string
}

func NewAuthController(sessions *pkg.SessionManager, userLogic *logic.UserLogic, cookieName string) *AuthController {
	return &AuthController{
		sessions:   sessions,
		userLogic:  userLogic,
		cookieName: cookieName,
	}
}

// Login handles POST /api/auth/login. The provider-issued ID token arrives in
// the Authorization header or the request body; on success the user record is
// upserted and the session cookie is set.
func (a *AuthController) Login(ctx *gin.Context) {
	idToken := ""
	if auth := ctx.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		idToken = strings.TrimPrefix(auth, "Bearer ")
	} else {
		var body struct {
			IDToken string `json:"idToken"`
		}
		if err := ctx.ShouldBindJSON(&body); err == nil {
			idToken = body.IDToken
		}
	}

	if idToken == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Missing idToken"})
		return
	}

	identity, err := a.sessions.VerifyIDToken(idToken)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Invalid or expired token"})
		return
	}

	user, err := a.userLogic.EnsureUser(identity)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Failed to register user"})
		return
	}

	sessionToken, err := a.sessions.IssueSessionToken(identity)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Failed to create session"})
		return
	}

	maxAge := int(a.sessions.TTL().Seconds())
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(a.cookieName, sessionToken, maxAge, "/", "", false, true)

	ctx.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"uid":    identity.SubjectID,
		"email":  user.Email,
		"name":   user.Name,
		"userId": user.ID,
	})
}

// Logout handles POST /api/auth/logout by clearing the session cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(a.cookieName, "", -1, "/", "", false, true)
	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}
