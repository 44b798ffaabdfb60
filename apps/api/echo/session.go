package echoapi

import (
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/user"
)

const (
	sessionName = "escola"

	sessionUserID   = "uid"
	sessionUserName = "name"
	sessionRole     = "role"
)

// flash levels
const (
	flashSuccess = "success"
	flashInfo    = "info"
	flashWarning = "warning"
	flashDanger  = "danger"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func init() {
	gob.Register(Flash{})
}

// NewSessionStore returns the cookie store holding sessions, signed with the secret key.
func NewSessionStore(conf *core.Config) sessions.Store {
	store := sessions.NewCookieStore([]byte(conf.SecretKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(conf.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   !(conf.Debug || conf.TestMode),
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func getSession(ctx echo.Context) (*sessions.Session, error) {
	sess, err := session.Get(sessionName, ctx)
	if sess == nil {
		return nil, errors.Wrap(err, "getting session")
	}
	// an undecodable cookie yields a fresh session
	return sess, nil
}

func saveSession(ctx echo.Context, sess *sessions.Session) error {
	return errors.Wrap(sess.Save(ctx.Request(), ctx.Response()), "saving session")
}

// contextIdentity returns the identity stored in the session; zero when anonymous.
func contextIdentity(ctx echo.Context) user.Identity {
	sess, err := getSession(ctx)
	if err != nil {
		return user.Identity{}
	}
	id, _ := sess.Values[sessionUserID].(int64)
	name, _ := sess.Values[sessionUserName].(string)
	role, _ := sess.Values[sessionRole].(string)
	if id == 0 || !user.Role(role).Valid() {
		return user.Identity{}
	}
	return user.Identity{ID: id, Name: name, Role: user.Role(role)}
}

func login(ctx echo.Context, id user.Identity) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	sess.Values[sessionUserID] = id.ID
	sess.Values[sessionUserName] = id.Name
	sess.Values[sessionRole] = string(id.Role)
	return saveSession(ctx, sess)
}

func logout(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	delete(sess.Values, sessionUserID)
	delete(sess.Values, sessionUserName)
	delete(sess.Values, sessionRole)
	return saveSession(ctx, sess)
}

func addFlash(ctx echo.Context, level, msg string) error {
	sess, err := getSession(ctx)
	if err != nil {
		return err
	}
	sess.AddFlash(Flash{Level: level, Message: msg})
	return saveSession(ctx, sess)
}

func popFlashes(ctx echo.Context) ([]Flash, error) {
	sess, err := getSession(ctx)
	if err != nil {
		return nil, err
	}
	raw := sess.Flashes()
	if len(raw) == 0 {
		return []Flash{}, nil
	}
	flashes := make([]Flash, 0, len(raw))
	for _, f := range raw {
		if flash, ok := f.(Flash); ok {
			flashes = append(flashes, flash)
		}
	}
	return flashes, saveSession(ctx, sess)
}
