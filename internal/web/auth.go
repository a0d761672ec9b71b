package web

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/scibee/farmwiz/internal/farmapi"
	"github.com/scibee/farmwiz/internal/session"
)

// CookieName names the browser session cookie.
const CookieName = "farmwiz_sid"

type sidKey struct{}

// withSession makes sure every request carries a browser session id.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if c, err := r.Cookie(CookieName); err == nil {
			if _, perr := uuid.Parse(c.Value); perr == nil {
				sid = c.Value
			}
		}
		if sid == "" {
			sid = uuid.NewString()
			http.SetCookie(w, s.cookie(sid, 0))
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sidKey{}, sid)))
	})
}

func (s *Server) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}

func sid(r *http.Request) string {
	v, _ := r.Context().Value(sidKey{}).(string)
	return v
}

// identity returns the signed-in user of the browser session.
func (s *Server) identity(r *http.Request) (farmapi.Identity, bool) {
	return session.Identity(r.Context(), s.store, sid(r))
}

func (s *Server) signIn(ctx context.Context, r *http.Request, email, token string) {
	session.SignIn(ctx, s.store, sid(r), farmapi.Identity{Email: email, Token: token})
}

// requireAuth sends anonymous users to the login page and puts the
// identity of signed-in users on the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.identity(r)
		if !ok {
			http.Redirect(w, r, "/login?returnTo="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(farmapi.WithIdentity(r.Context(), id)))
	})
}

type loginView struct {
	Email    string
	Error    string
	ReturnTo string
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "login", loginView{ReturnTo: safeReturn(r.URL.Query().Get("returnTo"))})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.PostFormValue("email")))
	password := r.PostFormValue("password")
	returnTo := safeReturn(r.PostFormValue("returnTo"))

	view := loginView{Email: email, ReturnTo: returnTo}
	if email == "" || password == "" {
		view.Error = "Enter your email and password."
		s.render(w, http.StatusUnprocessableEntity, "login", view)
		return
	}

	token, err := s.api.Login(r.Context(), email, password)
	if err != nil {
		s.log.Warn("Login failed for %s: %v", email, err)
		view.Error = "Invalid email or password."
		s.render(w, http.StatusUnauthorized, "login", view)
		return
	}
	s.signIn(r.Context(), r, email, token)

	if returnTo == "" {
		returnTo = "/dashboard"
	}
	http.Redirect(w, r, returnTo, http.StatusSeeOther)
}

// handleLogout forgets the login and every wizard record of the browser
// session, then rotates the session cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session.SignOut(r.Context(), s.store, sid(r), s.flows.Keys())
	http.SetCookie(w, s.cookie("", -1))
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// safeReturn accepts only same-site absolute paths.
func safeReturn(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return ""
	}
	return p
}
