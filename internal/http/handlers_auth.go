package http

import (
	"log/slog"
	"net/http"

	"khidma/internal/auth"
)

type loginView struct {
	page
	From  string
	Error string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.deps.Gate.Authenticated(r) {
		http.Redirect(w, r, auth.SafeRedirect(r.URL.Query().Get("from")), http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login_page", loginView{
		page: page{Title: "تسجيل الدخول"},
		From: r.URL.Query().Get("from"),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	from := r.PostForm.Get("from")
	if err := s.deps.Gate.Check(r.PostForm.Get("password")); err != nil {
		slog.WarnContext(r.Context(), "Failed login", "client_ip", s.detector.ExtractClientIP(r))
		s.render(w, r, http.StatusUnauthorized, "login_page", loginView{
			page:  page{Title: "تسجيل الدخول"},
			From:  from,
			Error: "كلمة المرور غير صحيحة",
		})
		return
	}
	s.deps.Gate.SetCookie(w)
	http.Redirect(w, r, auth.SafeRedirect(from), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Gate.ClearCookie(w)
	if r.Header.Get("HX-Request") == "true" {
		NewHTMXResponse().Redirect(auth.LoginPath).Write(w)
		return
	}
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}
