package http

import (
	"net/http"
	"sync/atomic"

	"finanze/internal/log"
	"finanze/internal/services"
)

type loginView struct {
	Login    string
	Remember bool
	Error    string
}

type registerView struct {
	Form  services.Registration
	Error string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", "Login", "login", loginView{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	view := loginView{
		Login:    formValue(r, "login"),
		Remember: r.PostFormValue("remember") != "",
	}
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentAuth)

	user, err := s.svc.Users.Authenticate(ctx, view.Login, r.PostFormValue("password"))
	if err != nil {
		atomic.AddInt64(&s.metrics.failedLogins, 1)
		logger.WarnContext(ctx, "Login rejected",
			log.FieldOperation, log.OpLogin,
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldErrorType, log.ErrorTypeAuth)
		s.logFailure(r, log.ComponentAuth, log.OpLogin, err)
		view.Error = userMessage(err)
		s.render(w, r, statusFor(err), "login.html", "Login", "login", view)
		return
	}

	if err := s.sessions.Start(ctx, w, user.ID, view.Remember); err != nil {
		s.logFailure(r, log.ComponentAuth, log.OpLogin, err)
		view.Error = msgInternal
		s.render(w, r, http.StatusInternalServerError, "login.html", "Login", "login", view)
		return
	}
	atomic.AddInt64(&s.metrics.logins, 1)
	logger.InfoContext(ctx, "User logged in", log.FieldUserID, user.ID, log.FieldOperation, log.OpLogin)
	s.done(w, r, "/dashboard", "Welcome back, "+user.FullName()+"!")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.sessions.End(ctx, w, r); err != nil {
		s.logFailure(r, log.ComponentAuth, log.OpLogout, err)
	}
	if id, ok := identity(r); ok {
		log.FromContext(ctx).WithComponent(log.ComponentAuth).InfoContext(ctx, "User logged out",
			log.FieldUserID, id.UserID, log.FieldOperation, log.OpLogout)
	}
	s.done(w, r, loginPath, "You have been logged out.")
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "register.html", "Register", "register", registerView{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	reg := services.Registration{
		Username:      formValue(r, "username"),
		Email:         formValue(r, "email"),
		Password:      r.PostFormValue("password"),
		Confirm:       r.PostFormValue("confirm_password"),
		FirstName:     formValue(r, "first_name"),
		LastName:      formValue(r, "last_name"),
		TermsAccepted: r.PostFormValue("terms") != "",
	}
	if _, err := s.svc.Users.Register(r.Context(), reg); err != nil {
		s.logFailure(r, log.ComponentAuth, log.OpRegister, err)
		reg.Password, reg.Confirm = "", ""
		s.render(w, r, statusFor(err), "register.html", "Register", "register", registerView{Form: reg, Error: userMessage(err)})
		return
	}
	s.done(w, r, loginPath, "Registration successful! Please log in.")
}
