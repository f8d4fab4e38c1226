package http

import (
	"net/http"

	"finanze/internal/core"
	"finanze/internal/log"
)

type profileView struct {
	User  core.User
	Error string
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := identity(r)
	user, err := s.svc.Users.Get(r.Context(), id.UserID)
	if err != nil {
		s.logFailure(r, log.ComponentAuth, log.OpRead, err)
		ErrorResponse(statusFor(err), userMessage(err)).Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "profile.html", "Profile", "profile", profileView{User: user})
}

func (s *Server) handleProfileAction(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	id, _ := identity(r)
	ctx := r.Context()
	action := formValue(r, "action")

	var (
		msg string
		err error
	)
	switch action {
	case "update_profile":
		err = s.svc.Users.UpdateProfile(ctx, id.UserID,
			formValue(r, "email"), formValue(r, "first_name"), formValue(r, "last_name"))
		msg = "Profile updated successfully."
	case "change_password":
		err = s.svc.Users.ChangePassword(ctx, id.UserID,
			r.PostFormValue("current_password"),
			r.PostFormValue("new_password"),
			r.PostFormValue("confirm_password"),
			id.TokenHash)
		msg = "Password changed successfully. Other sessions have been signed out."
	default:
		err = core.NewValidationError("action", "unknown action")
	}

	if err != nil {
		s.logFailure(r, log.ComponentAuth, action, err)
		s.fail(w, r, "/profile", err)
		return
	}
	s.countMutation()
	s.events.LogMutation(ctx, log.ComponentAuth, log.OpUpdate, id.UserID, "user", id.UserID)
	s.done(w, r, "/profile", msg)
}
