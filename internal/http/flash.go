package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookie = "finanze_flash"

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Type    NotificationType `json:"t"`
	Message string           `json:"m"`
}

func (s *Server) setFlash(w http.ResponseWriter, f Flash) {
	raw, err := json.Marshal(f)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the pending flash, if any.
func (s *Server) popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var f Flash
	if err := json.Unmarshal(raw, &f); err != nil || f.Message == "" {
		return nil
	}
	return &f
}

// done answers a successful POST with a flash for the next page. HTMX
// requests get HX-Redirect plus the given triggers instead of a 303.
func (s *Server) done(w http.ResponseWriter, r *http.Request, target, message string, triggers ...string) {
	s.setFlash(w, Flash{Type: NotificationSuccess, Message: message})
	if isHTMX(r) {
		b := NewHTMXResponse()
		for _, t := range triggers {
			b.Trigger(t, struct{}{})
		}
		b.Redirect(target).Write(w)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// fail answers a failed POST the same way with the user-facing error text.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, target string, err error) {
	msg := userMessage(err)
	if isHTMX(r) {
		ErrorResponse(statusFor(err), msg).TriggerErrorNotification(msg).Write(w)
		return
	}
	s.setFlash(w, Flash{Type: NotificationError, Message: msg})
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
