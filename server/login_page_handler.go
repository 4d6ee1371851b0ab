package server

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jrsteele09/course-sso/idp"
	"github.com/jrsteele09/course-sso/loginflow"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const paramReturnURL = "returnurl"

type providerButton struct {
	ID         string
	Label      string
	Configured bool
}

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName   string
	ReturnURL string
	Email     string // Preserve email on error
	Name      string
	Message   string
	IsError   bool
	LoggedIn  bool
	Providers []providerButton
}

// OtpPageData contains data for rendering the OTP entry page
type OtpPageData struct {
	AppName     string
	ReturnURL   string
	Email       string
	MaskedEmail string
	Name        string
	CourseIDs   []string
	Message     string
	IsError     bool
	Digits      [loginflow.OTPLength]string
}

// LoginPageUIHandler displays the login page (GET /login)
func (s *Server) LoginPageUIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := loginflow.NewLoginState(newCookieStorage(w, r))
		q := r.URL.Query()

		data := s.loginPageData(q.Get(paramReturnURL))
		data.Email = q.Get("email")
		data.LoggedIn = state.LoggedIn()
		if msg := q.Get("error"); msg != "" {
			data.Message, data.IsError = msg, true
		}
		s.renderPage(w, r, http.StatusOK, s.loginTmpl, data)
	}
}

// OtpSendSubmissionHandler requests a code and shows the OTP page
// (POST /login/otp/send)
func (s *Server) OtpSendSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		m, _ := s.newModal(w, r)

		email, name := r.FormValue("email"), r.FormValue("name")
		if err := m.SubmitEmail(r.Context(), email, name); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("otp send rejected")
		}

		if m.Stage() != loginflow.StageOtpSent {
			data := s.loginPageData(m.ReturnPath())
			data.Email, data.Name = email, name
			data.Message, data.IsError = m.Message(), m.Failed()
			s.renderPage(w, r, http.StatusOK, s.loginTmpl, data)
			return
		}
		s.renderOtpPage(w, r, m, name)
	}
}

// OtpVerifySubmissionHandler checks the code and hands the token to the host
// application (POST /login/otp/verify)
func (s *Server) OtpVerifySubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, nav, ok := s.resumeModal(w, r)
		if !ok {
			return
		}

		if digits, ok := formDigits(r); ok {
			for i, digit := range digits {
				m.Enter(i, digit)
			}
		}
		if err := m.Verify(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("otp verify rejected")
		}
		if nav.navigated() {
			return
		}
		s.renderOtpPage(w, r, m, r.FormValue("name"))
	}
}

// OtpResendSubmissionHandler sends a fresh code (POST /login/otp/resend)
func (s *Server) OtpResendSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, _, ok := s.resumeModal(w, r)
		if !ok {
			return
		}
		if err := m.Resend(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("otp resend rejected")
		}
		s.renderOtpPage(w, r, m, r.FormValue("name"))
	}
}

// OtpCancelHandler abandons the OTP step (POST /login/otp/cancel)
func (s *Server) OtpCancelHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, _, ok := s.resumeModal(w, r)
		if !ok {
			return
		}
		_ = m.Cancel()
		redirectWithError(w, r, RouteLogin, returnURLParams(m.ReturnPath()), "")
	}
}

// LogoutHandler forgets the session token. The host application session is
// left alone.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loginflow.NewLoginState(newCookieStorage(w, r)).Logout()
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
	}
}

func (s *Server) newModal(w http.ResponseWriter, r *http.Request) (*loginflow.Modal, *httpNavigator) {
	nav := &httpNavigator{w: w, r: r}
	var opts []loginflow.ModalOption
	if ids := r.Form["course_ids"]; len(ids) > 0 {
		opts = append(opts, loginflow.WithCourseIDs(ids...))
	}
	m := loginflow.NewModal(s.otpClient, newCookieStorage(w, r), nav,
		s.config.GetHostAppURL(), r.FormValue(paramReturnURL), opts...)
	return m, nav
}

// resumeModal rebuilds the widget for a page that was rendered in the
// OtpSent step. Without an email there is nothing to resume and the browser
// goes back to the login page.
func (s *Server) resumeModal(w http.ResponseWriter, r *http.Request) (*loginflow.Modal, *httpNavigator, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return nil, nil, false
	}
	m, nav := s.newModal(w, r)
	if strings.TrimSpace(r.FormValue("email")) == "" {
		redirectWithError(w, r, RouteLogin, returnURLParams(m.ReturnPath()), loginflow.MsgEnterEmail)
		return nil, nil, false
	}
	_ = m.Resume(r.FormValue("email"), r.FormValue("name"))
	return m, nav, true
}

// formDigits accepts either six d0..d5 boxes or a single otp field. An otp
// field of the wrong length is rejected outright rather than truncated.
func formDigits(r *http.Request) ([]string, bool) {
	if otp := strings.TrimSpace(r.FormValue("otp")); otp != "" {
		if utf8.RuneCountInString(otp) != loginflow.OTPLength {
			return nil, false
		}
		digits := make([]string, 0, loginflow.OTPLength)
		for _, ch := range otp {
			digits = append(digits, string(ch))
		}
		return digits, true
	}
	digits := make([]string, loginflow.OTPLength)
	for i := range digits {
		digits[i] = strings.TrimSpace(r.FormValue("d" + strconv.Itoa(i)))
	}
	return digits, true
}

func (s *Server) loginPageData(returnURL string) LoginPageData {
	if returnURL == "" {
		returnURL = loginflow.DefaultReturnPath
	}
	data := LoginPageData{AppName: s.config.GetAppName(), ReturnURL: returnURL}
	for _, p := range []string{idp.Google, idp.GitHub} {
		data.Providers = append(data.Providers, providerButton{
			ID:         p,
			Label:      loginflow.ProviderDisplayName(p),
			Configured: s.config.GetOAuthClient(p).ClientID != "",
		})
	}
	return data
}

func (s *Server) renderOtpPage(w http.ResponseWriter, r *http.Request, m *loginflow.Modal, name string) {
	data := OtpPageData{
		AppName:     s.config.GetAppName(),
		ReturnURL:   m.ReturnPath(),
		Email:       m.Email(),
		MaskedEmail: loginflow.MaskEmail(m.Email()),
		Name:        name,
		CourseIDs:   r.Form["course_ids"],
		Message:     m.Message(),
		IsError:     m.Failed(),
		Digits:      m.Otp().Digits(),
	}
	s.renderPage(w, r, http.StatusOK, s.otpTmpl, data)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		log.Err(err).Str("path", r.URL.Path).Msg("Failed to render template")
	}
}
