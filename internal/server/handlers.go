package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/p-n-ai/course-player/internal/assessment"
	"github.com/p-n-ai/course-player/internal/course"
	"github.com/p-n-ai/course-player/internal/player"
	"github.com/p-n-ai/course-player/internal/registration"
)

// CourseSummary is the catalog listing of a course.
type CourseSummary struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	PassingScore int      `json:"passingScore"`
	Modules      []string `json:"modules"`
	SlideCount   int      `json:"slideCount"`
	QuizCount    int      `json:"quizCount"`
}

func summarize(c *course.Course) CourseSummary {
	sum := CourseSummary{
		ID:           c.ID,
		Title:        c.Title,
		PassingScore: c.PassingScore,
		Modules:      make([]string, 0, len(c.Modules)),
		QuizCount:    len(c.QuizSlides()),
	}
	for _, m := range c.Modules {
		sum.Modules = append(sum.Modules, m.Title)
		sum.SlideCount += len(m.Slides)
	}
	return sum
}

type launchRequest struct {
	LearnerID string `json:"learnerId"`
	CourseID  string `json:"courseId"`
}

type launchResponse struct {
	RegistrationID string      `json:"registrationId"`
	Token          string      `json:"token"`
	Created        bool        `json:"created"`
	View           player.View `json:"view"`
}

type moveResponse struct {
	View  player.View `json:"view"`
	Moved bool        `json:"moved"`
}

type answerResponse struct {
	View   player.View       `json:"view"`
	Result assessment.Result `json:"result"`
}

type choiceResponse struct {
	View   player.View             `json:"view"`
	Result assessment.ChoiceResult `json:"result"`
}

type certificateResponse struct {
	Certificate *player.Certificate `json:"certificate"`
	Lines       []string            `json:"lines"`
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	courses := s.cfg.Courses.AllCourses()
	out := make([]CourseSummary, 0, len(courses))
	for _, c := range courses {
		out = append(out, summarize(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCourse(w http.ResponseWriter, r *http.Request) {
	c, ok := s.cfg.Courses.GetCourse(chi.URLParam(r, "courseID"))
	if !ok {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}
	writeJSON(w, http.StatusOK, summarize(c))
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	var req launchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.LearnerID == "" || req.CourseID == "" {
		writeError(w, http.StatusBadRequest, "learnerId and courseId are required")
		return
	}
	if _, ok := s.cfg.Courses.GetCourse(req.CourseID); !ok {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}

	reg, created, err := registration.Launch(s.cfg.Registrations, req.LearnerID, req.CourseID)
	if err != nil {
		s.log.Error("launch failed", "course_id", req.CourseID, "error", err)
		writeError(w, http.StatusInternalServerError, "launch failed")
		return
	}
	if err := s.cfg.Sessions.Open(r.Context(), reg); err != nil {
		s.log.Error("open session failed", "registration_id", reg.ID, "error", err)
		writeError(w, http.StatusBadGateway, "could not start course session")
		return
	}
	token, err := s.cfg.Tokens.Issue(reg)
	if err != nil {
		s.log.Error("issue token failed", "registration_id", reg.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "launch failed")
		return
	}

	resp := launchResponse{RegistrationID: reg.ID, Token: token, Created: created}
	err = s.cfg.Sessions.Do(r.Context(), reg.ID, func(p *player.Player) error {
		resp.View = p.View()
		return nil
	})
	if err != nil {
		s.sessionError(w, reg.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	s.withPlayer(w, r, func(p *player.Player) any {
		return p.View()
	})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.withPlayer(w, r, func(p *player.Player) any {
		v, ok := p.OnAdvance()
		return moveResponse{View: v, Moved: ok}
	})
}

func (s *Server) handleRetreat(w http.ResponseWriter, r *http.Request) {
	s.withPlayer(w, r, func(p *player.Player) any {
		v, ok := p.OnRetreat()
		return moveResponse{View: v, Moved: ok}
	})
}

func (s *Server) handleJump(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Module *int `json:"module"`
	}
	if !decodeBody(w, r, &req) || !requireField(w, req.Module, "module") {
		return
	}
	s.withPlayer(w, r, func(p *player.Player) any {
		v, ok := p.OnJumpToModule(*req.Module)
		return moveResponse{View: v, Moved: ok}
	})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Option *int `json:"option"`
	}
	if !decodeBody(w, r, &req) || !requireField(w, req.Option, "option") {
		return
	}
	s.withPlayer(w, r, func(p *player.Player) any {
		v, res := p.OnAnswerSubmitted(*req.Option)
		return answerResponse{View: v, Result: res}
	})
}

func (s *Server) handleSimulation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Choice *int `json:"choice"`
	}
	if !decodeBody(w, r, &req) || !requireField(w, req.Choice, "choice") {
		return
	}
	s.withPlayer(w, r, func(p *player.Player) any {
		v, res := p.OnSimulationChoiceSelected(*req.Choice)
		return choiceResponse{View: v, Result: res}
	})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	var opts player.RestartOptions
	if r.ContentLength != 0 && !decodeBody(w, r, &opts) {
		return
	}
	s.withPlayer(w, r, func(p *player.Player) any {
		return p.OnRestart(opts)
	})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	rid, _ := RegistrationIDFromContext(r.Context())
	if err := s.cfg.Sessions.Close(r.Context(), rid); err != nil {
		s.log.Error("close session failed", "registration_id", rid, "error", err)
		writeError(w, http.StatusInternalServerError, "close failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"closed": true})
}

func (s *Server) handleCertificate(w http.ResponseWriter, r *http.Request) {
	tags, _, _ := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	tag := language.English
	if len(tags) > 0 {
		tag = tags[0]
	}

	rid, _ := RegistrationIDFromContext(r.Context())
	var (
		cert   *player.Certificate
		issued bool
	)
	err := s.cfg.Sessions.Do(r.Context(), rid, func(p *player.Player) error {
		cert, issued = p.Certificate()
		return nil
	})
	if err != nil {
		s.sessionError(w, rid, err)
		return
	}
	if !issued {
		writeError(w, http.StatusNotFound, "course not passed")
		return
	}
	writeJSON(w, http.StatusOK, certificateResponse{Certificate: cert, Lines: cert.Lines(tag)})
}

// withPlayer runs fn on the caller's session and writes its result.
func (s *Server) withPlayer(w http.ResponseWriter, r *http.Request, fn func(*player.Player) any) {
	rid, _ := RegistrationIDFromContext(r.Context())
	var out any
	err := s.cfg.Sessions.Do(r.Context(), rid, func(p *player.Player) error {
		out = fn(p)
		return nil
	})
	if err != nil {
		s.sessionError(w, rid, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) sessionError(w http.ResponseWriter, rid string, err error) {
	switch {
	case errors.Is(err, registration.ErrNotFound):
		writeError(w, http.StatusNotFound, "registration not found")
	case errors.Is(err, ErrRegistrationEnded):
		writeError(w, http.StatusGone, "registration has ended")
	case errors.Is(err, course.ErrCourseNotFound):
		writeError(w, http.StatusNotFound, "course not found")
	default:
		s.log.Error("session request failed", "registration_id", rid, "error", err)
		writeError(w, http.StatusInternalServerError, "session unavailable")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func requireField(w http.ResponseWriter, v *int, name string) bool {
	if v == nil {
		writeError(w, http.StatusBadRequest, name+" is required")
		return false
	}
	return true
}
