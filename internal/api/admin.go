package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domerrors "github.com/garyellow/quizbot-go/internal/errors"
	"github.com/garyellow/quizbot-go/internal/storage"
)

type questionRequest struct {
	Category     string   `json:"category"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
	Difficulty   int      `json:"difficulty"`
	Active       *bool    `json:"active"`
}

func (r questionRequest) toQuestion() *storage.Question {
	return &storage.Question{
		Category:     r.Category,
		Text:         r.Text,
		Options:      r.Options,
		CorrectIndex: r.CorrectIndex,
		Explanation:  r.Explanation,
		Difficulty:   r.Difficulty,
		Active:       r.Active == nil || *r.Active,
	}
}

func (s *Server) listQuestions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	questions, err := s.store.ListQuestions(c.Request.Context(), limit, max(0, offset))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if questions == nil {
		questions = []storage.Question{}
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

func (s *Server) getQuestion(c *gin.Context) {
	id, ok := pathInt(c, "id")
	if !ok {
		return
	}
	q, err := s.store.GetQuestion(c.Request.Context(), int64(id))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (s *Server) createQuestion(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, domerrors.NewValidationError("body", err.Error()))
		return
	}
	q := req.toQuestion()
	if err := s.store.CreateQuestion(c.Request.Context(), q); err != nil {
		s.writeError(c, err)
		return
	}
	q.Active = true
	c.JSON(http.StatusCreated, q)
}

func (s *Server) updateQuestion(c *gin.Context) {
	id, ok := pathInt(c, "id")
	if !ok {
		return
	}
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, domerrors.NewValidationError("body", err.Error()))
		return
	}
	q := req.toQuestion()
	q.ID = int64(id)
	if err := s.store.UpdateQuestion(c.Request.Context(), q); err != nil {
		s.writeError(c, err)
		return
	}
	updated, err := s.store.GetQuestion(c.Request.Context(), q.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// deleteQuestion deactivates the question; published days keep referencing it.
func (s *Server) deleteQuestion(c *gin.Context) {
	id, ok := pathInt(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeactivateQuestion(c.Request.Context(), int64(id)); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listWeekly(c *gin.Context) {
	week, ok := pathInt(c, "week")
	if !ok {
		return
	}
	quizzes, err := s.store.ListWeeklyQuizzes(c.Request.Context(), week)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if quizzes == nil {
		quizzes = []storage.WeeklyQuiz{}
	}
	c.JSON(http.StatusOK, gin.H{"week_number": week, "quizzes": quizzes})
}

// saveWeekly creates or replaces one slot of a week.
func (s *Server) saveWeekly(c *gin.Context) {
	var w storage.WeeklyQuiz
	if err := c.ShouldBindJSON(&w); err != nil {
		s.writeError(c, domerrors.NewValidationError("body", err.Error()))
		return
	}
	w.ID = 0
	if err := s.store.SaveWeeklyQuiz(c.Request.Context(), &w); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (s *Server) deleteWeekly(c *gin.Context) {
	week, ok := pathInt(c, "week")
	if !ok {
		return
	}
	slot, ok := pathInt(c, "slot")
	if !ok {
		return
	}
	if err := s.store.DeleteWeeklyQuiz(c.Request.Context(), week, slot); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// publish runs the daily publish job now. Publishing is idempotent per day.
func (s *Server) publish(c *gin.Context) {
	result, err := s.publisher.Publish(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func pathInt(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}
