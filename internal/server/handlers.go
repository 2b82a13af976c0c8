package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/answer-grader/internal/audio"
	"github.com/spigell/answer-grader/internal/evaluation"
	"github.com/spigell/answer-grader/internal/questions"
	"github.com/spigell/answer-grader/internal/session"
)

const healthMessage = "answer-grader API is running"

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": healthMessage})
}

// bindJSON decodes a size-limited JSON body into dst and writes the error
// response itself when it fails.
func (s *Server) bindJSON(c *gin.Context, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)

	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body is too large"})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) evaluate(c *gin.Context) {
	var req evaluation.Request
	if !s.bindJSON(c, &req) {
		return
	}

	result, err := s.evaluator.Evaluate(c.Request.Context(), req)
	if err != nil {
		s.logger.Error("evaluation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) transcribe(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Audio file is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing audio file: " + err.Error()})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable audio file: " + err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable audio file: " + err.Error()})
		return
	}

	result, err := s.transcriber.Transcribe(c.Request.Context(), data, c.PostForm("reference"))
	if errors.Is(err, audio.ErrTooLong) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Audio is too long", "details": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Transcription failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) generateQuestions(c *gin.Context) {
	if s.questions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Question generation is not configured"})
		return
	}

	var req questions.Request
	if !s.bindJSON(c, &req) {
		return
	}

	result, err := s.questions.Generate(c.Request.Context(), req)
	switch {
	case errors.Is(err, questions.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, questions.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Question generation is not configured"})
	case err != nil:
		s.logger.Warn("question generation failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Question generation failed", "details": err.Error()})
	default:
		c.JSON(http.StatusOK, result)
	}
}

func (s *Server) sessionFeedback(c *gin.Context) {
	if s.sessions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session feedback is not configured"})
		return
	}

	var req session.Request
	if !s.bindJSON(c, &req) {
		return
	}

	summary, err := s.sessions.Summarize(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}
