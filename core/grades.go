package core

import (
	"net/http"

	"github.com/aiwolfdial/studybuddy/model"
	"github.com/aiwolfdial/studybuddy/service"
	"github.com/aiwolfdial/studybuddy/util"
	"github.com/gin-gonic/gin"
)

func (s *Server) gradeReport(c *gin.Context) model.GradeReport {
	grades, warning := service.LoadGrades(c.Request.Context(), s.grades)
	return util.BuildGradeReport(grades, warning)
}

func (s *Server) handleGetGrades(c *gin.Context) {
	c.JSON(http.StatusOK, s.gradeReport(c))
}

func (s *Server) handleGradeSummary(c *gin.Context) {
	text, err := s.assistant.GradeSummary(c.Request.Context(), s.gradeReport(c))
	respondAssistant(c, text, err)
}
