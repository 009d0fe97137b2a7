package core

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aiwolfdial/studybuddy/model"
	"github.com/aiwolfdial/studybuddy/service"
	"github.com/gin-gonic/gin"
)

func scheduleErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidItem):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAssistant):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func weekParam(c *gin.Context) (int, bool) {
	week, err := strconv.Atoi(c.Param("week"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "неизвестная неделя"})
		return 0, false
	}
	return week, true
}

func (s *Server) loadWeek(c *gin.Context) ([]model.DaySchedule, bool) {
	week, ok := weekParam(c)
	if !ok {
		return nil, false
	}
	days, err := s.schedule.Week(c.Request.Context(), week)
	if err != nil {
		c.JSON(scheduleErrorStatus(err), gin.H{"error": err.Error()})
		return nil, false
	}
	return days, true
}

func (s *Server) handleGetWeek(c *gin.Context) {
	days, ok := s.loadWeek(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, days)
}

func (s *Server) handleAddItem(c *gin.Context) {
	week, ok := weekParam(c)
	if !ok {
		return
	}
	var item model.ScheduleItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := s.schedule.AddItem(c.Request.Context(), week, c.Param("day"), item)
	if err != nil {
		c.JSON(scheduleErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateItem(c *gin.Context) {
	week, ok := weekParam(c)
	if !ok {
		return
	}
	var item model.ScheduleItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := s.schedule.UpdateItem(c.Request.Context(), week, c.Param("day"), c.Param("itemID"), item)
	if err != nil {
		c.JSON(scheduleErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteItem(c *gin.Context) {
	week, ok := weekParam(c)
	if !ok {
		return
	}
	if err := s.schedule.DeleteItem(c.Request.Context(), week, c.Param("day"), c.Param("itemID")); err != nil {
		c.JSON(scheduleErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleHomeworkHelp(c *gin.Context) {
	days, ok := s.loadWeek(c)
	if !ok {
		return
	}
	var found *model.ScheduleItem
	for _, day := range days {
		if day.Day != c.Param("day") {
			continue
		}
		for i := range day.Classes {
			if day.Classes[i].ID == c.Param("itemID") {
				found = &day.Classes[i]
			}
		}
	}
	if found == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrNotFound.Error()})
		return
	}
	text, err := s.assistant.HomeworkHelp(c.Request.Context(), *found)
	respondAssistant(c, text, err)
}

func (s *Server) handleStudyPlan(c *gin.Context) {
	days, ok := s.loadWeek(c)
	if !ok {
		return
	}
	text, err := s.assistant.StudyPlan(c.Request.Context(), days)
	respondAssistant(c, text, err)
}

func (s *Server) handleWeekSummary(c *gin.Context) {
	days, ok := s.loadWeek(c)
	if !ok {
		return
	}
	text, err := s.assistant.WeekSummary(c.Request.Context(), days)
	respondAssistant(c, text, err)
}

func respondAssistant(c *gin.Context, text string, err error) {
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}
