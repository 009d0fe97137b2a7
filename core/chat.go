package core

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) handleCreateChat(c *gin.Context) {
	session, err := s.chats.Create()
	if err != nil {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": session.ID, "messages": session.Messages()})
}

func (s *Server) handleGetChat(c *gin.Context) {
	session, ok := s.chats.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "チャットが見つかりません"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": session.ID, "messages": session.Messages()})
}

func (s *Server) handleDeleteChat(c *gin.Context) {
	if !s.chats.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "チャットが見つかりません"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSendChat(c *gin.Context) {
	session, ok := s.chats.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "チャットが見つかりません"})
		return
	}
	var request chatRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	message, err := session.Send(c.Request.Context(), request.Text)
	if err != nil {
		code := http.StatusBadGateway
		if message.ID == "" {
			code = http.StatusBadRequest
		}
		c.JSON(code, gin.H{"error": err.Error(), "message": message, "messages": session.Messages()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "messages": session.Messages()})
}
