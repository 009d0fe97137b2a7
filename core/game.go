package core

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"

	"github.com/aiwolfdial/studybuddy/logic"
	"github.com/aiwolfdial/studybuddy/model"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTooManySessions):
		return http.StatusTooManyRequests
	case errors.Is(err, logic.ErrClosed):
		return http.StatusGone
	case errors.Is(err, logic.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, logic.ErrBusy),
		errors.Is(err, logic.ErrGameEnded),
		errors.Is(err, logic.ErrAlreadyStarted),
		errors.Is(err, logic.ErrAwaitingVote),
		errors.Is(err, logic.ErrNotStarted):
		return http.StatusConflict
	case errors.Is(err, logic.ErrOracle), errors.Is(err, logic.ErrMalformedVerdict):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{"error": err.Error()})
}

// respondGame reports the snapshot even when the turn failed so the client can render
// the retained state together with the error.
func respondGame(c *gin.Context, controller *logic.Controller, err error, code int) {
	snapshot := controller.Snapshot()
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error(), "game": snapshot})
		return
	}
	c.JSON(code, snapshot)
}

func (s *Server) newController() *logic.Controller {
	var rng *rand.Rand
	if s.newRand != nil {
		rng = s.newRand()
	}
	controller := logic.NewController(&s.config, s.narrator, rng)
	if s.jsonLogger != nil {
		controller.SetJSONLogger(s.jsonLogger)
	}
	if s.gameLogger != nil {
		controller.SetGameLogger(s.gameLogger)
	}
	if s.realtimeBroadcaster != nil {
		controller.SetRealtimeBroadcaster(s.realtimeBroadcaster)
	}
	if s.metrics != nil {
		controller.SetMetrics(s.metrics)
	}
	return controller
}

func (s *Server) handleCreateGame(c *gin.Context) {
	controller := s.newController()
	if err := s.sessions.Add(controller); err != nil {
		respondError(c, err)
		return
	}
	err := controller.Start(c.Request.Context())
	respondGame(c, controller, err, http.StatusCreated)
}

func (s *Server) lookup(c *gin.Context) (*logic.Controller, bool) {
	controller, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return controller, true
}

func (s *Server) handleGetGame(c *gin.Context) {
	controller, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, controller.Snapshot())
}

func (s *Server) handleDeleteGame(c *gin.Context) {
	controller, err := s.sessions.Remove(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	controller.Close()
	if s.realtimeBroadcaster != nil {
		s.realtimeBroadcaster.CloseGame(controller.ID)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleVote(c *gin.Context) {
	controller, ok := s.lookup(c)
	if !ok {
		return
	}
	var action model.HumanAction
	if err := c.ShouldBindJSON(&action); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if action.Type == "" {
		action.Type = model.A_VOTE
	}
	err := controller.Act(c.Request.Context(), action)
	respondGame(c, controller, err, http.StatusOK)
}

func (s *Server) handleAdvance(c *gin.Context) {
	controller, ok := s.lookup(c)
	if !ok {
		return
	}
	err := controller.Advance(c.Request.Context())
	respondGame(c, controller, err, http.StatusOK)
}

func (s *Server) handleRestart(c *gin.Context) {
	controller, ok := s.lookup(c)
	if !ok {
		return
	}
	err := controller.Restart(c.Request.Context())
	respondGame(c, controller, err, http.StatusOK)
}

func (s *Server) handleDismiss(c *gin.Context) {
	controller, ok := s.lookup(c)
	if !ok {
		return
	}
	controller.DismissError()
	c.JSON(http.StatusOK, controller.Snapshot())
}

func (s *Server) handleGameStream(c *gin.Context) {
	controller, ok := s.lookup(c)
	if !ok {
		return
	}
	if s.realtimeBroadcaster == nil {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("クライアントのアップグレードに失敗しました", "error", err)
		return
	}
	defer ws.Close()

	sub := s.realtimeBroadcaster.Subscribe(controller.ID)
	defer s.realtimeBroadcaster.Unsubscribe(sub)
	if err := ws.WriteJSON(controller.Snapshot()); err != nil {
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
	for {
		select {
		case packet, ok := <-sub.C:
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := ws.WriteJSON(packet); err != nil {
				slog.Warn("パケットの送信に失敗しました", "id", controller.ID, "error", err)
				return
			}
		case <-closed:
			slog.Info("クライアントが切断しました", "id", controller.ID)
			return
		}
	}
}
