package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"breathemate/helpers"
	"breathemate/models"
	"breathemate/services"

	"github.com/gin-gonic/gin"
)

var sessionManager = services.NewSessionManager(
	services.DefaultEngineConfig(),
	services.NewSimulatedScorer(time.Now().UnixNano()),
	services.MongoAnalyticsStore{},
)

func getUserID(c *gin.Context) string {
	claimsVal, ok := c.Get("claims")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return ""
	}
	claims, ok := claimsVal.(*helpers.Claims)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid claims"})
		return ""
	}
	return claims.UserID
}

func loggingEvents(profileID string) services.SessionEvents {
	return services.SessionEvents{
		OnPhaseChanged: func(phase models.Phase) {
			log.Printf("profile %s: phase -> %s", profileID, phase)
		},
		OnIterationCompleted: func(res models.IterationResult) {
			log.Printf("profile %s: iteration %d scored %d (%s)", profileID, res.Iteration, res.HealthScore, res.RiskLevel)
		},
		OnSessionCompleted: func(record models.SessionRecord, _ *models.Analytics) {
			log.Printf("profile %s: session complete, %d iterations, improvement %d", profileID, record.IterationCount, record.Improvement)
		},
	}
}

// StartBreathSession begins a new recording session for the current
// user and returns the opening prompt.
func StartBreathSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := getUserID(c)
		if userID == "" {
			return
		}
		var body struct {
			Mode     string `json:"mode"`     // single | iterative
			Category string `json:"category"` // optional
		}
		if err := c.BindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session payload"})
			return
		}

		mode := models.SessionMode(body.Mode)
		if mode != models.ModeSingle && mode != models.ModeIterative {
			mode = models.ModeSingle
		}
		category := models.CategoryWellnessMaintenance
		if body.Category != "" {
			parsed, err := models.ParseCategory(body.Category)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			category = parsed
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sc, err := sessionManager.Start(ctx, userID, mode, category, loggingEvents(userID))
		if err != nil {
			if errors.Is(err, services.ErrSessionActive) {
				c.JSON(http.StatusConflict, gin.H{"error": "finish or cancel the current session first"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		session := sc.Session()
		c.JSON(http.StatusOK, gin.H{
			"session_id": session.ID,
			"mode":       session.Mode,
			"phase":      session.Phase,
			"category":   session.Category,
			"prompt":     sc.Prompt(),
		})
	}
}

// BeginRecording moves the session out of the prompt phase once the
// client's settle interval has elapsed.
func BeginRecording() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := getUserID(c)
		if userID == "" {
			return
		}
		sc, err := sessionManager.Controller(userID, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if err := sc.BeginRecording(); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"phase": models.PhaseRecording})
	}
}

// AnalyzeRecording hands the captured audio to the scorer. Empty audio
// counts as a capture failure: the session completes with whatever
// iterations it already has.
func AnalyzeRecording() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := getUserID(c)
		if userID == "" {
			return
		}
		sc, err := sessionManager.Controller(userID, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		var body struct {
			AudioData string `json:"audio_data"`
		}
		if err := c.BindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analyze payload"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		result, continueOffered, err := sc.CompleteRecording(ctx, services.RawSample(body.AudioData))
		if err != nil {
			if errors.Is(err, services.ErrBadPhase) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			// Partial-completion path: the iteration failed but the
			// session state is settled.
			session := sc.Session()
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":      err.Error(),
				"phase":      session.Phase,
				"iterations": session.Iterations,
			})
			return
		}

		session := sc.Session()
		c.JSON(http.StatusOK, gin.H{
			"result":           result,
			"phase":            session.Phase,
			"continue_offered": continueOffered,
		})
	}
}

// DecideContinue resolves the explicit continue/complete decision in
// iterative mode.
func DecideContinue() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := getUserID(c)
		if userID == "" {
			return
		}
		sc, err := sessionManager.Controller(userID, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		var body struct {
			Continue *bool `json:"continue" binding:"required"`
		}
		if err := c.BindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "continue flag is required"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sc.Decide(ctx, *body.Continue); err != nil {
			if errors.Is(err, services.ErrBadPhase) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		session := sc.Session()
		resp := gin.H{"phase": session.Phase, "category": session.Category}
		if session.Phase == models.PhasePrompt {
			resp["prompt"] = sc.Prompt()
		}
		c.JSON(http.StatusOK, resp)
	}
}

// CancelBreathSession discards the session without touching analytics.
func CancelBreathSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := getUserID(c)
		if userID == "" {
			return
		}
		sc, err := sessionManager.Controller(userID, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		sc.Cancel()
		c.JSON(http.StatusOK, gin.H{"message": "session cancelled"})
	}
}

// GetBreathSession returns the live session state.
func GetBreathSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := getUserID(c)
		if userID == "" {
			return
		}
		sc, err := sessionManager.Controller(userID, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		session := sc.Session()
		c.JSON(http.StatusOK, gin.H{
			"session": session,
			"prompt":  sc.Prompt(),
		})
	}
}
