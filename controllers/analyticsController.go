package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// GetAnalytics returns the full analytics document for the current user.
func GetAnalytics() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := getUserID(c)
		if userID == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		analytics, err := sessionManager.Analytics(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, analytics)
	}
}

// GetWeeklyProgress returns the per-week rollups for the dashboard trend
// panel.
func GetWeeklyProgress() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := getUserID(c)
		if userID == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		analytics, err := sessionManager.Analytics(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"weekly_progress": analytics.WeeklyProgress,
			"streak":          analytics.Streak,
		})
	}
}

// GetAchievements returns the unlocked milestones.
func GetAchievements() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := getUserID(c)
		if userID == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		analytics, err := sessionManager.Analytics(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, analytics.Achievements)
	}
}

// GetSessionHistory returns recent completed sessions, newest first.
func GetSessionHistory() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := getUserID(c)
		if userID == "" {
			return
		}
		limit := 30
		if l := c.Query("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil && n > 0 {
				limit = n
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		analytics, err := sessionManager.Analytics(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		history := analytics.SessionHistory
		out := make([]interface{}, 0, limit)
		for i := len(history) - 1; i >= 0 && len(out) < limit; i-- {
			out = append(out, history[i])
		}
		c.JSON(http.StatusOK, out)
	}
}
