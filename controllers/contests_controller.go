package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	models "github.com/xtocast/contest-voting-go/models"
	store "github.com/xtocast/contest-voting-go/store"
	utils "github.com/xtocast/contest-voting-go/utils"
)

// ---------------- LIST ----------------
func ListContests(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		contests, err := s.ListContests(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch contests"})
			return
		}

		if len(contests) == 0 {
			c.JSON(http.StatusOK, []models.Contest{})
			return
		}

		// --- Pick the most recently updated contest ---
		latest := contests[0]
		for _, ct := range contests {
			if ct.UpdatedAt.After(latest.UpdatedAt) {
				latest = ct
			}
		}

		// --- Generate ETag from latest contest ---
		etag := utils.GenerateETag(latest.ID, latest.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)
		c.Header("Last-Modified", latest.UpdatedAt.UTC().Format(http.TimeFormat))

		c.JSON(http.StatusOK, contests)
	}
}

// ---------------- GET ----------------
func GetContest(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		contest, err := s.GetContestBySlug(ctx, c.Param("slug"))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contest not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch contest"})
			return
		}

		categories, err := s.ListCategories(ctx, contest.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
			return
		}

		for i := range categories {
			n, err := s.CountNominees(ctx, categories[i].ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
				return
			}
			categories[i].NomineeCount = n
		}

		if categories == nil {
			categories = []models.Category{}
		}

		c.JSON(http.StatusOK, gin.H{
			"contest": gin.H{
				"id":             contest.ID,
				"title":          contest.Title,
				"description":    contest.Description,
				"image":          contest.Image,
				"end_date":       contest.EndDate,
				"status":         contest.CurrentStatus(),
				"cost_per_vote":  contest.CostPerVote,
				"category_count": len(categories),
			},
			"categories": categories,
		})
	}
}
