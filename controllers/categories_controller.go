package controllers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/xtocast/contest-voting-go/models"
	store "github.com/xtocast/contest-voting-go/store"
)

// ---------------- GET ----------------
// GetCategory returns a category with its nominees, each annotated with a
// vote tally counted from Vote rows (not the denormalized counter), sorted
// by tally descending.
func GetCategory(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		contestSlug := c.Query("contestSlug")
		if contestSlug == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing contestSlug parameter"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		contest, err := s.GetContestBySlug(ctx, contestSlug)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contest not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch contest"})
			return
		}

		category, err := s.GetCategoryBySlug(ctx, contest.ID, c.Param("categorySlug"))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch category"})
			return
		}

		nominees, err := s.ListNominees(ctx, category.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch nominees"})
			return
		}

		ids := make([]primitive.ObjectID, 0, len(nominees))
		for _, n := range nominees {
			ids = append(ids, n.ID)
		}

		tallies, err := s.CountVotesByNominee(ctx, ids)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch votes"})
			return
		}

		for i := range nominees {
			nominees[i].Votes = tallies[nominees[i].ID]
		}
		sort.Slice(nominees, func(i, j int) bool {
			return nominees[i].Votes > nominees[j].Votes
		})

		if nominees == nil {
			nominees = []models.Nominee{}
		}

		c.JSON(http.StatusOK, gin.H{
			"contest": gin.H{
				"id":              contest.ID,
				"title":           contest.Title,
				"image":           contest.Image,
				"end_date":        contest.EndDate,
				"status":          contest.CurrentStatus(),
				"results_visible": contest.ResultsVisible,
			},
			"category": gin.H{
				"id":            category.ID,
				"name":          category.Name,
				"description":   category.Description,
				"slug":          category.Slug,
				"nominee_count": len(nominees),
			},
			"nominees": nominees,
		})
	}
}
