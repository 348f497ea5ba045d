package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	store "github.com/xtocast/contest-voting-go/store"
)

// ---------------- GET ----------------
// GetNominee resolves /nominees/:slug/:categorySlug/:nomineeSlug. The last
// segment matches the nominee's slug or nominee_code, case-insensitively.
func GetNominee(s store.Store) gin.HandlerFunc {
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

		category, err := s.GetCategoryBySlug(ctx, contest.ID, c.Param("categorySlug"))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch category"})
			return
		}

		nominee, err := s.GetNomineeBySlugOrCode(ctx, category.ID, c.Param("nomineeSlug"))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Nominee not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch nominee"})
			return
		}

		votes, err := s.CountVotes(ctx, nominee.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch votes"})
			return
		}
		nominee.Votes = votes

		c.JSON(http.StatusOK, nominee)
	}
}
