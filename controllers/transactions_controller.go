package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	models "github.com/xtocast/contest-voting-go/models"
	store "github.com/xtocast/contest-voting-go/store"
	utils "github.com/xtocast/contest-voting-go/utils"
)

// ---------------- LIST ----------------
func ListTransactions(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		filter := store.TransactionFilter{
			Status:    c.Query("status"),
			Reference: c.Query("reference"),
		}

		txns, err := s.ListTransactions(ctx, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch transactions"})
			return
		}

		if len(txns) == 0 {
			c.JSON(http.StatusOK, []models.Transaction{})
			return
		}

		// --- Pick the most recently updated transaction ---
		latest := txns[0]
		for _, txn := range txns {
			if txn.UpdatedAt.After(latest.UpdatedAt) {
				latest = txn
			}
		}

		// --- Generate ETag from latest transaction ---
		etag := utils.GenerateETag(latest.ID, latest.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)
		c.Header("Last-Modified", latest.UpdatedAt.UTC().Format(http.TimeFormat))

		c.JSON(http.StatusOK, txns)
	}
}

// ---------------- UNRECONCILED ----------------
// ListUnreconciledTransactions surfaces completed transactions with no
// matching vote row: payments that were confirmed upstream but only partially
// recorded, needing manual reconciliation.
func ListUnreconciledTransactions(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		txns, err := s.ListUnreconciled(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch transactions"})
			return
		}
		if txns == nil {
			txns = []models.Transaction{}
		}

		c.JSON(http.StatusOK, gin.H{
			"count":        len(txns),
			"transactions": txns,
		})
	}
}
