package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	config "github.com/xtocast/contest-voting-go/config"
	models "github.com/xtocast/contest-voting-go/models"
	services "github.com/xtocast/contest-voting-go/services"
	store "github.com/xtocast/contest-voting-go/store"
)

// PaymentGateway is the outbound payment-provider client. The production
// implementation is utils.PaystackClient.
type PaymentGateway interface {
	VerifyTransaction(ctx context.Context, reference string) (*models.VerifyResponse, error)
	InitializeTransaction(ctx context.Context, email string, amountMinor int64, callbackURL string, meta models.PaymentMetadata) (*models.InitializeResponse, error)
	VerifySignature(body []byte, signature string) bool
}

// ---------------- INITIALIZE ----------------
// InitializePayment prices a vote purchase server-side and opens a hosted
// checkout with the gateway. The charge is cost_per_vote * votes plus the
// platform fee, converted to minor units.
func InitializePayment(cfg *config.Config, s store.Store, gateway PaymentGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string                 `json:"email"`
			Metadata models.PaymentMetadata `json:"metadata"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}

		meta := input.Metadata
		if meta.PhoneNumber == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "phone_number is required"})
			return
		}
		if meta.VoteCount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "vote_count must be greater than 0"})
			return
		}
		meta.Email = input.Email

		contestID, err := primitive.ObjectIDFromHex(meta.ContestID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid contest_id"})
			return
		}
		nomineeID, err := primitive.ObjectIDFromHex(meta.NomineeID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid nominee_id"})
			return
		}
		if _, err := primitive.ObjectIDFromHex(meta.CategoryID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid category_id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		contest, err := s.GetContestByID(ctx, contestID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Contest not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "could not fetch contest"})
			return
		}

		nominee, err := s.GetNomineeByID(ctx, nomineeID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Nominee not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "could not fetch nominee"})
			return
		}

		amountMinor := services.TotalChargeMinor(contest.CostPerVote, meta.VoteCount)

		email := input.Email
		if email == "" {
			// Gateway requires an email; derive a placeholder from the nominee.
			name := "voter"
			if fields := strings.Fields(nominee.Name); len(fields) > 0 {
				name = strings.ToLower(fields[0])
			}
			email = name + "@xtocast.co"
		}

		init, err := gateway.InitializeTransaction(ctx, email, amountMinor, cfg.CallbackURL, meta)
		if err != nil {
			log.Printf("paystack initialize failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"message": "Failed to initialize payment"})
			return
		}
		if !init.Status {
			c.JSON(http.StatusBadGateway, gin.H{"message": init.Message})
			return
		}

		// Pending audit row. The checkout is already open, so a failure here
		// is logged rather than surfaced; RecordPayment upserts on the
		// reference either way.
		txn := &models.Transaction{
			ContestID: contestID,
			NomineeID: nomineeID,
			Voter:     meta.PhoneNumber,
			Channel:   "web",
			VoteCount: meta.VoteCount,
			Amount:    float64(amountMinor) / 100,
			Status:    models.TxnStatusPending,
			Reference: init.Data.Reference,
		}
		if err := s.CreateTransaction(ctx, txn); err != nil {
			log.Printf("failed to record pending transaction %s: %v", init.Data.Reference, err)
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  true,
			"message": init.Message,
			"data": gin.H{
				"authorization_url": init.Data.AuthorizationURL,
				"access_code":       init.Data.AccessCode,
				"reference":         init.Data.Reference,
				"amount":            amountMinor,
				"public_key":        cfg.PaystackPublicKey,
			},
		})
	}
}

// ---------------- VERIFY ----------------
// VerifyPayment is the poll-driven entry point: the client calls it after the
// hosted checkout closes. It asks the gateway for the reference's status and
// hands the outcome to the recorder. The raw gateway payload is always
// returned to the caller.
func VerifyPayment(recorder *services.VoteRecorder, gateway PaymentGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		reference := c.Query("reference")
		if reference == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Reference is required"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()

		verify, err := gateway.VerifyTransaction(ctx, reference)
		if err != nil {
			log.Printf("payment verification failed for %s: %v", reference, err)
			c.JSON(http.StatusBadGateway, gin.H{"message": "Failed to verify payment"})
			return
		}
		if !verify.Status {
			c.JSON(http.StatusBadGateway, gin.H{"message": verify.Message})
			return
		}

		data := verify.Data
		if data.Status == "success" {
			if err := recorder.RecordSuccess(ctx, data.Reference, data.Amount, data.Metadata); err != nil {
				status := http.StatusInternalServerError
				switch {
				case errors.Is(err, store.ErrNotFound):
					status = http.StatusNotFound
				case errors.Is(err, services.ErrInvalidInput):
					status = http.StatusBadRequest
				}
				log.Printf("recording verified payment %s failed: %v", reference, err)
				c.JSON(status, gin.H{"message": "Failed to verify payment"})
				return
			}
		} else {
			recorder.RecordFailure(ctx, data.Amount, data.Metadata)
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "success",
			"message":     "Payment verified and recorded",
			"transaction": data,
		})
	}
}

// ---------------- WEBHOOK ----------------
// PaymentWebhook is the push-driven entry point. The provider retries on any
// non-2xx response; the recorder's idempotency guard makes those retries
// safe. Unrecognized events are acknowledged without side effects.
func PaymentWebhook(recorder *services.VoteRecorder, gateway PaymentGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "could not read body"})
			return
		}

		if !gateway.VerifySignature(body, c.GetHeader("x-paystack-signature")) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid signature"})
			return
		}

		var event models.WebhookEvent
		if err := json.Unmarshal(body, &event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()

		switch event.Event {
		case "charge.success":
			data := event.Data
			log.Printf("webhook: successful charge reference=%s amount=%d votes=%d",
				data.Reference, data.Amount, data.Metadata.VoteCount)
			if err := recorder.RecordSuccess(ctx, data.Reference, data.Amount, data.Metadata); err != nil {
				log.Printf("webhook processing failed for %s: %v", data.Reference, err)
				c.JSON(http.StatusInternalServerError, gin.H{"message": "Webhook processing failed"})
				return
			}
		case "charge.failed":
			recorder.RecordFailure(ctx, event.Data.Amount, event.Data.Metadata)
		default:
			// Forward compatibility: acknowledge events we don't handle.
		}

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
