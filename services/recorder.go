package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/xtocast/contest-voting-go/models"
	store "github.com/xtocast/contest-voting-go/store"
)

// ErrInvalidInput marks payment events whose payload is unusable (missing
// reference or phone, non-positive amount or vote count, malformed ids).
var ErrInvalidInput = errors.New("invalid payment input")

// Notifier delivers an SMS. Send must be bounded by its own timeout; a
// failure never changes the outcome of the recording operation.
type Notifier interface {
	Send(ctx context.Context, to, message string) error
}

const notifyTimeout = 10 * time.Second

// VoteRecorder converts verified payment events into durable vote and
// transaction state, exactly once per gateway reference, and notifies the
// voter. Both the verification poll and the webhook feed into it, so every
// write goes through the store's reference-uniqueness gate.
type VoteRecorder struct {
	store    store.Store
	notifier Notifier
}

func NewVoteRecorder(s store.Store, n Notifier) *VoteRecorder {
	return &VoteRecorder{store: s, notifier: n}
}

// RecordSuccess records a payment the gateway has confirmed as successful:
// one completed Transaction, one Vote, one atomic counter increment of
// meta.VoteCount, then an asynchronous success SMS. Calling it again with the
// same reference is a no-op for the write path and sends no second SMS.
func (r *VoteRecorder) RecordSuccess(ctx context.Context, reference string, amountMinor int64, meta models.PaymentMetadata) error {
	if reference == "" {
		return fmt.Errorf("%w: missing reference", ErrInvalidInput)
	}
	if amountMinor <= 0 {
		return fmt.Errorf("%w: non-positive amount %d", ErrInvalidInput, amountMinor)
	}
	if meta.VoteCount <= 0 {
		return fmt.Errorf("%w: non-positive vote_count %d", ErrInvalidInput, meta.VoteCount)
	}
	if meta.PhoneNumber == "" {
		return fmt.Errorf("%w: missing phone_number", ErrInvalidInput)
	}

	contestID, categoryID, nomineeID, err := parseMetadataIDs(meta)
	if err != nil {
		return err
	}

	nominee, err := r.store.GetNomineeByID(ctx, nomineeID)
	if err != nil {
		return fmt.Errorf("nominee lookup for reference %s: %w", reference, err)
	}
	contest, err := r.store.GetContestByID(ctx, contestID)
	if err != nil {
		return fmt.Errorf("contest lookup for reference %s: %w", reference, err)
	}

	amount := float64(amountMinor) / 100

	txn := &models.Transaction{
		ContestID: contestID,
		NomineeID: nomineeID,
		Voter:     meta.PhoneNumber,
		Channel:   "web",
		VoteCount: meta.VoteCount,
		Amount:    amount,
		Status:    models.TxnStatusCompleted,
		Reference: reference,
	}
	vote := &models.Vote{
		ContestID:        contestID,
		CategoryID:       categoryID,
		NomineeID:        nomineeID,
		PhoneNumber:      meta.PhoneNumber,
		Email:            meta.Email,
		PaymentReference: reference,
	}

	if err := r.store.RecordPayment(ctx, txn, vote); err != nil {
		if errors.Is(err, store.ErrDuplicateReference) {
			log.Printf("payment %s already recorded, skipping", reference)
			return nil
		}
		// The gateway confirmation is not reversible, so a write failure here
		// means a paid vote is unrecorded. Log everything needed to
		// reconcile it by hand.
		log.Printf("RECONCILE: failed to record payment reference=%s nominee=%s phone=%s votes=%d amount=%.2f: %v",
			reference, meta.NomineeID, meta.PhoneNumber, meta.VoteCount, amount, err)
		return fmt.Errorf("record payment %s: %w", reference, err)
	}

	msg := fmt.Sprintf(
		"Thank you for voting in %s! Your payment of GHS %.2f for %d votes for %s has been processed successfully. Reference: %s",
		contest.Title, amount, meta.VoteCount, nominee.Name, reference)
	r.notifyAsync(meta.PhoneNumber, msg)

	return nil
}

// RecordFailure sends a best-effort failure SMS. No database writes.
func (r *VoteRecorder) RecordFailure(ctx context.Context, amountMinor int64, meta models.PaymentMetadata) {
	if meta.PhoneNumber == "" {
		return
	}

	contestID, _, nomineeID, err := parseMetadataIDs(meta)
	if err != nil {
		log.Printf("failure notification skipped: %v", err)
		return
	}

	nominee, err := r.store.GetNomineeByID(ctx, nomineeID)
	if err != nil {
		log.Printf("failure notification skipped, nominee lookup: %v", err)
		return
	}
	contest, err := r.store.GetContestByID(ctx, contestID)
	if err != nil {
		log.Printf("failure notification skipped, contest lookup: %v", err)
		return
	}

	msg := fmt.Sprintf(
		"Your payment of GHS %.2f for %d votes for %s in %s has failed. Please try again or contact support.",
		float64(amountMinor)/100, meta.VoteCount, nominee.Name, contest.Title)
	r.notifyAsync(meta.PhoneNumber, msg)
}

func (r *VoteRecorder) notifyAsync(to, message string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := r.notifier.Send(ctx, to, message); err != nil {
			log.Printf("failed to send SMS to %s: %v", to, err)
		}
	}()
}

func parseMetadataIDs(meta models.PaymentMetadata) (contestID, categoryID, nomineeID primitive.ObjectID, err error) {
	contestID, err = primitive.ObjectIDFromHex(meta.ContestID)
	if err != nil {
		return contestID, categoryID, nomineeID, fmt.Errorf("%w: bad contest_id %q", ErrInvalidInput, meta.ContestID)
	}
	categoryID, err = primitive.ObjectIDFromHex(meta.CategoryID)
	if err != nil {
		return contestID, categoryID, nomineeID, fmt.Errorf("%w: bad category_id %q", ErrInvalidInput, meta.CategoryID)
	}
	nomineeID, err = primitive.ObjectIDFromHex(meta.NomineeID)
	if err != nil {
		return contestID, categoryID, nomineeID, fmt.Errorf("%w: bad nominee_id %q", ErrInvalidInput, meta.NomineeID)
	}
	return contestID, categoryID, nomineeID, nil
}
