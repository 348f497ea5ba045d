package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	models "github.com/xtocast/contest-voting-go/models"
	store "github.com/xtocast/contest-voting-go/store"
	testutil "github.com/xtocast/contest-voting-go/testutil"
)

func setupRecorder(t *testing.T) (*VoteRecorder, *testutil.FakeStore, *testutil.FakeNotifier, models.PaymentMetadata, models.Nominee) {
	t.Helper()

	fs := testutil.NewFakeStore()
	contest := testutil.SeedContest(fs, "Ghana Music Awards", "ghana-music-awards", 2.00)
	category := testutil.SeedCategory(fs, contest.ID, "Artist of the Year", "artist-of-the-year")
	nominee := testutil.SeedNominee(fs, category.ID, "Ama Serwaa", "ama-serwaa", "AS01", 50)

	notifier := &testutil.FakeNotifier{}
	recorder := NewVoteRecorder(fs, notifier)
	meta := testutil.Metadata(contest, category, nominee, 10, "+233555000111")

	return recorder, fs, notifier, meta, nominee
}

func TestRecordSuccessWritesOnce(t *testing.T) {
	recorder, fs, notifier, meta, nominee := setupRecorder(t)

	// 10 votes at 2.00 plus the 4% fee tier = 20.80, i.e. 2080 minor units.
	if err := recorder.RecordSuccess(context.Background(), "ref_001", 2080, meta); err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}

	if got := fs.TransactionCount("ref_001"); got != 1 {
		t.Errorf("expected 1 transaction, got %d", got)
	}
	if got := fs.VoteCount("ref_001"); got != 1 {
		t.Errorf("expected 1 vote, got %d", got)
	}
	if got := fs.NomineeVotes(nominee.ID); got != 60 {
		t.Errorf("expected nominee votes 60, got %d", got)
	}

	txns, _ := fs.ListTransactions(context.Background(), store.TransactionFilter{Reference: "ref_001"})
	if txns[0].Status != models.TxnStatusCompleted {
		t.Errorf("expected completed status, got %q", txns[0].Status)
	}
	if txns[0].Amount != 20.80 {
		t.Errorf("expected amount 20.80, got %v", txns[0].Amount)
	}

	notifier.WaitForMessages(t, 1)
	sms := notifier.Last()
	if sms.To != meta.PhoneNumber {
		t.Errorf("SMS sent to %q, want %q", sms.To, meta.PhoneNumber)
	}
	for _, want := range []string{"ref_001", "Ama Serwaa", "Ghana Music Awards", "10 votes"} {
		if !strings.Contains(sms.Message, want) {
			t.Errorf("SMS missing %q: %s", want, sms.Message)
		}
	}
}

func TestRecordSuccessIdempotent(t *testing.T) {
	recorder, fs, notifier, meta, nominee := setupRecorder(t)

	if err := recorder.RecordSuccess(context.Background(), "ref_dup", 2080, meta); err != nil {
		t.Fatalf("first RecordSuccess failed: %v", err)
	}
	if err := recorder.RecordSuccess(context.Background(), "ref_dup", 2080, meta); err != nil {
		t.Fatalf("second RecordSuccess should be a no-op, got: %v", err)
	}

	if got := fs.TransactionCount("ref_dup"); got != 1 {
		t.Errorf("expected 1 transaction after replay, got %d", got)
	}
	if got := fs.VoteCount("ref_dup"); got != 1 {
		t.Errorf("expected 1 vote after replay, got %d", got)
	}
	if got := fs.NomineeVotes(nominee.ID); got != 60 {
		t.Errorf("expected a single increment to 60, got %d", got)
	}

	notifier.WaitForMessages(t, 1)
	notifier.AssertNoMoreMessages(t, 1)
}

// TestRecordSuccessConcurrent races webhook-style redeliveries of the same
// reference; exactly one may perform the writes.
func TestRecordSuccessConcurrent(t *testing.T) {
	recorder, fs, _, meta, nominee := setupRecorder(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := recorder.RecordSuccess(context.Background(), "ref_race", 2080, meta); err != nil {
				t.Errorf("RecordSuccess failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := fs.TransactionCount("ref_race"); got != 1 {
		t.Errorf("expected 1 transaction, got %d", got)
	}
	if got := fs.VoteCount("ref_race"); got != 1 {
		t.Errorf("expected 1 vote, got %d", got)
	}
	if got := fs.NomineeVotes(nominee.ID); got != 60 {
		t.Errorf("expected votes incremented exactly once to 60, got %d", got)
	}
}

func TestRecordSuccessPromotesPendingTransaction(t *testing.T) {
	recorder, fs, _, meta, _ := setupRecorder(t)

	pending := &models.Transaction{
		Reference: "ref_pending",
		Status:    models.TxnStatusPending,
		Voter:     meta.PhoneNumber,
		Channel:   "web",
		VoteCount: 10,
		Amount:    20.80,
	}
	if err := fs.CreateTransaction(context.Background(), pending); err != nil {
		t.Fatalf("seed pending transaction: %v", err)
	}

	if err := recorder.RecordSuccess(context.Background(), "ref_pending", 2080, meta); err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}

	if got := fs.TransactionCount("ref_pending"); got != 1 {
		t.Errorf("expected the pending row promoted, not duplicated; got %d rows", got)
	}
	txns, _ := fs.ListTransactions(context.Background(), store.TransactionFilter{Reference: "ref_pending"})
	if txns[0].Status != models.TxnStatusCompleted {
		t.Errorf("expected completed, got %q", txns[0].Status)
	}
}

func TestRecordSuccessUnknownNominee(t *testing.T) {
	recorder, fs, notifier, meta, _ := setupRecorder(t)
	meta.NomineeID = "ffffffffffffffffffffffff"

	err := recorder.RecordSuccess(context.Background(), "ref_404", 2080, meta)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if got := fs.TransactionCount(""); got != 0 {
		t.Errorf("expected no writes, got %d transactions", got)
	}
	notifier.AssertNoMoreMessages(t, 0)
}

func TestRecordSuccessValidation(t *testing.T) {
	recorder, _, _, meta, _ := setupRecorder(t)

	cases := []struct {
		name      string
		reference string
		amount    int64
		mutate    func(*models.PaymentMetadata)
	}{
		{"empty reference", "", 2080, func(m *models.PaymentMetadata) {}},
		{"zero amount", "ref_v", 0, func(m *models.PaymentMetadata) {}},
		{"zero vote count", "ref_v", 2080, func(m *models.PaymentMetadata) { m.VoteCount = 0 }},
		{"missing phone", "ref_v", 2080, func(m *models.PaymentMetadata) { m.PhoneNumber = "" }},
		{"bad nominee id", "ref_v", 2080, func(m *models.PaymentMetadata) { m.NomineeID = "not-hex" }},
		{"bad contest id", "ref_v", 2080, func(m *models.PaymentMetadata) { m.ContestID = "not-hex" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := meta
			tc.mutate(&m)
			err := recorder.RecordSuccess(context.Background(), tc.reference, tc.amount, m)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestRecordSuccessStorageError(t *testing.T) {
	recorder, fs, notifier, meta, _ := setupRecorder(t)
	fs.FailWrites = true

	err := recorder.RecordSuccess(context.Background(), "ref_fail", 2080, meta)
	if err == nil {
		t.Fatal("expected an error when the store fails")
	}
	if errors.Is(err, store.ErrDuplicateReference) || errors.Is(err, store.ErrNotFound) {
		t.Fatalf("storage failure mapped to the wrong class: %v", err)
	}
	notifier.AssertNoMoreMessages(t, 0)
}

func TestNotificationFailureDoesNotFailRecording(t *testing.T) {
	recorder, fs, notifier, meta, nominee := setupRecorder(t)
	notifier.FailSends = true

	if err := recorder.RecordSuccess(context.Background(), "ref_sms", 2080, meta); err != nil {
		t.Fatalf("RecordSuccess must swallow notification errors, got: %v", err)
	}

	if got := fs.NomineeVotes(nominee.ID); got != 60 {
		t.Errorf("expected writes to land despite SMS failure, votes=%d", got)
	}
	notifier.WaitForMessages(t, 1)
}

func TestRecordFailureSendsSMSOnly(t *testing.T) {
	recorder, fs, notifier, meta, nominee := setupRecorder(t)

	recorder.RecordFailure(context.Background(), 2080, meta)

	notifier.WaitForMessages(t, 1)
	sms := notifier.Last()
	if !strings.Contains(sms.Message, "has failed") {
		t.Errorf("expected a failure message, got: %s", sms.Message)
	}

	if got := fs.TransactionCount(""); got != 0 {
		t.Errorf("failure path must not write transactions, got %d", got)
	}
	if got := fs.VoteCount(""); got != 0 {
		t.Errorf("failure path must not write votes, got %d", got)
	}
	if got := fs.NomineeVotes(nominee.ID); got != 50 {
		t.Errorf("failure path must not touch the counter, votes=%d", got)
	}
}

func TestRecordFailureUnknownNomineeIsSilent(t *testing.T) {
	recorder, _, notifier, meta, _ := setupRecorder(t)
	meta.NomineeID = "ffffffffffffffffffffffff"

	recorder.RecordFailure(context.Background(), 2080, meta)
	notifier.AssertNoMoreMessages(t, 0)
}
