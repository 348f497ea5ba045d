package testutil

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/xtocast/contest-voting-go/models"
	store "github.com/xtocast/contest-voting-go/store"
)

// FakeStore is an in-memory store.Store. It reproduces the Mongo
// implementation's idempotency semantics: a completed transaction reference
// is unique, and so is a vote's payment reference.
type FakeStore struct {
	mu           sync.Mutex
	Contests     map[primitive.ObjectID]models.Contest
	Categories   map[primitive.ObjectID]models.Category
	Nominees     map[primitive.ObjectID]models.Nominee
	Votes        []models.Vote
	Transactions []models.Transaction

	// FailWrites forces RecordPayment and CreateTransaction to fail.
	FailWrites bool
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		Contests:   make(map[primitive.ObjectID]models.Contest),
		Categories: make(map[primitive.ObjectID]models.Category),
		Nominees:   make(map[primitive.ObjectID]models.Nominee),
	}
}

func (f *FakeStore) ListContests(ctx context.Context) ([]models.Contest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	contests := make([]models.Contest, 0, len(f.Contests))
	for _, ct := range f.Contests {
		contests = append(contests, ct)
	}
	return contests, nil
}

func (f *FakeStore) GetContestBySlug(ctx context.Context, slug string) (*models.Contest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ct := range f.Contests {
		if ct.Slug == slug {
			c := ct
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *FakeStore) GetContestByID(ctx context.Context, id primitive.ObjectID) (*models.Contest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ct, ok := f.Contests[id]; ok {
		return &ct, nil
	}
	return nil, store.ErrNotFound
}

func (f *FakeStore) ListCategories(ctx context.Context, contestID primitive.ObjectID) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var categories []models.Category
	for _, cat := range f.Categories {
		if cat.ContestID == contestID {
			categories = append(categories, cat)
		}
	}
	return categories, nil
}

func (f *FakeStore) GetCategoryBySlug(ctx context.Context, contestID primitive.ObjectID, slug string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cat := range f.Categories {
		if cat.ContestID == contestID && cat.Slug == slug {
			c := cat
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *FakeStore) ListNominees(ctx context.Context, categoryID primitive.ObjectID) ([]models.Nominee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var nominees []models.Nominee
	for _, n := range f.Nominees {
		if n.CategoryID == categoryID {
			nominees = append(nominees, n)
		}
	}
	return nominees, nil
}

func (f *FakeStore) GetNomineeBySlugOrCode(ctx context.Context, categoryID primitive.ObjectID, key string) (*models.Nominee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.Nominees {
		if n.CategoryID != categoryID {
			continue
		}
		if strings.EqualFold(n.Slug, key) || strings.EqualFold(n.NomineeCode, key) {
			nom := n
			return &nom, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *FakeStore) GetNomineeByID(ctx context.Context, id primitive.ObjectID) (*models.Nominee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.Nominees[id]; ok {
		return &n, nil
	}
	return nil, store.ErrNotFound
}

func (f *FakeStore) CountNominees(ctx context.Context, categoryID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, nom := range f.Nominees {
		if nom.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (f *FakeStore) CountVotes(ctx context.Context, nomineeID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, v := range f.Votes {
		if v.NomineeID == nomineeID {
			n++
		}
	}
	return n, nil
}

func (f *FakeStore) CountVotesByNominee(ctx context.Context, nomineeIDs []primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[primitive.ObjectID]int64)
	wanted := make(map[primitive.ObjectID]bool, len(nomineeIDs))
	for _, id := range nomineeIDs {
		wanted[id] = true
	}
	for _, v := range f.Votes {
		if wanted[v.NomineeID] {
			counts[v.NomineeID]++
		}
	}
	return counts, nil
}

func (f *FakeStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites {
		return errors.New("write failed")
	}
	for _, t := range f.Transactions {
		if t.Reference == txn.Reference {
			return store.ErrDuplicateReference
		}
	}
	now := time.Now()
	if txn.ID.IsZero() {
		txn.ID = primitive.NewObjectID()
	}
	txn.CreatedAt = now
	txn.UpdatedAt = now
	f.Transactions = append(f.Transactions, *txn)
	return nil
}

func (f *FakeStore) RecordPayment(ctx context.Context, txn *models.Transaction, vote *models.Vote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites {
		return errors.New("write failed")
	}

	now := time.Now()
	existing := -1
	for i := range f.Transactions {
		if f.Transactions[i].Reference == txn.Reference {
			if f.Transactions[i].Status == models.TxnStatusCompleted {
				return store.ErrDuplicateReference
			}
			existing = i
			break
		}
	}

	for _, v := range f.Votes {
		if v.PaymentReference == vote.PaymentReference {
			return store.ErrDuplicateReference
		}
	}

	if existing >= 0 {
		f.Transactions[existing].Status = models.TxnStatusCompleted
		f.Transactions[existing].Amount = txn.Amount
		f.Transactions[existing].VoteCount = txn.VoteCount
		f.Transactions[existing].UpdatedAt = now
	} else {
		record := *txn
		record.ID = primitive.NewObjectID()
		record.Status = models.TxnStatusCompleted
		record.CreatedAt = now
		record.UpdatedAt = now
		f.Transactions = append(f.Transactions, record)
	}

	v := *vote
	v.ID = primitive.NewObjectID()
	v.CreatedAt = now
	f.Votes = append(f.Votes, v)

	nominee := f.Nominees[vote.NomineeID]
	nominee.Votes += txn.VoteCount
	f.Nominees[vote.NomineeID] = nominee
	return nil
}

func (f *FakeStore) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var txns []models.Transaction
	for _, t := range f.Transactions {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Reference != "" && t.Reference != filter.Reference {
			continue
		}
		txns = append(txns, t)
	}
	return txns, nil
}

func (f *FakeStore) ListUnreconciled(ctx context.Context) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recorded := make(map[string]bool, len(f.Votes))
	for _, v := range f.Votes {
		recorded[v.PaymentReference] = true
	}
	var missing []models.Transaction
	for _, t := range f.Transactions {
		if t.Status == models.TxnStatusCompleted && !recorded[t.Reference] {
			missing = append(missing, t)
		}
	}
	return missing, nil
}

// TransactionCount returns the number of stored transactions, optionally
// narrowed to one reference.
func (f *FakeStore) TransactionCount(reference string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.Transactions {
		if reference == "" || t.Reference == reference {
			n++
		}
	}
	return n
}

func (f *FakeStore) VoteCount(reference string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.Votes {
		if reference == "" || v.PaymentReference == reference {
			n++
		}
	}
	return n
}

func (f *FakeStore) NomineeVotes(id primitive.ObjectID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Nominees[id].Votes
}

// ---------------- seed helpers ----------------

func SeedContest(f *FakeStore, title, slug string, costPerVote float64) models.Contest {
	ct := models.Contest{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Slug:        slug,
		Status:      "active",
		CostPerVote: costPerVote,
		StartDate:   time.Now().Add(-24 * time.Hour),
		EndDate:     time.Now().Add(24 * time.Hour),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.Contests[ct.ID] = ct
	return ct
}

func SeedCategory(f *FakeStore, contestID primitive.ObjectID, name, slug string) models.Category {
	cat := models.Category{
		ID:        primitive.NewObjectID(),
		ContestID: contestID,
		Name:      name,
		Slug:      slug,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.Categories[cat.ID] = cat
	return cat
}

func SeedNominee(f *FakeStore, categoryID primitive.ObjectID, name, slug, code string, votes int64) models.Nominee {
	n := models.Nominee{
		ID:          primitive.NewObjectID(),
		CategoryID:  categoryID,
		Name:        name,
		Slug:        slug,
		NomineeCode: code,
		Votes:       votes,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.Nominees[n.ID] = n
	return n
}

// Metadata builds a payment metadata block for the given seeded entities.
func Metadata(contest models.Contest, category models.Category, nominee models.Nominee, votes int64, phone string) models.PaymentMetadata {
	return models.PaymentMetadata{
		ContestID:   contest.ID.Hex(),
		CategoryID:  category.ID.Hex(),
		NomineeID:   nominee.ID.Hex(),
		VoteCount:   votes,
		PhoneNumber: phone,
	}
}

// ---------------- fake notifier ----------------

type SentSMS struct {
	To      string
	Message string
}

type FakeNotifier struct {
	mu       sync.Mutex
	Messages []SentSMS

	// FailSends makes every Send return an error (after recording the
	// attempt).
	FailSends bool
}

func (n *FakeNotifier) Send(ctx context.Context, to, message string) error {
	n.mu.Lock()
	n.Messages = append(n.Messages, SentSMS{To: to, Message: message})
	fail := n.FailSends
	n.mu.Unlock()
	if fail {
		return errors.New("sms gateway unavailable")
	}
	return nil
}

func (n *FakeNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Messages)
}

func (n *FakeNotifier) Last() SentSMS {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.Messages) == 0 {
		return SentSMS{}
	}
	return n.Messages[len(n.Messages)-1]
}

// WaitForMessages blocks until the notifier has seen at least n sends.
// Notifications are fired on goroutines, so tests need to wait briefly.
func (n *FakeNotifier) WaitForMessages(t *testing.T, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n.Count() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d notifications, got %d", want, n.Count())
}

// AssertNoMoreMessages verifies the count stays at want after a settle delay.
func (n *FakeNotifier) AssertNoMoreMessages(t *testing.T, want int) {
	t.Helper()
	time.Sleep(50 * time.Millisecond)
	if n.Count() != want {
		t.Errorf("expected %d notifications, got %d", want, n.Count())
	}
}

// ---------------- fake payment gateway ----------------

// FakeGateway satisfies the controllers' PaymentGateway interface.
type FakeGateway struct {
	Secret string

	VerifyResp *models.VerifyResponse
	VerifyErr  error

	InitResp *models.InitializeResponse
	InitErr  error

	mu          sync.Mutex
	verifyCalls []string
}

func (g *FakeGateway) VerifyTransaction(ctx context.Context, reference string) (*models.VerifyResponse, error) {
	g.mu.Lock()
	g.verifyCalls = append(g.verifyCalls, reference)
	g.mu.Unlock()
	if g.VerifyErr != nil {
		return nil, g.VerifyErr
	}
	return g.VerifyResp, nil
}

func (g *FakeGateway) InitializeTransaction(ctx context.Context, email string, amountMinor int64, callbackURL string, meta models.PaymentMetadata) (*models.InitializeResponse, error) {
	if g.InitErr != nil {
		return nil, g.InitErr
	}
	return g.InitResp, nil
}

func (g *FakeGateway) VerifySignature(body []byte, signature string) bool {
	return signature == Sign(g.Secret, body)
}

// Sign computes the webhook signature the way the gateway does.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ---------------- request helpers ----------------

// PerformRequest runs one request through a handler and returns the recorder.
func PerformRequest(h http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// PerformRaw sends a pre-encoded body, for webhook signature tests.
func PerformRaw(h http.Handler, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
