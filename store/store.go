package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/xtocast/contest-voting-go/models"
)

var (
	// ErrNotFound is returned when a contest, category, nominee or
	// transaction does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateReference is returned by RecordPayment when a completed
	// transaction with the same gateway reference already exists. Callers
	// treat it as "already recorded", not as a failure.
	ErrDuplicateReference = errors.New("payment reference already recorded")
)

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	Status    string
	Reference string
}

// Store is the data-store client. The Mongo implementation is the production
// one; tests substitute a fake.
type Store interface {
	ListContests(ctx context.Context) ([]models.Contest, error)
	GetContestBySlug(ctx context.Context, slug string) (*models.Contest, error)
	GetContestByID(ctx context.Context, id primitive.ObjectID) (*models.Contest, error)

	ListCategories(ctx context.Context, contestID primitive.ObjectID) ([]models.Category, error)
	GetCategoryBySlug(ctx context.Context, contestID primitive.ObjectID, slug string) (*models.Category, error)

	ListNominees(ctx context.Context, categoryID primitive.ObjectID) ([]models.Nominee, error)
	GetNomineeBySlugOrCode(ctx context.Context, categoryID primitive.ObjectID, key string) (*models.Nominee, error)
	GetNomineeByID(ctx context.Context, id primitive.ObjectID) (*models.Nominee, error)
	CountNominees(ctx context.Context, categoryID primitive.ObjectID) (int64, error)

	CountVotes(ctx context.Context, nomineeID primitive.ObjectID) (int64, error)
	CountVotesByNominee(ctx context.Context, nomineeIDs []primitive.ObjectID) (map[primitive.ObjectID]int64, error)

	// CreateTransaction inserts a pending audit row at checkout
	// initialization time.
	CreateTransaction(ctx context.Context, txn *models.Transaction) error

	// RecordPayment durably records a confirmed payment: completes the
	// transaction row for txn.Reference, inserts the vote row and atomically
	// increments the nominee's counter by txn.VoteCount. The unique index on
	// the reference is the idempotency gate; a second call for the same
	// reference returns ErrDuplicateReference without writing anything.
	RecordPayment(ctx context.Context, txn *models.Transaction, vote *models.Vote) error

	ListTransactions(ctx context.Context, f TransactionFilter) ([]models.Transaction, error)

	// ListUnreconciled returns completed transactions whose vote row is
	// missing, i.e. payments confirmed upstream that were only partially
	// recorded and need manual attention.
	ListUnreconciled(ctx context.Context) ([]models.Transaction, error)
}
