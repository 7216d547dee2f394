package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/safetyspeak/backend/internal/models"
)

// DocumentStore is the interface that wraps methods for JSON document data access
type DocumentStore interface {
	// Get retrieves the body of a document.
	//
	// Returns ErrDocumentNotFound if the document does not exist.
	Get(ctx context.Context, collection, id string) ([]byte, error)
	// Set writes the whole body of a document, creating it if missing.
	Set(ctx context.Context, collection, id string, body []byte) error
	// Create inserts a new document.
	//
	// Returns ErrDocumentExists if the document already exists.
	Create(ctx context.Context, collection, id string, body []byte) error
	// Update applies field updates to an existing document.
	Update(ctx context.Context, collection, id string, fields models.FieldUpdates) error
	// Transact runs an atomic read-modify-write cycle on a single document.
	//
	// Please reference documentRepository.Transact for the exact semantics.
	Transact(ctx context.Context, collection, id string, fn func(body []byte) (models.FieldUpdates, error)) ([]byte, error)
	// DeleteByPrefix removes every document of a collection whose ID starts with the prefix.
	DeleteByPrefix(ctx context.Context, collection, prefix string) (int64, error)
}

// UsersCollection is the collection that keeps user account documents
const UsersCollection = "users"

type userRepository struct {
	store DocumentStore
}

// NewUserRepository creates a new user repository
func NewUserRepository(store DocumentStore) *userRepository {
	return &userRepository{
		store: store,
	}
}

// GetByID retrieves a user account by its ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*models.UserAccount, error) {
	body, err := r.store.Get(ctx, UsersCollection, id)
	if err != nil {
		return nil, err
	}
	return decodeAccount(id, body)
}

// Create inserts a new user account
func (r *userRepository) Create(ctx context.Context, account *models.UserAccount) error {
	body, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}
	return r.store.Create(ctx, UsersCollection, account.ID, body)
}

// Update applies field updates to a user account
func (r *userRepository) Update(ctx context.Context, id string, fields models.FieldUpdates) error {
	return r.store.Update(ctx, UsersCollection, id, fields)
}

// Transact runs an atomic read-modify-write cycle on a user account.
//
// "fn" receives the current account and returns the fields to change.
// Returns the account as it is after the transaction.
func (r *userRepository) Transact(ctx context.Context, id string, fn func(account *models.UserAccount) (models.FieldUpdates, error)) (*models.UserAccount, error) {
	body, err := r.store.Transact(ctx, UsersCollection, id, func(body []byte) (models.FieldUpdates, error) {
		account, err := decodeAccount(id, body)
		if err != nil {
			return nil, err
		}
		return fn(account)
	})
	if err != nil {
		return nil, err
	}
	return decodeAccount(id, body)
}

func decodeAccount(id string, body []byte) (*models.UserAccount, error) {
	var account models.UserAccount
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	account.ID = id
	if account.Topics == nil {
		account.Topics = map[string]models.TopicProgress{}
	}
	for topicID, progress := range account.Topics {
		if progress.CompletedDays == nil {
			progress.CompletedDays = []int{}
		}
		if progress.QuizScores == nil {
			progress.QuizScores = map[int]int{}
		}
		account.Topics[topicID] = progress
	}
	return &account, nil
}
