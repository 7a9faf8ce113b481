// Package firestore provides a Firestore-backed user repository for
// deployments that keep customer accounts in Firestore instead of Postgres.
package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-faster/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/user"
)

const userCollection = "users"

type userDocument struct {
	Name      string    `firestore:"name"`
	Phone     string    `firestore:"phone"`
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`
}

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository on top of a Firestore collection.
// Transport failures surface as user.ErrServiceUnavailable so callers can
// distinguish an outage from an unknown phone number.
type UserRepository struct {
	client *firestore.Client
}

// NewUserRepository returns a UserRepository using the given Firestore client.
func NewUserRepository(client *firestore.Client) (*UserRepository, error) {
	if client == nil {
		return nil, errors.New("user repository requires firestore client")
	}
	return &UserRepository{client: client}, nil
}

// GetByPhone looks up an account by exact phone number.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*user.User, error) {
	iter := r.client.Collection(userCollection).
		Where("phone", "==", phone).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, wrapLookupError(err)
	}

	var doc userDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Wrap(err, "decode user document")
	}

	return &user.User{
		ID:        snap.Ref.ID,
		Name:      doc.Name,
		Phone:     doc.Phone,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// Create registers a new account.
func (r *UserRepository) Create(ctx context.Context, firstName, lastName, phone string) (*user.User, error) {
	name := firstName
	if lastName != "" {
		name += " " + lastName
	}

	ref := r.client.Collection(userCollection).NewDoc()
	_, err := ref.Create(ctx, userDocument{Name: name, Phone: phone})
	if err != nil {
		return nil, errors.Wrap(err, "create user document")
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, wrapLookupError(err)
	}
	var doc userDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Wrap(err, "decode user document")
	}

	return &user.User{
		ID:        ref.ID,
		Name:      doc.Name,
		Phone:     doc.Phone,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// wrapLookupError maps transport-level failures to ErrServiceUnavailable.
func wrapLookupError(err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return errors.Wrap(user.ErrServiceUnavailable, err.Error())
	case codes.NotFound:
		return user.ErrNotFound
	}
	return errors.Wrap(err, "firestore lookup")
}
