// Package store provides MongoDB-backed data access for the platform's
// aggregates. Every multi-member mutation is a single document update so
// correctness under concurrent requests rests on the store's per-document
// atomicity.
package store

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("document not found")

// ErrDuplicate is returned when an insert or update violates a unique index.
var ErrDuplicate = errors.New("duplicate key")

// Stores bundles the per-aggregate stores over one database handle.
type Stores struct {
	Users       *Users
	Communities *Communities
	Posts       *Posts
	Comments    *Comments
	Chats       *Chats
	Deletions   *Deletions
}

// New constructs all stores over db.
func New(db *mongo.Database) *Stores {
	return &Stores{
		Users:       NewUsers(db),
		Communities: NewCommunities(db),
		Posts:       NewPosts(db),
		Comments:    NewComments(db),
		Chats:       NewChats(db),
		Deletions:   NewDeletions(db),
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}
