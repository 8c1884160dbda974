package notify

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UsersCollection holds per-user profile documents keyed by uid.
const UsersCollection = "users"

// EmailLookup asks the identity provider for a user's email.
type EmailLookup func(ctx context.Context, uid string) (string, error)

type userDoc struct {
	Email    string `firestore:"email"`
	Nickname string `firestore:"nickname"`
	FCMToken string `firestore:"fcmToken"`
}

// FirestoreDirectory reads users/{uid} and falls back to the identity
// provider when the profile has no email.
type FirestoreDirectory struct {
	client   *firestore.Client
	fallback EmailLookup
}

func NewFirestoreDirectory(client *firestore.Client, fallback EmailLookup) *FirestoreDirectory {
	return &FirestoreDirectory{client: client, fallback: fallback}
}

func (d *FirestoreDirectory) Lookup(ctx context.Context, uid string) (Recipient, error) {
	if uid == "" {
		return Recipient{}, errors.New("lookup: empty uid")
	}
	rec := Recipient{UID: uid}

	snap, err := d.client.Collection(UsersCollection).Doc(uid).Get(ctx)
	switch {
	case err == nil:
		var u userDoc
		if err := snap.DataTo(&u); err != nil {
			return Recipient{}, fmt.Errorf("decode user %s: %w", uid, err)
		}
		rec.Email, rec.Nickname, rec.FCMToken = u.Email, u.Nickname, u.FCMToken
	case status.Code(err) == codes.NotFound:
		// no profile; the identity provider may still know the email
	default:
		return Recipient{}, fmt.Errorf("get user %s: %w", uid, err)
	}

	if rec.Email == "" && d.fallback != nil {
		email, err := d.fallback(ctx, uid)
		if err != nil {
			return rec, fmt.Errorf("identity lookup %s: %w", uid, err)
		}
		rec.Email = email
	}
	return rec, nil
}
