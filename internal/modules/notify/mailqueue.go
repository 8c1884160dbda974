package notify

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

// MailCollection is the collection the mail relay consumes.
const MailCollection = "mail"

type FirestoreMailQueue struct {
	client *firestore.Client
}

func NewFirestoreMailQueue(client *firestore.Client) *FirestoreMailQueue {
	return &FirestoreMailQueue{client: client}
}

func (q *FirestoreMailQueue) Enqueue(ctx context.Context, m Mail) error {
	if _, _, err := q.client.Collection(MailCollection).Add(ctx, m); err != nil {
		return fmt.Errorf("enqueue mail: %w", err)
	}
	return nil
}
