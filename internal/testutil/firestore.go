// Package testutil provides shared helpers for integration tests.
// Helpers skip the calling test when the backing service is not configured,
// so unit tests run without an emulator or database.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
)

// NewFirestore returns a client for the Firestore emulator named by
// FIRESTORE_EMULATOR_HOST. Each call uses a fresh project id so tests do not
// see each other's documents. The test is skipped when the variable is unset.
func NewFirestore(t *testing.T) *firestore.Client {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set; skipping Firestore integration test")
	}

	project := fmt.Sprintf("peer-ride-test-%d", time.Now().UnixNano())
	client, err := firestore.NewClient(context.Background(), project)
	if err != nil {
		t.Fatalf("testutil.NewFirestore: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// RequireDSN returns TEST_DATABASE_URL or skips the test.
func RequireDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database integration test")
	}
	return dsn
}

// RequireRedis returns TEST_REDIS_ADDR or skips the test.
func RequireRedis(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping Redis integration test")
	}
	return addr
}
