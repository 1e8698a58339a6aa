// Package testutil starts the MongoDB container used by integration tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const MongoImage = "mongo:7"

// Mongo is a running MongoDB container plus a connected client.
// A zero Client means the container could not be started.
type Mongo struct {
	URI    string
	Client *mongo.Client

	container *mongodb.MongoDBContainer
	err       error
}

// StartMongo starts a container. Failures are recorded rather than returned so
// that packages can still run their unit tests without a Docker provider.
func StartMongo(ctx context.Context) (m *Mongo) {
	m = &Mongo{}
	defer func() {
		if r := recover(); r != nil {
			m.err = fmt.Errorf("docker provider unavailable: %v", r)
		}
	}()

	container, err := mongodb.Run(ctx, MongoImage)
	if err != nil {
		m.err = err
		return m
	}
	m.container = container

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		m.err = err
		return m
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		m.err = err
		return m
	}

	m.URI = uri
	m.Client = client
	return m
}

// Err reports why the container is unavailable
func (m *Mongo) Err() error {
	return m.err
}

// Database returns a freshly named database that is dropped when the test ends.
// The test is skipped when no container is running.
func (m *Mongo) Database(t *testing.T) *mongo.Database {
	t.Helper()
	if m == nil || m.Client == nil {
		var err error
		if m != nil {
			err = m.err
		}
		t.Skipf("mongodb container unavailable: %v", err)
	}

	db := m.Client.Database("test_" + strings.ReplaceAll(uuid.NewString(), "-", ""))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
	})
	return db
}

// Terminate disconnects the client and removes the container
func (m *Mongo) Terminate(ctx context.Context) error {
	if m.Client != nil {
		_ = m.Client.Disconnect(ctx)
	}
	if m.container == nil {
		return nil
	}
	return testcontainers.TerminateContainer(m.container)
}
