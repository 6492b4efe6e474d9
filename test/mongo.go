// Package test provides testing utilities for the pixelgrid backend, such as
// the MongoDB test container.
package test

import (
	"context"
	"fmt"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.vocdoni.io/dvote/util"
)

const (
	// MongoImage is the MongoDB image used by the test container.
	MongoImage = "mongo:7"
	// MongoPort is the port MongoDB listens on inside the container.
	MongoPort = "27017/tcp"
)

// MongoContainer is a running MongoDB test container.
type MongoContainer struct {
	testcontainers.Container
}

// StartMongoContainer starts a MongoDB container for testing. The caller must
// terminate it.
func StartMongoContainer(ctx context.Context) (*MongoContainer, error) {
	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        MongoImage,
				ExposedPorts: []string{MongoPort},
				WaitingFor: wait.ForAll(
					wait.ForLog("Waiting for connections"),
					wait.ForListeningPort(nat.Port(MongoPort)),
				),
			},
			Started: true,
		})
	if err != nil {
		return nil, err
	}
	return &MongoContainer{Container: container}, nil
}

// ConnectionString returns the mongodb:// URI of the container.
func (c *MongoContainer) ConnectionString(ctx context.Context) (string, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := c.MappedPort(ctx, nat.Port(MongoPort))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("mongodb://%s:%s", host, port.Port()), nil
}

// RandomDatabaseName returns a unique database name so test runs don't share
// state.
func RandomDatabaseName() string {
	return fmt.Sprintf("pixelgrid-test-%s", util.RandomHex(8))
}
