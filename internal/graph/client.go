// Package graph owns the Neo4j driver used by the graph mirror.
package graph

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Client wraps the Neo4j driver. One instance is shared by the mirror writer and reader.
type Client struct {
	Driver neo4j.DriverWithContext
}

// NewClient creates the driver. It does not dial; call VerifyConnectivity for that.
func NewClient(uri, user, password string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &Client{Driver: driver}, nil
}

// VerifyConnectivity checks that the graph store answers within 5 seconds.
func (c *Client) VerifyConnectivity(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.Driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j connectivity: %w", err)
	}
	log.Println("Connected to Neo4j successfully")
	return nil
}

// Close releases every pooled connection.
func (c *Client) Close(ctx context.Context) error {
	return c.Driver.Close(ctx)
}
