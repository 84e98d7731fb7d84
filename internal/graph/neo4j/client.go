package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/biokg-agent/backend/pkg/circuitbreaker"
	"github.com/biokg-agent/backend/pkg/logger"
	"github.com/biokg-agent/backend/pkg/retry"
)

// Client wraps the Neo4j driver behind the narrow contract the pipeline
// consumes: opaque Cypher execution plus schema introspection. The query
// language itself is treated as a string contract with the store.
type Client struct {
	driver       neo4j.DriverWithContext
	database     string
	cb           *circuitbreaker.CircuitBreaker
	retryConfig  retry.Config
	queryTimeout time.Duration
}

// SchemaInfo describes the labels, relationship types and per-label
// properties present in the backing graph.
type SchemaInfo struct {
	NodeLabels        []string            `json:"node_labels"`
	RelationshipTypes []string            `json:"relationship_types"`
	NodeProperties    map[string][]string `json:"node_properties"`
}

func NewClient(uri, username, password, database string, queryTimeout time.Duration) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(username, password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}

	cb := circuitbreaker.NewCircuitBreaker("neo4j", circuitbreaker.Config{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          20 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	if queryTimeout <= 0 {
		queryTimeout = 10 * time.Second
	}

	logger.Info("Neo4j client initialized", zap.String("uri", uri))

	return &Client{
		driver:       driver,
		database:     database,
		cb:           cb,
		retryConfig:  retryConfig,
		queryTimeout: queryTimeout,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Ping reports whether the store is reachable. Used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

// ExecuteQuery runs a parameterized Cypher query and flattens the result
// records into maps keyed by the RETURN column names. The call is bounded by
// the configured query timeout and protected by retry and circuit breaking.
func (c *Client) ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	var rows []map[string]any

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
			defer session.Close(ctx)

			result, err := session.Run(ctx, query, params)
			if err != nil {
				return fmt.Errorf("failed to run query: %w", err)
			}

			rows = rows[:0]
			for result.Next(ctx) {
				record := result.Record()
				row := make(map[string]any, len(record.Keys))
				for i, key := range record.Keys {
					row[key] = record.Values[i]
				}
				rows = append(rows, row)
			}

			if err := result.Err(); err != nil {
				return fmt.Errorf("error iterating results: %w", err)
			}

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	logger.Debug("Graph query executed",
		zap.Int("rows", len(rows)),
		zap.Int("params", len(params)),
	)

	return rows, nil
}

// ValidateQuery checks a Cypher query with EXPLAIN, without executing it.
func (c *Client) ValidateQuery(ctx context.Context, query string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	result, err := session.Run(ctx, "EXPLAIN "+query, nil)
	if err != nil {
		return false
	}
	_, err = result.Consume(ctx)
	return err == nil
}

// GetSchemaInfo introspects labels, relationship types and the properties of
// one sampled node per label. Labels with no instances are omitted from
// NodeProperties.
func (c *Client) GetSchemaInfo(ctx context.Context) (*SchemaInfo, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	labels, err := c.collectStrings(ctx, session,
		"CALL db.labels() YIELD label RETURN collect(label) AS names")
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}

	relTypes, err := c.collectStrings(ctx, session,
		"CALL db.relationshipTypes() YIELD relationshipType RETURN collect(relationshipType) AS names")
	if err != nil {
		return nil, fmt.Errorf("failed to list relationship types: %w", err)
	}

	nodeProperties := make(map[string][]string, len(labels))
	for _, label := range labels {
		query := fmt.Sprintf("MATCH (n:%s) RETURN keys(n) AS props LIMIT 1", label)
		result, err := session.Run(ctx, query, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to sample properties for %s: %w", label, err)
		}
		record, err := result.Single(ctx)
		if err != nil {
			continue
		}
		props, _ := record.Get("props")
		if list, ok := props.([]any); ok {
			names := make([]string, 0, len(list))
			for _, p := range list {
				if s, ok := p.(string); ok {
					names = append(names, s)
				}
			}
			nodeProperties[label] = names
		}
	}

	logger.Info("Graph schema discovered",
		zap.Int("labels", len(labels)),
		zap.Int("relationship_types", len(relTypes)),
	)

	return &SchemaInfo{
		NodeLabels:        labels,
		RelationshipTypes: relTypes,
		NodeProperties:    nodeProperties,
	}, nil
}

// GetPropertyValues returns up to limit distinct values of a property on a
// label, used to seed LLM prompts with values that actually exist.
func (c *Client) GetPropertyValues(ctx context.Context, label, property string, limit int) ([]any, error) {
	if limit <= 0 {
		limit = 20
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	query := fmt.Sprintf(
		"MATCH (n:%s) WHERE n.%s IS NOT NULL RETURN DISTINCT n.%s AS value LIMIT %d",
		label, property, property, limit,
	)

	result, err := session.Run(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get property values: %w", err)
	}

	var values []any
	for result.Next(ctx) {
		value, _ := result.Record().Get("value")
		values = append(values, value)
	}

	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return values, nil
}

// EntityNames lists every value of a name property on a label, feeding the
// entity recognizer vocabulary.
func (c *Client) EntityNames(ctx context.Context, label, property string) ([]string, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	query := fmt.Sprintf(
		"MATCH (n:%s) WHERE n.%s IS NOT NULL RETURN DISTINCT n.%s AS name ORDER BY name",
		label, property, property,
	)

	result, err := session.Run(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s names: %w", label, err)
	}

	var names []string
	for result.Next(ctx) {
		value, _ := result.Record().Get("name")
		if name, ok := value.(string); ok {
			names = append(names, name)
		}
	}

	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return names, nil
}

func (c *Client) collectStrings(ctx context.Context, session neo4j.SessionWithContext, query string) ([]string, error) {
	result, err := session.Run(ctx, query, nil)
	if err != nil {
		return nil, err
	}

	record, err := result.Single(ctx)
	if err != nil {
		return nil, err
	}

	value, _ := record.Get("names")
	list, ok := value.([]any)
	if !ok {
		return nil, nil
	}

	names := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}
