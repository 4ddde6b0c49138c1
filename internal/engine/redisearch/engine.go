// Package redisearch executes engine queries against a Redis FT index with
// HNSW vector support. Dotted record paths map to flattened field aliases in
// the index schema (dots replaced with underscores).
package redisearch

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/parcelgrid/propsearch/internal/engine"
)

// VectorField is the index alias of the description embedding field. KNN
// results carry the distance in the derived "__<field>_score" attribute.
const VectorField = "vector"

var vectorScoreField = "__" + VectorField + "_score"

// Compile-time check: Engine satisfies the collaborator contracts.
var (
	_ engine.Engine = (*Engine)(nil)
	_ engine.Pinger = (*Engine)(nil)
)

// Config holds connection and index settings.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	Index    string
}

// Engine runs FT.SEARCH queries via rueidis.
type Engine struct {
	client rueidis.Client
	index  string
}

// New creates a redisearch engine.
func New(cfg Config) (*Engine, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("index name is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Engine{client: client, index: cfg.Index}, nil
}

// NewForTest creates an Engine with the provided rueidis client (test-only).
func NewForTest(c rueidis.Client, index string) *Engine {
	return &Engine{client: c, index: index}
}

// Ping checks connectivity.
func (e *Engine) Ping(ctx context.Context) error {
	cmd := e.client.B().Ping().Build()
	if err := e.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (e *Engine) Close() {
	e.client.Close()
}

// Execute runs a query. Hybrid queries pre-filter KNN candidates with the
// plan's conditions; keyword-only queries fall back to "match everything"
// when the plan is empty.
func (e *Engine) Execute(ctx context.Context, q *engine.Query) (*engine.Result, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	if q.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.Timeout)
		defer cancel()
	}

	args, hybrid := buildArgs(e.index, q)

	cmd := e.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := e.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("ft.search: %w", err)
	}

	if hybrid {
		return parseKNNResult(raw)
	}
	return parseScoredResult(raw)
}

// buildArgs renders the FT.SEARCH argument list. The second return reports
// whether a KNN clause was included (which changes the reply shape).
func buildArgs(index string, q *engine.Query) ([]string, bool) {
	filterStr := buildPlanFilter(q.Plan)
	hybrid := len(q.Vector) > 0

	var queryStr string
	if hybrid {
		knnPart := fmt.Sprintf("[KNN %d @%s $BLOB]", q.CandidatePool, VectorField)
		if filterStr != "" {
			queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
		} else {
			queryStr = "*=>" + knnPart
		}
	} else {
		queryStr = filterStr
		if queryStr == "" {
			queryStr = "*"
		}
	}

	args := []string{index, queryStr}

	if !hybrid {
		args = append(args, "WITHSCORES")
	}

	if sorts := q.Plan.Sort(); len(sorts) > 0 {
		s := sorts[0]
		args = append(args, "SORTBY", fieldAlias(s.Field()), orderKeyword(s))
	}

	args = append(args, "LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit))

	if q.Timeout > 0 {
		args = append(args, "TIMEOUT", strconv.FormatInt(q.Timeout.Milliseconds(), 10))
	}

	if hybrid {
		args = append(args, "PARAMS", "2", "BLOB", vectorToBlob(q.Vector))
	}

	args = append(args, "DIALECT", "2")
	return args, hybrid
}
