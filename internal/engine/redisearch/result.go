package redisearch

import (
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/parcelgrid/propsearch/internal/engine"
)

// parseKNNResult parses a 2-stride reply: [total, key1, fields1, ...].
// The vector distance arrives as a field and is converted to a similarity
// score clamped to [0,1].
func parseKNNResult(raw []rueidis.RedisMessage) (*engine.Result, error) {
	if len(raw) == 0 {
		return &engine.Result{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &engine.Result{}, nil
	}

	hits := make([]engine.Hit, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		hit := engine.Hit{ID: key}
		hit.Fields = parseFieldPairs(fields)
		if distStr, ok := hit.Fields[vectorScoreField]; ok {
			if d, err := strconv.ParseFloat(distStr, 64); err == nil {
				hit.Score = max(0, 1.0-d) // cosine distance → similarity
			}
			delete(hit.Fields, vectorScoreField)
		}
		hits = append(hits, hit)
	}

	return &engine.Result{Hits: hits, Total: int(total)}, nil
}

// parseScoredResult parses a WITHSCORES 3-stride reply:
// [total, key1, score1, fields1, ...].
func parseScoredResult(raw []rueidis.RedisMessage) (*engine.Result, error) {
	if len(raw) == 0 {
		return &engine.Result{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &engine.Result{}, nil
	}

	hits := make([]engine.Hit, 0, (len(raw)-1)/3)
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}
		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}
		hits = append(hits, engine.Hit{ID: key, Score: score, Fields: parseFieldPairs(fields)})
	}

	return &engine.Result{Hits: hits, Total: int(total)}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}
