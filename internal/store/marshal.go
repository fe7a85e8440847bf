package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/tanglegraph/internal/canon"
	"github.com/roach88/tanglegraph/internal/graph"
)

// marshalIDs converts a node list to canonical JSON TEXT for storage.
func marshalIDs(ids []graph.NodeID) (string, error) {
	arr := make(canon.Array, len(ids))
	for i, id := range ids {
		arr[i] = canon.Int(id)
	}
	data, err := canon.Marshal(arr)
	if err != nil {
		return "", fmt.Errorf("marshal node ids: %w", err)
	}
	return string(data), nil
}

// unmarshalIDs parses a stored node list. Empty TEXT is an empty list.
func unmarshalIDs(data string) ([]graph.NodeID, error) {
	ids := []graph.NodeID{}
	if data == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal node ids: %w", err)
	}
	return ids, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
