package cache

import (
	"encoding/json"

	"newsfeed-engine/internal/domain/entity"
)

// EncodeItems serializes a news item list for storage. The format is opaque
// to callers but must round-trip entity.NewsItem losslessly, including
// timestamps and the Extra bag.
func EncodeItems(items []entity.NewsItem) (json.RawMessage, error) {
	return json.Marshal(items)
}

// DecodeItems deserializes a payload produced by EncodeItems.
func DecodeItems(payload json.RawMessage) ([]entity.NewsItem, error) {
	var items []entity.NewsItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, err
	}
	return items, nil
}
