package models

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// EncodeScript serialises a turn list into the JSON array stored in the
// session record's script column.
func EncodeScript(turns []Turn) ([]byte, error) {
	if turns == nil {
		turns = []Turn{}
	}
	b, err := sonic.Marshal(turns)
	if err != nil {
		return nil, fmt.Errorf("encode script: %w", err)
	}
	return b, nil
}

// DecodeScript is the inverse of EncodeScript. An empty payload decodes to an
// empty turn list; a turn with an unknown speaker or empty text is rejected.
func DecodeScript(b []byte) ([]Turn, error) {
	if len(b) == 0 {
		return []Turn{}, nil
	}
	var turns []Turn
	if err := sonic.Unmarshal(b, &turns); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	for i, t := range turns {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("decode script: turn %d: %w", i+1, err)
		}
	}
	if turns == nil {
		turns = []Turn{}
	}
	return turns, nil
}
