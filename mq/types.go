package mq

import (
	"encoding/json"
	"fmt"
)

// Message is a chain tip event.
type Message struct {
	Chain  string `json:"chain"`
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}

func encodeMessage(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Message: %w", err)
	}
	return data, nil
}

func decodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("failed to unmarshal Message: %w", err)
	}
	return m, nil
}
