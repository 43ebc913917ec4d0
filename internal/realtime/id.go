package realtime

import gonanoid "github.com/matoous/go-nanoid/v2"

// NewChannelId generates a unique channel identifier
func NewChannelId() (string, error) {
	return gonanoid.New()
}
