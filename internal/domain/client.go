package domain

import "time"

// Client is one paired extension install. Pairing exchanges the
// daemon's pairing code for an access token; the client record tracks
// the install across token refreshes.
type Client struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Touch updates the last-seen timestamp.
func (c *Client) Touch() {
	c.LastSeenAt = time.Now()
}
