package models

import "time"

// Bucket is the descriptor returned for each bucket visible to the configured
// credentials. Values are copied from the storage provider untouched.
type Bucket struct {
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
	Region  string    `json:"region,omitempty"`
}
