package types

// Event is the wire form of a program event: a type tag and flat string
// attributes, ready for JSON indexers.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
