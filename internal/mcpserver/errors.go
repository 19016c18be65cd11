package mcpserver

import "errors"

// ErrMissingKnowledge is returned when the knowledge service is not provided.
var ErrMissingKnowledge = errors.New("mcpserver: knowledge service is required")
