package clients

import "errors"

// ErrNotFound is returned by a client when the remote service answers
// with its not-found shape. The Orchestrator maps it to ordererr.KindNotFound.
var ErrNotFound = errors.New("clients: resource not found")
