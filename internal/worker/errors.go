package worker

import "errors"

var errPanicked = errors.New("worker: job panicked")
