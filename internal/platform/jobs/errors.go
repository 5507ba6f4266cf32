package jobs

import "errors"

var ErrUnknownJob = errors.New("unknown job type")
