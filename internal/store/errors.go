package store

import "errors"

var ErrHistoryDisabled = errors.New("run history is disabled")
