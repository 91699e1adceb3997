package contracts

import "errors"

var ErrMaxReconnects = errors.New("subscription reached max reconnect attempts")
