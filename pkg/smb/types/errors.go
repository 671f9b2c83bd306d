package types

import "errors"

// ErrBufferTooSmall is returned by Unmarshal when a response body is shorter
// than its fixed structure. Codec failures are fatal for the connection.
var ErrBufferTooSmall = errors.New("buffer too small for structure")
