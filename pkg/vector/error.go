package vector

import "errors"

// ErrDimensions is returned when an embedding does not match the store's
// configured dimensions.
var ErrDimensions = errors.New("embedding dimensions mismatch")
