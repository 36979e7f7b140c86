package enumgen

import "errors"

// ErrConfiguration is returned for inputs that cannot produce a valid
// module set. Nothing is written when it is returned.
var ErrConfiguration = errors.New("invalid enum configuration")
