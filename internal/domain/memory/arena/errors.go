package arena

import "errors"

// ErrUnknownApp means the app id has no live registration. Operations
// refusing with it leave arena state untouched.
var ErrUnknownApp = errors.New("arena: app not registered")
