package core

import "errors"

// Block-level validation errors. Unlike the per-transaction sentinels in
// state_transition.go, these abort the whole block: the header or one of
// its mandatory system contracts is malformed, not just one transaction.
var ErrMissingBeaconRoot = errors.New("core: cancun+ block missing parent beacon block root")
