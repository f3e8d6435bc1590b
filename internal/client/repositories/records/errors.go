package records

import "errors"

var (
	ErrAlreadyExists     = errors.New("record already exists")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownIndex      = errors.New("unknown index")
	ErrMissingID         = errors.New("record has no id")
)
