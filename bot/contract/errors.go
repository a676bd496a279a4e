package contract

import "errors"

var (
	ErrConnect          = errors.New("transport connect failed")
	ErrProfileLookup    = errors.New("identity profile lookup failed")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrWorkspaceMissing = errors.New("dialogue workspace not found")
	ErrBadCartRank      = errors.New("cart item rank is not a number")
)
