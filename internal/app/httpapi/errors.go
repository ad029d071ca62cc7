package httpapi

import "fmt"

var (
	ErrInvalidParameter = fmt.Errorf("invalid query parameter")
	ErrTruckNotFound    = fmt.Errorf("truck not found")
	ErrUnknownSPN       = fmt.Errorf("unknown SPN")
)
