package botlist

import (
	"errors"
	"fmt"
)

var ErrUnauthorized = errors.New("botlist: token inválido")

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("botlist api status %d: %s", e.Status, e.Body)
}
