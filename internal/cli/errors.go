package cli

import (
	"errors"
	"fmt"
	"strconv"

	"taskflow-cli/internal/api"
)

var errNotLoggedIn = errors.New("not logged in; run `taskflow login`")

type notFoundError struct {
	kind string
	id   int
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.kind, e.id)
}

func errNotFound(kind string, id int) error {
	return notFoundError{kind: kind, id: id}
}

// orNotFound maps a backend 404 onto notFoundError.
func orNotFound(err error, kind string, id int) error {
	if api.IsNotFound(err) {
		return errNotFound(kind, id)
	}
	return err
}

func parseID(kind, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", kind, s)
	}
	return n, nil
}
