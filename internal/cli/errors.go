package cli

import "fmt"

type unknownError struct {
	kind  string
	value string
}

func (e unknownError) Error() string {
	return fmt.Sprintf("%s desconhecida: %s", e.kind, e.value)
}

func errUnknown(kind, value string) error {
	return unknownError{kind: kind, value: value}
}
