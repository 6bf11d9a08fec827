package bridge

import (
	"errors"
	"fmt"

	"github.com/reglet-dev/wasm-loader/domain/entities"
)

var (
	// ErrInstanceBound is returned when SetInstance is called a second time.
	ErrInstanceBound = errors.New("bridge: instance already set")

	// ErrNilInstance is returned when SetInstance receives nil.
	ErrNilInstance = errors.New("bridge: nil instance")
)

// ThrownError carries a value thrown from a bridge function. It aborts the
// module call that reached the bridge and surfaces from that call's error.
type ThrownError struct {
	Value    any
	Function string
}

func (e *ThrownError) Error() string {
	if err, ok := e.Value.(error); ok {
		return fmt.Sprintf("bridge %s threw: %v", e.Function, err)
	}
	return fmt.Sprintf("bridge %s threw: %v", e.Function, e.Value)
}

func (e *ThrownError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ToErrorDetail implements errors.DetailedError.
func (e *ThrownError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "bridge", Code: e.Function}
}
