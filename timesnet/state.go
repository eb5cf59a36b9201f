package timesnet

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-timesnet/tensor"
)

var (
	ErrMissingParameter = errors.New("parameter missing from state")
	ErrParameterShape   = errors.New("parameter shape does not match model")
)

// State is the serializable form of a model.
type State struct {
	Options *Options                  `json:"options"`
	Params  map[string]*tensor.Tensor `json:"params"`
}

// State snapshots the options and a copy of every parameter.
func (m *Model) State() *State {
	opt := m.Options()
	s := &State{
		Options: &opt,
		Params:  make(map[string]*tensor.Tensor),
	}
	for _, p := range m.Parameters() {
		s.Params[p.Name] = p.Value.Clone()
	}
	return s
}

// FromState rebuilds a model and loads every parameter from the state.
func FromState(s *State) (*Model, error) {
	if s == nil {
		return nil, ErrUninitializedModel
	}
	m, err := New(s.Options)
	if err != nil {
		return nil, err
	}
	for _, p := range m.Parameters() {
		v, exists := s.Params[p.Name]
		if !exists || v == nil {
			return nil, fmt.Errorf("%s, %w", p.Name, ErrMissingParameter)
		}
		if !v.SameShape(p.Value) {
			return nil, fmt.Errorf("%s has shape %v, expected %v, %w", p.Name, v.Shape(), p.Value.Shape(), ErrParameterShape)
		}
		copy(p.Value.Data(), v.Data())
	}
	return m, nil
}
