package model_selection

import (
	"github.com/YuminosukeSato/gridcv/core/model"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
)

// GridParam is one named hyper-parameter and its candidate values.
type GridParam struct {
	Name   string
	Values []interface{}
}

// Grid is the Cartesian product of its parameters' candidate values.
// Points are enumerated with the last parameter varying fastest.
type Grid struct {
	params []GridParam
}

// NewGrid builds and validates a grid. Parameter order is kept.
func NewGrid(params ...GridParam) (*Grid, error) {
	g := &Grid{params: make([]GridParam, len(params))}
	for i, p := range params {
		values := make([]interface{}, len(p.Values))
		for j, v := range p.Values {
			values[j] = model.NormalizeValue(v)
		}
		g.params[i] = GridParam{Name: p.Name, Values: values}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate reports a malformed grid: no parameters, an unnamed or duplicate
// parameter, an empty candidate list or a value that is not a number,
// string or bool.
func (g *Grid) Validate() error {
	if g == nil || len(g.params) == 0 {
		return errors.NewInvalidConfigurationError("Grid", "grid has no parameters")
	}
	seen := make(map[string]struct{}, len(g.params))
	for _, p := range g.params {
		if p.Name == "" {
			return errors.NewInvalidConfigurationError("Grid", "parameter with empty name")
		}
		if _, dup := seen[p.Name]; dup {
			return errors.NewInvalidConfigurationErrorf("Grid", "duplicate parameter %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		if len(p.Values) == 0 {
			return errors.NewInvalidConfigurationErrorf("Grid", "parameter %q has no candidate values", p.Name)
		}
		for _, v := range p.Values {
			switch v.(type) {
			case float64, int, string, bool:
			default:
				return errors.NewInvalidConfigurationErrorf("Grid", "parameter %q has unsupported value %v (%T)", p.Name, v, v)
			}
		}
	}
	return nil
}

// ValidateFor checks that every grid parameter is accepted by fitter.
func (g *Grid) ValidateFor(fitter model.ModelFitter) error {
	if err := g.Validate(); err != nil {
		return err
	}
	known := make(map[string]struct{})
	for _, name := range fitter.ParamNames() {
		known[name] = struct{}{}
	}
	for _, p := range g.params {
		if _, ok := known[p.Name]; !ok {
			return errors.NewInvalidConfigurationErrorf("Grid", "%s does not accept parameter %q (accepted: %v)", fitter.Name(), p.Name, fitter.ParamNames())
		}
	}
	return nil
}

// Names returns the parameter names in declaration order.
func (g *Grid) Names() []string {
	names := make([]string, len(g.params))
	for i, p := range g.params {
		names[i] = p.Name
	}
	return names
}

// Params returns a copy of the grid's parameters.
func (g *Grid) Params() []GridParam {
	out := make([]GridParam, len(g.params))
	copy(out, g.params)
	return out
}

// Len returns the number of points, the product of the candidate list sizes.
func (g *Grid) Len() int {
	if len(g.params) == 0 {
		return 0
	}
	n := 1
	for _, p := range g.params {
		n *= len(p.Values)
	}
	return n
}

// Point returns the i-th point in enumeration order.
func (g *Grid) Point(i int) model.Params {
	point := make(model.Params, len(g.params))
	for j := len(g.params) - 1; j >= 0; j-- {
		values := g.params[j].Values
		point[j] = model.Param{Name: g.params[j].Name, Value: values[i%len(values)]}
		i /= len(values)
	}
	return point
}

// Points enumerates every point.
func (g *Grid) Points() []model.Params {
	points := make([]model.Params, g.Len())
	for i := range points {
		points[i] = g.Point(i)
	}
	return points
}
