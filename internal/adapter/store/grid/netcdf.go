// Package grid reads the per-group annual and chlorophyll-a NetCDF grids.
package grid

import (
	"errors"
	"fmt"

	"github.com/fhs/go-netcdf/netcdf"
)

// Variable names used by the group grid files.
const (
	LatVarName  = "lat"
	LonVarName  = "lon"
	TimeVarName = "time"
	ChlVarName  = "chlor_a"
)

// ErrMissingVariable is returned when a required NetCDF variable is absent.
var ErrMissingVariable = errors.New("missing NetCDF variable")

// lookupVar returns the named variable or ErrMissingVariable.
func lookupVar(nc netcdf.Dataset, name string) (netcdf.Var, error) {
	v, err := nc.Var(name)
	if err != nil {
		return netcdf.Var{}, fmt.Errorf("%w: %s", ErrMissingVariable, name)
	}
	return v, nil
}

// readCoord reads a whole 1D coordinate variable.
func readCoord(nc netcdf.Dataset, name string) ([]float64, error) {
	v, err := lookupVar(nc, name)
	if err != nil {
		return nil, err
	}
	data, err := readFloat64Var(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// getFillValue returns the _FillValue or missing_value attribute if present as float64.
func getFillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		a := v.Attr(name)
		if n, err := a.Len(); err != nil || n == 0 {
			continue
		}
		buf64 := make([]float64, 1)
		if err := a.ReadFloat64s(buf64); err == nil {
			return buf64[0], true
		}
		buf32 := make([]float32, 1)
		if err := a.ReadFloat32s(buf32); err == nil {
			return float64(buf32[0]), true
		}
		bufi := make([]int32, 1)
		if err := a.ReadInt32s(bufi); err == nil {
			return float64(bufi[0]), true
		}
	}
	return 0, false
}

// readFloat64Var reads a 1D numeric variable as float64.
func readFloat64Var(v netcdf.Var) ([]float64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected 1D variable, got %dD", len(dims))
	}
	length, err := dims[0].Len()
	if err != nil {
		return nil, err
	}
	return readSlab(v, []uint64{0}, []uint64{length})
}

// readSlab reads the hyperslab [start, start+count) of a numeric variable as
// float64, whatever its stored type.
func readSlab(v netcdf.Var, start, count []uint64) ([]float64, error) {
	total := uint64(1)
	for _, c := range count {
		total *= c
	}

	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}

	out := make([]float64, total)
	switch t {
	case netcdf.DOUBLE:
		if err := v.ReadFloat64Slice(out, start, count); err != nil {
			return nil, err
		}
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if err := v.ReadFloat32Slice(tmp, start, count); err != nil {
			return nil, err
		}
		for i, val := range tmp {
			out[i] = float64(val)
		}
	case netcdf.INT:
		tmp := make([]int32, total)
		if err := v.ReadInt32Slice(tmp, start, count); err != nil {
			return nil, err
		}
		for i, val := range tmp {
			out[i] = float64(val)
		}
	case netcdf.INT64:
		tmp := make([]int64, total)
		if err := v.ReadInt64Slice(tmp, start, count); err != nil {
			return nil, err
		}
		for i, val := range tmp {
			out[i] = float64(val)
		}
	case netcdf.SHORT:
		tmp := make([]int16, total)
		if err := v.ReadInt16Slice(tmp, start, count); err != nil {
			return nil, err
		}
		for i, val := range tmp {
			out[i] = float64(val)
		}
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
	return out, nil
}

func minMax(values []float64) (float64, float64, error) {
	if len(values) == 0 {
		return 0, 0, errors.New("empty coordinate")
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, nil
}
