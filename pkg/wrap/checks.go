package wrap

import "math"

// Bounds used both here and by the synthesizer when it builds inline range
// guards. Keeping them in one place guarantees generated guards and these
// runtime checks accept exactly the same values.

// Int32Bounds returns the representable int32 range
func Int32Bounds() (min, max int64) { return math.MinInt32, math.MaxInt32 }

// Uint32Bounds returns the representable uint32 range
func Uint32Bounds() (min, max uint64) { return 0, math.MaxUint32 }

// Int64FromUintBound returns the largest uint64 an int64 can hold
func Int64FromUintBound() uint64 { return math.MaxInt64 }

// Float32Bound returns the largest finite float32 magnitude
func Float32Bound() float64 { return math.MaxFloat32 }

// CheckInt32 narrows a widened integer for an int32 destination field
func CheckInt32(v int64, field string, rev Revision) (int32, error) {
	min, max := Int32Bounds()
	if v < min || v > max {
		return 0, &RangeError{Value: v, Type: "int32", Min: min, Max: max, Field: field, Revision: rev}
	}
	return int32(v), nil
}

// CheckUint32 narrows a widened integer for a uint32 destination field
func CheckUint32(v uint64, field string, rev Revision) (uint32, error) {
	_, max := Uint32Bounds()
	if v > max {
		return 0, &RangeError{Value: v, Type: "uint32", Min: 0, Max: max, Field: field, Revision: rev}
	}
	return uint32(v), nil
}

// CheckInt64FromUint stores an unsigned value into a signed 64-bit field
func CheckInt64FromUint(v uint64, field string, rev Revision) (int64, error) {
	if v > Int64FromUintBound() {
		return 0, &RangeError{Value: v, Type: "int64", Min: uint64(0), Max: Int64FromUintBound(), Field: field, Revision: rev}
	}
	return int64(v), nil
}

// CheckUint64FromInt stores a signed value into an unsigned 64-bit field
func CheckUint64FromInt(v int64, field string, rev Revision) (uint64, error) {
	if v < 0 {
		return 0, &RangeError{Value: v, Type: "uint64", Min: uint64(0), Max: uint64(math.MaxUint64), Field: field, Revision: rev}
	}
	return uint64(v), nil
}

// CheckFloat32 narrows a double for a float destination field. Values whose
// magnitude exceeds the float32 range overflow to infinity on conversion,
// which is the rejection signal; infinities and NaN supplied by the caller
// pass through unchanged.
func CheckFloat32(v float64, field string, rev Revision) (float32, error) {
	f := float32(v)
	if math.IsInf(float64(f), 0) && !math.IsInf(v, 0) {
		return 0, &RangeError{Value: v, Type: "float", Min: -Float32Bound(), Max: Float32Bound(), Field: field, Revision: rev}
	}
	return f, nil
}
