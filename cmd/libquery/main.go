// Command libquery builds a C-shared library exporting the
// geomodelgrids_squery_* query symbols. It is the thinnest possible
// layer: every //export function below marshals C arguments into Go,
// calls straight into internal/chandle, and marshals the result back,
// with no semantics of its own.
package main

/*
#include <stdlib.h>
*/
import "C"

import "unsafe"

import (
	"github.com/equinor/geomodelgrids-query/internal/chandle"
)

//export geomodelgrids_squery_create
func geomodelgrids_squery_create() unsafe.Pointer {
	h := chandle.Create()
	return unsafe.Pointer(h) //nolint:govet
}

//export geomodelgrids_squery_destroy
func geomodelgrids_squery_destroy(handle *unsafe.Pointer) {
	if handle == nil || *handle == nil {
		return
	}
	chandle.Destroy(uintptr(*handle))
	*handle = nil
}

//export geomodelgrids_squery_initialize
func geomodelgrids_squery_initialize(
	handle unsafe.Pointer,
	modelFilenames **C.char, numModels C.size_t,
	valueNames **C.char, numValues C.size_t,
	inputCRS *C.char,
) C.int {
	files := cStringArray(modelFilenames, int(numModels))
	values := cStringArray(valueNames, int(numValues))
	crs := C.GoString(inputCRS)
	status := chandle.Initialize(uintptr(handle), files, values, crs)
	return C.int(status)
}

//export geomodelgrids_squery_setSquashMinElev
func geomodelgrids_squery_setSquashMinElev(handle unsafe.Pointer, value C.double) C.int {
	return C.int(chandle.SetSquashMinElev(uintptr(handle), float64(value)))
}

//export geomodelgrids_squery_setSquashing
func geomodelgrids_squery_setSquashing(handle unsafe.Pointer, value C.int) C.int {
	return C.int(chandle.SetSquashing(uintptr(handle), value != 0))
}

//export geomodelgrids_squery_queryElevation
func geomodelgrids_squery_queryElevation(handle unsafe.Pointer, x, y C.double) C.double {
	return C.double(chandle.QueryElevation(uintptr(handle), float64(x), float64(y)))
}

//export geomodelgrids_squery_query
func geomodelgrids_squery_query(handle unsafe.Pointer, values *C.double, numValues C.size_t, x, y, z C.double) C.int {
	out := make([]float64, int(numValues))
	status := chandle.Query(uintptr(handle), out, float64(x), float64(y), float64(z))
	dst := unsafe.Slice((*C.double)(unsafe.Pointer(values)), int(numValues))
	for i, v := range out {
		dst[i] = C.double(v)
	}
	return C.int(status)
}

//export geomodelgrids_squery_finalize
func geomodelgrids_squery_finalize(handle unsafe.Pointer) C.int {
	return C.int(chandle.Finalize(uintptr(handle)))
}

func cStringArray(arr **C.char, n int) []string {
	if n == 0 {
		return nil
	}
	cArr := unsafe.Slice(arr, n)
	out := make([]string, n)
	for i, s := range cArr {
		out[i] = C.GoString(s)
	}
	return out
}

func main() {}
