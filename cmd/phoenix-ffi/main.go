// phoenix-ffi - C ABI bindings to the Phoenix wallet core
//
// Build as a shared library and call any core operation from a host
// language:
//
//	go build -buildmode=c-shared -o libphoenix.so ./cmd/phoenix-ffi
//
// Every call takes the operation name and its JSON arguments and returns a
// JSON result {"success":bool,"payload":...}. The result buffer is owned by
// the caller and must be released with phoenix_free.
package main

/*
#include <stdlib.h>
#include <stdint.h>
*/
import "C"
import "unsafe"

//export phoenix_call
func phoenix_call(op *C.char, args *C.uint8_t, argsLen C.size_t, outLen *C.size_t) *C.uint8_t {
	var in []byte
	if args != nil && argsLen > 0 {
		in = C.GoBytes(unsafe.Pointer(args), C.int(argsLen))
	}
	return toC(call(C.GoString(op), in), outLen)
}

//export phoenix_operations
func phoenix_operations(outLen *C.size_t) *C.uint8_t {
	return toC(operations(), outLen)
}

//export phoenix_free
func phoenix_free(ptr *C.uint8_t) {
	C.free(unsafe.Pointer(ptr))
}

// toC copies out into C memory.
func toC(out []byte, outLen *C.size_t) *C.uint8_t {
	ptr := C.malloc(C.size_t(len(out)))
	copy(unsafe.Slice((*byte)(ptr), len(out)), out)
	if outLen != nil {
		*outLen = C.size_t(len(out))
	}
	return (*C.uint8_t)(ptr)
}

func main() {}
