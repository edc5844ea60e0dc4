// Package loader binds the three C ABI symbols an emitted chameleon shared
// object exports and wraps them behind the same truncation-retry contract
// described in the FFI documentation for generate/mutate: a return value
// equal to the output capacity means try again with a bigger buffer.
package loader

/*
#include <dlfcn.h>
#include <stdint.h>
#include <stddef.h>
#include <stdlib.h>

typedef struct {
	uint32_t *steps;
	size_t length;
	size_t capacity;
} chameleon_walk_t;

typedef void (*chameleon_seed_fn)(size_t);
typedef size_t (*chameleon_generate_fn)(chameleon_walk_t *, uint8_t *, size_t);
typedef size_t (*chameleon_baby_generate_fn)(uint8_t *, size_t);
typedef size_t (*chameleon_mutate_fn)(chameleon_walk_t *, uint8_t *, size_t);

static void chameleon_call_seed(void *fn, size_t seed) {
	((chameleon_seed_fn)fn)(seed);
}

// The walk struct is assembled entirely on the C side: steps and length are
// passed as bare scalar pointers rather than pre-packed into a struct on the
// Go side, since a Go-allocated struct holding a pointer into a Go slice is
// a Go-pointer-to-Go-pointer and cgo's pointer checks reject exactly that.
static size_t chameleon_call_generate(void *fn, uint32_t *steps, size_t *length, size_t capacity, uint8_t *out, size_t cap) {
	chameleon_walk_t w;
	w.steps = steps;
	w.length = *length;
	w.capacity = capacity;
	size_t n = ((chameleon_generate_fn)fn)(&w, out, cap);
	*length = w.length;
	return n;
}

static size_t chameleon_call_baby_generate(void *fn, uint8_t *out, size_t cap) {
	return ((chameleon_baby_generate_fn)fn)(out, cap);
}

static size_t chameleon_call_mutate(void *fn, uint32_t *steps, size_t *length, size_t capacity, uint8_t *out, size_t cap) {
	chameleon_walk_t w;
	w.steps = steps;
	w.length = *length;
	w.capacity = capacity;
	size_t n = ((chameleon_mutate_fn)fn)(&w, out, cap);
	*length = w.length;
	return n;
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/dekarrin/chameleon/internal/chameleon/diag"
)

// DefaultWalkCapacity and DefaultOutputCapacity seed the retry loop's first
// attempt; both grow geometrically on truncation.
const (
	DefaultWalkCapacity   = 1024
	DefaultOutputCapacity = 4096
)

// Walk is the Go-owned mirror of the emitted ChameleonWalk: a growable
// buffer of decision indices recording the random choices a generate or
// mutate call made, replayable to reproduce or perturb a derivation.
type Walk struct {
	Steps  []uint32
	Length int
}

// NewWalk allocates a Walk with the given step capacity.
func NewWalk(capacity int) *Walk {
	return &Walk{Steps: make([]uint32, capacity)}
}

func (w *Walk) grow() {
	newCap := len(w.Steps) * 2
	if newCap == 0 {
		newCap = DefaultWalkCapacity
	}
	grown := make([]uint32, newCap)
	copy(grown, w.Steps)
	w.Steps = grown
}

// library wraps a leaked dlopen handle. The handle is never dlclose'd: the
// emitted functions resolved from it remain reachable for the life of the
// process and closing the library out from under them would be a use-after-
// free the moment anything calls seed/generate/mutate again.
type library struct {
	handle unsafe.Pointer
}

func open(path string) (*library, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	handle := C.dlopen(cpath, C.RTLD_NOW)
	if handle == nil {
		return nil, diag.WrapIO("loading "+path, fmt.Errorf("%s", C.GoString(C.dlerror())))
	}
	return &library{handle: handle}, nil
}

func (l *library) sym(name string) (unsafe.Pointer, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	C.dlerror() // clear any pending error
	fn := C.dlsym(l.handle, cname)
	if errmsg := C.dlerror(); errmsg != nil {
		return nil, fmt.Errorf("resolving symbol %q: %s", name, C.GoString(errmsg))
	}
	return fn, nil
}

// Chameleon is a full (walk-guided) generator/mutator handle: three raw
// function pointers, trivially copyable and safe to share across threads
// provided callers never interleave calls on the same Walk.
type Chameleon struct {
	seedFn     unsafe.Pointer
	generateFn unsafe.Pointer
	mutateFn   unsafe.Pointer
}

// Load dlopens the shared object at path and binds <prefix>_seed,
// <prefix>_generate, and <prefix>_mutate.
func Load(path, prefix string) (Chameleon, error) {
	lib, err := open(path)
	if err != nil {
		return Chameleon{}, err
	}

	seedFn, err := lib.sym(prefix + "_seed")
	if err != nil {
		return Chameleon{}, err
	}
	generateFn, err := lib.sym(prefix + "_generate")
	if err != nil {
		return Chameleon{}, err
	}
	mutateFn, err := lib.sym(prefix + "_mutate")
	if err != nil {
		return Chameleon{}, err
	}

	return Chameleon{seedFn: seedFn, generateFn: generateFn, mutateFn: mutateFn}, nil
}

// Seed reseeds this thread's generator state.
func (c Chameleon) Seed(seed uint64) {
	C.chameleon_call_seed(c.seedFn, C.size_t(seed))
}

// stepsPtr and outPtr return nil C pointers for empty slices rather than
// indexing &s[0], which panics on an empty slice.
func stepsPtr(s []uint32) *C.uint32_t {
	if len(s) == 0 {
		return nil
	}
	return (*C.uint32_t)(unsafe.Pointer(&s[0]))
}

func outPtr(b []byte) *C.uint8_t {
	if len(b) == 0 {
		return nil
	}
	return (*C.uint8_t)(unsafe.Pointer(&b[0]))
}

// Generate fills out with bytes derived from a fresh random walk, growing
// both out and walk as needed on truncation. It returns the generated bytes
// sized to exactly what was written.
func (c Chameleon) Generate(walk *Walk, out []byte) []byte {
	for {
		length := C.size_t(walk.Length)

		n := C.chameleon_call_generate(c.generateFn, stepsPtr(walk.Steps), &length, C.size_t(len(walk.Steps)), outPtr(out), C.size_t(len(out)))
		walk.Length = int(length)

		if int(n) < len(out) {
			return out[:n]
		}
		if walk.Length >= len(walk.Steps) {
			walk.grow()
		}
		out = growBuffer(out)
	}
}

// Mutate perturbs walk in place and regenerates into out, using the same
// truncation-retry protocol as Generate.
func (c Chameleon) Mutate(walk *Walk, out []byte) []byte {
	for {
		length := C.size_t(walk.Length)

		n := C.chameleon_call_mutate(c.mutateFn, stepsPtr(walk.Steps), &length, C.size_t(len(walk.Steps)), outPtr(out), C.size_t(len(out)))
		walk.Length = int(length)

		if int(n) < len(out) {
			return out[:n]
		}
		if walk.Length >= len(walk.Steps) {
			walk.grow()
		}
		out = growBuffer(out)
	}
}

// BabyChameleon is the walk-less generator handle emitted in baby mode.
type BabyChameleon struct {
	seedFn     unsafe.Pointer
	generateFn unsafe.Pointer
}

// LoadBaby dlopens the shared object at path and binds <prefix>_seed and
// <prefix>_generate (no mutator exists in baby mode).
func LoadBaby(path, prefix string) (BabyChameleon, error) {
	lib, err := open(path)
	if err != nil {
		return BabyChameleon{}, err
	}

	seedFn, err := lib.sym(prefix + "_seed")
	if err != nil {
		return BabyChameleon{}, err
	}
	generateFn, err := lib.sym(prefix + "_generate")
	if err != nil {
		return BabyChameleon{}, err
	}

	return BabyChameleon{seedFn: seedFn, generateFn: generateFn}, nil
}

// Seed reseeds this thread's generator state.
func (c BabyChameleon) Seed(seed uint64) {
	C.chameleon_call_seed(c.seedFn, C.size_t(seed))
}

// Generate fills out with freshly-generated bytes, growing out on
// truncation.
func (c BabyChameleon) Generate(out []byte) []byte {
	for {
		n := C.chameleon_call_baby_generate(c.generateFn, outPtr(out), C.size_t(len(out)))

		if int(n) < len(out) {
			return out[:n]
		}
		out = growBuffer(out)
	}
}

func growBuffer(b []byte) []byte {
	newCap := len(b) * 2
	if newCap == 0 {
		newCap = DefaultOutputCapacity
	}
	return make([]byte, newCap)
}
