package rowkit

import (
	"reflect"
	"sync"
)

// descriptorCache is a process-wide, lock-free-read cache of compiled
// [rowDescriptor] values keyed by destination struct type, per spec §4.6
// ("process-wide descriptor cache with lock-free reads"). sync.Map is the
// right tool here: writes are rare (one per distinct bind target type ever
// seen by the process) and every [NewBinder] call reads it.
var globalDescriptorCache sync.Map // reflect.Type -> *rowDescriptor

func descriptorFor(t reflect.Type) (*rowDescriptor, error) {
	if v, ok := globalDescriptorCache.Load(t); ok {
		return v.(*rowDescriptor), nil
	}
	d, err := compileDescriptor(t)
	if err != nil {
		return nil, err
	}
	actual, _ := globalDescriptorCache.LoadOrStore(t, d)
	return actual.(*rowDescriptor), nil
}
