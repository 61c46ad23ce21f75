package memory

import "sync"

// faults maps an operation and target to the error it should return.
type faults struct {
	mu      sync.Mutex
	pending map[string]error
}

func faultKey(op, target string) string { return op + " " + target }

// set arms a fault; an empty target matches every target of op.
func (f *faults) set(op, target string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		f.pending = make(map[string]error)
	}
	f.pending[faultKey(op, target)] = err
}

// take returns and disarms a fault matching op and target.
func (f *faults) take(op, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range []string{faultKey(op, target), faultKey(op, "")} {
		if err, ok := f.pending[k]; ok {
			delete(f.pending, k)
			return err
		}
	}
	return nil
}
