package compute

type Backend interface {
	Name() string
	Workers() int
	ParallelFor(n, minChunk int, fn func(worker, start, end int))
	Cleanup()
}

var activeBackend Backend = NewCPUBackend(0)

func SetBackend(b Backend) {
	if activeBackend != nil {
		activeBackend.Cleanup()
	}
	activeBackend = b
}

func GetBackend() Backend {
	return activeBackend
}

// ByName returns a backend for "cpu" or "serial"; workers <= 0 uses all CPUs.
func ByName(name string, workers int) (Backend, bool) {
	switch name {
	case "cpu", "":
		return NewCPUBackend(workers), true
	case "serial":
		return SerialBackend{}, true
	default:
		return nil, false
	}
}

type SerialBackend struct{}

func (SerialBackend) Name() string { return "serial" }
func (SerialBackend) Workers() int { return 1 }
func (SerialBackend) Cleanup()     {}

func (SerialBackend) ParallelFor(n, _ int, fn func(worker, start, end int)) {
	if n > 0 {
		fn(0, 0, n)
	}
}
