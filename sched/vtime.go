package sched

// VTimeInMS defines logical time in the scheduling space, in milliseconds.
// Every processor accumulates its own VTimeInMS clock from the elapsed
// amounts its owner reports; wall-clock time never enters the core.
type VTimeInMS uint64

// TimeTeller can be used to get the current logical time.
type TimeTeller interface {
	CurrentTime() VTimeInMS
}

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// Owner identifies the domain object a processor serves. The processor keeps
// a non-owning back-reference to it and passes it through to the invoker so
// a callback body can tell which object it fired for. The global processor
// has no owner.
type Owner interface {
	Named
}
