package vsm

// lockTransition is what a lock or unlock call has to do to the mapping of a resource
type lockTransition uint8

const (
	// transitionNone only adjusts the reference count
	transitionNone lockTransition = iota
	// transitionMap is the 0 -> 1 transition, the resource must be mapped
	transitionMap
	// transitionUnmap is the 1 -> 0 transition, the resource must be unmapped
	transitionUnmap
	// transitionIgnore is an unlock of a resource that is not locked
	transitionIgnore
)

var lockTransitionMapping = map[lockTransition]string{
	transitionNone:   "transitionNone",
	transitionMap:    "transitionMap",
	transitionUnmap:  "transitionUnmap",
	transitionIgnore: "transitionIgnore",
}

func (t lockTransition) String() string {
	str, ok := lockTransitionMapping[t]
	if !ok {
		return "unknown"
	}
	return str
}

// lockCounter is the reference count of CPU locks held on a resource. Only the 0 -> 1 and 1 -> 0
// transitions touch the mapping. The caller queries the transition, performs whatever it requires,
// and only then commits the new count, so a failed map leaves the count where it was.
//
// lockCounter is not synchronized, the owning resource serializes access to it.
type lockCounter struct {
	count int
}

func (c *lockCounter) onLock() lockTransition {
	if c.count == 0 {
		return transitionMap
	}
	return transitionNone
}

func (c *lockCounter) onUnlock() lockTransition {
	switch c.count {
	case 0:
		return transitionIgnore
	case 1:
		return transitionUnmap
	}
	return transitionNone
}

func (c *lockCounter) commitLock() {
	c.count++
}

func (c *lockCounter) commitUnlock() {
	if c.count > 0 {
		c.count--
	}
}

// reset drops every outstanding reference and returns how many there were
func (c *lockCounter) reset() int {
	count := c.count
	c.count = 0
	return count
}

func (c *lockCounter) references() int {
	return c.count
}
