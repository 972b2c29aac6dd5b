package vsm

import (
	"sort"

	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/mediamem/internal/utils"
)

// Context groups resources under a named owner. Destroying a context destroys every resource
// created with it as the owner.
type Context struct {
	handle Handle
	name   string

	mutex   utils.OptionalMutex
	members *swiss.Map[Handle, struct{}]
	closed  bool
}

func newContext(useMutex bool, name string) *Context {
	return &Context{
		name:    name,
		mutex:   utils.OptionalMutex{UseMutex: useMutex},
		members: swiss.NewMap[Handle, struct{}](16),
	}
}

func (c *Context) Handle() Handle { return c.handle }
func (c *Context) Name() string   { return c.name }

// adopt records a new member. It fails once the context has started to be destroyed.
func (c *Context) adopt(member Handle) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return false
	}
	c.members.Put(member, struct{}{})
	return true
}

func (c *Context) release(member Handle) {
	c.mutex.Do(func() {
		c.members.Delete(member)
	})
}

// close marks the context as being destroyed and returns its members in handle order
func (c *Context) close() []Handle {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.closed = true
	members := make([]Handle, 0, c.members.Count())
	c.members.Iter(func(member Handle, _ struct{}) bool {
		members = append(members, member)
		return false
	})

	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}

// MemberCount returns the number of live resources owned by the context
func (c *Context) MemberCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.members.Count()
}
