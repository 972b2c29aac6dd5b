package vsm

import (
	"github.com/vkngwrapper/mediamem/hw"
)

// ImageCreateInfo describes a CPU-facing image to create
type ImageCreateInfo struct {
	Name   string
	Format hw.Format
	Width  int
	Height int

	// Owner is an optional context that destroys the image when the context is destroyed
	Owner Handle
}

// Image is a linear, CPU-facing picture backed by an image-data buffer. Locking an image locks its
// buffer.
type Image struct {
	handle Handle
	name   string
	owner  Handle

	format hw.Format
	width  int
	height int
	pitch  int
	size   int
	planes []Plane

	buffer *Buffer
}

func (i *Image) Handle() Handle    { return i.handle }
func (i *Image) Name() string      { return i.name }
func (i *Image) Format() hw.Format { return i.format }
func (i *Image) Width() int        { return i.width }
func (i *Image) Height() int       { return i.height }
func (i *Image) Pitch() int        { return i.pitch }
func (i *Image) Size() int         { return i.size }
func (i *Image) Buffer() Handle    { return i.buffer.handle }

// Planes returns the offset and pitch of each plane of the image
func (i *Image) Planes() []Plane {
	planes := make([]Plane, len(i.planes))
	copy(planes, i.planes)
	return planes
}
