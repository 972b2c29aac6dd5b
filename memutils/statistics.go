package memutils

import "math"

// Statistics summarizes the backend memory objects held in one memory pool
type Statistics struct {
	// ObjectCount is the number of live backend memory objects
	ObjectCount int
	// ObjectBytes is the total size in bytes reported by the backend for those objects
	ObjectBytes int
	// MappedCount is the number of resources currently mapped for CPU access
	MappedCount int
	// ShadowBytes is the number of bytes held by lock shadows (shadow buffers and shadow regions)
	ShadowBytes int
}

func (s *Statistics) Clear() {
	s.ObjectCount = 0
	s.ObjectBytes = 0
	s.MappedCount = 0
	s.ShadowBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.ObjectCount += other.ObjectCount
	s.ObjectBytes += other.ObjectBytes
	s.MappedCount += other.MappedCount
	s.ShadowBytes += other.ShadowBytes
}

type DetailedStatistics struct {
	Statistics
	ObjectSizeMin int
	ObjectSizeMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.ObjectSizeMin = math.MaxInt
	s.ObjectSizeMax = 0
}

func (s *DetailedStatistics) AddObject(size int) {
	s.ObjectCount++
	s.ObjectBytes += size

	if size < s.ObjectSizeMin {
		s.ObjectSizeMin = size
	}

	if size > s.ObjectSizeMax {
		s.ObjectSizeMax = size
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)

	if other.ObjectSizeMin < s.ObjectSizeMin {
		s.ObjectSizeMin = other.ObjectSizeMin
	}

	if other.ObjectSizeMax > s.ObjectSizeMax {
		s.ObjectSizeMax = other.ObjectSizeMax
	}
}
