package vsm

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"unicode"

	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/mediamem/backend"
	"github.com/vkngwrapper/mediamem/hw"
	"github.com/vkngwrapper/mediamem/internal/utils"
)

// verboseRecord holds the optional fields tracked with AllocatorCreateVerboseTracking
type verboseRecord struct {
	name      string
	format    hw.Format
	width     int
	height    int
	createdAt string
}

// trackedObject is the metadata recorded for every live backend object
type trackedObject struct {
	object   backend.Handle
	resource Handle
	kind     Kind
	category hw.ResourceCategory
	pool     hw.Pool
	size     int

	verbose *verboseRecord
}

// objectTracker records every live backend object the allocator created, including lock shadows,
// so that statistics can be computed and leaks reported at teardown
type objectTracker struct {
	mutex   utils.OptionalRWMutex
	objects *swiss.Map[backend.Handle, trackedObject]
	verbose bool
}

func newObjectTracker(useMutex bool, verbose bool) *objectTracker {
	return &objectTracker{
		mutex:   utils.OptionalRWMutex{UseMutex: useMutex},
		objects: swiss.NewMap[backend.Handle, trackedObject](64),
		verbose: verbose,
	}
}

// creationSite returns the file:line of the first caller outside this package
func creationSite() string {
	pcs := make([]uintptr, 16)
	count := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:count])

	for {
		frame, more := frames.Next()
		if !isPackageFrame(frame.Function) {
			return fmt.Sprintf("%s:%d", frame.File, frame.Line)
		}
		if !more {
			return fmt.Sprintf("%s:%d", frame.File, frame.Line)
		}
	}
}

const packagePath = "github.com/vkngwrapper/mediamem/vsm."

// isPackageFrame reports whether a frame belongs to a method or unexported function of this
// package. Exported package-level functions, tests included, count as callers.
func isPackageFrame(function string) bool {
	if !strings.HasPrefix(function, packagePath) {
		return false
	}

	rest := function[len(packagePath):]
	return strings.HasPrefix(rest, "(") || (rest != "" && unicode.IsLower(rune(rest[0])))
}

// newRecord builds the tracking record for an object, filling in the verbose fields when the
// tracker is verbose. name, format, width and height are only used for the verbose fields.
func (t *objectTracker) newRecord(object backend.Object, resource Handle, category hw.ResourceCategory, name string, format hw.Format, width, height int) trackedObject {
	record := trackedObject{
		object:   object.Handle,
		resource: resource,
		kind:     resource.Kind(),
		category: category,
		pool:     object.Pool,
		size:     object.Size,
	}

	if t.verbose {
		record.verbose = &verboseRecord{
			name:      name,
			format:    format,
			width:     width,
			height:    height,
			createdAt: creationSite(),
		}
	}

	return record
}

func (t *objectTracker) add(record trackedObject) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.objects.Put(record.object, record)
}

func (t *objectTracker) remove(object backend.Handle) (trackedObject, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	record, ok := t.objects.Get(object)
	if ok {
		t.objects.Delete(object)
	}
	return record, ok
}

func (t *objectTracker) count() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return t.objects.Count()
}

// snapshot returns every tracked record ordered by backend handle
func (t *objectTracker) snapshot() []trackedObject {
	t.mutex.RLock()
	records := make([]trackedObject, 0, t.objects.Count())
	t.objects.Iter(func(_ backend.Handle, record trackedObject) bool {
		records = append(records, record)
		return false
	})
	t.mutex.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].object < records[j].object
	})
	return records
}

func (r *trackedObject) printParameters(json *jwriter.ObjectState) {
	json.Name("Object").Int(int(r.object))
	json.Name("Resource").String(r.resource.String())
	json.Name("Category").String(r.category.String())
	json.Name("Pool").String(r.pool.String())
	json.Name("Size").Int(r.size)

	if r.verbose != nil {
		if r.verbose.name != "" {
			json.Name("Name").String(r.verbose.name)
		}
		if r.verbose.format != hw.FormatUndefined {
			json.Name("Format").String(r.verbose.format.String())
			json.Name("Width").Int(r.verbose.width)
			json.Name("Height").Int(r.verbose.height)
		}
		json.Name("CreatedAt").String(r.verbose.createdAt)
	}
}
