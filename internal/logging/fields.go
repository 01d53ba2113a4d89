// Package logging provides a small, chainable field builder on top of
// logrus so every component attaches the same standard keys instead of
// hand-rolling logrus.Fields maps at each call site.
package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Fields is a chainable logrus.Fields builder.
type Fields logrus.Fields

// NewFields returns an empty Fields builder.
func NewFields() Fields {
	return Fields{}
}

// Component tags the emitting component, e.g. "syncer.k8s.pods".
func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

// Operation tags the operation being performed, e.g. "batch_merge".
func (f Fields) Operation(op string) Fields {
	f["operation"] = op
	return f
}

// Resource tags the resource kind and, if non-empty, its identity.
func (f Fields) Resource(kind, name string) Fields {
	f["resource_type"] = kind
	if name != "" {
		f["resource_name"] = name
	}
	return f
}

// Source tags the owning syncer source, e.g. "kubernetes", "proxmox".
func (f Fields) Source(source string) Fields {
	f["source"] = source
	return f
}

// Duration records an elapsed time in milliseconds.
func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

// Count records a row/entity count.
func (f Fields) Count(n int) Fields {
	f["count"] = n
	return f
}

// CorrelationID tags a cycle or triage run identifier.
func (f Fields) CorrelationID(id string) Fields {
	if id != "" {
		f["correlation_id"] = id
	}
	return f
}

// Error records err's message, a no-op when err is nil.
func (f Fields) Error(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

// Fields returns the underlying logrus.Fields for use with WithFields.
func (f Fields) Fields() logrus.Fields {
	return logrus.Fields(f)
}
