package delivery

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

type defaultReferenceFactory struct{}

// NewReferenceFactory - creates a new ReferenceFactory.
func NewReferenceFactory() ReferenceFactory {
	return defaultReferenceFactory{}
}

// NewReference mints an id like PD-20260830-9f2c4b1d. The date prefix keeps
// references roughly sortable; the random suffix makes them unguessable.
func (defaultReferenceFactory) NewReference(now time.Time) string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return "PD-" + now.Format("20060102") + "-" + hex.EncodeToString(buf)
}
