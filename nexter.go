package feedgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator is the source of unique feed ids. Implementations must be
// threadsafe.
type IDGenerator interface {
	UniqueID() string
}

// IDGeneratorFunc lets a bare function act as an IDGenerator.
type IDGeneratorFunc func() string

// UniqueID calls the wrapped function.
func (f IDGeneratorFunc) UniqueID() string { return f() }

// UUIDGenerator generates random (version 4) UUIDs.
type UUIDGenerator struct{}

// UniqueID implements IDGenerator.
func (UUIDGenerator) UniqueID() string {
	return uuid.New().String()
}

// Nexter is a threadsafe monotonic id generator. It is an IDGenerator
// producing Prefix followed by the next number, which makes feed ids
// predictable in tests.
type Nexter struct {
	Prefix string
	id     *uint64
}

// NexterOption is a functional option for NewNexter.
type NexterOption func(n *Nexter)

// NexterStartFrom sets the first id the Nexter returns.
func NexterStartFrom(start uint64) NexterOption {
	return func(n *Nexter) {
		*n.id = start
	}
}

// NexterPrefix sets the prefix of the ids returned by UniqueID.
func NexterPrefix(prefix string) NexterOption {
	return func(n *Nexter) {
		n.Prefix = prefix
	}
}

// NewNexter creates a new id generator starting at 0
func NewNexter(opts ...NexterOption) *Nexter {
	var id uint64
	n := &Nexter{
		id: &id,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Next generates a new id and returns it
func (n *Nexter) Next() (nextID uint64) {
	nextID = atomic.AddUint64(n.id, 1)
	return nextID - 1
}

// Last returns the most recently generated id
func (n *Nexter) Last() (lastID uint64) {
	lastID = atomic.LoadUint64(n.id) - 1
	return
}

// UniqueID implements IDGenerator.
func (n *Nexter) UniqueID() string {
	return n.Prefix + strconv.FormatUint(n.Next(), 10)
}
