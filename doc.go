// Package eop provides primitives for manual object lifetime management over
// raw storage, in the spirit of "Elements of Programming".
//
// Storage and lifetime are separate: a slot is storage for one object and is
// either raw or initialized. Objects are constructed into raw slots and
// destructed back out of them without the storage going away.
//
// # Quick Start
//
//	slots := eop.NewSlots[Conn](3)
//
//	// Default-construct every slot (zero value, then (*Conn).Construct if defined).
//	if err := eop.Construct(slots); err != nil { ... }
//
//	// Destroy them again, routing each through a finalizer first.
//	var closed []Conn
//	if err := eop.DestructWith(slots, eop.Collect(&closed)); err != nil { ... }
//
// # Addresses and Ownership
//
// ReferenceTo returns a non-owning Address. AllocateOwned allocates and
// constructs a heap object owned by the returned handle; Release destroys and
// deallocates it exactly once:
//
//	h, err := eop.AllocateOwned(ctx, eop.CopyOf(Config{Port: 80}))
//	if err != nil { ... }
//	defer h.Release()
//
// # Capabilities
//
// Element types opt into custom behavior by implementing methods on *T:
//
//   - Constructible: Construct() error, run after zeroing on default construction
//   - Initializable: ConstructFrom(any) error, for foreign initializers
//   - Destructible: Destruct() error, run before the storage is zeroed
//
// Types without these methods default-construct to their zero value and
// need no cleanup.
//
// # Containers
//
// Construct, ConstructFrom, Destruct and DestructWith accept any Container,
// an ordered sequence of Cells. Slots (homogeneous), Tuple (heterogeneous),
// CellSeq (any iterator) and Region (raw slots on the heap or in an Arena)
// are provided.
//
// # Failure Semantics
//
// A pass stops at the first cell that fails. Cells before it completed the
// transition, the failing cell and all later ones are unchanged; nothing is
// rolled back. The error is a *CellError that unwraps to the element's own
// error. Transitions are checked: constructing a live slot yields
// ErrSlotInitialized and destructing a raw slot yields ErrSlotRaw.
//
// # Off-heap Storage
//
// An Arena maps memory outside the Go heap. Regions carved from it require
// pointer-free element types and become stale on Arena.Reset or Close.
// Regions of pointer-free types can be written with Region.Encode and read
// back with DecodeRegion, optionally LZ4 or ZSTD compressed. SaveFile and
// LoadRegionFile do the same through an atomically replaced file.
//
// # Thread Safety
//
// Slots, regions and owned handles are not safe for concurrent use; callers
// synchronize access to overlapping storage. Arena and resource.Controller
// are safe for concurrent use.
package eop
