package storage

import "time"

// BlockRef ties a span of a file to a container block and carries the
// cryptographic framing for that block. The container itself stores only
// ciphertext; the IV and tag live here, in the metadata catalogue.
type BlockRef struct {
	BlockID uint64 `json:"block_id"`
	// Offset is the file offset this block's plaintext begins at.
	Offset uint64 `json:"offset"`
	IV     []byte `json:"iv"`
	Tag    []byte `json:"tag"`
}

// Metadata is one catalogue record: a file or directory, its attributes,
// and the ordered list of blocks holding its content.
type Metadata struct {
	ID          uint64     `json:"id"`
	Name        string     `json:"name"`
	Size        uint64     `json:"size"`
	CreatedAt   time.Time  `json:"created_at"`
	ModifiedAt  time.Time  `json:"modified_at"`
	Permissions uint32     `json:"permissions"`
	IsDirectory bool       `json:"is_directory"`
	ParentID    uint64     `json:"parent_id"`
	Blocks      []BlockRef `json:"blocks,omitempty"`
}

// MetadataProvider is the catalogue capability surface sitting above the
// block layer. The storage core does not define how it is implemented.
type MetadataProvider interface {
	Initialize() error
	Shutdown() error

	Upsert(meta *Metadata) error
	Get(fileID uint64) (*Metadata, error)
	Delete(fileID uint64) error
	ListIDs() ([]uint64, error)
	BatchGet(ids []uint64) ([]*Metadata, error)
	Verify(meta *Metadata) bool

	Children(parentID uint64) ([]*Metadata, error)
	IsDirectoryEmpty(directoryID uint64) (bool, error)
	Move(fileID, newParentID uint64) error
	CreateFile(name string, parentID uint64, permissions uint32) (uint64, error)
	CreateDirectory(name string, parentID uint64, permissions uint32) (uint64, error)
	Rename(fileID uint64, newName string) error
}
