// Package bboltmeta provides a BBolt-backed metadata catalogue. Every
// record is sealed with the container's encryption provider before it
// reaches the database, so the catalogue file leaks neither names nor
// block maps.
package bboltmeta

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/neonfs/neonfs/fsutil"
	"github.com/neonfs/neonfs/security"
	"github.com/neonfs/neonfs/storage"
)

var (
	// ErrNotFound is returned when a metadata record does not exist.
	ErrNotFound = errors.New("metadata record not found")
	// ErrNotInitialized is returned when the store is used before
	// Initialize or after Shutdown.
	ErrNotInitialized = errors.New("metadata store is not initialized")
	// ErrDirectoryNotEmpty is returned when deleting a directory that
	// still has children.
	ErrDirectoryNotEmpty = errors.New("directory is not empty")
)

var bucketMetadata = []byte("metadata")

// RootID is the implicit parent of top-level entries; no record carries it
// as its own ID.
const RootID uint64 = 0

// envelope is the sealed on-disk form of a metadata record.
type envelope struct {
	Ver        int    `json:"ver"`
	Scheme     string `json:"scheme"`
	IV         []byte `json:"iv"`
	Tag        []byte `json:"tag"`
	Ciphertext []byte `json:"ciphertext"`
}

// Store implements storage.MetadataProvider backed by a BBolt database.
type Store struct {
	db          *bbolt.DB
	enc         security.EncryptionProvider
	ownsDB      bool
	initialized bool
}

var _ storage.MetadataProvider = (*Store)(nil)

// NewStore returns a catalogue over an already-open BBolt database.
func NewStore(db *bbolt.DB, enc security.EncryptionProvider) *Store {
	return &Store{db: db, enc: enc}
}

// NewStoreFromFile opens a BBolt database at path and returns a catalogue
// that owns (and will close) it.
func NewStoreFromFile(path string, enc security.EncryptionProvider, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	s := NewStore(db, enc)
	s.ownsDB = true
	return s, nil
}

// Initialize creates the metadata bucket.
func (s *Store) Initialize() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMetadata)
		return err
	})
	if err != nil {
		return fmt.Errorf("initializing metadata bucket: %w", err)
	}
	s.initialized = true
	return nil
}

// Shutdown flushes pending writes and, when the store opened the database
// itself, closes it.
func (s *Store) Shutdown() error {
	if !s.initialized {
		return ErrNotInitialized
	}
	s.initialized = false
	if err := s.db.Sync(); err != nil {
		return fmt.Errorf("syncing metadata db: %w", err)
	}
	if s.ownsDB {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("closing metadata db: %w", err)
		}
	}
	return nil
}

func idKey(id uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], id)
	return k[:]
}

// seal encrypts a record into its on-disk envelope.
func (s *Store) seal(meta *storage.Metadata) ([]byte, error) {
	plain, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}
	sp, err := secureFrom(plain)
	if err != nil {
		return nil, err
	}
	defer sp.destroyAll()

	ciphertext, err := s.enc.Encrypt(sp.plain, sp.iv, sp.tag)
	if err != nil {
		return nil, fmt.Errorf("sealing metadata record: %w", err)
	}
	defer ciphertext.Destroy()

	env := envelope{
		Ver:        1,
		Scheme:     "aes256gcm",
		IV:         append([]byte(nil), sp.iv.Data()...),
		Tag:        append([]byte(nil), sp.tag.Data()...),
		Ciphertext: append([]byte(nil), ciphertext.Data()...),
	}
	return json.Marshal(env)
}

// open decrypts an on-disk envelope back into a record.
func (s *Store) open(raw []byte) (*storage.Metadata, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshaling envelope: %w", err)
	}
	if env.Ver != 1 {
		return nil, fmt.Errorf("unsupported envelope version: %d", env.Ver)
	}
	if env.Scheme != "aes256gcm" {
		return nil, fmt.Errorf("unsupported envelope scheme: %s", env.Scheme)
	}

	sp, err := secureTriplet(env.Ciphertext, env.IV, env.Tag)
	if err != nil {
		return nil, err
	}
	defer sp.destroyAll()

	plain, err := s.enc.Decrypt(sp.plain, sp.iv, sp.tag)
	if err != nil {
		return nil, fmt.Errorf("opening metadata record: %w", err)
	}
	defer plain.Destroy()

	var meta storage.Metadata
	if err := json.Unmarshal(plain.Data(), &meta); err != nil {
		return nil, fmt.Errorf("unmarshaling metadata: %w", err)
	}
	return &meta, nil
}

// Upsert stores or replaces the record under its ID.
func (s *Store) Upsert(meta *storage.Metadata) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if meta == nil || meta.ID == RootID {
		return fmt.Errorf("metadata record requires a non-zero ID")
	}
	sealed, err := s.seal(meta)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMetadata).Put(idKey(meta.ID), sealed)
	})
}

// Get retrieves a record by its file ID.
func (s *Store) Get(fileID uint64) (*storage.Metadata, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMetadata).Get(idKey(fileID))
		if data == nil {
			return fmt.Errorf("%d: %w", fileID, ErrNotFound)
		}
		raw = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.open(raw)
}

// Delete removes a record. A directory must be empty first.
func (s *Store) Delete(fileID uint64) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	meta, err := s.Get(fileID)
	if err != nil {
		return err
	}
	if meta.IsDirectory {
		empty, err := s.IsDirectoryEmpty(fileID)
		if err != nil {
			return err
		}
		if !empty {
			return fmt.Errorf("%d: %w", fileID, ErrDirectoryNotEmpty)
		}
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMetadata).Delete(idKey(fileID))
	})
}

// ListIDs returns all file IDs in the catalogue.
func (s *Store) ListIDs() ([]uint64, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	var ids []uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMetadata).ForEach(func(k, _ []byte) error {
			ids = append(ids, binary.BigEndian.Uint64(k))
			return nil
		})
	})
	return ids, err
}

// BatchGet retrieves the records for the given IDs, preserving order.
func (s *Store) BatchGet(ids []uint64) ([]*storage.Metadata, error) {
	metas := make([]*storage.Metadata, 0, len(ids))
	for _, id := range ids {
		meta, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// Verify reports whether the stored record matches meta byte-for-byte and
// every block reference carries well-formed framing.
func (s *Store) Verify(meta *storage.Metadata) bool {
	if meta == nil {
		return false
	}
	for _, ref := range meta.Blocks {
		if len(ref.IV) != security.IVSize || len(ref.Tag) != security.TagSize {
			return false
		}
	}
	stored, err := s.Get(meta.ID)
	if err != nil {
		return false
	}
	a, err := json.Marshal(stored)
	if err != nil {
		return false
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Children returns all records whose parent is parentID.
func (s *Store) Children(parentID uint64) ([]*storage.Metadata, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	ids, err := s.ListIDs()
	if err != nil {
		return nil, err
	}
	var children []*storage.Metadata
	for _, id := range ids {
		meta, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		if meta.ParentID == parentID {
			children = append(children, meta)
		}
	}
	return children, nil
}

// IsDirectoryEmpty reports whether the directory has no children.
func (s *Store) IsDirectoryEmpty(directoryID uint64) (bool, error) {
	children, err := s.Children(directoryID)
	if err != nil {
		return false, err
	}
	return len(children) == 0, nil
}

// Move reparents a file or directory. The target must be an existing
// directory (or the root), and moving a directory under its own subtree is
// rejected.
func (s *Store) Move(fileID, newParentID uint64) error {
	meta, err := s.Get(fileID)
	if err != nil {
		return err
	}
	if newParentID != RootID {
		parent, err := s.Get(newParentID)
		if err != nil {
			return fmt.Errorf("target directory: %w", err)
		}
		if !parent.IsDirectory {
			return fmt.Errorf("target %d is not a directory", newParentID)
		}
		// Walk the target's ancestry to reject cycles.
		for cursor := parent; ; {
			if cursor.ID == fileID {
				return fmt.Errorf("cannot move %d into its own subtree", fileID)
			}
			if cursor.ParentID == RootID {
				break
			}
			cursor, err = s.Get(cursor.ParentID)
			if err != nil {
				return err
			}
		}
	}
	meta.ParentID = newParentID
	meta.ModifiedAt = now()
	return s.Upsert(meta)
}

// CreateFile creates an empty file record and returns its new ID.
func (s *Store) CreateFile(name string, parentID uint64, permissions uint32) (uint64, error) {
	return s.create(name, parentID, permissions, false)
}

// CreateDirectory creates a directory record and returns its new ID.
func (s *Store) CreateDirectory(name string, parentID uint64, permissions uint32) (uint64, error) {
	return s.create(name, parentID, permissions, true)
}

func (s *Store) create(name string, parentID uint64, permissions uint32, dir bool) (uint64, error) {
	if !s.initialized {
		return 0, ErrNotInitialized
	}
	if !fsutil.IsValidFileName(name) {
		return 0, fmt.Errorf("invalid name: %q", name)
	}
	if parentID != RootID {
		parent, err := s.Get(parentID)
		if err != nil {
			return 0, fmt.Errorf("parent directory: %w", err)
		}
		if !parent.IsDirectory {
			return 0, fmt.Errorf("parent %d is not a directory", parentID)
		}
	}

	var id uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		seq, err := tx.Bucket(bucketMetadata).NextSequence()
		if err != nil {
			return err
		}
		id = seq
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("allocating file ID: %w", err)
	}

	ts := now()
	meta := &storage.Metadata{
		ID:          id,
		Name:        name,
		CreatedAt:   ts,
		ModifiedAt:  ts,
		Permissions: permissions,
		IsDirectory: dir,
		ParentID:    parentID,
	}
	if err := s.Upsert(meta); err != nil {
		return 0, err
	}
	return id, nil
}

// Rename changes a record's name.
func (s *Store) Rename(fileID uint64, newName string) error {
	if !fsutil.IsValidFileName(newName) {
		return fmt.Errorf("invalid name: %q", newName)
	}
	meta, err := s.Get(fileID)
	if err != nil {
		return err
	}
	meta.Name = newName
	meta.ModifiedAt = now()
	return s.Upsert(meta)
}
