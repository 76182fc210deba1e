package bboltmeta

import (
	"time"

	"github.com/neonfs/neonfs/secure"
)

func now() time.Time {
	return time.Now().UTC()
}

// triplet groups the secure buffers for one seal or open call so they can
// be destroyed together.
type triplet struct {
	plain *secure.Bytes
	iv    *secure.Bytes
	tag   *secure.Bytes
}

func (t *triplet) destroyAll() {
	if t.plain != nil {
		t.plain.Destroy()
	}
	if t.iv != nil {
		t.iv.Destroy()
	}
	if t.tag != nil {
		t.tag.Destroy()
	}
}

// secureFrom prepares a plaintext triplet for sealing: the payload plus
// empty IV and tag buffers for the provider to fill.
func secureFrom(plain []byte) (*triplet, error) {
	t := &triplet{}
	var err error
	if t.plain, err = secure.NewBytesFrom(plain); err != nil {
		return nil, err
	}
	if t.iv, err = secure.NewBytes(0); err != nil {
		t.destroyAll()
		return nil, err
	}
	if t.tag, err = secure.NewBytes(0); err != nil {
		t.destroyAll()
		return nil, err
	}
	return t, nil
}

// secureTriplet copies a stored envelope's parts into secure buffers for
// opening.
func secureTriplet(ciphertext, iv, tag []byte) (*triplet, error) {
	t := &triplet{}
	var err error
	if t.plain, err = secure.NewBytesFrom(ciphertext); err != nil {
		return nil, err
	}
	if t.iv, err = secure.NewBytesFrom(iv); err != nil {
		t.destroyAll()
		return nil, err
	}
	if t.tag, err = secure.NewBytesFrom(tag); err != nil {
		t.destroyAll()
		return nil, err
	}
	return t, nil
}
