package assets

import (
	"cmp"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"keysound/internal/security"
	"keysound/pkg/spec"
)

// Sound bank layout:
//
//	magic "KSBANK01" | { tag [4]byte | size uint32 BE | payload }...
//
// NAME holds the bank title, SALT is present when entries are sealed, each
// BLOB is one encoded sample and TTOC is the JSON index written last.

// BankEntry locates one sample inside a bank.
type BankEntry struct {
	Path   string `json:"path"`
	Offset uint64 `json:"offset"`
	Size   uint64 `json:"size"`
	Digest string `json:"digest"` // blake2b-256 of the plain bytes
}

type ReadSeekerAt interface {
	io.ReadSeeker
	io.ReaderAt
}

// Bank is a read-only Fetcher over a single sound bank file.
type Bank struct {
	Name    string
	entries map[string]BankEntry
	r       io.ReaderAt
	closer  io.Closer
	key     []byte
}

func OpenBank(path, passphrase string) (*Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	b, err := ReadBank(f, passphrase)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	b.closer = f
	return b, nil
}

// ReadBank parses the tag stream. Sample bytes stay in r until fetched.
func ReadBank(r ReadSeekerAt, passphrase string) (*Bank, error) {
	magic := make([]byte, len(spec.BankMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != spec.BankMagic {
		return nil, fmt.Errorf("invalid bank magic: %q", magic)
	}

	b := &Bank{r: r}
	var (
		salt    []byte
		index   []BankEntry
		indexed bool
	)
	for {
		tag := make([]byte, 4)
		if _, err := io.ReadFull(r, tag); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		var size uint32
		if err := binary.Read(r, binary.BigEndian, &size); err != nil {
			return nil, err
		}

		switch string(tag) {
		case spec.TagName, spec.TagSalt, spec.TagIndex:
			buf := make([]byte, size)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("read %s: %w", tag, err)
			}
			switch string(tag) {
			case spec.TagName:
				b.Name = string(buf)
			case spec.TagSalt:
				salt = buf
			default:
				if err := json.Unmarshal(buf, &index); err != nil {
					return nil, fmt.Errorf("parse index: %w", err)
				}
				indexed = true
			}
		default:
			// BLOB dan tag lain dilewati
			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return nil, err
			}
		}
	}
	if !indexed {
		return nil, errors.New("bank has no index")
	}

	if salt != nil {
		if passphrase == "" {
			return nil, security.ErrNoKey
		}
		b.key = security.DeriveKey(passphrase, salt)
	}

	b.entries = make(map[string]BankEntry, len(index))
	for _, e := range index {
		b.entries[e.Path] = e
	}
	return b, nil
}

func (b *Bank) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := b.entries[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s in bank %q", ErrNotFound, path, b.Name)
	}

	data := make([]byte, e.Size)
	if _, err := b.r.ReadAt(data, int64(e.Offset)); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if b.key != nil {
		plain, err := security.Open(data, b.key)
		if err != nil {
			return nil, fmt.Errorf("unseal %s: %w", path, err)
		}
		data = plain
	}
	if Digest(data) != e.Digest {
		return nil, fmt.Errorf("%w: %s", ErrChecksum, path)
	}
	return data, nil
}

// Paths lists every entry, sorted.
func (b *Bank) Paths() []string {
	out := make([]string, 0, len(b.entries))
	for p := range b.entries {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

func (b *Bank) Sealed() bool { return b.key != nil }

func (b *Bank) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// BankWriter appends samples to a bank. Add is safe for concurrent use.
type BankWriter struct {
	mu     sync.Mutex
	w      io.Writer
	off    uint64
	key    []byte
	index  []BankEntry
	closed bool
}

// NewBankWriter writes the header. A non-empty passphrase seals every entry.
func NewBankWriter(w io.Writer, name, passphrase string) (*BankWriter, error) {
	bw := &BankWriter{w: w}
	if err := bw.write([]byte(spec.BankMagic)); err != nil {
		return nil, err
	}
	if err := bw.chunk(spec.TagName, []byte(name)); err != nil {
		return nil, err
	}
	if passphrase != "" {
		salt, err := security.NewSalt()
		if err != nil {
			return nil, err
		}
		if err := bw.chunk(spec.TagSalt, salt); err != nil {
			return nil, err
		}
		bw.key = security.DeriveKey(passphrase, salt)
	}
	return bw, nil
}

func (bw *BankWriter) Add(path string, data []byte) error {
	entry := BankEntry{Path: path, Digest: Digest(data)}
	payload := data
	if bw.key != nil {
		sealed, err := security.Seal(data, bw.key)
		if err != nil {
			return err
		}
		payload = sealed
	}

	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return errors.New("bank writer closed")
	}
	entry.Offset = bw.off + 8
	entry.Size = uint64(len(payload))
	if err := bw.chunk(spec.TagBlob, payload); err != nil {
		return err
	}
	bw.index = append(bw.index, entry)
	return nil
}

// Close writes the index. It does not close the underlying writer.
func (bw *BankWriter) Close() error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return nil
	}
	bw.closed = true

	slices.SortFunc(bw.index, func(a, b BankEntry) int {
		return cmp.Compare(a.Path, b.Path)
	})
	raw, err := json.Marshal(bw.index)
	if err != nil {
		return err
	}
	return bw.chunk(spec.TagIndex, raw)
}

func (bw *BankWriter) chunk(tag string, payload []byte) error {
	var hdr [8]byte
	copy(hdr[:4], tag)
	binary.BigEndian.PutUint32(hdr[4:], uint32(len(payload)))
	if err := bw.write(hdr[:]); err != nil {
		return err
	}
	return bw.write(payload)
}

func (bw *BankWriter) write(p []byte) error {
	n, err := bw.w.Write(p)
	bw.off += uint64(n)
	return err
}
