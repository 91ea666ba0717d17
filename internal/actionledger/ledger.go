package actionledger

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/LerianStudio/midaz/common"
	"github.com/google/uuid"
)

var zeroHash [32]byte

// ActionLedger is a single-process, append-only, encrypted, hash-chained
// log of critical orchestration actions. It is safe for concurrent use:
// appends are serialized by a single mutex guarding the chain head, and
// readers only ever run once, at construction, to rebuild that head.
type ActionLedger struct {
	cfg   Config
	gcm   cipher.AEAD

	mu       sync.Mutex
	lastHash [32]byte
}

// New constructs an ActionLedger, scanning any existing file at cfg.Path to
// rebuild the hash-chain head and validate that every entry decrypts and
// chains correctly. An empty or absent file yields the zero hash.
func New(cfg Config) (*ActionLedger, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, common.New(common.KindIO, "failed to create ledger directory").
				WithCause(err).
				WithContext("path", dir)
		}
	}

	block, err := aes.NewCipher(cfg.Key[:])
	if err != nil {
		return nil, common.New(common.KindInitialization, "failed to initialize ledger cipher").WithCause(err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, common.New(common.KindInitialization, "failed to initialize ledger AEAD").WithCause(err)
	}

	head, err := rebuildChainHead(cfg.Path, gcm)
	if err != nil {
		return nil, err
	}

	return &ActionLedger{
		cfg:      cfg,
		gcm:      gcm,
		lastHash: head,
	}, nil
}

// CommitPreExecution stamps a new logical action id and appends a
// PreCommit entry carrying step. It returns the id so the caller can later
// link a CommitPostExecution to the same logical action.
func (l *ActionLedger) CommitPreExecution(step ActionPlanStep) (uuid.UUID, error) {
	id := uuid.New()

	event := ledgerEvent{
		ID:        id,
		Kind:      eventPreCommit,
		Step:      &step,
		CreatedAt: time.Now().UTC(),
	}

	if err := l.appendEvent(event); err != nil {
		return uuid.Nil, err
	}

	return id, nil
}

// CommitPostExecution appends a PostCommit entry for the logical action id,
// carrying outcome. It never mutates the earlier PreCommit entry sharing
// id; the two are linked only by that shared id inside the decrypted
// plaintext.
func (l *ActionLedger) CommitPostExecution(id uuid.UUID, outcome ActionOutcome) error {
	event := ledgerEvent{
		ID:        id,
		Kind:      eventPostCommit,
		Outcome:   &outcome,
		CreatedAt: time.Now().UTC(),
	}

	return l.appendEvent(event)
}

// appendEvent encrypts event, extends the hash chain, and appends the
// resulting fileEntry to disk. Encryption happens before the lock is
// taken; the critical section (lock held) covers the chain hash, one write
// of the framed entry and its flush, so appenders contend for as little
// time as possible.
func (l *ActionLedger) appendEvent(event ledgerEvent) error {
	plaintext, err := json.Marshal(event)
	if err != nil {
		return common.New(common.KindProcessing, "failed to serialize ledger event").WithCause(err)
	}

	var nonce [12]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return common.New(common.KindSecurity, "failed to generate ledger entry nonce").WithCause(err)
	}

	ciphertext := l.gcm.Seal(nil, nonce[:], plaintext, nil)

	l.mu.Lock()
	defer l.mu.Unlock()

	newHash := chainHash(l.lastHash, ciphertext)

	entry := fileEntry{
		HashChain:  newHash,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}

	f, err := os.OpenFile(l.cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return common.New(common.KindIO, "failed to open ledger file for append").WithCause(err)
	}
	defer f.Close()

	if _, err := f.Write(encodeFileEntry(entry)); err != nil {
		return common.New(common.KindIO, "failed to append ledger entry").WithCause(err)
	}

	if err := f.Sync(); err != nil {
		return common.New(common.KindIO, "failed to flush ledger entry").WithCause(err)
	}

	l.lastHash = newHash

	return nil
}

// chainHash computes SHA256(prev || ciphertext), the recurrence that makes
// the file tamper-evident: forging continuity after the fact requires
// recomputing every hash from the tampered point forward, which in turn
// requires re-encrypting every following entry under the (unknown) key.
func chainHash(prev [32]byte, ciphertext []byte) [32]byte {
	h := sha256.New()
	h.Write(prev[:])
	h.Write(ciphertext)

	var out [32]byte
	copy(out[:], h.Sum(nil))

	return out
}

// rebuildChainHead replays path from the start, verifying that every
// entry's hash_chain matches the running head and that it decrypts under
// gcm, discarding the plaintext. It returns the zero hash if path does not
// exist.
func rebuildChainHead(path string, gcm cipher.AEAD) ([32]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return zeroHash, nil
		}

		return zeroHash, common.New(common.KindIO, "failed to open ledger file for replay").WithCause(err)
	}
	defer f.Close()

	head := zeroHash

	for {
		entry, err := readFileEntry(f)
		if err != nil {
			if err == io.EOF {
				break
			}

			return zeroHash, common.New(common.KindStorage, err.Error()).WithCause(err)
		}

		want := chainHash(head, entry.Ciphertext)
		if !bytes.Equal(want[:], entry.HashChain[:]) {
			return zeroHash, common.New(common.KindSecurity, "ledger hash chain mismatch; possible tampering").
				WithSeverity(common.SeverityCritical)
		}

		if _, err := gcm.Open(nil, entry.Nonce[:], entry.Ciphertext, nil); err != nil {
			return zeroHash, common.New(common.KindSecurity, fmt.Sprintf("ledger entry decrypt failed: %v", err)).
				WithSeverity(common.SeverityCritical)
		}

		head = entry.HashChain
	}

	return head, nil
}
