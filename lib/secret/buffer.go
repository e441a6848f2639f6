// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrClosed is the panic value for reading a closed Buffer.
var ErrClosed = errors.New("secret: buffer is closed")

// Buffer is a secret held in locked memory. Do not copy a Buffer.
type Buffer struct {
	mu     sync.Mutex
	region []byte
	closed bool
}

// seal copies source into a fresh locked mapping and wipes source.
func seal(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, errors.New("secret: secret is empty")
	}
	defer wipe(source)

	region, err := unix.Mmap(-1, 0, len(source),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap: %w", err)
	}
	if err := unix.Mlock(region); err != nil {
		unix.Munmap(region)
		return nil, fmt.Errorf("secret: mlock: %w", err)
	}
	if err := unix.Madvise(region, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(region)
		unix.Munmap(region)
		return nil, fmt.Errorf("secret: madvise: %w", err)
	}

	copy(region, source)
	return &Buffer{region: region}, nil
}

// NewFromString copies value into a Buffer. The string itself cannot
// be wiped; prefer ReadFromPath.
func NewFromString(value string) (*Buffer, error) {
	return seal([]byte(value))
}

// Bytes returns the secret. The slice aliases locked memory and must
// not be retained past Close.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic(ErrClosed)
	}
	return b.region
}

// String returns a heap copy, for APIs such as HTTP headers that only
// take strings.
func (b *Buffer) String() string {
	return string(b.Bytes())
}

// Close wipes and releases the memory. Safe to call more than once.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	wipe(b.region)
	err := errors.Join(unix.Munlock(b.region), unix.Munmap(b.region))
	b.region = nil
	if err != nil {
		return fmt.Errorf("secret: releasing buffer: %w", err)
	}
	return nil
}

func wipe(data []byte) {
	clear(data)
}
