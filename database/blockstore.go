// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/baby636-sketch/Membercoin/core/types"
)

// networkMagic prefixes every record in a blk?????.dat file, per §6.
var networkMagic = [4]byte{0x4d, 0x45, 0x4d, 0x62} // "MEMb"

// maxBlockFileSize is the size at which the flat-file store rolls over
// to the next blk?????.dat/rev?????.dat pair.
const maxBlockFileSize = 128 * 1024 * 1024

// FlatFileBlockStore is the append-only on-disk store for full block
// bytes and their undo records, laid out as sequential blk?????.dat and
// rev?????.dat file pairs. No reindex walk over the blk?????.dat files
// is implemented.
type FlatFileBlockStore struct {
	mu  sync.Mutex
	dir string

	curFileNum  uint32
	blockFile   *os.File
	undoFile    *os.File
	blockOffset uint32
	undoOffset  uint32
}

// OpenBlockStore opens (creating if necessary) the flat-file block store
// rooted at dir. It opens file pair 0 and appends after any records
// already in it; higher-numbered files from an earlier run are not
// reopened.
func OpenBlockStore(dir string) (*FlatFileBlockStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("database: create block store dir: %w", err)
	}
	s := &FlatFileBlockStore{dir: dir}
	if err := s.openFilePair(0); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FlatFileBlockStore) blockFilePath(n uint32) string {
	return filepath.Join(s.dir, fmt.Sprintf("blk%05d.dat", n))
}

func (s *FlatFileBlockStore) undoFilePath(n uint32) string {
	return filepath.Join(s.dir, fmt.Sprintf("rev%05d.dat", n))
}

func (s *FlatFileBlockStore) openFilePair(n uint32) error {
	bf, err := os.OpenFile(s.blockFilePath(n), os.O_RDWR|os.O_CREATE, 0640)
	if err != nil {
		return fmt.Errorf("database: open block file: %w", err)
	}
	uf, err := os.OpenFile(s.undoFilePath(n), os.O_RDWR|os.O_CREATE, 0640)
	if err != nil {
		bf.Close()
		return fmt.Errorf("database: open undo file: %w", err)
	}
	bInfo, err := bf.Stat()
	if err != nil {
		bf.Close()
		uf.Close()
		return err
	}
	uInfo, err := uf.Stat()
	if err != nil {
		bf.Close()
		uf.Close()
		return err
	}
	s.curFileNum = n
	s.blockFile = bf
	s.undoFile = uf
	s.blockOffset = uint32(bInfo.Size())
	s.undoOffset = uint32(uInfo.Size())
	return nil
}

// WriteBlock appends b's canonical serialization, prefixed by the
// network magic and a 4-byte little-endian length, to the current
// blk?????.dat file, rolling over to a new file if it would exceed
// maxBlockFileSize. It returns the file number and the offset of the
// record's magic prefix, which together address the block for
// ReadBlock.
func (s *FlatFileBlockStore) WriteBlock(b *types.Block) (fileNum, offset uint32, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := b.Bytes()
	if err != nil {
		return 0, 0, err
	}
	recordLen := 8 + len(payload)
	if s.blockOffset > 0 && uint64(s.blockOffset)+uint64(recordLen) > maxBlockFileSize {
		if err := s.openFilePair(s.curFileNum + 1); err != nil {
			return 0, 0, err
		}
	}

	var buf bytes.Buffer
	buf.Write(networkMagic[:])
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	buf.Write(lenBuf[:])
	buf.Write(payload)

	offset = s.blockOffset
	if _, err := s.blockFile.WriteAt(buf.Bytes(), int64(offset)); err != nil {
		return 0, 0, fmt.Errorf("database: write block: %w", err)
	}
	s.blockOffset += uint32(buf.Len())
	return s.curFileNum, offset, nil
}

// ReadBlock decodes the block record at (fileNum, offset).
func (s *FlatFileBlockStore) ReadBlock(fileNum, offset uint32) (*types.Block, error) {
	f, err := os.Open(s.blockFilePath(fileNum))
	if err != nil {
		return nil, fmt.Errorf("database: open block file for read: %w", err)
	}
	defer f.Close()

	header := make([]byte, 8)
	if _, err := f.ReadAt(header, int64(offset)); err != nil {
		return nil, fmt.Errorf("database: read block record header: %w", err)
	}
	if !bytes.Equal(header[:4], networkMagic[:]) {
		return nil, fmt.Errorf("database: block record at %d:%d has bad magic", fileNum, offset)
	}
	length := binary.LittleEndian.Uint32(header[4:8])

	payload := make([]byte, length)
	if _, err := f.ReadAt(payload, int64(offset)+8); err != nil {
		return nil, fmt.Errorf("database: read block payload: %w", err)
	}
	return types.DeserializeBlock(bytes.NewReader(payload))
}

// WriteUndo appends rec's encoding to the rev?????.dat file matching
// fileNum, returning the offset it was written at.
func (s *FlatFileBlockStore) WriteUndo(rec *UndoRecord, fileNum uint32) (offset uint32, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fileNum != s.curFileNum {
		return 0, fmt.Errorf("database: undo write targets non-current file %d (current %d)", fileNum, s.curFileNum)
	}

	enc, err := encodeUndoRecord(rec)
	if err != nil {
		return 0, err
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(enc)))

	offset = s.undoOffset
	if _, err := s.undoFile.WriteAt(lenBuf[:], int64(offset)); err != nil {
		return 0, fmt.Errorf("database: write undo length: %w", err)
	}
	if _, err := s.undoFile.WriteAt(enc, int64(offset)+4); err != nil {
		return 0, fmt.Errorf("database: write undo record: %w", err)
	}
	s.undoOffset += uint32(4 + len(enc))
	return offset, nil
}

// ReadUndo decodes the undo record at (fileNum, offset).
func (s *FlatFileBlockStore) ReadUndo(fileNum, offset uint32) (*UndoRecord, error) {
	f, err := os.Open(s.undoFilePath(fileNum))
	if err != nil {
		return nil, fmt.Errorf("database: open undo file for read: %w", err)
	}
	defer f.Close()

	lenBuf := make([]byte, 4)
	if _, err := f.ReadAt(lenBuf, int64(offset)); err != nil {
		return nil, fmt.Errorf("database: read undo record length: %w", err)
	}
	length := binary.LittleEndian.Uint32(lenBuf)

	payload := make([]byte, length)
	if _, err := f.ReadAt(payload, int64(offset)+4); err != nil {
		return nil, fmt.Errorf("database: read undo record: %w", err)
	}
	return decodeUndoRecord(payload)
}

// Close closes the currently open block and undo files.
func (s *FlatFileBlockStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.blockFile.Close(); err != nil {
		return err
	}
	return s.undoFile.Close()
}

func encodeUndoRecord(rec *UndoRecord) ([]byte, error) {
	var buf bytes.Buffer
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(rec.SpentCoins)))
	buf.Write(u32[:])
	for _, perTx := range rec.SpentCoins {
		binary.LittleEndian.PutUint32(u32[:], uint32(len(perTx)))
		buf.Write(u32[:])
		for _, coin := range perTx {
			enc, err := encodeCoin(coin)
			if err != nil {
				return nil, err
			}
			binary.LittleEndian.PutUint32(u32[:], uint32(len(enc)))
			buf.Write(u32[:])
			buf.Write(enc)
		}
	}
	return buf.Bytes(), nil
}

func decodeUndoRecord(b []byte) (*UndoRecord, error) {
	r := bytes.NewReader(b)
	readU32 := func() (uint32, error) {
		var u32 [4]byte
		if _, err := r.Read(u32[:]); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint32(u32[:]), nil
	}

	txCount, err := readU32()
	if err != nil {
		return nil, err
	}
	rec := &UndoRecord{SpentCoins: make([][]*types.Coin, txCount)}
	for i := range rec.SpentCoins {
		inCount, err := readU32()
		if err != nil {
			return nil, err
		}
		coins := make([]*types.Coin, inCount)
		for j := range coins {
			coinLen, err := readU32()
			if err != nil {
				return nil, err
			}
			coinBytes := make([]byte, coinLen)
			if _, err := r.Read(coinBytes); err != nil {
				return nil, err
			}
			coin, err := decodeCoin(coinBytes)
			if err != nil {
				return nil, err
			}
			coins[j] = coin
		}
		rec.SpentCoins[i] = coins
	}
	return rec, nil
}
