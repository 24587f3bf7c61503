//go:build unix

package storage

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// MmapDiskManager provides page access through a memory-mapped
// file. Page reads and writes are memcpy against the
// mapping; WritePage additionally msyncs the touched range so the
// flush-on-request contract holds.
type MmapDiskManager struct {
	file     *os.File
	mmapData []byte
	fileSize int64
	mutex    sync.RWMutex
	growMu   sync.Mutex // serializes file growth and remapping
}

const (
	// mmapInitialSize is the starting file size: 16MB (4096 pages)
	mmapInitialSize = 16 * 1024 * 1024
	// mmapGrowSize is the growth increment when a page lands past the end
	mmapGrowSize = 16 * 1024 * 1024
)

// NewMmapDiskManager opens or creates a memory-mapped page file
func NewMmapDiskManager(fileName string) (*MmapDiskManager, error) {
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open/create file %s: %w", fileName, err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	fileSize := fileInfo.Size()
	if fileSize < mmapInitialSize {
		if err := file.Truncate(mmapInitialSize); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to grow file: %w", err)
		}
		fileSize = mmapInitialSize
	}

	dm := &MmapDiskManager{
		file:     file,
		fileSize: fileSize,
	}
	if err := dm.createMapping(); err != nil {
		file.Close()
		return nil, err
	}
	return dm, nil
}

// createMapping maps the whole file read-write and shared
func (dm *MmapDiskManager) createMapping() error {
	data, err := unix.Mmap(int(dm.file.Fd()), 0, int(dm.fileSize),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("failed to mmap file: %w", err)
	}
	dm.mmapData = data
	return nil
}

// ensureCapacity grows the file and remaps when offset+PageSize exceeds
// the current mapping
func (dm *MmapDiskManager) ensureCapacity(offset int64) error {
	dm.growMu.Lock()
	defer dm.growMu.Unlock()

	if offset+PageSize <= dm.fileSize {
		return nil
	}

	newSize := dm.fileSize
	for offset+PageSize > newSize {
		newSize += mmapGrowSize
	}

	// Remap under the write lock so no reader holds the stale mapping
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	if err := unix.Munmap(dm.mmapData); err != nil {
		return fmt.Errorf("failed to unmap file: %w", err)
	}
	if err := dm.file.Truncate(newSize); err != nil {
		return fmt.Errorf("failed to grow file: %w", err)
	}
	dm.fileSize = newSize
	return dm.createMapping()
}

// ReadPage copies the page out of the mapping
func (dm *MmapDiskManager) ReadPage(pageID PageID, data []byte) error {
	if err := checkPageBuffer(pageID, data); err != nil {
		return err
	}

	offset := int64(pageID) * PageSize

	dm.mutex.RLock()
	if offset+PageSize > dm.fileSize {
		dm.mutex.RUnlock()
		// Never-written page reads as zeroes
		for i := range data {
			data[i] = 0
		}
		return nil
	}
	copy(data, dm.mmapData[offset:offset+PageSize])
	dm.mutex.RUnlock()
	return nil
}

// WritePage copies the page into the mapping and msyncs the range
func (dm *MmapDiskManager) WritePage(pageID PageID, data []byte) error {
	if err := checkPageBuffer(pageID, data); err != nil {
		return err
	}

	offset := int64(pageID) * PageSize
	if err := dm.ensureCapacity(offset); err != nil {
		return err
	}

	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	copy(dm.mmapData[offset:offset+PageSize], data)

	// Page offsets are 4KB-aligned, which satisfies msync alignment
	if err := unix.Msync(dm.mmapData[offset:offset+PageSize], unix.MS_SYNC); err != nil {
		return fmt.Errorf("failed to msync page %d: %w", pageID, err)
	}
	return nil
}

// Close unmaps and closes the page file
func (dm *MmapDiskManager) Close() error {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	if dm.mmapData != nil {
		if err := unix.Munmap(dm.mmapData); err != nil {
			return fmt.Errorf("failed to unmap file: %w", err)
		}
		dm.mmapData = nil
	}
	if dm.file != nil {
		return dm.file.Close()
	}
	return nil
}
