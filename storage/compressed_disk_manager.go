package storage

// CompressedDiskManager wraps another DiskManager and compresses pages
// into their fixed slots. A page whose compressed frame fits is stored
// framed (magic header + payload) and decompressed transparently on
// read; incompressible pages are stored raw. The slot layout on the
// inner manager is unchanged, so compression can be toggled between
// runs without rewriting the file.
type CompressedDiskManager struct {
	inner DiskManager
	ctype CompressionType
}

// NewCompressedDiskManager wraps dm with the given codec.
// CompressionNone makes the wrapper a passthrough.
func NewCompressedDiskManager(dm DiskManager, ctype CompressionType) *CompressedDiskManager {
	return &CompressedDiskManager{inner: dm, ctype: ctype}
}

// WritePage compresses and frames the page when it pays off, otherwise
// stores it raw
func (dm *CompressedDiskManager) WritePage(pageID PageID, data []byte) error {
	if err := checkPageBuffer(pageID, data); err != nil {
		return err
	}
	if dm.ctype == CompressionNone {
		return dm.inner.WritePage(pageID, data)
	}

	cp, err := CompressPage(data, dm.ctype)
	if err != nil {
		return ErrDiskWrite("CompressedDiskManager.WritePage", pageID, err)
	}
	if cp.Type == CompressionNone {
		// Codec did not pay off; the frame header would not fit either
		return dm.inner.WritePage(pageID, data)
	}

	frame, err := cp.encodeFrame()
	if err != nil {
		return ErrDiskWrite("CompressedDiskManager.WritePage", pageID, err)
	}
	return dm.inner.WritePage(pageID, frame)
}

// ReadPage reads the slot and decompresses it when the compressed-page
// magic is present. The checksum in the frame guards against a raw page
// that happens to start with the magic bytes.
func (dm *CompressedDiskManager) ReadPage(pageID PageID, data []byte) error {
	if err := checkPageBuffer(pageID, data); err != nil {
		return err
	}

	frame := make([]byte, PageSize)
	if err := dm.inner.ReadPage(pageID, frame); err != nil {
		return err
	}

	cp, framed, err := decodeFrame(frame)
	if err != nil {
		return ErrPageCorrupted("CompressedDiskManager.ReadPage", pageID, err.Error())
	}
	if !framed {
		copy(data, frame)
		return nil
	}

	decompressed, err := DecompressPage(cp)
	if err != nil {
		return ErrPageCorrupted("CompressedDiskManager.ReadPage", pageID, err.Error())
	}
	copy(data, decompressed)
	return nil
}

// Close closes the wrapped manager
func (dm *CompressedDiskManager) Close() error {
	return dm.inner.Close()
}
