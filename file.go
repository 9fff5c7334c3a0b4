// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"os"

	"github.com/saferwall/clrforge/log"
)

// Image is an open PE/CLI image: the raw header, section, and metadata-table
// structure a Loader parses before the higher-level Assembly model (see
// model.go) is built on top of it.
//
// Unlike the teacher this image never memory-maps or keeps its source file
// open: spec.md §4.4 requires the on-disk file to never be held open, so
// that a later Rewriter.Save can overwrite it without fighting a live
// mapping or file-lock. Open reads the whole file into data once; nothing
// touches the filesystem after that.
type Image struct {
	DOSHeader ImageDOSHeader `json:"dos_header,omitempty"`
	NtHeader  ImageNtHeader  `json:"nt_header,omitempty"`
	Sections  []Section      `json:"sections,omitempty"`
	CLR       CLRData        `json:"clr,omitempty"`
	Anomalies []string       `json:"anomalies,omitempty"`

	data mmapLikeBuffer
	FileInfo
	size          uint32
	OverlayOffset int64
	opts          *Options
	logger        *log.Helper
}

// mmapLikeBuffer is a plain byte slice; the name documents that it plays the
// role the teacher's mmap.MMap played, without holding the file open.
type mmapLikeBuffer []byte

// Options configures parsing.
type Options struct {
	// Fast stops after the DOS, NT and section headers, skipping the CLR
	// directory and its metadata tables (by default false).
	Fast bool

	// SectionEntropy computes Shannon entropy for every section (useful for
	// spotting packed or obfuscated method bodies); off by default since it
	// walks every section's raw bytes.
	SectionEntropy bool

	// A custom logger; nil uses a default stderr logger at LevelInfo.
	Logger log.Logger
}

// Open reads name fully into memory and parses it as a PE/CLI image. The
// returned Image holds no reference to the filesystem: the file is closed
// before Open returns.
func Open(name string, opts *Options) (*Image, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Code: CodeAssemblyNotFound, Message: err.Error(), Cause: err}
		}
		if os.IsPermission(err) {
			return nil, &Error{Code: CodeAccessDenied, Message: err.Error(), Cause: err}
		}
		return nil, &Error{Code: CodeUnknown, Message: err.Error(), Cause: err}
	}
	return NewBytes(data, opts)
}

// NewBytes parses an in-memory PE/CLI image. Used directly by callers that
// already hold the bytes (e.g. Rewriter.SaveToMemory round-trips) and by
// Open above.
func NewBytes(data []byte, opts *Options) (*Image, error) {
	img := &Image{}
	if opts != nil {
		img.opts = opts
	} else {
		img.opts = &Options{}
	}

	var logger log.Logger
	if img.opts.Logger == nil {
		logger = log.NewStdLogger(os.Stderr)
	} else {
		logger = img.opts.Logger
	}
	img.logger = log.NewHelper(log.NewFilter(logger, log.FilterLevel(log.LevelInfo)))

	img.data = data
	img.size = uint32(len(img.data))
	return img, nil
}

// Parse performs the full PE/CLI header walk: DOS header, NT header,
// sections, and (unless Options.Fast) the CLR directory and its metadata
// tables.
func (pe *Image) Parse() error {
	if len(pe.data) < TinyPESize {
		return ErrInvalidPESize
	}

	if err := pe.ParseDOSHeader(); err != nil {
		return err
	}

	if err := pe.ParseNTHeader(); err != nil {
		return err
	}

	if err := pe.ParseSectionHeader(); err != nil {
		return err
	}

	if pe.opts.Fast {
		return nil
	}

	return pe.ParseDataDirectories()
}

// String stringify the data directory entry.
func (entry ImageDirectoryEntry) String() string {
	dataDirMap := map[ImageDirectoryEntry]string{
		ImageDirectoryEntryExport:      "Export",
		ImageDirectoryEntryImport:      "Import",
		ImageDirectoryEntryResource:    "Resource",
		ImageDirectoryEntryException:   "Exception",
		ImageDirectoryEntryCertificate: "Security",
		ImageDirectoryEntryBaseReloc:   "Relocation",
		ImageDirectoryEntryDebug:       "Debug",
		ImageDirectoryEntryGlobalPtr:   "GlobalPtr",
		ImageDirectoryEntryTLS:         "TLS",
		ImageDirectoryEntryLoadConfig:  "LoadConfig",
		ImageDirectoryEntryBoundImport: "BoundImport",
		ImageDirectoryEntryIAT:         "IAT",
		ImageDirectoryEntryDelayImport: "DelayImport",
		ImageDirectoryEntryCLR:         "CLR",
		ImageDirectoryEntryReserved:    "Reserved",
	}

	return dataDirMap[entry]
}

// ParseDataDirectories walks the optional header's 16-entry data directory
// array and parses the single entry this model cares about: the CLR runtime
// header. Every other directory is left untouched so Rewriter.Save can
// reproduce it byte-for-byte.
func (pe *Image) ParseDataDirectories() error {
	oh32 := ImageOptionalHeader32{}
	oh64 := ImageOptionalHeader64{}

	switch pe.Is64 {
	case true:
		oh64 = pe.NtHeader.OptionalHeader.(ImageOptionalHeader64)
	case false:
		oh32 = pe.NtHeader.OptionalHeader.(ImageOptionalHeader32)
	}

	var va, size uint32
	switch pe.Is64 {
	case true:
		dirEntry := oh64.DataDirectory[ImageDirectoryEntryCLR]
		va, size = dirEntry.VirtualAddress, dirEntry.Size
	case false:
		dirEntry := oh32.DataDirectory[ImageDirectoryEntryCLR]
		va, size = dirEntry.VirtualAddress, dirEntry.Size
	}

	if va == 0 {
		return nil
	}

	if err := pe.parseCLRHeaderDirectory(va, size); err != nil {
		pe.logger.Warnf("failed to parse CLR directory: %v", err)
		return err
	}
	return nil
}
