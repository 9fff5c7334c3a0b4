// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"bytes"
	"encoding/binary"
)

// buildMinimalCLRImage assembles, in memory, the smallest PE32 image this
// package can fully parse: a DOS stub, an NT header with one section, and a
// CLR runtime header pointing at a metadata root with a single-row Module
// table. It exists so tests never depend on a binary fixture checked into
// the repo.
func buildMinimalCLRImage() []byte {
	const (
		lfanew      = 0x80
		sectionRVA  = 0x2000
		fileAlign   = 0x200
		sectionFile = 0x200
	)

	metadataRoot := buildMetadataRoot()
	cor20 := ImageCOR20Header{
		Cb:                   uint32(binary.Size(ImageCOR20Header{})),
		MajorRuntimeVersion:  2,
		MinorRuntimeVersion:  5,
		MetaData:             ImageDataDirectory{VirtualAddress: sectionRVA + uint32(binary.Size(ImageCOR20Header{})), Size: uint32(len(metadataRoot))},
		Flags:                COMImageFlagsILOnly,
		EntryPointRVAorToken: 0,
	}

	var sectionData bytes.Buffer
	binary.Write(&sectionData, binary.LittleEndian, cor20)
	sectionData.Write(metadataRoot)
	for sectionData.Len()%fileAlign != 0 {
		sectionData.WriteByte(0)
	}

	dos := ImageDOSHeader{Magic: ImageDOSSignature, AddressOfNewEXEHeader: lfanew}
	fh := ImageFileHeader{
		Machine:          ImageFileHeaderMachineType(ImageFileMachineI386),
		NumberOfSections: 1,
		Characteristics:  ImageFileHeaderCharacteristicsType(ImageFileExecutableImage | ImageFile32BitMachine),
	}
	oh := ImageOptionalHeader32{
		Magic:               ImageNtOptionalHeader32Magic,
		AddressOfEntryPoint: sectionRVA,
		ImageBase:           0x400000,
		SectionAlignment:    0x1000,
		FileAlignment:       fileAlign,
		SizeOfImage:         0x3000,
		SizeOfHeaders:       fileAlign,
		NumberOfRvaAndSizes: uint32(ImageNumberOfDirectoryEntries),
	}
	oh.DataDirectory[ImageDirectoryEntryCLR] = DataDirectory{VirtualAddress: sectionRVA, Size: cor20.Cb}
	fh.SizeOfOptionalHeader = uint16(binary.Size(oh))

	sectionHeaderOffset := lfanew + 4 + uint32(binary.Size(fh)) + uint32(fh.SizeOfOptionalHeader)
	sectionDataOffset := sectionFile
	for sectionDataOffset < int(sectionHeaderOffset)+int(binary.Size(ImageSectionHeader{})) {
		sectionDataOffset += fileAlign
	}

	sh := ImageSectionHeader{
		Name:             [8]uint8{'.', 't', 'e', 'x', 't'},
		VirtualSize:      uint32(sectionData.Len()),
		VirtualAddress:   sectionRVA,
		SizeOfRawData:    uint32(sectionData.Len()),
		PointerToRawData: uint32(sectionDataOffset),
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, dos)
	for buf.Len() < lfanew {
		buf.WriteByte(0)
	}
	binary.Write(&buf, binary.LittleEndian, uint32(ImageNTSignature))
	binary.Write(&buf, binary.LittleEndian, fh)
	binary.Write(&buf, binary.LittleEndian, oh)
	binary.Write(&buf, binary.LittleEndian, sh)
	for buf.Len() < sectionDataOffset {
		buf.WriteByte(0)
	}
	buf.Write(sectionData.Bytes())

	return buf.Bytes()
}

// buildMetadataRoot builds a BSJB metadata root with a single "#~" stream
// describing one Module table row. Index widths are all 2 bytes (Heaps=0),
// so the heap contents themselves are never read.
func buildMetadataRoot() []byte {
	version := "v4.0.30319\x00\x00" // padded to a 4-byte boundary
	var header bytes.Buffer
	binary.Write(&header, binary.LittleEndian, uint32(0x424A5342)) // BSJB
	binary.Write(&header, binary.LittleEndian, uint16(1))
	binary.Write(&header, binary.LittleEndian, uint16(1))
	binary.Write(&header, binary.LittleEndian, uint32(0))
	binary.Write(&header, binary.LittleEndian, uint32(len(version)))
	header.WriteString(version)
	binary.Write(&header, binary.LittleEndian, uint8(0)) // Flags
	binary.Write(&header, binary.LittleEndian, uint8(0)) // padding
	binary.Write(&header, binary.LittleEndian, uint16(1)) // Streams

	streamName := "#~\x00\x00"
	streamHeaderSize := 4 + 4 + len(streamName)
	streamDataOffset := uint32(header.Len() + streamHeaderSize)

	tableStream := buildTableStream()
	binary.Write(&header, binary.LittleEndian, streamDataOffset)
	binary.Write(&header, binary.LittleEndian, uint32(len(tableStream)))
	header.WriteString(streamName)

	header.Write(tableStream)
	return header.Bytes()
}

// buildTableStream builds a #~ stream containing only the Module table,
// with one row naming heap offsets that are never dereferenced by the test.
func buildTableStream() []byte {
	row := ModuleTableRow{Generation: 0, Name: 1, Mvid: 1, EncID: 0, EncBaseID: 0}

	var buf bytes.Buffer
	hdr := MetadataTableStreamHeader{
		Reserved:     0,
		MajorVersion: 2,
		MinorVersion: 0,
		Heaps:        0,
		RID:          1,
		MaskValid:    1 << Module,
		Sorted:       0,
	}
	binary.Write(&buf, binary.LittleEndian, hdr)
	binary.Write(&buf, binary.LittleEndian, uint32(1)) // one Module row

	binary.Write(&buf, binary.LittleEndian, uint16(row.Generation))
	binary.Write(&buf, binary.LittleEndian, uint16(row.Name))
	binary.Write(&buf, binary.LittleEndian, uint16(row.Mvid))
	binary.Write(&buf, binary.LittleEndian, uint16(row.EncID))
	binary.Write(&buf, binary.LittleEndian, uint16(row.EncBaseID))

	return buf.Bytes()
}
