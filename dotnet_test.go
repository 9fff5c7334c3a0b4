// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"reflect"
	"testing"
)

func TestParseCLRHeaderDirectory(t *testing.T) {
	img, err := NewBytes(buildMinimalCLRImage(), nil)
	if err != nil {
		t.Fatalf("NewBytes() failed, reason: %v", err)
	}
	if err := img.Parse(); err != nil {
		t.Fatalf("Parse() failed, reason: %v", err)
	}

	if img.CLR.CLRHeader.MajorRuntimeVersion != 2 || img.CLR.CLRHeader.MinorRuntimeVersion != 5 {
		t.Errorf("CLRHeader runtime version = %d.%d, want 2.5",
			img.CLR.CLRHeader.MajorRuntimeVersion, img.CLR.CLRHeader.MinorRuntimeVersion)
	}
	if img.CLR.CLRHeader.Flags != COMImageFlagsILOnly {
		t.Errorf("CLRHeader.Flags = %#x, want %#x", img.CLR.CLRHeader.Flags, COMImageFlagsILOnly)
	}

	if img.CLR.MetadataHeader.Signature != 0x424A5342 {
		t.Errorf("MetadataHeader.Signature = %#x, want BSJB", img.CLR.MetadataHeader.Signature)
	}
	if img.CLR.MetadataHeader.Version != "v4.0.30319" {
		t.Errorf("MetadataHeader.Version = %q, want %q", img.CLR.MetadataHeader.Version, "v4.0.30319")
	}
	if img.CLR.MetadataHeader.Streams != 1 {
		t.Errorf("MetadataHeader.Streams = %d, want 1", img.CLR.MetadataHeader.Streams)
	}

	if _, ok := img.CLR.MetadataStreams["#~"]; !ok {
		t.Fatalf("expected a #~ stream to be captured")
	}

	moduleTable, ok := img.CLR.MetadataTables[Module]
	if !ok {
		t.Fatalf("expected a Module table entry")
	}
	if moduleTable.CountCols != 1 {
		t.Errorf("Module table CountCols = %d, want 1", moduleTable.CountCols)
	}
	rows, ok := moduleTable.Content.([]ModuleTableRow)
	if !ok || len(rows) != 1 {
		t.Fatalf("Module table Content = %#v, want []ModuleTableRow with one row", moduleTable.Content)
	}
	row := rows[0]
	want := ModuleTableRow{Generation: 0, Name: 1, Mvid: 1, EncID: 0, EncBaseID: 0}
	if !reflect.DeepEqual(row, want) {
		t.Errorf("Module table row = %+v, want %+v", row, want)
	}
}

func TestGetMetadataStreamIndexSize(t *testing.T) {
	img, err := NewBytes(buildMinimalCLRImage(), nil)
	if err != nil {
		t.Fatalf("NewBytes() failed, reason: %v", err)
	}
	if err := img.Parse(); err != nil {
		t.Fatalf("Parse() failed, reason: %v", err)
	}

	// The fixture's #~ stream sets Heaps=0, so every heap index is 2 bytes.
	for _, stream := range []int{StringStream, GUIDStream, BlobStream} {
		if got := img.GetMetadataStreamIndexSize(stream); got != 2 {
			t.Errorf("GetMetadataStreamIndexSize(%d) = %d, want 2", stream, got)
		}
	}
}

func TestMetadataTableIndexToString(t *testing.T) {
	tests := []struct {
		in  int
		out string
	}{
		{Module, "Module"},
		{TypeDef, "TypeDef"},
		{Method, "Method"},
		{999, ""},
	}
	for _, tt := range tests {
		if got := MetadataTableIndexToString(tt.in); got != tt.out {
			t.Errorf("MetadataTableIndexToString(%d) = %q, want %q", tt.in, got, tt.out)
		}
	}
}

func TestCOMImageFlagsTypeString(t *testing.T) {
	flags := COMImageFlagsType(COMImageFlagsILOnly | COMImageFlagsStrongNameSigned)
	got := flags.String()

	seen := map[string]bool{}
	for _, s := range got {
		seen[s] = true
	}
	if !seen["IL Only"] || !seen["Strong Name Signed"] {
		t.Errorf("COMImageFlagsType.String() = %v, want it to include IL Only and Strong Name Signed", got)
	}
}
