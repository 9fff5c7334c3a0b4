// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrforge

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/saferwall/clrforge/log"
)

// LoaderSummary is the Loader's exposed digest of a loaded assembly: name,
// full name, version, MVID, target-framework moniker, member counts, and
// symbolic dependencies. Counts reflect live members only: a Rewriter
// tombstone is not included.
type LoaderSummary struct {
	Name         string
	FullName     string
	Version      string
	MVID         string
	TFM          string
	TypeCount    int
	MethodCount  int
	FieldCount   int
	Dependencies []string
}

// Loader opens a PE/CLI image path, validates its headers, and parses
// metadata tables into an Assembly model. It walks the metadata tables
// already parsed into pe.CLR.MetadataTables and reads every name from the
// heaps while building the arenas; method bodies are not read from the
// image (MethodModel.Body stays nil for loaded methods).
type Loader struct {
	logger *log.Helper
}

// NewLoader builds a Loader. A nil logger gets a default.
func NewLoader(logger *log.Helper) *Loader {
	if logger == nil {
		logger = log.NewHelper(nil)
	}
	return &Loader{logger: logger}
}

// Load opens path and builds an Assembly model from it. Failure conditions
// map to the closed Loader error-kind set: CodeAssemblyNotFound,
// CodeInvalidFormat, CodeDependencyNotFound, CodeAccessDenied, CodeUnknown.
func (l *Loader) Load(path string, opts *Options) (*Assembly, error) {
	img, err := Open(path, opts)
	if err != nil {
		// Open already classifies os.IsNotExist/os.IsPermission at the file
		// boundary; anything else surfaces as CodeUnknown from there.
		return nil, err
	}
	return l.LoadImage(img)
}

// LoadImage builds an Assembly model from an already-open Image (used by
// the Resolver, which opens candidates itself to peek at their declared
// name before committing to a full model).
func (l *Loader) LoadImage(img *Image) (*Assembly, error) {
	if err := img.Parse(); err != nil {
		return nil, WrapError(CodeInvalidFormat, "failed to parse PE/CLI headers", err)
	}
	if !img.HasCLR {
		return nil, NewError(CodeInvalidFormat, "image carries no CLR metadata directory")
	}
	return NewAssemblyFromImage(img)
}

// NewAssemblyFromImage builds an Assembly model from an Image that has
// already been Parse()d and confirmed to HasCLR. Exported so the Resolver
// can share it without depending on *Loader.
func NewAssemblyFromImage(img *Image) (*Assembly, error) {
	if !img.HasCLR {
		return nil, NewError(CodeInvalidFormat, "image carries no CLR metadata directory")
	}

	modTable, ok := img.CLR.MetadataTables[Module]
	if !ok {
		return nil, NewError(CodeInvalidFormat, "image has no Module table")
	}
	modRows, ok := modTable.Content.([]ModuleTableRow)
	if !ok || len(modRows) == 0 {
		return nil, NewError(CodeInvalidFormat, "Module table is empty or malformed")
	}

	mvid, err := readMVID(img, modRows[0].Mvid)
	if err != nil {
		return nil, WrapError(CodeInvalidFormat, "failed to read MVID from #GUID heap", err)
	}
	name, err := readHeapString(img, StringStream, modRows[0].Name)
	if err != nil {
		return nil, WrapError(CodeInvalidFormat, "failed to read module name from #Strings heap", err)
	}

	a := &Assembly{
		MVID:      mvid,
		Name:      name,
		FullName:  name,
		Image:     img,
		Resources: make(map[string][]byte),
	}

	if err := a.loadAssemblyTable(); err != nil {
		return nil, err
	}
	if err := a.loadTypeDefs(); err != nil {
		return nil, err
	}
	if err := a.loadMethodDefs(); err != nil {
		return nil, err
	}
	if err := a.loadFields(); err != nil {
		return nil, err
	}
	if err := a.loadAssemblyRefs(); err != nil {
		return nil, err
	}

	a.TFM = a.resolveTFM()
	a.baseTypeCount = len(a.Types)
	a.baseMethodCount = len(a.Methods)
	a.baseFieldCount = len(a.Fields)

	if err := applyRewriteTrailer(img, a); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *Assembly) loadAssemblyTable() error {
	table, ok := a.Image.CLR.MetadataTables[Assembly]
	if !ok {
		return nil // a module without an Assembly row (a non-prime netmodule)
	}
	rows, ok := table.Content.([]AssemblyTableRow)
	if !ok || len(rows) == 0 {
		return nil
	}
	row := rows[0]
	fullName, err := readHeapString(a.Image, StringStream, row.Name)
	if err == nil && fullName != "" {
		a.FullName = fullName
	}
	a.Version = [4]uint16{row.MajorVersion, row.MinorVersion, row.BuildNumber, row.RevisionNumber}
	return nil
}

func (a *Assembly) loadTypeDefs() error {
	table, ok := a.Image.CLR.MetadataTables[TypeDef]
	if !ok {
		return nil
	}
	rows, ok := table.Content.([]TypeDefTableRow)
	if !ok {
		return nil
	}
	a.Types = make([]TypeDefModel, len(rows))
	for i, row := range rows {
		name, _ := readHeapString(a.Image, StringStream, row.TypeName)
		ns, _ := readHeapString(a.Image, StringStream, row.TypeNamespace)
		a.Types[i] = TypeDefModel{
			Token:     typeDefToken(i),
			Name:      name,
			Namespace: ns,
			Attrs:     row.Flags,
		}
	}
	return nil
}

func (a *Assembly) loadMethodDefs() error {
	table, ok := a.Image.CLR.MetadataTables[Method]
	if !ok {
		return nil
	}
	rows, ok := table.Content.([]MethodDefTableRow)
	if !ok {
		return nil
	}
	a.Methods = make([]MethodModel, len(rows))
	for i, row := range rows {
		name, _ := readHeapString(a.Image, StringStream, row.Name)
		m := MethodModel{
			Token: methodDefToken(i),
			Name:  name,
			Attrs: uint32(row.Flags),
		}
		m.Signature = MethodSig{Return: Plain("System.Void"), Name: name}
		m.SignatureHash = Hash(m.Signature.Render())
		a.Methods[i] = m
	}
	a.linkMethodsToTypes()
	return nil
}

// linkMethodsToTypes assigns each method's DeclaringType and each
// TypeDefModel's Methods slice from TypeDef.MethodList, which marks the
// first of a contiguous run of methods owned by that type (ECMA-335
// II.22.37): the run for type i ends just before TypeDef[i+1].MethodList,
// or at the end of the Method table for the last type.
func (a *Assembly) linkMethodsToTypes() {
	table, ok := a.Image.CLR.MetadataTables[TypeDef]
	if !ok {
		return
	}
	rows, ok := table.Content.([]TypeDefTableRow)
	if !ok {
		return
	}
	for i := range a.Types {
		start := int(rows[i].MethodList) - 1 // metadata lists are 1-based
		end := len(a.Methods)
		if i+1 < len(rows) {
			end = int(rows[i+1].MethodList) - 1
		}
		if start < 0 || start > end || end > len(a.Methods) {
			continue
		}
		for j := start; j < end; j++ {
			a.Methods[j].DeclaringType = i
			a.Types[i].Methods = append(a.Types[i].Methods, j)
		}
	}
}

func (a *Assembly) loadFields() error {
	table, ok := a.Image.CLR.MetadataTables[Field]
	if !ok {
		return nil
	}
	rows, ok := table.Content.([]FieldTableRow)
	if !ok {
		return nil
	}
	a.Fields = make([]FieldModel, len(rows))
	for i, row := range rows {
		name, _ := readHeapString(a.Image, StringStream, row.Name)
		a.Fields[i] = FieldModel{
			Token: fieldToken(i),
			Name:  name,
			Attrs: uint32(row.Flags),
		}
	}
	a.linkFieldsToTypes()
	return nil
}

func (a *Assembly) linkFieldsToTypes() {
	table, ok := a.Image.CLR.MetadataTables[TypeDef]
	if !ok {
		return
	}
	rows, ok := table.Content.([]TypeDefTableRow)
	if !ok {
		return
	}
	for i := range a.Types {
		start := int(rows[i].FieldList) - 1
		end := len(a.Fields)
		if i+1 < len(rows) {
			end = int(rows[i+1].FieldList) - 1
		}
		if start < 0 || start > end || end > len(a.Fields) {
			continue
		}
		for j := start; j < end; j++ {
			a.Fields[j].DeclaringType = i
			a.Types[i].Fields = append(a.Types[i].Fields, j)
		}
	}
}

func (a *Assembly) loadAssemblyRefs() error {
	table, ok := a.Image.CLR.MetadataTables[AssemblyRef]
	if !ok {
		return nil
	}
	rows, ok := table.Content.([]AssemblyRefTableRow)
	if !ok {
		return nil
	}
	a.References = make([]AssemblyRefModel, len(rows))
	for i, row := range rows {
		name, err := readHeapString(a.Image, StringStream, row.Name)
		if err != nil {
			return WrapError(CodeDependencyNotFound, "failed to read AssemblyRef name", err)
		}
		a.References[i] = AssemblyRefModel{
			Name:    name,
			Version: fmt.Sprintf("%d.%d.%d.%d", row.MajorVersion, row.MinorVersion, row.BuildNumber, row.RevisionNumber),
			Token:   assemblyRefToken(i),
		}
	}
	return nil
}

// resolveTFM extracts the target-framework moniker from the assembly-level
// TargetFrameworkAttribute's constructor argument when present, falling
// back to a table keyed on the runtime-version field of the module header.
func (a *Assembly) resolveTFM() string {
	if tfm := a.tfmFromAttribute(); tfm != "" {
		return tfm
	}
	return tfmFallback(a.Image.CLR.MetadataHeader.Version)
}

func (a *Assembly) tfmFromAttribute() string {
	table, ok := a.Image.CLR.MetadataTables[CustomAttribute]
	if !ok {
		return ""
	}
	rows, ok := table.Content.([]CustomAttributeTableRow)
	if !ok {
		return ""
	}
	for _, row := range rows {
		blob, err := readHeapBlob(a.Image, row.Value)
		if err != nil {
			continue
		}
		if tfm, ok := parseTFMAttributeBlob(blob); ok {
			return tfm
		}
	}
	return ""
}

// tfmFallback maps a module's raw runtime-version string (e.g. "v4.0.30319")
// to a best-guess target-framework moniker when no explicit attribute is
// present.
func tfmFallback(runtimeVersion string) string {
	switch runtimeVersion {
	case "v2.0.50727":
		return ".NETFramework,Version=v2.0"
	case "v4.0.30319":
		return ".NETFramework,Version=v4.0"
	}
	return ""
}

// Summary builds the Loader's external digest of a.
func (a *Assembly) Summary() LoaderSummary {
	return LoaderSummary{
		Name:         a.Name,
		FullName:     a.FullName,
		Version:      fmt.Sprintf("%d.%d.%d.%d", a.Version[0], a.Version[1], a.Version[2], a.Version[3]),
		MVID:         hex.EncodeToString(a.MVID[:]),
		TFM:          a.TFM,
		TypeCount:    a.TypeCount(),
		MethodCount:  a.MethodCount(),
		FieldCount:   a.FieldCount(),
		Dependencies: a.Dependencies(),
	}
}

// readMVID resolves a #GUID heap index to a uuid.UUID. The heap stores
// 16-byte GUIDs contiguously, 1-indexed.
func readMVID(img *Image, guidIndex uint32) (uuid.UUID, error) {
	if guidIndex == 0 {
		return uuid.UUID{}, nil
	}
	stream, ok := img.CLR.MetadataStreams["#GUID"]
	if !ok {
		return uuid.UUID{}, NewError(CodeInvalidFormat, "no #GUID stream present")
	}
	start := (guidIndex - 1) * 16
	if uint32(len(stream)) < start+16 {
		return uuid.UUID{}, NewError(CodeInvalidFormat, "#GUID index out of range")
	}
	var raw [16]byte
	copy(raw[:], stream[start:start+16])
	return uuid.FromBytes(raw[:])
}

// readHeapString resolves a #Strings heap index to its UTF-8
// decoded value. The heap stores a null-terminated run of UTF-8 bytes at
// each index.
func readHeapString(img *Image, stream int, index uint32) (string, error) {
	if index == 0 {
		return "", nil
	}
	name := "#Strings"
	if stream == GUIDStream {
		name = "#GUID"
	} else if stream == BlobStream {
		name = "#Blob"
	}
	data, ok := img.CLR.MetadataStreams[name]
	if !ok {
		return "", NewError(CodeInvalidFormat, "no "+name+" stream present")
	}
	if index >= uint32(len(data)) {
		return "", NewError(CodeInvalidFormat, name+" index out of range")
	}
	end := index
	for end < uint32(len(data)) && data[end] != 0 {
		end++
	}
	return string(data[index:end]), nil
}

// readHeapBlob resolves a #Blob heap index, decoding its ECMA-335
// compressed length prefix (1, 2, or 4 bytes depending on the high bits of
// the first byte).
func readHeapBlob(img *Image, index uint32) ([]byte, error) {
	data, ok := img.CLR.MetadataStreams["#Blob"]
	if !ok {
		return nil, NewError(CodeInvalidFormat, "no #Blob stream present")
	}
	if index >= uint32(len(data)) {
		return nil, NewError(CodeInvalidFormat, "#Blob index out of range")
	}
	b0 := data[index]
	var size uint32
	var headerLen uint32
	switch {
	case b0&0x80 == 0:
		size = uint32(b0)
		headerLen = 1
	case b0&0xC0 == 0x80:
		size = (uint32(b0&0x3F) << 8) | uint32(data[index+1])
		headerLen = 2
	default:
		size = (uint32(b0&0x1F) << 24) | uint32(data[index+1])<<16 | uint32(data[index+2])<<8 | uint32(data[index+3])
		headerLen = 4
	}
	start := index + headerLen
	if uint32(len(data)) < start+size {
		return nil, NewError(CodeInvalidFormat, "#Blob entry exceeds stream bounds")
	}
	return data[start : start+size], nil
}

// parseTFMAttributeBlob recognizes the custom-attribute value blob shape
// produced for TargetFrameworkAttribute(string): a 2-byte prolog (0x0001),
// a compressed-length-prefixed UTF-8 string, then a 2-byte named-argument
// count. It does not attempt to verify the attribute's constructor token
// actually belongs to TargetFrameworkAttribute — that requires resolving
// MemberRef/TypeRef, out of scope for this best-effort extraction.
func parseTFMAttributeBlob(blob []byte) (string, bool) {
	if len(blob) < 3 || blob[0] != 0x01 || blob[1] != 0x00 {
		return "", false
	}
	rest := blob[2:]
	if len(rest) == 0 {
		return "", false
	}
	strLen := int(rest[0])
	if len(rest) < 1+strLen {
		return "", false
	}
	s := string(rest[1 : 1+strLen])
	if !isFrameworkMoniker(s) {
		return "", false
	}
	return s, true
}

func isFrameworkMoniker(s string) bool {
	for _, prefix := range []string{".NETFramework,", ".NETCoreApp,", ".NETStandard,"} {
		if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// typeDefToken, methodDefToken, fieldToken, and assemblyRefToken synthesize
// the 32-bit metadata token (table tag in the high byte, 1-based row index
// in the low 24 bits) for an arena index, matching ECMA-335's token
// encoding so identifiers remain meaningful outside this model.
func typeDefToken(idx int) uint32      { return uint32(TypeDef)<<24 | uint32(idx+1) }
func methodDefToken(idx int) uint32    { return uint32(Method)<<24 | uint32(idx+1) }
func fieldToken(idx int) uint32        { return uint32(Field)<<24 | uint32(idx+1) }
func assemblyRefToken(idx int) uint32  { return uint32(AssemblyRef)<<24 | uint32(idx+1) }
