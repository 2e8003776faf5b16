package wazero

import (
	"encoding/json"
)

// Minimal WebAssembly binary assembly for test fixtures.

const (
	i32 byte = 0x7f
	i64 byte = 0x7e
)

type funcType struct {
	params  []byte
	results []byte
}

type wasmImport struct {
	module, name string
	typ          funcType
}

type wasmFunc struct {
	export string
	typ    funcType
	body   []byte // instructions, without locals or the final end
}

type dataSegment struct {
	offset int32
	data   []byte
}

type moduleDef struct {
	imports     []wasmImport
	funcs       []wasmFunc
	data        []dataSegment
	memoryPages uint32
	noMemory    bool
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func vec(items ...[]byte) []byte {
	out := uleb(uint64(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func wname(s string) []byte {
	return append(uleb(uint64(len(s))), s...)
}

func section(id byte, content []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint64(len(content)))...)
	return append(out, content...)
}

func encodeType(t funcType) []byte {
	out := []byte{0x60}
	out = append(out, uleb(uint64(len(t.params)))...)
	out = append(out, t.params...)
	out = append(out, uleb(uint64(len(t.results)))...)
	return append(out, t.results...)
}

// build assembles the module. Each function gets its own type entry.
func (m moduleDef) build() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	var types [][]byte
	for _, imp := range m.imports {
		types = append(types, encodeType(imp.typ))
	}
	for _, f := range m.funcs {
		types = append(types, encodeType(f.typ))
	}
	if len(types) > 0 {
		out = append(out, section(1, vec(types...))...)
	}

	if len(m.imports) > 0 {
		var imps [][]byte
		for i, imp := range m.imports {
			entry := append(wname(imp.module), wname(imp.name)...)
			entry = append(entry, 0x00)
			entry = append(entry, uleb(uint64(i))...)
			imps = append(imps, entry)
		}
		out = append(out, section(2, vec(imps...))...)
	}

	if len(m.funcs) > 0 {
		var idx [][]byte
		for i := range m.funcs {
			idx = append(idx, uleb(uint64(len(m.imports)+i)))
		}
		out = append(out, section(3, vec(idx...))...)
	}

	if !m.noMemory {
		pages := m.memoryPages
		if pages == 0 {
			pages = 1
		}
		limits := append([]byte{0x00}, uleb(uint64(pages))...)
		out = append(out, section(5, vec(limits))...)
	}

	var exports [][]byte
	if !m.noMemory {
		exports = append(exports, append(wname("memory"), 0x02, 0x00))
	}
	for i, f := range m.funcs {
		if f.export == "" {
			continue
		}
		entry := append(wname(f.export), 0x00)
		entry = append(entry, uleb(uint64(len(m.imports)+i))...)
		exports = append(exports, entry)
	}
	if len(exports) > 0 {
		out = append(out, section(7, vec(exports...))...)
	}

	if len(m.funcs) > 0 {
		var bodies [][]byte
		for _, f := range m.funcs {
			body := append([]byte{0x00}, f.body...)
			body = append(body, 0x0b)
			bodies = append(bodies, append(uleb(uint64(len(body))), body...))
		}
		out = append(out, section(10, vec(bodies...))...)
	}

	if len(m.data) > 0 {
		var segs [][]byte
		for _, d := range m.data {
			seg := []byte{0x00, 0x41}
			seg = append(seg, sleb(int64(d.offset))...)
			seg = append(seg, 0x0b)
			seg = append(seg, uleb(uint64(len(d.data)))...)
			seg = append(seg, d.data...)
			segs = append(segs, seg)
		}
		out = append(out, section(11, vec(segs...))...)
	}

	return out
}

// Instructions.

func i32Const(v int32) []byte { return append([]byte{0x41}, sleb(int64(v))...) }
func i64Const(v int64) []byte { return append([]byte{0x42}, sleb(v)...) }
func localGet(i uint32) []byte { return append([]byte{0x20}, uleb(uint64(i))...) }
func call(i uint32) []byte     { return append([]byte{0x10}, uleb(uint64(i))...) }

var (
	opUnreachable = []byte{0x00}
	opDrop        = []byte{0x1a}
	opI32Eq       = []byte{0x46}
	opIf          = []byte{0x04, 0x40}
	opEnd         = []byte{0x0b}
	opSpin        = []byte{0x03, 0x40, 0x0c, 0x00, 0x0b} // loop { br 0 }
)

func ins(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func packed(ptr, length int) int64 {
	return int64(uint64(ptr)<<32 | uint64(length)) //nolint:gosec // test fixture values are small
}

// Fixture memory layout.
const (
	manifestOffset = 0x100
	editOffset     = 0x800
	logOffset      = 0x1800
	queryOffset    = 0x1c00
	scratchOffset  = 0x2000
)

var (
	sigAllocate  = funcType{params: []byte{i32}, results: []byte{i32}}
	sigInit      = funcType{results: []byte{i64}}
	sigClick     = funcType{params: []byte{i32}}
	sigBeforeAdd = funcType{params: []byte{i32, i32}, results: []byte{i64}}
	sigLog       = funcType{params: []byte{i64}}
	sigQuery     = funcType{params: []byte{i64}, results: []byte{i64}}
)

type addonFixture struct {
	manifest    string
	edit        string // before_add_note response JSON; empty means return 0
	logMessage  string // logged from init when non-empty
	badLogCall  bool   // init logs an out-of-range pointer
	query       string // init calls deck_get with this payload and drops the result
	initTraps   bool
	extraImport *wasmImport
	initialize  []byte // body of an _initialize export, if any
}

// addonWasm assembles an addon honoring the full export contract.
//
// Click behavior by menu index: 1 traps, 2 spins forever, anything else
// returns normally.
func addonWasm(f addonFixture) []byte {
	def := moduleDef{}
	importIdx := map[string]uint32{}
	addImport := func(imp wasmImport) {
		importIdx[imp.name] = uint32(len(def.imports))
		def.imports = append(def.imports, imp)
	}
	if f.logMessage != "" || f.badLogCall {
		addImport(wasmImport{module: "addon_host", name: "log", typ: sigLog})
	}
	if f.query != "" {
		addImport(wasmImport{module: "addon_host", name: "deck_get", typ: sigQuery})
	}
	if f.extraImport != nil {
		addImport(*f.extraImport)
	}

	var initBody []byte
	if f.logMessage != "" {
		initBody = ins(initBody, i64Const(packed(logOffset, len(f.logMessage))), call(importIdx["log"]))
		def.data = append(def.data, dataSegment{offset: logOffset, data: []byte(f.logMessage)})
	}
	if f.badLogCall {
		initBody = ins(initBody, i64Const(packed(0x7fff0000, 0x1000)), call(importIdx["log"]))
	}
	if f.query != "" {
		initBody = ins(initBody, i64Const(packed(queryOffset, len(f.query))), call(importIdx["deck_get"]), opDrop)
		def.data = append(def.data, dataSegment{offset: queryOffset, data: []byte(f.query)})
	}
	if f.initTraps {
		initBody = ins(initBody, opUnreachable)
	} else if f.manifest == "" {
		initBody = ins(initBody, i64Const(0))
	} else {
		initBody = ins(initBody, i64Const(packed(manifestOffset, len(f.manifest))))
		def.data = append(def.data, dataSegment{offset: manifestOffset, data: []byte(f.manifest)})
	}

	beforeBody := i64Const(0)
	if f.edit != "" {
		beforeBody = i64Const(packed(editOffset, len(f.edit)))
		def.data = append(def.data, dataSegment{offset: editOffset, data: []byte(f.edit)})
	}

	clickBody := ins(
		localGet(0), i32Const(1), opI32Eq, opIf, opUnreachable, opEnd,
		localGet(0), i32Const(2), opI32Eq, opIf, opSpin, opEnd,
	)

	def.funcs = []wasmFunc{
		{export: "allocate", typ: sigAllocate, body: i32Const(scratchOffset)},
		{export: "init", typ: sigInit, body: initBody},
		{export: "on_tool_menu_entry_clicked", typ: sigClick, body: clickBody},
		{export: "before_add_note", typ: sigBeforeAdd, body: beforeBody},
	}
	if f.initialize != nil {
		def.funcs = append(def.funcs, wasmFunc{export: "_initialize", typ: funcType{}, body: f.initialize})
	}
	return def.build()
}

func manifestJSON(name string, entries ...string) string {
	if entries == nil {
		entries = []string{}
	}
	data, _ := json.Marshal(map[string]any{"name": name, "tool_menu_entries": entries})
	return string(data)
}
