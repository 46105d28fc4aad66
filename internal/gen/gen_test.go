package gen

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/buffham/internal/protocol"
	"github.com/danmuck/buffham/internal/protocol/codec"
	"github.com/danmuck/buffham/internal/protocol/schema"
	"github.com/danmuck/buffham/internal/testutil/testlog"
)

const imuSchema = `message Ping:
    uint16 seq
    uint64 timestamp

message RawImuData:
    uint16 accel_x
    uint16 accel_y
    uint16 accel_z
    uint16 gyro_x
    uint16 gyro_y
    uint16 gyro_z
    uint16 temp
    uint64 timestamp
`

func parseIMU(t *testing.T) []*schema.Message {
	t.Helper()
	msgs, err := schema.Parse(imuSchema, schema.ParseOptions{Source: "imu.bh"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return msgs
}

type partialBackend struct{ C }

func (partialBackend) Name() string { return "partial" }

func (partialBackend) Types() TypeMap {
	return TypeMap{protocol.Uint16: {Native: "uint16_t", Codec: "u16"}}
}

func TestRegistryRejectsPartialTypeMap(t *testing.T) {
	testlog.Start(t)
	_, err := NewRegistry(NewC(), partialBackend{})
	if !errors.Is(err, ErrUnmappedType) {
		t.Fatalf("expected ErrUnmappedType, got %v", err)
	}
	var ge *GenerateError
	if !errors.As(err, &ge) || ge.Backend != "partial" {
		t.Fatalf("expected GenerateError for partial, got %v", err)
	}
}

func TestRegistryLookupAndNames(t *testing.T) {
	testlog.Start(t)
	r := DefaultRegistry(Options{})
	want := []string{"c", "cxx", "go", "manifest", "python"}
	got := r.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("names: %v", got)
	}
	if b, err := r.Lookup(" Python "); err != nil || b.Name() != "python" {
		t.Fatalf("lookup python: %v", err)
	}
	if _, err := r.Lookup("rust"); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
	if err := r.Register(NewC()); !errors.Is(err, ErrBackendExists) {
		t.Fatalf("expected ErrBackendExists, got %v", err)
	}
}

func TestBuildComputesSharedLayout(t *testing.T) {
	testlog.Start(t)
	msgs := parseIMU(t)
	for _, name := range DefaultRegistry(Options{}).Names() {
		b, _ := DefaultRegistry(Options{}).Lookup(name)
		u, err := Build("schemas/imu.bh", msgs, b)
		if err != nil {
			t.Fatalf("%s: build: %v", name, err)
		}
		if u.Source != "imu.bh" || u.Stem != "imu" || u.Magic != "Bh" || u.HeaderLen != 5 {
			t.Fatalf("%s: unit header: %+v", name, u)
		}
		for i, decl := range u.Types {
			msg := msgs[i]
			if decl.ID != msg.ID() || decl.TotalSize != msg.TotalSize() {
				t.Fatalf("%s: %s sizes differ from model", name, decl.Name)
			}
			offs := msg.Offsets()
			for j, s := range decl.Slots {
				if s.Offset != offs[j] || s.Width != msg.Field(j).Type.Width() {
					t.Fatalf("%s: %s.%s at %d/%d, model %d", name, decl.Name, s.Name, s.Offset, s.Width, offs[j])
				}
			}
			last := decl.Slots[len(decl.Slots)-1]
			if last.End() != decl.TotalSize {
				t.Fatalf("%s: %s slots end at %d, total %d", name, decl.Name, last.End(), decl.TotalSize)
			}
		}
	}
}

func TestBuildRejectsReservedNames(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		backend Backend
		src     string
	}{
		{NewC(), "message M:\n  uint16 int\n"},
		{NewCxx(), "message M:\n  uint16 encode\n"},
		{NewCxx(), "message class:\n  uint16 a\n"},
		{NewPython(), "message M:\n  uint16 self\n"},
		{NewPython(), "message M:\n  uint16 lambda\n"},
		{NewPython(), "message M:\n  uint16 __dict__\n"},
		{NewC(), "message M:\n  uint16 BH_OK\n"},
		{NewC(), "message bh_put_u16:\n  uint16 a\n"},
		{NewC(), "message malloc:\n  uint16 a\n"},
		{NewCxx(), "message M:\n  uint16 bh_buf\n"},
		{NewCxx(), "message std:\n  uint16 a\n"},
	}
	for _, tc := range cases {
		msgs, err := schema.Parse(tc.src, schema.ParseOptions{})
		if err != nil {
			t.Fatalf("parse %q: %v", tc.src, err)
		}
		if _, err := Generate("x.bh", msgs, tc.backend); !errors.Is(err, ErrReservedName) {
			t.Fatalf("%s %q: expected ErrReservedName, got %v", tc.backend.Name(), tc.src, err)
		}
	}
}

func TestRenderRejectsGeneratedNameCollisions(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		backend Backend
		src     string
	}{
		{NewC(), "message Foo:\n  uint16 a\n\nmessage Foo_ID:\n  uint16 b\n"},
		{NewC(), "message Foo_decode:\n  uint16 a\n\nmessage Foo:\n  uint16 b\n"},
		{NewC(), "message Foo:\n  uint16 a\n\nmessage Bar:\n  uint16 Foo_PAYLOAD_SIZE\n"},
		{NewCxx(), "message Foo:\n  uint16 Foo\n"},
		{NewPython(), "message len:\n  uint16 a\n"},
		{NewPython(), "message _HEADER:\n  uint16 a\n"},
		{NewPython(), "message _check_header:\n  uint16 a\n"},
		{NewPython(), "message isinstance:\n  uint16 a\n"},
		{NewPython(), "message other:\n  uint16 a\n"},
	}
	for _, tc := range cases {
		msgs, err := schema.Parse(tc.src, schema.ParseOptions{})
		if err != nil {
			t.Fatalf("parse %q: %v", tc.src, err)
		}
		if _, err := Generate("x.bh", msgs, tc.backend); !errors.Is(err, ErrNameCollision) {
			t.Fatalf("%s %q: expected ErrNameCollision, got %v", tc.backend.Name(), tc.src, err)
		}
	}
}

// Emitted locals carry the bh_ prefix, so schema names that read like
// parameters stay usable.
func TestCFamilyLocalsDoNotClaimSchemaNames(t *testing.T) {
	testlog.Start(t)
	msgs, err := schema.Parse("message len:\n  uint16 buf\n\nmessage buf:\n  uint16 out\n\nmessage out:\n  uint16 msg\n", schema.ParseOptions{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, b := range []Backend{NewC(), NewCxx()} {
		out, err := Generate("x.bh", msgs, b)
		if err != nil {
			t.Fatalf("%s: generate: %v", b.Name(), err)
		}
		if strings.Contains(string(out), "size_t len)") || strings.Contains(string(out), "* out)") {
			t.Fatalf("%s: unprefixed parameter in:\n%s", b.Name(), out)
		}
	}
}

func TestOutputName(t *testing.T) {
	cases := []struct {
		backend Backend
		want    string
	}{
		{NewC(), "imu_bh.h"},
		{NewCxx(), "imu_bh.hpp"},
		{NewPython(), "imu_bh.py"},
		{NewGo(""), "imu_bh.go"},
		{NewManifest(), "imu_bh.json"},
	}
	for _, tc := range cases {
		got := OutputName(filepath.Join("a", "b", "imu.bh"), tc.backend)
		if got != filepath.Join("a", "b", tc.want) {
			t.Fatalf("%s: %s", tc.backend.Name(), got)
		}
	}
}

func TestEveryBackendMarksProvenance(t *testing.T) {
	testlog.Start(t)
	msgs := parseIMU(t)
	r := DefaultRegistry(Options{})
	for _, name := range r.Names() {
		out, err := r.GenerateTarget("dir/imu.bh", msgs, name)
		if err != nil {
			t.Fatalf("%s: generate: %v", name, err)
		}
		text := string(out)
		if !strings.Contains(text, "imu.bh") {
			t.Fatalf("%s: output does not name source", name)
		}
		if !strings.Contains(text, "DO NOT EDIT") {
			t.Fatalf("%s: output not marked generated", name)
		}
		if strings.Contains(text, "dir/") {
			t.Fatalf("%s: output leaks directory: %s", name, text)
		}
	}
}

// Each backend spells the same layout differently; check each emits the
// reference codec's offsets for every field.
func TestBackendsAgreeWithReferenceCodec(t *testing.T) {
	testlog.Start(t)
	msgs := parseIMU(t)
	imu := msgs[1]
	in := codec.New(imu)
	for i := range in.Values {
		in.Values[i] = uint64(i + 1)
	}
	ref, err := codec.Encode(in)
	if err != nil {
		t.Fatalf("encode reference: %v", err)
	}
	if len(ref) != 27 {
		t.Fatalf("reference length: %d", len(ref))
	}

	expect := map[string][]string{
		"c": {
			"bh_put_header(bh_buf, 1, 22);",
			"bh_put_u16(bh_buf + 5, bh_msg->accel_x);",
			"bh_put_u16(bh_buf + 17, bh_msg->temp);",
			"bh_put_u64(bh_buf + 19, bh_msg->timestamp);",
			"bh_out->timestamp = bh_get_u64(bh_buf + 19);",
			"static inline size_t RawImuData_buffer_size(const RawImuData* bh_msg) {",
			"return 27;",
		},
		"cxx": {
			"static constexpr uint8_t ID = 1;",
			"static constexpr uint16_t PAYLOAD_SIZE = 22;",
			"buffham::put_u16(bh_buf.data() + 7, this->accel_y);",
			"buffham::put_u64(bh_buf.data() + 19, this->timestamp);",
			"bh_msg.gyro_z = buffham::get_u16(bh_buf + 15);",
			"std::vector<uint8_t> bh_buf(27);",
		},
		"python": {
			"_FORMAT = struct.Struct('<2sBHHHHHHHHQ')",
			"_FORMAT = struct.Struct('<2sBHHQ')",
			"ID = 1",
			"PAYLOAD_SIZE = 22",
			"return 27",
		},
		"go": {
			"binary.LittleEndian.PutUint16(buf[5:7], m.AccelX)",
			"binary.LittleEndian.PutUint64(buf[19:27], m.Timestamp)",
			"binary.LittleEndian.Uint16(buf[17:19]),",
			"func (RawImuData) BufferSize() int { return 27 }",
		},
		"manifest": {
			`{"name":"temp","type":"uint16","codec":"u16le","offset":17,"width":2}`,
			`"payload_size":22,"total_size":27`,
		},
	}
	r := DefaultRegistry(Options{})
	for name, needles := range expect {
		out, err := r.GenerateTarget("imu.bh", msgs, name)
		if err != nil {
			t.Fatalf("%s: generate: %v", name, err)
		}
		for _, needle := range needles {
			if !strings.Contains(string(out), needle) {
				t.Fatalf("%s: missing %q in:\n%s", name, needle, out)
			}
		}
	}
}

func TestExportName(t *testing.T) {
	cases := map[string]string{
		"accel_x":    "AccelX",
		"seq":        "Seq",
		"my-msgs":    "MyMsgs",
		"9lives":     "X9lives",
		"RawImuData": "RawImuData",
		"":           "X",
	}
	for in, want := range cases {
		if got := exportName(in); got != want {
			t.Fatalf("exportName(%q) = %q want %q", in, got, want)
		}
	}
	if got := macroName("imu-v2"); got != "IMU_V2" {
		t.Fatalf("macroName: %s", got)
	}
}
