package gen

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/buffham/internal/testutil/testlog"
	"github.com/tidwall/gjson"
)

func TestManifestDescribesLayout(t *testing.T) {
	testlog.Start(t)
	out, err := Generate("imu.bh", parseIMU(t), NewManifest())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !gjson.ValidBytes(out) {
		t.Fatalf("invalid JSON:\n%s", out)
	}
	doc := gjson.ParseBytes(out)
	checks := map[string]string{
		"source":                     "imu.bh",
		"magic":                      "Bh",
		"header_size":                "5",
		"endianness":                 "little",
		"messages.#":                 "2",
		"messages.0.name":            "Ping",
		"messages.0.id":              "0",
		"messages.0.total_size":      "15",
		"messages.0.fields.1.name":   "timestamp",
		"messages.0.fields.1.offset": "7",
		"messages.1.id":              "1",
		"messages.1.fields.#":        "8",
		"messages.1.fields.7.width":  "8",
	}
	for path, want := range checks {
		if got := doc.Get(path).String(); got != want {
			t.Fatalf("%s: got %q want %q", path, got, want)
		}
	}
}

func TestLoadManifestRoundTrip(t *testing.T) {
	testlog.Start(t)
	msgs := parseIMU(t)
	out, err := Generate("imu.bh", msgs, NewManifest())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	loaded, err := LoadManifest(out)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != len(msgs) {
		t.Fatalf("loaded %d messages", len(loaded))
	}
	for i := range msgs {
		if loaded[i].Name() != msgs[i].Name() || loaded[i].ID() != msgs[i].ID() || loaded[i].TotalSize() != msgs[i].TotalSize() {
			t.Fatalf("message %d: %s vs %s", i, loaded[i], msgs[i])
		}
	}
}

func TestLoadManifestRejectsTampering(t *testing.T) {
	testlog.Start(t)
	out, err := Generate("imu.bh", parseIMU(t), NewManifest())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	cases := map[string]string{
		"not json":   "{",
		"magic":      strings.Replace(string(out), `"magic":"Bh"`, `"magic":"XX"`, 1),
		"offset":     strings.Replace(string(out), `"offset":7,`, `"offset":8,`, 1),
		"type":       strings.Replace(string(out), `"type":"uint64"`, `"type":"float"`, 1),
		"total size": strings.Replace(string(out), `"total_size":15`, `"total_size":16`, 1),
	}
	for name, doc := range cases {
		if _, err := LoadManifest([]byte(doc)); !errors.Is(err, ErrBadManifest) {
			t.Fatalf("%s: expected ErrBadManifest, got %v", name, err)
		}
	}
}
