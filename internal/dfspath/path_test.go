package dfspath

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"   ", "/"},
		{"//", "/"},
		{"/docs", "/docs/"},
		{"/docs/", "/docs/"},
		{"docs", "/docs/"},
		{"//docs///reports//", "/docs/reports/"},
		{"/a/b/c", "/a/b/c/"},
	}

	for _, tc := range cases {
		got := Normalize(tc.raw).Display()
		if got != tc.want {
			t.Errorf("Normalize(%q).Display() = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	raws := []string{"", "/", "/docs", "docs/reports/", "//a//b//", "  /x/y  "}

	for _, raw := range raws {
		once := Normalize(raw)
		again := Normalize(once.Display())
		if !once.Equal(again) {
			t.Errorf("Normalize not idempotent for %q: %v vs %v", raw, once, again)
		}
	}
}

func TestParent(t *testing.T) {
	p := Normalize("/docs/reports")
	if got := p.Parent().Display(); got != "/docs/" {
		t.Errorf("Parent() = %q, want %q", got, "/docs/")
	}

	root := Root()
	if !root.Parent().IsRoot() {
		t.Error("Parent of root should be root")
	}
	// Idempotent at the boundary
	if !root.Parent().Parent().IsRoot() {
		t.Error("Repeated Parent at root should stay at root")
	}
}

func TestJoin(t *testing.T) {
	p, err := Root().Join("docs")
	if err != nil {
		t.Fatalf("Join(docs) error: %v", err)
	}
	if p.Display() != "/docs/" {
		t.Errorf("Join result = %q, want %q", p.Display(), "/docs/")
	}

	bad := []string{"", "a/b", "a\\b", "x\ny", "bell\x07"}
	for _, name := range bad {
		if _, err := Root().Join(name); err == nil {
			t.Errorf("Join(%q) should fail", name)
		}
	}
}

func TestBaseAndDepth(t *testing.T) {
	p := Normalize("/docs/reports/2025")
	if p.Base() != "2025" {
		t.Errorf("Base() = %q, want %q", p.Base(), "2025")
	}
	if p.Depth() != 3 {
		t.Errorf("Depth() = %d, want 3", p.Depth())
	}
	if Root().Base() != "" {
		t.Error("Base of root should be empty")
	}
}

func TestEqual(t *testing.T) {
	if !Normalize("/docs/").Equal(Normalize("docs")) {
		t.Error("Equivalent paths should be equal")
	}
	if Normalize("/docs").Equal(Normalize("/docs/reports")) {
		t.Error("Different paths should not be equal")
	}
}

func TestSegmentsCopy(t *testing.T) {
	p := Normalize("/a/b")
	segs := p.Segments()
	segs[0] = "mutated"
	if p.Segments()[0] != "a" {
		t.Error("Segments() must return a copy")
	}
}
