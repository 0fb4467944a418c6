package resource

import (
	"net/url"
	"testing"
)

func TestParseParamsDefaults(t *testing.T) {
	d := Descriptor{Table: "dues"}
	p := ParseParams(d, url.Values{})

	if p.Page != 1 {
		t.Fatalf("default page = %d, want 1", p.Page)
	}
	if p.Limit != 50 {
		t.Fatalf("default limit = %d, want 50", p.Limit)
	}
	if p.Export {
		t.Fatal("export should default to false")
	}
}

func TestParseParamsLimitAboveMaxFallsBackToDefault(t *testing.T) {
	d := Descriptor{Table: "dues", DefaultLimit: 25, MaxLimit: 100}
	p := ParseParams(d, url.Values{"__limit": {"5000"}})
	if p.Limit != 25 {
		t.Fatalf("oversized limit = %d, want default 25", p.Limit)
	}

	p = ParseParams(d, url.Values{"__limit": {"80"}})
	if p.Limit != 80 {
		t.Fatalf("in-range limit = %d, want 80", p.Limit)
	}

	p = ParseParams(d, url.Values{"__limit": {"0"}})
	if p.Limit != 25 {
		t.Fatalf("zero limit = %d, want default 25", p.Limit)
	}
}

func TestParseParamsBadPageIgnored(t *testing.T) {
	d := Descriptor{Table: "dues"}
	p := ParseParams(d, url.Values{"__page": {"-3"}})
	if p.Page != 1 {
		t.Fatalf("negative page = %d, want 1", p.Page)
	}
	p = ParseParams(d, url.Values{"__page": {"abc"}})
	if p.Page != 1 {
		t.Fatalf("garbage page = %d, want 1", p.Page)
	}
}

func TestParseParamsMultiValue(t *testing.T) {
	d := Descriptor{Table: "dues"}
	p := ParseParams(d, url.Values{"__only": {"id, name ,amount"}})
	if len(p.Only) != 3 || p.Only[0] != "id" || p.Only[1] != "name" || p.Only[2] != "amount" {
		t.Fatalf("comma split failed: %v", p.Only)
	}

	p = ParseParams(d, url.Values{"__exclude": {"a", "b"}})
	if len(p.Exclude) != 2 {
		t.Fatalf("repeated params failed: %v", p.Exclude)
	}
}

func TestParseParamsExportFlag(t *testing.T) {
	d := Descriptor{Table: "dues"}
	p := ParseParams(d, url.Values{"__export__": {""}})
	if !p.Export {
		t.Fatal("__export__ presence should enable export")
	}
}
