package normalize

import "testing"

func TestApplyDecodeDepth(t *testing.T) {
	res := Apply("%252e%252e%252f", Options{MaxDecodeDepth: 1})
	if res.Normalized != "%2e%2e%2f" {
		t.Fatalf("expected partial decode, got %q", res.Normalized)
	}

	res = Apply("%252e%252e%252f", Options{MaxDecodeDepth: 2})
	if res.Normalized != "../" {
		t.Fatalf("expected full decode, got %q", res.Normalized)
	}

	res = Apply("%25252fweb", Options{MaxDecodeDepth: 2})
	if res.Normalized != "%2fweb" {
		t.Fatalf("expected decoding to stop at depth 2, got %q", res.Normalized)
	}
}

func TestApplyTransforms(t *testing.T) {
	res := Apply("%2FGeoServer%2FWeb", Options{MaxDecodeDepth: 1, Lowercase: true})
	if res.Normalized != "/geoserver/web" {
		t.Fatalf("expected lowercase, got %q", res.Normalized)
	}

	res = Apply("/geoserver/%2577EB/./x", Options{MaxDecodeDepth: 2, Lowercase: true, NormalizePath: true})
	if res.Normalized != "/geoserver/web/x" {
		t.Fatalf("expected canonical path, got %q", res.Normalized)
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/a//b/./c":  "/a/b/c",
		"/a/b/../c":  "/a/c",
		"../a/../b":  "b",
		"/../a":      "/a",
		"/a/b/":      "/a/b/",
		"":           "/",
		"/":          "/",
		"/a/../../b": "/b",
	}

	for input, expected := range cases {
		got := NormalizePath(input)
		if got != expected {
			t.Fatalf("NormalizePath(%q) expected %q, got %q", input, expected, got)
		}
	}
}
