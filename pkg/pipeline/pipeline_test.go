package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/feedmirror/feedmirror/pkg/fetch"
	"github.com/feedmirror/feedmirror/pkg/plugin"
	"github.com/feedmirror/feedmirror/pkg/store"
)

func testClient() *fetch.Client {
	return fetch.New(fetch.Policy{
		Attempts: 2,
		Delay:    time.Millisecond,
		Timeout:  time.Second,
	})
}

func testStore(t *testing.T) store.Store {
	t.Helper()
	s := store.New(t.TempDir())
	if err := s.Reset(PayloadDir); err != nil {
		t.Fatal(err)
	}
	return s
}

// payloadServer serves a fixed body on every path except /missing/*.
func payloadServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) >= 8 && r.URL.Path[:8] == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProcessAllSingleSuccess(t *testing.T) {
	srv := payloadServer(t, "console.log(1)")
	st := testStore(t)
	p := &Processor{Client: testClient(), Store: st}

	processed, originals := p.ProcessAll(context.Background(), []plugin.Descriptor{
		{"name": "网易云Test", "url": srv.URL + "/a.js"},
	})

	if len(processed) != 1 || len(originals) != 1 {
		t.Fatalf("got %d processed, %d originals, want 1 and 1", len(processed), len(originals))
	}

	got := processed[0]
	if got.Name() != "WTest" {
		t.Errorf("processed name = %q, want %q", got.Name(), "WTest")
	}
	if got.URL() != "js/WTest.js" {
		t.Errorf("processed url = %q, want %q", got.URL(), "js/WTest.js")
	}

	orig := originals[0]
	if orig.Name() != "WTest" {
		t.Errorf("original name = %q, want %q", orig.Name(), "WTest")
	}
	if orig.URL() != srv.URL+"/a.js" {
		t.Errorf("original url = %q, want source url", orig.URL())
	}

	body, err := st.ReadFile(PayloadDir, "WTest.js")
	if err != nil {
		t.Fatalf("mirrored file missing: %v", err)
	}
	if string(body) != "console.log(1)" {
		t.Errorf("mirrored content = %q", body)
	}
}

func TestProcessAllCDNMode(t *testing.T) {
	tests := map[string]struct {
		cdnBase string
		want    string
	}{
		"no cdn": {
			cdnBase: "",
			want:    "js/Foo.js",
		},
		"cdn base": {
			cdnBase: "https://cdn.example/mirror",
			want:    "https://cdn.example/mirror/Foo.js",
		},
		"cdn base with trailing slash": {
			cdnBase: "https://cdn.example/mirror/",
			want:    "https://cdn.example/mirror/Foo.js",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			srv := payloadServer(t, "x")
			p := &Processor{Client: testClient(), Store: testStore(t), CDNBase: tc.cdnBase}

			processed, _ := p.ProcessAll(context.Background(), []plugin.Descriptor{
				{"name": "Foo", "url": srv.URL + "/foo.js"},
			})
			if len(processed) != 1 {
				t.Fatalf("got %d processed, want 1", len(processed))
			}
			if got := processed[0].URL(); got != tc.want {
				t.Errorf("url = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestProcessAllDuplicateURL(t *testing.T) {
	srv := payloadServer(t, "x")
	p := &Processor{Client: testClient(), Store: testStore(t)}

	url := srv.URL + "/same.js"
	processed, originals := p.ProcessAll(context.Background(), []plugin.Descriptor{
		{"name": "First", "url": url},
		{"name": "网易云Second", "url": url},
	})

	if len(processed) != 1 {
		t.Fatalf("got %d processed, want 1", len(processed))
	}
	if len(originals) != 2 {
		t.Fatalf("got %d originals, want 2", len(originals))
	}

	// The duplicate keeps its raw name: no substitution, no suffix. Which
	// descriptor wins the race is unspecified, so check the pair as a set.
	var names []string
	for _, o := range originals {
		names = append(names, o.Name())
	}
	sort.Strings(names)

	switch {
	case names[0] == "First" && names[1] == "网易云Second":
		// "First" processed, duplicate kept raw.
	case names[0] == "First" && names[1] == "WSecond":
		// "网易云Second" processed (resolved), duplicate "First" kept raw.
	default:
		t.Errorf("original names = %v", names)
	}
}

func TestProcessAllFailedDownload(t *testing.T) {
	srv := payloadServer(t, "x")
	p := &Processor{Client: testClient(), Store: testStore(t)}

	processed, originals := p.ProcessAll(context.Background(), []plugin.Descriptor{
		{"name": "Good", "url": srv.URL + "/good.js"},
		{"name": "网易云Bad", "url": srv.URL + "/missing/bad.js"},
	})

	if len(processed) != 1 {
		t.Fatalf("got %d processed, want 1", len(processed))
	}
	if processed[0].Name() != "Good" {
		t.Errorf("processed name = %q", processed[0].Name())
	}
	if len(originals) != 2 {
		t.Fatalf("got %d originals, want 2", len(originals))
	}

	// The failed descriptor's original record keeps the unresolved name.
	for _, o := range originals {
		if o.URL() == srv.URL+"/missing/bad.js" && o.Name() != "网易云Bad" {
			t.Errorf("failed original name = %q, want raw name", o.Name())
		}
	}
}

func TestProcessAllMissingURL(t *testing.T) {
	p := &Processor{Client: testClient(), Store: testStore(t)}

	processed, originals := p.ProcessAll(context.Background(), []plugin.Descriptor{
		{"name": "NoURL"},
	})

	if len(processed) != 0 {
		t.Errorf("got %d processed, want 0", len(processed))
	}
	if len(originals) != 1 || originals[0].Name() != "NoURL" {
		t.Errorf("originals = %v", originals)
	}
}

func TestProcessAllOriginalsCountInvariant(t *testing.T) {
	srv := payloadServer(t, "x")
	p := &Processor{Client: testClient(), Store: testStore(t)}

	// A mix: two successes, one duplicate, one failure.
	descs := []plugin.Descriptor{
		{"name": "A", "url": srv.URL + "/a.js"},
		{"name": "B", "url": srv.URL + "/b.js"},
		{"name": "A again", "url": srv.URL + "/a.js"},
		{"name": "Dead", "url": srv.URL + "/missing/dead.js"},
	}

	processed, originals := p.ProcessAll(context.Background(), descs)

	if len(originals) != len(descs) {
		t.Errorf("originals = %d, want input count %d", len(originals), len(descs))
	}
	if len(processed) != 2 {
		t.Errorf("processed = %d, want 2", len(processed))
	}
}

func TestProcessAllNameCollisionsConcurrent(t *testing.T) {
	srv := payloadServer(t, "x")
	p := &Processor{Client: testClient(), Store: testStore(t)}

	var descs []plugin.Descriptor
	for i := range 3 {
		descs = append(descs, plugin.Descriptor{
			"name": "Foo",
			"url":  fmt.Sprintf("%s/foo-%d.js", srv.URL, i),
		})
	}

	processed, originals := p.ProcessAll(context.Background(), descs)

	if len(processed) != 3 || len(originals) != 3 {
		t.Fatalf("got %d processed, %d originals, want 3 and 3", len(processed), len(originals))
	}

	var names []string
	for _, d := range processed {
		names = append(names, d.Name())
	}
	sort.Strings(names)

	want := []string{"Foo", "Foo_1", "Foo_2"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("resolved names = %v, want %v", names, want)
		}
	}

	// Every suffix maps to its own stored file.
	st := p.Store
	for _, f := range []string{"Foo.js", "Foo_1.js", "Foo_2.js"} {
		ok, err := st.Exists(PayloadDir, f)
		if err != nil || !ok {
			t.Errorf("stored file %s missing (err=%v)", f, err)
		}
	}
}

func TestProcessAllOpaqueFieldsPassThrough(t *testing.T) {
	srv := payloadServer(t, "x")
	p := &Processor{Client: testClient(), Store: testStore(t)}

	processed, originals := p.ProcessAll(context.Background(), []plugin.Descriptor{
		{"name": "Foo", "url": srv.URL + "/a.js", "author": "someone", "version": "1.2.3"},
	})

	for _, d := range []plugin.Descriptor{processed[0], originals[0]} {
		if d["author"] != "someone" || d["version"] != "1.2.3" {
			t.Errorf("opaque fields lost: %v", d)
		}
	}
}

func TestProcessAllWithConcurrencyLimit(t *testing.T) {
	srv := payloadServer(t, "x")
	p := &Processor{Client: testClient(), Store: testStore(t), Concurrency: 1}

	var descs []plugin.Descriptor
	for i := range 5 {
		descs = append(descs, plugin.Descriptor{
			"name": fmt.Sprintf("P%d", i),
			"url":  fmt.Sprintf("%s/p-%d.js", srv.URL, i),
		})
	}

	processed, originals := p.ProcessAll(context.Background(), descs)
	if len(processed) != 5 || len(originals) != 5 {
		t.Errorf("got %d processed, %d originals, want 5 and 5", len(processed), len(originals))
	}
}

func TestProcessAllEmptyInput(t *testing.T) {
	p := &Processor{Client: testClient(), Store: testStore(t)}

	processed, originals := p.ProcessAll(context.Background(), nil)
	if len(processed) != 0 || len(originals) != 0 {
		t.Errorf("got %d processed, %d originals, want 0 and 0", len(processed), len(originals))
	}
}
