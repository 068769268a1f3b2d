package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kalambet/courtlens/internal/authority"
	"github.com/kalambet/courtlens/internal/courtlistener"
)

// fakeUpstream builds an httptest server that answers the dockets and
// recap-documents endpoints with canned handlers.
func fakeUpstream(t *testing.T, dockets, recap http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	if dockets != nil {
		mux.HandleFunc(courtlistener.DocketsPath, dockets)
	}
	if recap != nil {
		mux.HandleFunc(courtlistener.RecapDocumentsPath, recap)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newResolver(t *testing.T, srv *httptest.Server) *Resolver {
	t.Helper()
	return New(courtlistener.NewWithBaseURL("t", srv.URL), authority.New())
}

func jsonBody(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func TestResolve_EmptyCaseNumber(t *testing.T) {
	var called atomic.Bool
	srv := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
		jsonBody(w, `{"results":[]}`)
	}, nil)
	r := newResolver(t, srv)

	for _, caseNumber := range []string{"", "   ", "\t\n"} {
		_, err := r.Resolve(context.Background(), Request{CaseNumber: caseNumber})
		var re *ResolveError
		if !errors.As(err, &re) || re.Kind != KindInput {
			t.Errorf("Resolve(%q) err = %v, want kind %q", caseNumber, err, KindInput)
		}
	}
	if called.Load() {
		t.Error("upstream was called for invalid input")
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 1},
		{-5, 1},
		{1, 1},
		{25, 25},
		{50, 50},
		{51, 50},
		{999, 50},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestResolve_LimitClampedUpstream(t *testing.T) {
	var gotPageSizes []string
	srv := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotPageSizes = append(gotPageSizes, r.URL.Query().Get("page_size"))
		jsonBody(w, `{"results":[]}`)
	}, nil)
	r := newResolver(t, srv)

	tests := []struct {
		limit int
		want  string
	}{
		{0, "1"},
		{-5, "1"},
		{7, "7"},
		{999, "50"},
	}
	for _, tt := range tests {
		gotPageSizes = gotPageSizes[:0]
		if _, err := r.Resolve(context.Background(), Request{CaseNumber: "2:23-cv-11111", Limit: tt.limit}); err != nil {
			t.Fatalf("Resolve(limit=%d) failed: %v", tt.limit, err)
		}
		if len(gotPageSizes) != 1 || gotPageSizes[0] != tt.want {
			t.Errorf("limit %d: page_size sent upstream = %v, want [%q]", tt.limit, gotPageSizes, tt.want)
		}
	}
}

func TestResolve_ZeroDockets(t *testing.T) {
	srv := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		jsonBody(w, `{"results":[]}`)
	}, nil)
	r := newResolver(t, srv)

	res, err := r.Resolve(context.Background(), Request{CaseNumber: "2:23-cv-404"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Docket != nil {
		t.Errorf("Docket = %+v, want nil", res.Docket)
	}
	if res.Recap == nil || len(res.Recap) != 0 {
		t.Errorf("Recap = %v, want empty non-nil slice", res.Recap)
	}
	if res.CaseNumber != "2:23-cv-404" {
		t.Errorf("CaseNumber = %q", res.CaseNumber)
	}
	if res.Provenance.FetchedAt.IsZero() {
		t.Error("Provenance.FetchedAt is zero")
	}
}

func TestResolve_FullMerge(t *testing.T) {
	srv := fakeUpstream(t,
		func(w http.ResponseWriter, r *http.Request) {
			// Two dockets; only the first is canonical.
			jsonBody(w, `{"results":[
				{"id":111,"case_name":"People v. Smith","court_id":"mich","docket_number":"163999","date_filed":"2023-01-10","absolute_url":"/docket/111/people-v-smith/"},
				{"id":222,"case_name":"Other","court_id":"miwd"}
			]}`)
		},
		func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("docket"); got != "111" {
				t.Errorf("document lookup docket = %q, want 111", got)
			}
			jsonBody(w, `{"results":[
				{"id":9,"description":"Opinion","document_number":"1","date_filed":"2023-02-01","filepath_local":"recap/9.pdf","absolute_url":"/doc/9/"},
				{"id":10,"description":"Order","filepath_ia":"https://archive.org/10.pdf"}
			]}`)
		})
	r := newResolver(t, srv)

	res, err := r.Resolve(context.Background(), Request{CaseNumber: "163999", Courts: []string{"mich"}})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Docket == nil || res.Docket.ID != "111" {
		t.Fatalf("Docket = %+v, want canonical id 111", res.Docket)
	}
	if res.Docket.URL != srv.URL+"/docket/111/people-v-smith/" {
		t.Errorf("Docket.URL = %q, want absolute", res.Docket.URL)
	}

	if res.Authority == nil {
		t.Fatal("Authority missing for known court")
	}
	if res.Authority.Score != 95 || !res.Authority.Binding || res.Authority.Level != authority.LevelSupreme {
		t.Errorf("Authority = %+v", res.Authority)
	}

	if len(res.Recap) != 2 {
		t.Fatalf("got %d recap documents, want 2", len(res.Recap))
	}
	if res.Recap[0].DownloadURL != srv.URL+"/recap/9.pdf" {
		t.Errorf("DownloadURL = %q, want absolute filepath_local", res.Recap[0].DownloadURL)
	}
	if res.Recap[1].DownloadURL != "https://archive.org/10.pdf" {
		t.Errorf("DownloadURL = %q, want filepath_ia fallback", res.Recap[1].DownloadURL)
	}
	for _, d := range res.Recap {
		if d.Source != recapSourceTag {
			t.Errorf("Source = %q, want %q", d.Source, recapSourceTag)
		}
	}
}

func TestResolve_UnknownCourtAuthority(t *testing.T) {
	srv := fakeUpstream(t,
		func(w http.ResponseWriter, r *http.Request) {
			jsonBody(w, `{"results":[{"id":1,"court_id":"nysd"}]}`)
		},
		func(w http.ResponseWriter, r *http.Request) {
			jsonBody(w, `{"results":[]}`)
		})
	r := newResolver(t, srv)

	res, err := r.Resolve(context.Background(), Request{CaseNumber: "1:1"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Authority == nil || *res.Authority != authority.Unclassified {
		t.Errorf("Authority = %+v, want Unclassified default", res.Authority)
	}
}

func TestResolve_DocketLookupFails(t *testing.T) {
	var recapCalled atomic.Bool
	srv := fakeUpstream(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail":"upstream exploded"}`))
		},
		func(w http.ResponseWriter, r *http.Request) {
			recapCalled.Store(true)
		})
	r := newResolver(t, srv)

	_, err := r.Resolve(context.Background(), Request{CaseNumber: "2:23-cv-1"})
	var re *ResolveError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *ResolveError", err)
	}
	if re.Kind != KindDocketLookup {
		t.Errorf("Kind = %q, want %q", re.Kind, KindDocketLookup)
	}
	if re.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500 (upstream status preserved)", re.Status)
	}
	if re.Details == "" {
		t.Error("Details missing upstream body")
	}
	if recapCalled.Load() {
		t.Error("secondary lookup attempted after primary failure")
	}
}

func TestResolve_DocumentLookupFailureSwallowed(t *testing.T) {
	srv := fakeUpstream(t,
		func(w http.ResponseWriter, r *http.Request) {
			jsonBody(w, `{"results":[{"id":55,"case_name":"Doe v. Roe","court_id":"mied"}]}`)
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
	r := newResolver(t, srv)

	res, err := r.Resolve(context.Background(), Request{CaseNumber: "2:23-cv-2"})
	if err != nil {
		t.Fatalf("Resolve failed: %v (enrichment failure must be swallowed)", err)
	}
	if res.Docket == nil || res.Docket.ID != "55" {
		t.Errorf("Docket = %+v, want id 55", res.Docket)
	}
	if len(res.Recap) != 0 {
		t.Errorf("Recap = %v, want empty", res.Recap)
	}
}

func TestResolve_NoDocketIDSkipsDocumentLookup(t *testing.T) {
	var recapCalled atomic.Bool
	srv := fakeUpstream(t,
		func(w http.ResponseWriter, r *http.Request) {
			jsonBody(w, `{"results":[{"case_name":"No ID Case","court_id":"ca6"}]}`)
		},
		func(w http.ResponseWriter, r *http.Request) {
			recapCalled.Store(true)
		})
	r := newResolver(t, srv)

	res, err := r.Resolve(context.Background(), Request{CaseNumber: "x"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Docket == nil || res.Docket.CaseName != "No ID Case" {
		t.Errorf("Docket = %+v", res.Docket)
	}
	if recapCalled.Load() {
		t.Error("document lookup issued for docket without id")
	}
	if len(res.Recap) != 0 {
		t.Errorf("Recap = %v, want empty", res.Recap)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	srv := fakeUpstream(t,
		func(w http.ResponseWriter, r *http.Request) {
			jsonBody(w, `{"results":[{"id":7,"case_name":"Stable v. Stable","court_id":"michctapp"}]}`)
		},
		func(w http.ResponseWriter, r *http.Request) {
			jsonBody(w, `{"results":[{"id":70,"description":"Brief"}]}`)
		})
	r := newResolver(t, srv)

	req := Request{CaseNumber: "163000"}
	first, err := r.Resolve(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Resolve(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	// Timestamps excluded from the comparison.
	first.Provenance.FetchedAt = second.Provenance.FetchedAt
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("repeated resolutions differ:\n%s\n%s", a, b)
	}
}

func TestResolveBatch(t *testing.T) {
	srv := fakeUpstream(t,
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("docket_number") == "bad" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			jsonBody(w, `{"results":[]}`)
		}, nil)
	r := newResolver(t, srv)

	entries := r.ResolveBatch(context.Background(), []Request{
		{CaseNumber: "good-1"},
		{CaseNumber: "bad"},
		{CaseNumber: "good-2"},
	})
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Err != nil || entries[2].Err != nil {
		t.Errorf("independent entries failed: %v, %v", entries[0].Err, entries[2].Err)
	}
	var re *ResolveError
	if !errors.As(entries[1].Err, &re) || re.Status != http.StatusForbidden {
		t.Errorf("entries[1].Err = %v, want 403 ResolveError", entries[1].Err)
	}
	if entries[0].Request.CaseNumber != "good-1" || entries[2].Request.CaseNumber != "good-2" {
		t.Error("entries out of input order")
	}
}
