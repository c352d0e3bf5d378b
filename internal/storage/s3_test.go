package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	body   string
}

func newTestS3(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*S3Service, *[]recordedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			body:   string(body),
		})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials:  aws.AnonymousCredentials{},
	})
	return NewS3Service(client), &requests
}

func TestS3PutObject(t *testing.T) {
	svc, requests := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	location, err := svc.PutObject(context.Background(), "exports", "/alice/snap.json", strings.NewReader(`{"tasks":[]}`), "application/json")
	if err != nil {
		t.Fatalf("put object: %v", err)
	}
	if location != "s3://exports/alice/snap.json" {
		t.Fatalf("location = %q", location)
	}
	if len(*requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(*requests))
	}
	req := (*requests)[0]
	if req.method != http.MethodPut || req.path != "/exports/alice/snap.json" {
		t.Fatalf("unexpected request %s %s", req.method, req.path)
	}
	if !strings.Contains(req.body, `{"tasks":[]}`) {
		t.Fatalf("body = %q", req.body)
	}
}

func TestS3PutObjectValidatesInput(t *testing.T) {
	svc, requests := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if _, err := svc.PutObject(context.Background(), "", "k", strings.NewReader("x"), ""); err == nil {
		t.Fatal("expected error for empty bucket")
	}
	if _, err := svc.PutObject(context.Background(), "b", "/", strings.NewReader("x"), ""); err == nil {
		t.Fatal("expected error for empty key")
	}
	if len(*requests) != 0 {
		t.Fatalf("requests = %d, want 0", len(*requests))
	}
}

func TestS3ListObjects(t *testing.T) {
	svc, requests := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>exports</Name>
  <Prefix>alice/</Prefix>
  <KeyCount>2</KeyCount>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>alice/a.json</Key><Size>12</Size><LastModified>2026-10-17T12:00:00.000Z</LastModified></Contents>
  <Contents><Key>alice/b.json</Key><Size>30</Size><LastModified>2026-10-17T13:00:00.000Z</LastModified></Contents>
</ListBucketResult>`)
	})

	objects, err := svc.ListObjects(context.Background(), "exports", "alice/")
	if err != nil {
		t.Fatalf("list objects: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("objects = %d, want 2", len(objects))
	}
	if objects[0].Key != "alice/a.json" || objects[0].Size != 12 || objects[0].LastModified == nil {
		t.Fatalf("unexpected object %+v", objects[0])
	}
	if got := (*requests)[0].query; !strings.Contains(got, "prefix=alice%2F") {
		t.Fatalf("query = %q, want prefix", got)
	}
}

func TestS3DeletePrefixRequiresFolderPrefix(t *testing.T) {
	svc, requests := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	for _, prefix := range []string{"  ", "/", "exports/user-1"} {
		if err := svc.DeletePrefix(context.Background(), "exports", prefix); err == nil {
			t.Fatalf("prefix %q: expected error", prefix)
		}
	}
	if len(*requests) != 0 {
		t.Fatalf("requests = %d, want 0", len(*requests))
	}
}

func TestS3DeletePrefixRemovesListedObjects(t *testing.T) {
	svc, requests := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		if r.Method == http.MethodPost {
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<DeleteResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"></DeleteResult>`)
			return
		}
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>exports</Name>
  <Prefix>exports/user-1/</Prefix>
  <KeyCount>2</KeyCount>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>exports/user-1/a.json</Key><Size>12</Size></Contents>
  <Contents><Key>exports/user-1/b.json</Key><Size>30</Size></Contents>
</ListBucketResult>`)
	})

	if err := svc.DeletePrefix(context.Background(), "exports", "exports/user-1/"); err != nil {
		t.Fatalf("delete prefix: %v", err)
	}
	if len(*requests) != 2 {
		t.Fatalf("requests = %d, want list + delete", len(*requests))
	}
	list, del := (*requests)[0], (*requests)[1]
	if list.method != http.MethodGet || !strings.Contains(list.query, "prefix=exports%2Fuser-1%2F") {
		t.Fatalf("unexpected list request %s ?%s", list.method, list.query)
	}
	if del.method != http.MethodPost || !strings.Contains(del.query, "delete") {
		t.Fatalf("unexpected delete request %s ?%s", del.method, del.query)
	}
	for _, key := range []string{"exports/user-1/a.json", "exports/user-1/b.json"} {
		if !strings.Contains(del.body, "<Key>"+key+"</Key>") {
			t.Fatalf("delete body missing %s: %s", key, del.body)
		}
	}
}
