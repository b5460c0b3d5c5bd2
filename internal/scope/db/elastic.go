package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticStore keeps records in an Elasticsearch index, one document per key
type ElasticStore struct {
	es        *elasticsearch.Client
	transport *http.Transport
}

// NewElasticStore creates a client for the cluster at addr. No request is
// sent until the first operation.
func NewElasticStore(addr string) (*ElasticStore, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{addr},
		Transport: tr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticStore{es: es, transport: tr}, nil
}

// EnsureIndex creates the index with default settings when it is missing
func (s *ElasticStore) EnsureIndex(ctx context.Context) error {
	res, err := s.es.Indices.Exists([]string{IndexName}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", IndexName, err)
	}
	drain(res)

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("failed to check index %s: unexpected status %d", IndexName, res.StatusCode)
	}

	res, err = s.es.Indices.Create(IndexName, s.es.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", IndexName, err)
	}
	defer drain(res)

	if res.IsError() {
		e := decodeError(res)
		// Another instance won the race between exists and create
		if e.Type == "resource_already_exists_exception" {
			return nil
		}
		return fmt.Errorf("failed to create index %s: %s", IndexName, e)
	}

	return nil
}

// ErrEmptyKey is returned by ElasticStore.Upsert for a city that lowercases
// to "". Elasticsearch would otherwise assign a fresh id on every call.
var ErrEmptyKey = errors.New("empty document id")

// docID escapes key for the request path. The client splices ids into the
// URL verbatim, so '?', '#' and '/' would otherwise truncate or split them.
func docID(key string) string {
	return url.PathEscape(key)
}

// Upsert indexes the record under its key, replacing any existing document
func (s *ElasticStore) Upsert(ctx context.Context, rec Record) error {
	key := Key(rec.City)
	if key == "" {
		return ErrEmptyKey
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	res, err := s.es.Index(IndexName, bytes.NewReader(body),
		s.es.Index.WithDocumentID(docID(key)),
		s.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index %q: %w", key, err)
	}
	defer drain(res)

	if res.IsError() {
		return fmt.Errorf("failed to index %q: %s", key, decodeError(res))
	}

	return nil
}

// Get fetches the document with the given id
func (s *ElasticStore) Get(ctx context.Context, key string) (Record, error) {
	if key == "" {
		return Record{}, ErrNotFound
	}

	res, err := s.es.Get(IndexName, docID(key), s.es.Get.WithContext(ctx))
	if err != nil {
		return Record{}, fmt.Errorf("failed to get %q: %w", key, err)
	}
	defer drain(res)

	if res.StatusCode == http.StatusNotFound {
		return Record{}, ErrNotFound
	}
	if res.IsError() {
		return Record{}, fmt.Errorf("failed to get %q: %s", key, decodeError(res))
	}

	var doc struct {
		Found  bool   `json:"found"`
		Source Record `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return Record{}, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	if !doc.Found {
		return Record{}, ErrNotFound
	}

	return doc.Source, nil
}

// Ping checks that the cluster answers
func (s *ElasticStore) Ping(ctx context.Context) error {
	res, err := s.es.Ping(s.es.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	drain(res)

	if res.IsError() {
		return fmt.Errorf("ping returned status %d", res.StatusCode)
	}
	return nil
}

// Close releases pooled connections
func (s *ElasticStore) Close() error {
	s.transport.CloseIdleConnections()
	return nil
}

type esError struct {
	Status int
	Type   string
	Reason string
}

func (e esError) String() string {
	if e.Type == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s: %s", e.Status, e.Type, e.Reason)
}

// decodeError extracts the error type and reason from an error response body
func decodeError(res *esapi.Response) esError {
	e := esError{Status: res.StatusCode}

	var body struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if res.Body != nil && json.NewDecoder(res.Body).Decode(&body) == nil {
		e.Type = body.Error.Type
		e.Reason = strings.TrimSpace(body.Error.Reason)
	}

	return e
}

func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
