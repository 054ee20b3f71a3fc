package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
)

const indexName = "auth-audit"

type Entry struct {
	Event    string    `json:"event"`
	Username string    `json:"username"`
	At       time.Time `json:"at"`
}

// Recorder ships auth events to an Elasticsearch audit index. Nil-safe,
// like the Kafka producer, so it is optional wiring.
type Recorder struct {
	client *elasticsearch.Client
}

func NewRecorder(url, username, password string) (*Recorder, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{url},
		Username:  username,
		Password:  password,
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("audit: create client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("audit: elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("audit: elasticsearch error: %s: %s", res.Status(), body)
	}

	return &Recorder{client: client}, nil
}

func (r *Recorder) Record(ctx context.Context, e Entry) error {
	if r == nil {
		return nil
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: json.Marshal failed: %w", err)
	}

	res, err := r.client.Index(
		indexName,
		bytes.NewReader(data),
		r.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("audit: index failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("audit: index error: %s", res.Status())
	}
	return nil
}
